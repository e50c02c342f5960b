package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/enquiry"
)

type enquiryRepository struct {
	db *DB
}

func NewEnquiryRepository(db *DB) enquiry.Repository {
	return &enquiryRepository{db: db}
}

func (repo *enquiryRepository) CreateEnquiry(_ context.Context, e *enquiry.Enquiry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.enqSeq++
	e.ID = repo.db.enqSeq
	stored := *e
	repo.db.enquiries[e.ID] = &stored
	return nil
}

func (repo *enquiryRepository) FilterEnquiries(_ context.Context, filter enquiry.QueryFilter) ([]enquiry.Enquiry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	list := make([]enquiry.Enquiry, 0, len(repo.db.enquiries))
	for _, e := range repo.db.enquiries {
		if search != "" && !strings.Contains(strings.ToLower(e.Name+"\n"+e.Email+"\n"+e.Subject+"\n"+e.Message), search) {
			continue
		}
		if filter.IsRead != nil && e.IsRead != *filter.IsRead {
			continue
		}
		list = append(list, *e)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (repo *enquiryRepository) GetEnquiry(_ context.Context, id int) (enquiry.Enquiry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enquiries[id]; ok {
		return *e, nil
	}
	return enquiry.Enquiry{}, core.ErrNotFound
}

func (repo *enquiryRepository) MarkEnquiryRead(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.enquiries[id]
	if !ok {
		return core.ErrNotFound
	}
	e.IsRead = true
	return nil
}

func (repo *enquiryRepository) DeleteEnquiries(_ context.Context, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.enquiries[id]; ok {
			delete(repo.db.enquiries, id)
			deleted++
		}
	}
	if deleted == 0 {
		return core.ErrNotFound
	}
	return nil
}
