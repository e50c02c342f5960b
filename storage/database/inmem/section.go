package inmemdb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
)

type sectionRepository struct {
	db *DB
}

func NewSectionRepository(db *DB) section.Repository {
	return &sectionRepository{db: db}
}

func (repo *sectionRepository) GetSection(_ context.Context, s section.Section) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	row, ok := repo.db.sections[s.Key()]
	if !ok {
		return core.ErrNotFound
	}
	return errors.Wrap(json.Unmarshal(row, s), "decoding section")
}

func (repo *sectionRepository) SaveSection(_ context.Context, s section.Section) error {
	row, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding section")
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.sections[s.Key()] = row
	return nil
}
