package showcase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

var (
	ErrUnknownKind = errors.New("unknown collection")
	ErrSlugExists  = errors.New("an item with this slug already exists")

	NowFunc = time.Now // mockable
)

type Repository interface {
	// ListRecords applies Filter.Search (case-insensitive, any of Collection.Search),
	// Filter.ActiveOnly and Filter.Ordering, falling back to DefaultOrdering.
	ListRecords(ctx context.Context, coll *Collection, filter Filter) ([]Record, error)
	// GetRecord returns core.ErrNotFound when no item has the id.
	GetRecord(ctx context.Context, coll *Collection, id int) (Record, error)
	// CreateRecord inserts r and sets its ID.
	// CreateRecord and UpdateRecord return ErrSlugExists on a unique key violation.
	CreateRecord(ctx context.Context, coll *Collection, r Record) error
	UpdateRecord(ctx context.Context, coll *Collection, r Record) error
	// DeleteRecords returns core.ErrNotFound when none of the ids exist.
	DeleteRecords(ctx context.Context, coll *Collection, ids ...int) error
	// RecordExists reports whether an item other than excludeID matches every column of key.
	RecordExists(ctx context.Context, coll *Collection, key map[string]interface{}, excludeID int) (bool, error)
}

type Service struct {
	repo     Repository
	validate *core.Validator
}

func NewService(repo Repository, validate *core.Validator) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) collection(kind Kind) (*Collection, error) {
	s, ok := Lookup(kind)
	if !ok {
		return nil, ErrUnknownKind
	}
	return s, nil
}

// New returns an empty active item of kind, ready to be bound.
func (svc *Service) New(kind Kind) (Record, error) {
	s, err := svc.collection(kind)
	if err != nil {
		return nil, err
	}
	return s.New(), nil
}

func (svc *Service) List(ctx context.Context, kind Kind, filter Filter) ([]Record, error) {
	s, err := svc.collection(kind)
	if err != nil {
		return nil, err
	}
	filter.Clean()
	if filter.Now.IsZero() {
		filter.Now = NowFunc().UTC()
	}
	recs, err := svc.repo.ListRecords(ctx, s, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", kind)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

func (svc *Service) Get(ctx context.Context, kind Kind, id int) (Record, error) {
	s, err := svc.collection(kind)
	if err != nil {
		return nil, err
	}
	r, err := svc.repo.GetRecord(ctx, s, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s %d", kind, id)
	}
	return r, nil
}

// Validate cleans r and checks field rules and uniqueness.
func (svc *Service) Validate(ctx context.Context, r Record) error {
	s, err := svc.collection(r.Kind())
	if err != nil {
		return err
	}
	r.Clean()
	if err := svc.validate.Check(r); err != nil {
		return err
	}
	if !s.Unique {
		return nil
	}
	exists, err := svc.repo.RecordExists(ctx, s, r.NaturalKey(), r.Base().ID)
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	if exists {
		return core.NewFieldError("slug", ErrSlugExists)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, r Record) error {
	r.Base().ID = 0
	if err := svc.Validate(ctx, r); err != nil {
		return err
	}
	s, _ := svc.collection(r.Kind())
	now := NowFunc().UTC()
	m := r.Base()
	m.CreatedAt, m.UpdatedAt = now, now
	return writeErr(svc.repo.CreateRecord(ctx, s, r), "creating %s", r.Kind())
}

// Update replaces the item id with r. CreatedAt is kept.
func (svc *Service) Update(ctx context.Context, id int, r Record) error {
	orig, err := svc.Get(ctx, r.Kind(), id)
	if err != nil {
		return err
	}
	m := r.Base()
	m.ID = id
	if err := svc.Validate(ctx, r); err != nil {
		return err
	}
	s, _ := svc.collection(r.Kind())
	m.CreatedAt = orig.Base().CreatedAt
	m.UpdatedAt = NowFunc().UTC()
	return writeErr(svc.repo.UpdateRecord(ctx, s, r), "updating %s %d", r.Kind(), id)
}

// writeErr reports a slug conflict lost to a concurrent write like the one Validate finds.
func writeErr(err error, format string, args ...interface{}) error {
	if errors.Is(err, ErrSlugExists) {
		return core.NewFieldError("slug", ErrSlugExists)
	}
	return errors.Wrapf(err, format, args...)
}

func (svc *Service) Delete(ctx context.Context, kind Kind, ids ...int) error {
	s, err := svc.collection(kind)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return core.NewValidationError(errors.New("no id provided"))
	}
	return errors.Wrapf(svc.repo.DeleteRecords(ctx, s, ids...), "deleting %s", kind)
}

// Exists reports whether an item with the natural key of r is already stored.
func (svc *Service) Exists(ctx context.Context, r Record) (bool, error) {
	s, err := svc.collection(r.Kind())
	if err != nil {
		return false, err
	}
	return svc.repo.RecordExists(ctx, s, r.NaturalKey(), 0)
}
