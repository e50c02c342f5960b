package inmemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/showcase"
)

type showcaseRepository struct {
	db *DB
}

func NewShowcaseRepository(db *DB) showcase.Repository {
	return &showcaseRepository{db: db}
}

// row is a decoded record along with its column values.
type row struct {
	rec  showcase.Record
	cols map[string]interface{}
}

func decodeRow(coll *showcase.Collection, data []byte) (row, error) {
	r := row{rec: coll.New()}
	if err := json.Unmarshal(data, r.rec); err != nil {
		return row{}, errors.Wrap(err, "decoding record")
	}
	if err := json.Unmarshal(data, &r.cols); err != nil {
		return row{}, errors.Wrap(err, "decoding record")
	}
	return r, nil
}

func (repo *showcaseRepository) ListRecords(_ context.Context, coll *showcase.Collection, filter showcase.Filter) ([]showcase.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	rows := make([]row, 0)
	for _, data := range repo.db.items[coll.Kind].rows {
		r, err := decodeRow(coll, data)
		if err != nil {
			return nil, err
		}
		if filter.ActiveOnly {
			if !r.rec.Base().IsActive {
				continue
			}
			if news, ok := r.rec.(*showcase.ShortNews); ok && news.Expired(filter.Now) {
				continue
			}
		}
		if search != "" && !matches(r.cols, coll.Search, search) {
			continue
		}
		rows = append(rows, r)
	}

	ordering := validOrdering(filter.Ordering, coll.Orderable)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(rows[i].cols[ord.Field], rows[j].cols[ord.Field])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	recs := make([]showcase.Record, len(rows))
	for i, r := range rows {
		recs[i] = r.rec
	}
	return recs, nil
}

func (repo *showcaseRepository) GetRecord(_ context.Context, coll *showcase.Collection, id int) (showcase.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	data, ok := repo.db.items[coll.Kind].rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	r, err := decodeRow(coll, data)
	if err != nil {
		return nil, err
	}
	return r.rec, nil
}

func (repo *showcaseRepository) CreateRecord(_ context.Context, coll *showcase.Collection, r showcase.Record) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t := repo.db.items[coll.Kind]
	t.seq++
	r.Base().ID = t.seq
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	t.rows[t.seq] = data
	return nil
}

func (repo *showcaseRepository) UpdateRecord(_ context.Context, coll *showcase.Collection, r showcase.Record) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t := repo.db.items[coll.Kind]
	if _, ok := t.rows[r.Base().ID]; !ok {
		return core.ErrNotFound
	}
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	t.rows[r.Base().ID] = data
	return nil
}

func (repo *showcaseRepository) DeleteRecords(_ context.Context, coll *showcase.Collection, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t := repo.db.items[coll.Kind]
	var deleted int
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			delete(t.rows, id)
			deleted++
		}
	}
	if deleted == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (repo *showcaseRepository) RecordExists(_ context.Context, coll *showcase.Collection, key map[string]interface{}, excludeID int) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for id, data := range repo.db.items[coll.Kind].rows {
		if id == excludeID {
			continue
		}
		r, err := decodeRow(coll, data)
		if err != nil {
			return false, err
		}
		match := true
		for col, want := range key {
			if fmt.Sprint(r.cols[col]) != fmt.Sprint(want) {
				match = false
				break
			}
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

func matches(cols map[string]interface{}, fields []string, search string) bool {
	for _, f := range fields {
		if s, ok := cols[f].(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

// validOrdering mirrors core.OrderByClause: unknown fields are dropped, the default is sort_order then id.
func validOrdering(ordering []core.DBOrdering, allowed []string) []core.DBOrdering {
	valid := make([]core.DBOrdering, 0, len(ordering)+1)
	for _, ord := range ordering {
		for _, f := range allowed {
			if ord.Field == f {
				valid = append(valid, ord)
				break
			}
		}
	}
	if len(valid) == 0 {
		valid = append(valid, core.DBOrdering{Field: "sort_order", Ascending: true})
	}
	return append(valid, core.DBOrdering{Field: "id", Ascending: true})
}

// compare orders JSON values: nil first, then numbers, booleans, timestamps and strings.
func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv, _ := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case string:
		bv, _ := b.(string)
		at, aErr := time.Parse(time.RFC3339Nano, av)
		bt, bErr := time.Parse(time.RFC3339Nano, bv)
		if aErr == nil && bErr == nil {
			return at.Compare(bt)
		}
		return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
	}
	return 0
}
