package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/showcase"
)

type showcaseRepository struct {
	db sqlx.ExtContext
}

func NewShowcaseRepository(db sqlx.ExtContext) showcase.Repository {
	return showcaseRepository{db: db}
}

func selectColumns(coll *showcase.Collection) string {
	return "id, " + strings.Join(coll.Columns, ", ")
}

func (repo showcaseRepository) ListRecords(ctx context.Context, coll *showcase.Collection, filter showcase.Filter) ([]showcase.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ActiveOnly {
		where = append(where, "is_active = TRUE")
		if coll.Expires {
			where = append(where, "(expires_at IS NULL OR expires_at > ?)")
			args = append(args, filter.Now)
		}
	}
	if filter.Search != "" && len(coll.Search) > 0 {
		ors := make([]string, len(coll.Search))
		for i, col := range coll.Search {
			ors[i] = col + " LIKE ?"
			args = append(args, contains(filter.Search))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	q := fmt.Sprintf("SELECT %s FROM %s", selectColumns(coll), coll.Table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderByClause(filter.Ordering, coll.Orderable, showcase.DefaultOrdering)

	rows, err := repo.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting %s", coll.Table)
	}
	defer func() { _ = rows.Close() }()

	recs := make([]showcase.Record, 0)
	for rows.Next() {
		r := coll.New()
		if err := rows.StructScan(r); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", coll.Table)
		}
		recs = append(recs, r)
	}
	return recs, errors.Wrapf(rows.Err(), "iterating %s", coll.Table)
}

func (repo showcaseRepository) GetRecord(ctx context.Context, coll *showcase.Collection, id int) (showcase.Record, error) {
	r := coll.New()
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectColumns(coll), coll.Table)
	if err := sqlx.GetContext(ctx, repo.db, r, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, errors.Wrapf(err, "selecting %s", coll.Table)
	}
	return r, nil
}

func (repo showcaseRepository) CreateRecord(ctx context.Context, coll *showcase.Collection, r showcase.Record) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", coll.Table, strings.Join(coll.Columns, ", "), placeholders(coll.Columns, ":"))
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, r)
	if isDuplicateEntry(err) {
		return errors.Wrapf(showcase.ErrSlugExists, "inserting into %s", coll.Table)
	}
	if err != nil {
		return errors.Wrapf(err, "inserting into %s", coll.Table)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "reading inserted id")
	}
	r.Base().ID = int(id)
	return nil
}

func (repo showcaseRepository) UpdateRecord(ctx context.Context, coll *showcase.Collection, r showcase.Record) error {
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", coll.Table, assignments(coll.Columns))
	_, err := sqlx.NamedExecContext(ctx, repo.db, q, r)
	if isDuplicateEntry(err) {
		return errors.Wrapf(showcase.ErrSlugExists, "updating %s", coll.Table)
	}
	return errors.Wrapf(err, "updating %s", coll.Table)
}

// erDupEntry is the MySQL error number for a unique index violation.
const erDupEntry = 1062

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == erDupEntry
}

func (repo showcaseRepository) DeleteRecords(ctx context.Context, coll *showcase.Collection, ids ...int) error {
	q, args, err := sqlx.In(fmt.Sprintf("DELETE FROM %s WHERE id IN (?)", coll.Table), ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", coll.Table)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (repo showcaseRepository) RecordExists(ctx context.Context, coll *showcase.Collection, key map[string]interface{}, excludeID int) (bool, error) {
	cols := make([]string, 0, len(key))
	for col := range key {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	conds := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+1)
	for _, col := range cols {
		conds = append(conds, col+" = ?")
		args = append(args, key[col])
	}
	if excludeID > 0 {
		conds = append(conds, "id <> ?")
		args = append(args, excludeID)
	}

	var exists bool
	q := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", coll.Table, strings.Join(conds, " AND "))
	if err := sqlx.GetContext(ctx, repo.db, &exists, q, args...); err != nil {
		return false, errors.Wrapf(err, "checking %s", coll.Table)
	}
	return exists, nil
}
