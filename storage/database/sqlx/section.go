package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
)

// sectionID is the id of the single row of every section table.
const sectionID = 1

type sectionRepository struct {
	db sqlx.ExtContext
}

func NewSectionRepository(db sqlx.ExtContext) section.Repository {
	return sectionRepository{db: db}
}

func (repo sectionRepository) GetSection(ctx context.Context, s section.Section) error {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(s.Columns(), ", "), s.Table())
	if err := sqlx.GetContext(ctx, repo.db, s, q, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		return errors.Wrapf(err, "selecting %s", s.Table())
	}
	return nil
}

func (repo sectionRepository) SaveSection(ctx context.Context, s section.Section) error {
	cols := s.Columns()
	updates := make([]string, len(cols))
	for i, c := range cols {
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (id, %s) VALUES (%d, %s) ON DUPLICATE KEY UPDATE %s",
		s.Table(), strings.Join(cols, ", "), sectionID, placeholders(cols, ":"), strings.Join(updates, ", "),
	)
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, s); err != nil {
		return errors.Wrapf(err, "upserting %s", s.Table())
	}
	return nil
}
