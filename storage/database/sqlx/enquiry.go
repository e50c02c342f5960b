package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/enquiry"
)

const enquiryColumns = "id, name, email, phone, subject, message, is_read, created_at"

type enquiryRepository struct {
	db sqlx.ExtContext
}

func NewEnquiryRepository(db sqlx.ExtContext) enquiry.Repository {
	return enquiryRepository{db: db}
}

func (repo enquiryRepository) CreateEnquiry(ctx context.Context, e *enquiry.Enquiry) error {
	q := `INSERT INTO enquiries (name, email, phone, subject, message, is_read, created_at)
	VALUES (:name, :email, :phone, :subject, :message, :is_read, :created_at)`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, e)
	if err != nil {
		return errors.Wrap(err, "inserting enquiry")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "reading inserted id")
	}
	e.ID = int(id)
	return nil
}

func (repo enquiryRepository) FilterEnquiries(ctx context.Context, filter enquiry.QueryFilter) ([]enquiry.Enquiry, error) {
	q := "SELECT " + enquiryColumns + " FROM enquiries WHERE 1 = 1"
	var args []interface{}
	if filter.Search != "" {
		q += " AND (name LIKE ? OR email LIKE ? OR subject LIKE ? OR message LIKE ?)"
		s := contains(filter.Search)
		args = append(args, s, s, s, s)
	}
	if filter.IsRead != nil {
		q += " AND is_read = ?"
		args = append(args, *filter.IsRead)
	}
	q += " ORDER BY created_at DESC, id DESC"

	list := make([]enquiry.Enquiry, 0)
	if err := sqlx.SelectContext(ctx, repo.db, &list, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting enquiries")
	}
	return list, nil
}

func (repo enquiryRepository) GetEnquiry(ctx context.Context, id int) (enquiry.Enquiry, error) {
	var e enquiry.Enquiry
	if err := sqlx.GetContext(ctx, repo.db, &e, "SELECT "+enquiryColumns+" FROM enquiries WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return enquiry.Enquiry{}, core.ErrNotFound
		}
		return enquiry.Enquiry{}, errors.Wrap(err, "selecting enquiry")
	}
	return e, nil
}

func (repo enquiryRepository) MarkEnquiryRead(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE enquiries SET is_read = TRUE WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "updating enquiry")
	}
	// MySQL reports 0 affected rows for an enquiry already read
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_, err := repo.GetEnquiry(ctx, id)
		return err
	}
	return nil
}

func (repo enquiryRepository) DeleteEnquiries(ctx context.Context, ids ...int) error {
	q, args, err := sqlx.In("DELETE FROM enquiries WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, "deleting enquiries")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}
