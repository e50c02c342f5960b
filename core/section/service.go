package section

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

var (
	ErrUnknownSection = errors.New("unknown section")

	NowFunc = time.Now // mockable
)

// Repository persists sections. Get fills s from the stored row or returns core.ErrNotFound.
type Repository interface {
	GetSection(ctx context.Context, s Section) error
	SaveSection(ctx context.Context, s Section) error
}

type Service struct {
	repo     Repository
	validate *core.Validator
}

func NewService(repo Repository, validate *core.Validator) *Service {
	return &Service{repo: repo, validate: validate}
}

// Get returns the stored section, or its defaults when nothing was saved yet.
func (svc *Service) Get(ctx context.Context, key Key) (Section, error) {
	s := New(key)
	if s == nil {
		return nil, ErrUnknownSection
	}
	if err := svc.load(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (svc *Service) load(ctx context.Context, s Section) error {
	err := svc.repo.GetSection(ctx, s)
	if core.IsNotFound(err) {
		s.SetDefaults()
		return nil
	}
	return errors.Wrapf(err, "loading %s", s.Key())
}

// Validate cleans s and checks it against the column limits.
func (svc *Service) Validate(s Section) error {
	s.Clean()
	return svc.validate.Check(s)
}

// Save validates s and replaces the stored row with it.
func (svc *Service) Save(ctx context.Context, s Section) error {
	if err := svc.Validate(s); err != nil {
		return err
	}
	if keeper, ok := s.(secretKeeper); ok {
		stored := New(s.Key())
		if err := svc.load(ctx, stored); err != nil {
			return err
		}
		keeper.keepSecrets(stored)
	}
	s.Touch(NowFunc().UTC())
	return errors.Wrapf(svc.repo.SaveSection(ctx, s), "saving %s", s.Key())
}

// SMTP returns the stored mail settings, password included.
func (svc *Service) SMTP(ctx context.Context) (SMTPSettings, error) {
	var s SMTPSettings
	err := svc.load(ctx, &s)
	return s, err
}

func (svc *Service) Contact(ctx context.Context) (Contact, error) {
	var c Contact
	err := svc.load(ctx, &c)
	return c, err
}

// NotifyAddress is where site notifications go: the SMTP notify address, else the public contact email.
func (svc *Service) NotifyAddress(ctx context.Context) (string, error) {
	smtp, err := svc.SMTP(ctx)
	if err != nil {
		return "", err
	}
	if smtp.NotifyEmail != "" {
		return smtp.NotifyEmail, nil
	}
	contact, err := svc.Contact(ctx)
	if err != nil {
		return "", err
	}
	return contact.Email, nil
}

// IsPublic reports whether anonymous callers may read the section.
func IsPublic(key Key) bool {
	return key != KeySMTP
}
