package enquiry

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateEnquiry(ctx context.Context, e *Enquiry) error
		// FilterEnquiries lists newest first; Search matches name, email, subject or message.
		FilterEnquiries(ctx context.Context, filter QueryFilter) ([]Enquiry, error)
		GetEnquiry(ctx context.Context, id int) (Enquiry, error)
		MarkEnquiryRead(ctx context.Context, id int) error
		DeleteEnquiries(ctx context.Context, ids ...int) error
	}

	// Notifier resolves where new enquiries are announced.
	Notifier interface {
		NotifyAddress(ctx context.Context) (string, error)
	}

	Service struct {
		repo     Repository
		notifier Notifier
		mailSvc  core.EmailService
		logger   core.Logger
		validate *core.Validator
	}
)

func NewService(repo Repository, notifier Notifier, mailSvc core.EmailService, logger core.Logger, validate *core.Validator) *Service {
	return &Service{repo: repo, notifier: notifier, mailSvc: mailSvc, logger: logger, validate: validate}
}

// Submit stores the enquiry and notifies the site owners.
// Notification failures are logged and never returned.
func (svc *Service) Submit(ctx context.Context, ne NewEnquiry) (Enquiry, error) {
	ne.Clean()
	if err := svc.validate.Check(ne); err != nil {
		return Enquiry{}, err
	}

	e := Enquiry{
		Name:      ne.Name,
		Email:     ne.Email,
		Phone:     ne.Phone,
		Subject:   ne.Subject,
		Message:   ne.Message,
		CreatedAt: NowFunc().UTC(),
	}
	if err := svc.repo.CreateEnquiry(ctx, &e); err != nil {
		return Enquiry{}, errors.Wrap(err, "storing enquiry")
	}

	if msg := svc.notification(ctx, e); msg != nil {
		svc.mailSvc.SendMessages(msg)
	}
	return e, nil
}

func (svc *Service) notification(ctx context.Context, e Enquiry) *core.EmailMessage {
	to, err := svc.notifier.NotifyAddress(ctx)
	if err != nil {
		svc.logger.Error(err.Error(), errors.Wrap(err, "resolving enquiry recipient"))
		return nil
	}
	if to == "" {
		svc.logger.Warn("enquiry notification skipped: no recipient configured", e.ID)
		return nil
	}
	subject := "New enquiry from " + e.Name
	if e.Subject != "" {
		subject += ": " + e.Subject
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Address: to}},
		ReplyTo:      &mail.Address{Name: e.Name, Address: e.Email},
		Subject:      subject,
		TemplateName: "enquiry_notification",
		TemplateData: e,
	}
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Enquiry, error) {
	filter.Clean()
	list, err := svc.repo.FilterEnquiries(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing enquiries")
	}
	if list == nil {
		list = []Enquiry{}
	}
	return list, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Enquiry, error) {
	e, err := svc.repo.GetEnquiry(ctx, id)
	return e, errors.Wrapf(err, "getting enquiry %d", id)
}

func (svc *Service) MarkRead(ctx context.Context, id int) (Enquiry, error) {
	if err := svc.repo.MarkEnquiryRead(ctx, id); err != nil {
		return Enquiry{}, errors.Wrapf(err, "marking enquiry %d read", id)
	}
	return svc.Get(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return core.NewValidationError(errors.New("no id provided"))
	}
	return errors.Wrap(svc.repo.DeleteEnquiries(ctx, ids...), "deleting enquiries")
}
