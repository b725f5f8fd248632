// Package service implements the form gateway: form and response persistence
// through the repository, an optional read-through cache, and domain events.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/export"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
)

var (
	ErrFormNotFound = entity.ErrFormNotFound
	ErrInvalidPIN   = errors.New("invalid admin pin")
	ErrNilForm      = errors.New("form can not be nil")
	ErrNoResponses  = errors.New("form has no responses to export")
)

// now is swapped in tests
var now = time.Now

type Service struct {
	casher    Casher
	repo      Repository
	publisher Publisher
	exporter  *export.Exporter
	logger    *logger.Logger

	cashTimeout time.Duration
}

// Init wires the gateway. casher and publisher may be nil: forms are then
// read from the repository only and no events are sent.
func Init(
	casher Casher,
	repo Repository,
	publisher Publisher,
	exporter *export.Exporter,
	logger *logger.Logger,
	cashTimeout time.Duration,
) *Service {
	if exporter == nil {
		exporter = &export.Exporter{}
	}

	return &Service{
		casher:      casher,
		repo:        repo,
		publisher:   publisher,
		exporter:    exporter,
		logger:      logger,
		cashTimeout: cashTimeout,
	}
}

// SaveForm upserts form by its ID. Callers check form.Validate before saving.
func (s *Service) SaveForm(ctx context.Context, form *entity.Form) error {
	if form == nil {
		return ErrNilForm
	}

	if err := s.repo.Save(ctx, form); err != nil {
		return fmt.Errorf("save form %s: %w", form.ID(), err)
	}

	s.cash(ctx, form)
	s.publish(entity.FormRef{FormID: form.ID()}, entity.EventFormSaved)

	return nil
}

// GetFormByID returns the form with the given ID, trying the cache, then the
// repository, then a scan of every stored form. A repository hit is cached again.
func (s *Service) GetFormByID(ctx context.Context, id string) (*entity.Form, error) {
	if form, ok := s.fromCash(ctx, id); ok {
		return form, nil
	}

	form, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrFormNotFound):
		form, err = s.scan(ctx, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("get form %s: %w", id, err)
	}

	s.cash(ctx, form)
	return form, nil
}

func (s *Service) GetAllForms(ctx context.Context) ([]*entity.Form, error) {
	forms, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

// SaveResponse loads the form, appends r and persists the form. A zero
// SubmittedAt is stamped with the current time. Required answers are not checked.
func (s *Service) SaveResponse(ctx context.Context, formID string, r entity.Response) error {
	form, err := s.GetFormByID(ctx, formID)
	if err != nil {
		return err
	}

	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = now()
	}
	form.AppendResponse(r)

	if err = s.repo.Save(ctx, form); err != nil {
		return fmt.Errorf("save response for form %s: %w", formID, err)
	}

	s.cash(ctx, form)
	s.publish(entity.ResponseSubmitted{
		FormID:      formID,
		SubmittedAt: r.SubmittedAt,
	}, entity.EventResponseSubmitted)

	return nil
}

// DeleteForm removes the form from the repository and the cache. Deleting an unknown ID is not an error.
func (s *Service) DeleteForm(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete form %s: %w", id, err)
	}

	if s.casher != nil {
		cctx, cancel := s.cashContext(ctx)
		defer cancel()

		if err := s.casher.RemoveFromCash(cctx, id); err != nil {
			s.logger.Warn("error remove form from cash",
				zap.String("form_id", id),
				zap.Error(err),
			)
		}
	}

	s.publish(entity.FormRef{FormID: id}, entity.EventFormDeleted)
	return nil
}

// OpenAdmin returns the form when pin matches its admin PIN, ErrInvalidPIN otherwise.
func (s *Service) OpenAdmin(ctx context.Context, formID, pin string) (*entity.Form, error) {
	form, err := s.GetFormByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	if !form.VerifyPIN(pin) {
		s.logger.Warn("admin login failed", zap.String("form_id", formID))
		s.publish(entity.FormRef{FormID: formID}, entity.EventAdminLoginFailed)
		return nil, ErrInvalidPIN
	}

	s.publish(entity.FormRef{FormID: formID}, entity.EventAdminLoggedIn)
	return form, nil
}

// ExportResponses writes the CSV export of the form's responses to w and
// returns its download file name. It needs the admin PIN.
func (s *Service) ExportResponses(ctx context.Context, formID, pin string, w io.Writer) (string, error) {
	form, err := s.OpenAdmin(ctx, formID, pin)
	if err != nil {
		return "", err
	}

	if form.ResponseCount() == 0 {
		return "", ErrNoResponses
	}

	if err = s.exporter.Write(w, form); err != nil {
		s.logger.Error("error write export",
			zap.String("form_id", formID),
			zap.Error(err),
		)
		return "", fmt.Errorf("export form %s: %w", formID, err)
	}

	s.publish(entity.ResponsesExported{
		FormID:        formID,
		ResponseCount: form.ResponseCount(),
	}, entity.EventResponsesExported)

	return export.FileName(form), nil
}

func (s *Service) scan(ctx context.Context, id string) (*entity.Form, error) {
	forms, err := s.GetAllForms(ctx)
	if err != nil {
		return nil, err
	}

	for _, form := range forms {
		if form.ID() == id {
			return form, nil
		}
	}

	return nil, ErrFormNotFound
}

func (s *Service) cashContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cashTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cashTimeout)
}

func (s *Service) fromCash(ctx context.Context, id string) (*entity.Form, bool) {
	if s.casher == nil {
		return nil, false
	}

	cctx, cancel := s.cashContext(ctx)
	defer cancel()

	data, err := s.casher.GetCashFor(cctx, id)
	if err != nil || data == nil {
		return nil, false
	}

	form, err := entity.FormFromJSON(data)
	if err != nil {
		s.logger.Warn("drop undecodable cashed form",
			zap.String("form_id", id),
			zap.Error(err),
		)
		_ = s.casher.RemoveFromCash(cctx, id)
		return nil, false
	}

	return form, true
}

func (s *Service) cash(ctx context.Context, form *entity.Form) {
	if s.casher == nil {
		return
	}

	payload, err := json.Marshal(form)
	if err != nil {
		s.logger.Error("error encode form for cash",
			zap.String("form_id", form.ID()),
			zap.Error(err),
		)
		return
	}

	cctx, cancel := s.cashContext(ctx)
	defer cancel()

	if err = s.casher.AddToCash(cctx, form.ID(), payload); err != nil {
		s.logger.Warn("error cash form",
			zap.String("form_id", form.ID()),
			zap.Error(err),
		)
	}
}

func (s *Service) publish(payload any, eventType string) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(payload, eventType); err != nil {
		s.logger.Warn("error publish event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
