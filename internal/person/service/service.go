// Package service implements the note log, the person projection derived from
// it, subscriptions and note moderation.
//
// Every mutation that touches a person's notes runs inside one per-person
// transaction: the note write, the projection update and the outbox events
// commit together or not at all.
package service

import (
	"context"
	"errors"
	"log/slog"

	"personfinder/internal/person/metrics"
	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	"personfinder/internal/settings"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/outbox"
	"personfinder/pkg/platform/sentinel"
	"personfinder/pkg/requestcontext"
)

// SettingsSource resolves per-domain settings.
type SettingsSource interface {
	For(ctx context.Context, domain string) (settings.Settings, error)
}

type staticSettings struct{}

func (staticSettings) For(context.Context, string) (settings.Settings, error) {
	return settings.Defaults(), nil
}

// Service orchestrates person and note operations.
type Service struct {
	store    store.Store
	tx       store.TxRunner
	events   outbox.Store
	settings SettingsSource
	spam     SpamScorer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithSettings(src SettingsSource) Option {
	return func(s *Service) { s.settings = src }
}

func WithSpamScorer(scorer SpamScorer) Option {
	return func(s *Service) { s.spam = scorer }
}

func New(st store.Store, tx store.TxRunner, events outbox.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		tx:       tx,
		events:   events,
		settings: staticSettings{},
		spam:     KeywordScorer{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) domainSettings(ctx context.Context, domain string) (settings.Settings, error) {
	cfg, err := s.settings.For(ctx, domain)
	if err != nil {
		return settings.Settings{}, dErrors.Wrap(err, dErrors.CodeStorage, "load domain settings")
	}
	return cfg, nil
}

func requirePrivileged(ctx context.Context) error {
	if !requestcontext.Principal(ctx).Privileged {
		return dErrors.New(dErrors.CodeForbidden, "privileged access required")
	}
	return nil
}

// loadLivePerson fetches a person that may still receive notes.
func loadLivePerson(ctx context.Context, st store.Store, domain string, personID id.RecordID) (*models.Person, error) {
	p, err := st.FindPerson(ctx, domain, personID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "no person with id %q", personID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "load person")
	}
	if p.IsTombstoned() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "person %q has been deleted", personID)
	}
	return p, nil
}

func parseRecordID(raw id.RecordID, field string) error {
	if _, _, err := id.ParseID(string(raw)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+field)
	}
	return nil
}

func storageErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeStorage, msg)
}
