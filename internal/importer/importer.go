// Package importer merges person and note records from other domains into
// local storage. Imports are additive: an id that already exists is skipped,
// never overwritten, so a batch can be re-run after a partial failure.
package importer

import (
	"context"
	"log/slog"
	"time"

	"personfinder/internal/interchange"
	"personfinder/internal/person/models"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/outbox"
	"personfinder/pkg/requestcontext"
)

// Writer stores validated clones. Existing ids fail with CodeDuplicate and
// record-level problems with CodeValidation; anything else aborts the batch.
type Writer interface {
	ImportPerson(ctx context.Context, domain string, p *models.Person) error
	ImportNote(ctx context.Context, domain string, n *models.Note) error
}

// SkipKind separates duplicate skips from rejected records.
type SkipKind string

const (
	SkipDuplicate    SkipKind = "duplicate"
	SkipInvalid      SkipKind = "invalid"
	SkipUnauthorized SkipKind = "unauthorized"
)

const (
	ReasonAlreadyExists = "already exists"
	ReasonNotAuthorized = "not in authorized domain"
)

// Skip is one record that was not written.
type Skip struct {
	Kind   SkipKind
	Reason string
	Record interchange.Record
}

// Result is the per-kind status report for one batch.
type Result struct {
	Kind    interchange.Kind
	Written int
	Skipped []Skip
	Total   int
}

// Count returns how many skips are of kind k.
func (r *Result) Count(k SkipKind) int {
	var n int
	for _, s := range r.Skipped {
		if s.Kind == k {
			n++
		}
	}
	return n
}

type Importer struct {
	writer  Writer
	events  outbox.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Importer)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) { i.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(i *Importer) { i.metrics = m }
}

func New(writer Writer, events outbox.Store, opts ...Option) *Importer {
	i := &Importer{writer: writer, events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import writes records of one kind into domain. When sourceDomain is set
// every record id must belong to it. An invalid target domain rejects the
// whole batch with CodeValidation before anything is written. Otherwise the
// returned error is non-nil only for storage failures; the partial Result is
// still returned then.
func (i *Importer) Import(ctx context.Context, domain, sourceDomain string, kind interchange.Kind, records []interchange.Record) (*Result, error) {
	result := &Result{Kind: kind, Total: len(records)}
	if err := id.ValidateDomain(domain); err != nil {
		i.logger.WarnContext(ctx, "import rejected",
			"request_id", requestcontext.RequestID(ctx),
			"domain", domain,
			"kind", kind,
			"error", err,
		)
		return result, err
	}
	now := requestcontext.Now(ctx)

	for _, record := range records {
		skip, err := i.importOne(ctx, domain, sourceDomain, kind, record, now)
		if err != nil {
			i.logger.ErrorContext(ctx, "import aborted",
				"request_id", requestcontext.RequestID(ctx),
				"domain", domain,
				"kind", kind,
				"record_id", record.ID(),
				"error", err,
			)
			i.finish(ctx, domain, sourceDomain, result)
			return result, err
		}
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Written++
	}

	i.finish(ctx, domain, sourceDomain, result)
	return result, nil
}

func (i *Importer) importOne(ctx context.Context, domain, sourceDomain string, kind interchange.Kind, record interchange.Record, now time.Time) (*Skip, error) {
	if record.Kind != kind {
		return &Skip{Kind: SkipInvalid, Reason: "record is not a " + string(kind), Record: record}, nil
	}

	var err error
	switch kind {
	case interchange.KindPerson:
		err = i.importPerson(ctx, domain, sourceDomain, record.Person, now)
	case interchange.KindNote:
		err = i.importNote(ctx, domain, sourceDomain, record.Note, now)
	default:
		err = dErrors.Newf(dErrors.CodeValidation, "unknown record kind %q", kind)
	}

	switch {
	case err == nil:
		return nil, nil
	case dErrors.HasCode(err, dErrors.CodeDuplicate):
		return &Skip{Kind: SkipDuplicate, Reason: ReasonAlreadyExists, Record: record}, nil
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return &Skip{Kind: SkipUnauthorized, Reason: ReasonNotAuthorized, Record: record}, nil
	case dErrors.HasCode(err, dErrors.CodeValidation):
		return &Skip{Kind: SkipInvalid, Reason: err.Error(), Record: record}, nil
	}
	return nil, err
}

func (i *Importer) importPerson(ctx context.Context, domain, sourceDomain string, r *interchange.PersonRecord, now time.Time) error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "missing person record")
	}
	p, err := r.ToPerson(domain, now)
	if err != nil {
		return err
	}
	if err := authorize(sourceDomain, p.ID.Domain()); err != nil {
		return err
	}
	return i.writer.ImportPerson(ctx, domain, p)
}

func (i *Importer) importNote(ctx context.Context, domain, sourceDomain string, r *interchange.NoteRecord, now time.Time) error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "missing note record")
	}
	n, err := r.ToNote(domain, now)
	if err != nil {
		return err
	}
	if err := authorize(sourceDomain, n.ID.Domain()); err != nil {
		return err
	}
	return i.writer.ImportNote(ctx, domain, n)
}

func authorize(sourceDomain, recordDomain string) error {
	if sourceDomain != "" && recordDomain != sourceDomain {
		return dErrors.New(dErrors.CodeForbidden, ReasonNotAuthorized)
	}
	return nil
}

func (i *Importer) finish(ctx context.Context, domain, sourceDomain string, result *Result) {
	duplicates, invalid := result.Count(SkipDuplicate), result.Count(SkipInvalid)+result.Count(SkipUnauthorized)
	i.metrics.ObserveBatch(domain, string(result.Kind), result.Written, duplicates, invalid)

	event := outbox.NewEvent(outbox.EventImportCompleted, domain, sourceDomain, requestcontext.Now(ctx), map[string]any{
		"kind":       string(result.Kind),
		"written":    result.Written,
		"duplicates": duplicates,
		"invalid":    invalid,
		"total":      result.Total,
	})
	event.RequestID = requestcontext.RequestID(ctx)
	if err := i.events.Append(ctx, event); err != nil {
		i.logger.WarnContext(ctx, "failed to queue import summary", "domain", domain, "error", err)
	}

	i.logger.InfoContext(ctx, "import completed",
		"request_id", requestcontext.RequestID(ctx),
		"domain", domain,
		"source_domain", sourceDomain,
		"kind", result.Kind,
		"written", result.Written,
		"duplicates", duplicates,
		"invalid", invalid,
		"total", result.Total,
	)
}
