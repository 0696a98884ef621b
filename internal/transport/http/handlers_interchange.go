package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"personfinder/internal/importer"
	"personfinder/internal/interchange"
	personservice "personfinder/internal/person/service"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/httputil"
	"personfinder/pkg/requestcontext"
)

// Importer writes one kind of record into a domain.
type Importer interface {
	Import(ctx context.Context, domain, sourceDomain string, kind interchange.Kind, records []interchange.Record) (*importer.Result, error)
}

// FeedSource lists a domain's persons for export.
type FeedSource interface {
	Feed(ctx context.Context, domain string, limit int) ([]*personservice.PersonView, error)
}

// InterchangeHandler serves the record exchange with other domains: batch
// writes in and the person feed out.
type InterchangeHandler struct {
	importer Importer
	feed     FeedSource
	parser   interchange.Parser
	writer   interchange.Serializer
	logger   *slog.Logger
}

func NewInterchangeHandler(imp Importer, feed FeedSource, logger *slog.Logger) *InterchangeHandler {
	codec := interchange.JSONCodec{}
	return &InterchangeHandler{importer: imp, feed: feed, parser: codec, writer: codec, logger: logger}
}

// Register mounts the routes on a router scoped to /{domain}.
func (h *InterchangeHandler) Register(r chi.Router) {
	r.Post("/write", h.handleWrite)
	r.Get("/feeds/person", h.handlePersonFeed)
}

type SkippedRecord struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// WriteStatus is the per-kind outcome of a write.
type WriteStatus struct {
	Written    int             `json:"written"`
	Duplicates int             `json:"duplicates"`
	Total      int             `json:"total"`
	Skipped    []SkippedRecord `json:"skipped"`
}

type WriteResponse struct {
	Person WriteStatus `json:"person"`
	Note   WriteStatus `json:"note"`
}

func toWriteStatus(res *importer.Result) WriteStatus {
	status := WriteStatus{Skipped: []SkippedRecord{}}
	if res == nil {
		return status
	}
	status.Written = res.Written
	status.Total = res.Total
	status.Duplicates = res.Count(importer.SkipDuplicate)
	for _, s := range res.Skipped {
		status.Skipped = append(status.Skipped, SkippedRecord{
			RecordID: s.Record.ID(),
			Kind:     string(s.Kind),
			Reason:   s.Reason,
		})
	}
	return status
}

// sourceDomain resolves which record domain the caller may write. Privileged
// callers without a write domain may import from anywhere.
func sourceDomain(caller requestcontext.Caller) (string, error) {
	if !caller.Authenticated() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "writes require an authenticated caller")
	}
	if caller.WriteDomain == "" && !caller.Privileged {
		return "", dErrors.New(dErrors.CodeForbidden, "caller has no write domain")
	}
	return caller.WriteDomain, nil
}

func (h *InterchangeHandler) handleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	source, err := sourceDomain(requestcontext.Principal(ctx))
	if err != nil {
		h.fail(ctx, w, err, "authorize write")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFeedBytes)
	persons, notes, err := h.parser.Parse(r.Body)
	if err != nil {
		h.fail(ctx, w, err, "parse record feed")
		return
	}

	personRecords := make([]interchange.Record, 0, len(persons))
	for _, p := range persons {
		personRecords = append(personRecords, interchange.PersonOf(p))
	}
	noteRecords := make([]interchange.Record, 0, len(notes))
	for _, n := range notes {
		noteRecords = append(noteRecords, interchange.NoteOf(n))
	}

	var resp WriteResponse
	// Persons go first so notes in the same batch find their person.
	personResult, err := h.importer.Import(ctx, domain, source, interchange.KindPerson, personRecords)
	if err != nil {
		h.fail(ctx, w, err, "import persons")
		return
	}
	resp.Person = toWriteStatus(personResult)

	noteResult, err := h.importer.Import(ctx, domain, source, interchange.KindNote, noteRecords)
	if err != nil {
		h.fail(ctx, w, err, "import notes")
		return
	}
	resp.Note = toWriteStatus(noteResult)

	httputil.WriteJSON(w, http.StatusOK, resp)
}

const (
	maxFeedBytes       = 8 << 20
	defaultFeedResults = 100
	maxFeedResults     = 1000
)

func (h *InterchangeHandler) handlePersonFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	limit := defaultFeedResults
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(ctx, w, dErrors.Newf(dErrors.CodeValidation, "invalid max_results: %q", v), "parse max_results")
			return
		}
		limit = min(n, maxFeedResults)
	}

	views, err := h.feed.Feed(ctx, domain, limit)
	if err != nil {
		h.fail(ctx, w, err, "list person feed")
		return
	}

	// Persons and notes are filtered as separate records; the serializer
	// embeds the notes back under their person.
	records := make([]interchange.Record, 0, len(views))
	for _, v := range views {
		records = append(records, interchange.PersonOf(interchange.FromPerson(v.Person)))
		for _, n := range v.Notes {
			records = append(records, interchange.NoteOf(interchange.FromNote(n)))
		}
	}
	if !requestcontext.Principal(ctx).FullRead {
		interchange.FilterSensitive(records)
	}
	persons := make([]interchange.PersonRecord, 0, len(views))
	notesByPerson := make(map[string][]interchange.NoteRecord, len(views))
	for _, rec := range records {
		if rec.Person != nil {
			persons = append(persons, *rec.Person)
			continue
		}
		notesByPerson[rec.Note.PersonRecordID] = append(notesByPerson[rec.Note.PersonRecordID], *rec.Note)
	}
	embedNotes := func(personRecordID string) ([]interchange.NoteRecord, error) {
		return notesByPerson[personRecordID], nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := h.writer.Serialize(w, persons, embedNotes); err != nil {
		h.logger.ErrorContext(ctx, "failed to write person feed",
			"request_id", requestcontext.RequestID(ctx),
			"domain", domain,
			"error", err,
		)
	}
}

func (h *InterchangeHandler) fail(ctx context.Context, w http.ResponseWriter, err error, op string) {
	logFailure(ctx, h.logger, err, op)
	httputil.WriteError(w, err)
}

func logFailure(ctx context.Context, logger *slog.Logger, err error, op string) {
	attrs := []any{
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "failed to "+op, attrs...)
		return
	}
	logger.WarnContext(ctx, "failed to "+op, attrs...)
}
