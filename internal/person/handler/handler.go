// Package handler exposes person, note, moderation and subscription
// operations over HTTP. Record ids travel in query parameters or bodies
// because they contain a slash.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"personfinder/internal/person/models"
	"personfinder/internal/person/service"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/httputil"
	"personfinder/pkg/requestcontext"
)

// Service defines the person operations the handler needs.
type Service interface {
	CreatePerson(ctx context.Context, domain string, person *models.Person) (*models.Person, error)
	Read(ctx context.Context, domain string, personID id.RecordID) (*service.PersonView, error)
	GetLinkedPersons(ctx context.Context, domain string, personID id.RecordID) ([]*models.Person, error)
	AppendNote(ctx context.Context, domain string, note *models.Note) (*service.AppendResult, error)
	ConfirmNote(ctx context.Context, domain string, noteID id.RecordID) (*models.Note, error)
	FlagNote(ctx context.Context, domain string, noteID id.RecordID, reason string) (*models.Note, error)
	ReviewQueue(ctx context.Context, domain string, status *models.Status, limit int) ([]*models.Note, error)
	ReviewNote(ctx context.Context, domain string, noteID id.RecordID, action service.ReviewAction) (*models.Note, error)
	SetNotesDisabled(ctx context.Context, domain string, personID id.RecordID, disabled bool) (*models.Person, error)
	Subscribe(ctx context.Context, domain string, personID id.RecordID, address, language string) (bool, error)
	Unsubscribe(ctx context.Context, domain string, personID id.RecordID, address string) (bool, error)
	Stats(ctx context.Context, domain string) (models.Counts, error)
}

// Handler handles person-related endpoints.
type Handler struct {
	logger  *slog.Logger
	persons Service
}

// New creates a new person Handler.
func New(persons Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, persons: persons}
}

// Register registers the person routes on a router already scoped to /{domain}.
func (h *Handler) Register(r chi.Router) {
	r.Get("/read", h.handleRead)
	r.Get("/linked", h.handleLinked)
	r.Post("/persons", h.handleCreatePerson)
	r.Post("/notes", h.handleAppendNote)
	r.Post("/notes/confirm", h.handleConfirmNote)
	r.Post("/notes/flag", h.handleFlagNote)
	r.Post("/notes_disabled", h.handleNotesDisabled)
	r.Get("/review", h.handleReviewQueue)
	r.Post("/review", h.handleReview)
	r.Post("/subscribe", h.handleSubscribe)
	r.Post("/unsubscribe", h.handleUnsubscribe)
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	personID := id.RecordID(r.URL.Query().Get("id"))

	view, err := h.persons.Read(ctx, domain, personID)
	if err != nil {
		h.fail(ctx, w, err, "read person", "person_id", personID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPersonResponse(view.Person, view.Notes))
}

func (h *Handler) handleLinked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	personID := id.RecordID(r.URL.Query().Get("id"))

	linked, err := h.persons.GetLinkedPersons(ctx, domain, personID)
	if err != nil {
		h.fail(ctx, w, err, "list linked persons", "person_id", personID)
		return
	}
	out := make([]PersonResponse, 0, len(linked))
	for _, p := range linked {
		if !requestcontext.Principal(ctx).FullRead {
			p.Redact()
		}
		out = append(out, toPersonResponse(p, nil))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"persons": out})
}

func (h *Handler) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req CreatePersonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode create person request")
		return
	}
	sanitize(&req)
	person, err := req.toModel()
	if err != nil {
		h.fail(ctx, w, err, "parse create person request")
		return
	}

	created, err := h.persons.CreatePerson(ctx, domain, person)
	if err != nil {
		h.fail(ctx, w, err, "create person")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPersonResponse(created, nil))
}

func (h *Handler) handleAppendNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req AppendNoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode note request")
		return
	}
	sanitize(&req)
	note, err := req.toModel()
	if err != nil {
		h.fail(ctx, w, err, "parse note request")
		return
	}

	res, err := h.persons.AppendNote(ctx, domain, note)
	if err != nil {
		h.fail(ctx, w, err, "append note", "person_id", note.PersonID)
		return
	}
	status := http.StatusCreated
	if res.Quarantined {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, toNoteResponse(res.Note))
}

func (h *Handler) handleConfirmNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	noteID := id.RecordID(r.URL.Query().Get("id"))

	note, err := h.persons.ConfirmNote(ctx, domain, noteID)
	if err != nil {
		h.fail(ctx, w, err, "confirm note", "note_id", noteID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *Handler) handleFlagNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req FlagNoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode flag request")
		return
	}
	sanitize(&req)

	note, err := h.persons.FlagNote(ctx, domain, id.RecordID(req.NoteID), req.Reason)
	if err != nil {
		h.fail(ctx, w, err, "flag note", "note_id", req.NoteID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *Handler) handleNotesDisabled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req NotesDisabledRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode notes_disabled request")
		return
	}

	person, err := h.persons.SetNotesDisabled(ctx, domain, id.RecordID(req.PersonID), req.Disabled)
	if err != nil {
		h.fail(ctx, w, err, "set notes_disabled", "person_id", req.PersonID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPersonResponse(person, nil))
}

func (h *Handler) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")
	q := r.URL.Query()

	var status *models.Status
	if raw := q.Get("status"); raw != "" && raw != "all" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			h.fail(ctx, w, err, "parse review status")
			return
		}
		status = &st
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(ctx, w, dErrors.Newf(dErrors.CodeValidation, "invalid limit: %q", raw), "parse review limit")
			return
		}
		limit = n
	}

	notes, err := h.persons.ReviewQueue(ctx, domain, status, limit)
	if err != nil {
		h.fail(ctx, w, err, "list review queue")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notes": toNoteResponses(notes)})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req ReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode review request")
		return
	}
	sanitize(&req)
	action, err := req.action()
	if err != nil {
		h.fail(ctx, w, err, "parse review action")
		return
	}

	note, err := h.persons.ReviewNote(ctx, domain, id.RecordID(req.NoteID), action)
	if err != nil {
		h.fail(ctx, w, err, "review note", "note_id", req.NoteID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req SubscribeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode subscribe request")
		return
	}
	sanitize(&req)

	created, err := h.persons.Subscribe(ctx, domain, id.RecordID(req.PersonID), req.Email, req.Language)
	if err != nil {
		h.fail(ctx, w, err, "subscribe", "person_id", req.PersonID)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, map[string]bool{"created": created})
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	var req SubscribeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "decode unsubscribe request")
		return
	}
	sanitize(&req)

	removed, err := h.persons.Unsubscribe(ctx, domain, id.RecordID(req.PersonID), req.Email)
	if err != nil {
		h.fail(ctx, w, err, "unsubscribe", "person_id", req.PersonID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	counts, err := h.persons.Stats(ctx, domain)
	if err != nil {
		h.fail(ctx, w, err, "load stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

// fail logs at WARN for caller errors and ERROR for everything else, then
// writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, op string, attrs ...any) {
	attrs = append(attrs,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to "+op, attrs...)
	} else {
		h.logger.WarnContext(ctx, "failed to "+op, attrs...)
	}
	httputil.WriteError(w, err)
}
