package service

import (
	"context"

	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/requestcontext"
)

// ReviewAction is a moderator's verdict on a queued note.
type ReviewAction string

const (
	ReviewAccept ReviewAction = "accept"
	ReviewFlag   ReviewAction = "flag"
)

const defaultReviewLimit = 50

// FlagNote toggles a note's hidden flag, records the flag entry and
// recomputes the person's projection in the same transaction.
func (s *Service) FlagNote(ctx context.Context, domain string, noteID id.RecordID, reason string) (*models.Note, error) {
	return s.updateNote(ctx, domain, noteID, "flag", func(n *models.Note) (bool, string) {
		n.Hidden = !n.Hidden
		return true, reason
	})
}

// ReviewQueue lists unreviewed notes, newest first. A nil status selects all.
func (s *Service) ReviewQueue(ctx context.Context, domain string, status *models.Status, limit int) ([]*models.Note, error) {
	if err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultReviewLimit
	}
	notes, err := s.store.ListReviewQueue(ctx, domain, models.ReviewFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, storageErr(err, "list review queue")
	}
	return notes, nil
}

// ReviewNote marks a note reviewed. Flagging also hides it.
func (s *Service) ReviewNote(ctx context.Context, domain string, noteID id.RecordID, action ReviewAction) (*models.Note, error) {
	if err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	switch action {
	case ReviewAccept, ReviewFlag:
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown review action %q", action)
	}
	return s.updateNote(ctx, domain, noteID, "review_"+string(action), func(n *models.Note) (bool, string) {
		n.Reviewed = true
		if action == ReviewFlag && !n.Hidden {
			n.Hidden = true
			return true, "flagged in review"
		}
		return false, ""
	})
}

// updateNote applies mutate under the person's lock. When mutate reports a
// visibility change a flag entry is appended and the projection recomputed.
func (s *Service) updateNote(ctx context.Context, domain string, noteID id.RecordID, action string, mutate func(*models.Note) (bool, string)) (*models.Note, error) {
	if err := parseRecordID(noteID, "note_id"); err != nil {
		return nil, err
	}
	existing, err := s.store.FindNote(ctx, domain, noteID)
	if err != nil {
		return nil, storageErr(err, "load note")
	}

	var updated *models.Note
	err = s.tx.RunInTx(ctx, existing.PersonID, func(ctx context.Context, st store.Store) error {
		n, err := st.FindNote(ctx, domain, noteID)
		if err != nil {
			return storageErr(err, "load note")
		}
		visibilityChanged, reason := mutate(n)
		if err := st.UpdateNoteFlags(ctx, n); err != nil {
			return storageErr(err, "update note")
		}
		updated = n
		if !visibilityChanged {
			return nil
		}
		if err := st.AppendNoteFlag(ctx, models.NoteFlag{
			Domain:    domain,
			NoteID:    n.ID,
			Hidden:    n.Hidden,
			Reason:    reason,
			CreatedAt: requestcontext.Now(ctx),
		}); err != nil {
			return storageErr(err, "record note flag")
		}
		p, err := st.FindPerson(ctx, domain, n.PersonID)
		if err != nil {
			return storageErr(err, "load person")
		}
		if p.IsTombstoned() {
			return nil
		}
		return s.reproject(ctx, st, p)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementModeration(domain, action)
	s.logger.InfoContext(ctx, "note moderated",
		"request_id", requestcontext.RequestID(ctx),
		"domain", domain,
		"note_id", noteID,
		"action", action,
		"hidden", updated.Hidden,
	)
	return updated, nil
}
