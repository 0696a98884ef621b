// Package store persists persons, notes, photos and subscriptions.
//
// Every method takes the domain explicitly and never reads across domains.
// Mutations that must be atomic per person run inside TxRunner.RunInTx.
package store

import (
	"context"
	"time"

	"personfinder/internal/person/models"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
)

// Store is the persistence contract shared by the in-memory and Postgres
// implementations. Missing records yield sentinel.ErrNotFound and duplicate
// ids sentinel.ErrConflict.
type Store interface {
	CreatePerson(ctx context.Context, p *models.Person) error
	FindPerson(ctx context.Context, domain string, personID id.RecordID) (*models.Person, error)
	UpdatePerson(ctx context.Context, p *models.Person) error
	ListPersons(ctx context.Context, domain string, filter models.ListFilter) ([]*models.Person, error)
	ListPastDue(ctx context.Context, domain string, now time.Time, limit int) ([]*models.Person, error)
	SearchPersons(ctx context.Context, domain string, q query.Query, allFields bool, limit int) ([]*models.Person, error)
	Counts(ctx context.Context, domain string) (models.Counts, error)

	CreateNote(ctx context.Context, n *models.Note) error
	FindNote(ctx context.Context, domain string, noteID id.RecordID) (*models.Note, error)
	UpdateNoteFlags(ctx context.Context, n *models.Note) error
	ListNotes(ctx context.Context, domain string, personID id.RecordID) ([]*models.Note, error)
	DeleteNotes(ctx context.Context, domain string, personID id.RecordID) (int, error)
	ListReviewQueue(ctx context.Context, domain string, filter models.ReviewFilter) ([]*models.Note, error)
	AppendNoteFlag(ctx context.Context, flag models.NoteFlag) error

	SavePhoto(ctx context.Context, photo *models.Photo) (int64, error)
	FindPhoto(ctx context.Context, domain string, photoID int64) (*models.Photo, error)
	DeletePhotos(ctx context.Context, domain string, photoIDs []int64) error

	UpsertSubscription(ctx context.Context, sub *models.Subscription) (created bool, err error)
	DeleteSubscription(ctx context.Context, domain string, personID id.RecordID, email string) (bool, error)
	ListSubscriptions(ctx context.Context, domain string, personID id.RecordID) ([]*models.Subscription, error)
	DeleteSubscriptions(ctx context.Context, domain string, personID id.RecordID) error
}

// TxRunner serialises read-modify-write sequences on one person. The key is
// the person's record id; fn receives a Store bound to the transaction and a
// context that carries it for other transactional stores (the outbox).
type TxRunner interface {
	RunInTx(ctx context.Context, key id.RecordID, fn func(ctx context.Context, s Store) error) error
}
