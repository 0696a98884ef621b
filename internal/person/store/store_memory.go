package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"personfinder/internal/person/models"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
	"personfinder/pkg/platform/sentinel"
)

type recordKey struct {
	domain string
	id     id.RecordID
}

type subscriptionKey struct {
	recordKey
	email string
}

// InMemoryStore keeps everything in process. Values are cloned on the way in
// and out so callers never share memory with the store.
type InMemoryStore struct {
	mu            sync.RWMutex
	persons       map[recordKey]*models.Person
	notes         map[recordKey]*models.Note
	notesByPerson map[recordKey][]id.RecordID
	photos        map[int64]*models.Photo
	subscriptions map[subscriptionKey]*models.Subscription
	flags         []models.NoteFlag
	seq           int64
	photoSeq      int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		persons:       make(map[recordKey]*models.Person),
		notes:         make(map[recordKey]*models.Note),
		notesByPerson: make(map[recordKey][]id.RecordID),
		photos:        make(map[int64]*models.Photo),
		subscriptions: make(map[subscriptionKey]*models.Subscription),
	}
}

func (s *InMemoryStore) CreatePerson(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{p.Domain, p.ID}
	if _, ok := s.persons[key]; ok {
		return sentinel.ErrConflict
	}
	s.persons[key] = p.Clone()
	return nil
}

func (s *InMemoryStore) FindPerson(_ context.Context, domain string, personID id.RecordID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[recordKey{domain, personID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) UpdatePerson(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{p.Domain, p.ID}
	if _, ok := s.persons[key]; !ok {
		return sentinel.ErrNotFound
	}
	s.persons[key] = p.Clone()
	return nil
}

func (s *InMemoryStore) ListPersons(_ context.Context, domain string, filter models.ListFilter) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(domain, filter.Limit, func(p *models.Person) bool {
		return p.IsExpired == filter.Expired
	}), nil
}

func (s *InMemoryStore) ListPastDue(_ context.Context, domain string, now time.Time, limit int) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(domain, limit, func(p *models.Person) bool {
		return !p.IsTombstoned() && p.IsPastDue(now)
	}), nil
}

func (s *InMemoryStore) SearchPersons(_ context.Context, domain string, q query.Query, allFields bool, limit int) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(domain, limit, func(p *models.Person) bool {
		if p.IsExpired {
			return false
		}
		if allFields {
			return query.Matches(query.AllTokens(p), q)
		}
		return query.Matches(query.NameTokens(p), q)
	}), nil
}

// collect returns matching persons ordered by entry date then id.
func (s *InMemoryStore) collect(domain string, limit int, match func(*models.Person) bool) []*models.Person {
	var out []*models.Person
	for key, p := range s.persons {
		if key.domain == domain && match(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *InMemoryStore) Counts(_ context.Context, domain string) (models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := models.Counts{ByStatus: make(map[string]int)}
	for key, p := range s.persons {
		if key.domain != domain {
			continue
		}
		counts.Persons++
		if p.IsExpired {
			counts.ExpiredPersons++
			continue
		}
		counts.LivePersons++
		counts.ByStatus[p.LatestStatus.String()]++
	}
	for key, n := range s.notes {
		if key.domain != domain {
			continue
		}
		counts.Notes++
		if n.Hidden {
			counts.HiddenNotes++
		}
	}
	return counts, nil
}

func (s *InMemoryStore) CreateNote(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{n.Domain, n.ID}
	if _, ok := s.notes[key]; ok {
		return sentinel.ErrConflict
	}
	s.seq++
	n.Seq = s.seq
	s.notes[key] = n.Clone()
	owner := recordKey{n.Domain, n.PersonID}
	s.notesByPerson[owner] = append(s.notesByPerson[owner], n.ID)
	return nil
}

func (s *InMemoryStore) FindNote(_ context.Context, domain string, noteID id.RecordID) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[recordKey{domain, noteID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return n.Clone(), nil
}

// UpdateNoteFlags persists the mutable moderation fields only.
func (s *InMemoryStore) UpdateNoteFlags(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.notes[recordKey{n.Domain, n.ID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Hidden = n.Hidden
	stored.Reviewed = n.Reviewed
	stored.Quarantined = n.Quarantined
	return nil
}

func (s *InMemoryStore) ListNotes(_ context.Context, domain string, personID id.RecordID) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.notesByPerson[recordKey{domain, personID}]
	out := make([]*models.Note, 0, len(ids))
	for _, noteID := range ids {
		if n, ok := s.notes[recordKey{domain, noteID}]; ok {
			out = append(out, n.Clone())
		}
	}
	models.SortNotes(out)
	return out, nil
}

func (s *InMemoryStore) DeleteNotes(_ context.Context, domain string, personID id.RecordID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := recordKey{domain, personID}
	ids := s.notesByPerson[owner]
	for _, noteID := range ids {
		delete(s.notes, recordKey{domain, noteID})
	}
	delete(s.notesByPerson, owner)
	return len(ids), nil
}

// ListReviewQueue returns unreviewed notes, newest first.
func (s *InMemoryStore) ListReviewQueue(_ context.Context, domain string, filter models.ReviewFilter) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Note
	for key, n := range s.notes {
		if key.domain != domain || n.Reviewed {
			continue
		}
		if filter.Status != nil && n.Status != *filter.Status {
			continue
		}
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].Seq > out[j].Seq
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) AppendNoteFlag(_ context.Context, flag models.NoteFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = append(s.flags, flag)
	return nil
}

// NoteFlags returns every recorded flag; used by tests.
func (s *InMemoryStore) NoteFlags() []models.NoteFlag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NoteFlag(nil), s.flags...)
}

func (s *InMemoryStore) SavePhoto(_ context.Context, photo *models.Photo) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photoSeq++
	stored := *photo
	stored.ID = s.photoSeq
	stored.Data = append([]byte(nil), photo.Data...)
	s.photos[stored.ID] = &stored
	return stored.ID, nil
}

func (s *InMemoryStore) FindPhoto(_ context.Context, domain string, photoID int64) (*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	photo, ok := s.photos[photoID]
	if !ok || photo.Domain != domain {
		return nil, sentinel.ErrNotFound
	}
	c := *photo
	c.Data = append([]byte(nil), photo.Data...)
	return &c, nil
}

func (s *InMemoryStore) DeletePhotos(_ context.Context, domain string, photoIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range photoIDs {
		if photo, ok := s.photos[pid]; ok && photo.Domain == domain {
			delete(s.photos, pid)
		}
	}
	return nil
}

func (s *InMemoryStore) UpsertSubscription(_ context.Context, sub *models.Subscription) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subscriptionKey{recordKey{sub.Domain, sub.PersonID}, sub.Email}
	if existing, ok := s.subscriptions[key]; ok {
		existing.Language = sub.Language
		return false, nil
	}
	c := *sub
	s.subscriptions[key] = &c
	return true, nil
}

func (s *InMemoryStore) DeleteSubscription(_ context.Context, domain string, personID id.RecordID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subscriptionKey{recordKey{domain, personID}, email}
	if _, ok := s.subscriptions[key]; !ok {
		return false, nil
	}
	delete(s.subscriptions, key)
	return true, nil
}

func (s *InMemoryStore) ListSubscriptions(_ context.Context, domain string, personID id.RecordID) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Subscription
	for key, sub := range s.subscriptions {
		if key.domain == domain && key.id == personID {
			c := *sub
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *InMemoryStore) DeleteSubscriptions(_ context.Context, domain string, personID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.subscriptions {
		if key.domain == domain && key.id == personID {
			delete(s.subscriptions, key)
		}
	}
	return nil
}
