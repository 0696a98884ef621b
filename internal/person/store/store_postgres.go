package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"personfinder/internal/person/models"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
	"personfinder/pkg/platform/sentinel"
	txcontext "personfinder/pkg/platform/tx"
)

// PostgresStore persists records in Postgres. Outside a transaction it uses
// the pool; inside RunInTx it is bound to the transaction and locks person
// rows on read.
type PostgresStore struct {
	db     txcontext.DBTX
	locked bool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func newPostgresTxStore(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx, locked: true}
}

const personColumns = `domain, id, original_domain,
	given_name, family_name, full_name, alternate_names, sex, date_of_birth, age, description,
	home_street, home_neighborhood, home_city, home_state, home_postal_code, home_country,
	photo_id, photo_url, author_name, author_email, author_phone, source_name, source_url,
	source_date, entry_date, expiry_date, is_expired, tombstoned_at,
	latest_status, latest_found, latest_status_date, linked_person_ids, notes_disabled`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var (
		p           models.Person
		photoID     sql.NullInt64
		sourceDate  sql.NullTime
		expiryDate  sql.NullTime
		tombstoned  sql.NullTime
		statusAt    sql.NullTime
		latestFound sql.NullBool
		linked      []string
	)
	err := row.Scan(
		&p.Domain, &p.ID, &p.OriginalDomain,
		&p.GivenName, &p.FamilyName, &p.FullName, &p.AlternateNames, &p.Sex, &p.DateOfBirth, &p.Age, &p.Description,
		&p.HomeStreet, &p.HomeNeighborhood, &p.HomeCity, &p.HomeState, &p.HomePostalCode, &p.HomeCountry,
		&photoID, &p.PhotoURL, &p.AuthorName, &p.AuthorEmail, &p.AuthorPhone, &p.SourceName, &p.SourceURL,
		&sourceDate, &p.EntryDate, &expiryDate, &p.IsExpired, &tombstoned,
		&p.LatestStatus, &latestFound, &statusAt, pq.Array(&linked), &p.NotesDisabled,
	)
	if err != nil {
		return nil, err
	}
	p.PhotoID = nullInt64(photoID)
	p.SourceDate = nullTime(sourceDate)
	p.ExpiryDate = nullTime(expiryDate)
	p.TombstonedAt = nullTime(tombstoned)
	p.LatestStatusDate = nullTime(statusAt)
	p.LatestFound = models.Found{Value: latestFound.Bool, Valid: latestFound.Valid}
	for _, l := range linked {
		p.LinkedPersonIDs = append(p.LinkedPersonIDs, id.RecordID(l))
	}
	return &p, nil
}

func personArgs(p *models.Person) []any {
	linked := make([]string, 0, len(p.LinkedPersonIDs))
	for _, l := range p.LinkedPersonIDs {
		linked = append(linked, string(l))
	}
	return []any{
		p.Domain, string(p.ID), p.OriginalDomain,
		p.GivenName, p.FamilyName, p.FullName, p.AlternateNames, p.Sex, p.DateOfBirth, p.Age, p.Description,
		p.HomeStreet, p.HomeNeighborhood, p.HomeCity, p.HomeState, p.HomePostalCode, p.HomeCountry,
		toNullInt64(p.PhotoID), p.PhotoURL, p.AuthorName, p.AuthorEmail, p.AuthorPhone, p.SourceName, p.SourceURL,
		toNullTime(p.SourceDate), p.EntryDate, toNullTime(p.ExpiryDate), p.IsExpired, toNullTime(p.TombstonedAt),
		string(p.LatestStatus), sql.NullBool{Bool: p.LatestFound.Value, Valid: p.LatestFound.Valid},
		toNullTime(p.LatestStatusDate), pq.Array(linked), p.NotesDisabled,
		pq.Array(query.NameTokens(p)), pq.Array(query.AllTokens(p)),
	}
}

func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

func (s *PostgresStore) CreatePerson(ctx context.Context, p *models.Person) error {
	args := personArgs(p)
	q := `INSERT INTO persons (` + personColumns + `, name_tokens, all_tokens)
		VALUES (` + placeholders(1, len(args)) + `)
		ON CONFLICT (domain, id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindPerson(ctx context.Context, domain string, personID id.RecordID) (*models.Person, error) {
	q := `SELECT ` + personColumns + ` FROM persons WHERE domain = $1 AND id = $2`
	if s.locked {
		q += ` FOR UPDATE`
	}
	p, err := scanPerson(s.db.QueryRowContext(ctx, q, domain, string(personID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, p *models.Person) error {
	args := personArgs(p)
	cols := strings.Split(strings.Join(strings.Fields(personColumns), ""), ",")
	cols = append(cols, "name_tokens", "all_tokens")
	sets := make([]string, 0, len(cols))
	// $1 and $2 are the key columns; every other column is assigned.
	for i, c := range cols {
		if i < 2 {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	q := `UPDATE persons SET ` + strings.Join(sets, ", ") + ` WHERE domain = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryPersons(ctx context.Context, where string, limit int, args ...any) ([]*models.Person, error) {
	q := `SELECT ` + personColumns + ` FROM persons WHERE ` + where + ` ORDER BY entry_date, id`
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()
	var out []*models.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context, domain string, filter models.ListFilter) ([]*models.Person, error) {
	return s.queryPersons(ctx, `domain = $1 AND is_expired = $2`, filter.Limit, domain, filter.Expired)
}

func (s *PostgresStore) ListPastDue(ctx context.Context, domain string, now time.Time, limit int) ([]*models.Person, error) {
	return s.queryPersons(ctx, `domain = $1 AND tombstoned_at IS NULL AND expiry_date IS NOT NULL AND expiry_date < $2`, limit, domain, now)
}

// SearchPersons requires every query word to prefix one of the stored tokens.
func (s *PostgresStore) SearchPersons(ctx context.Context, domain string, q query.Query, allFields bool, limit int) ([]*models.Person, error) {
	if len(q.Words) == 0 {
		return nil, nil
	}
	column := "name_tokens"
	if allFields {
		column = "all_tokens"
	}
	args := []any{domain}
	conds := []string{"domain = $1", "NOT is_expired"}
	for _, w := range q.Words {
		args = append(args, escapeLike(w)+"%")
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM unnest(%s) t WHERE t LIKE $%d)`, column, len(args)))
	}
	return s.queryPersons(ctx, strings.Join(conds, " AND "), limit, args...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) Counts(ctx context.Context, domain string) (models.Counts, error) {
	counts := models.Counts{ByStatus: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx, `
		SELECT is_expired, latest_status, count(*)
		FROM persons WHERE domain = $1
		GROUP BY is_expired, latest_status`, domain)
	if err != nil {
		return counts, fmt.Errorf("count persons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			expired bool
			status  models.Status
			n       int
		)
		if err := rows.Scan(&expired, &status, &n); err != nil {
			return counts, fmt.Errorf("scan person counts: %w", err)
		}
		counts.Persons += n
		if expired {
			counts.ExpiredPersons += n
			continue
		}
		counts.LivePersons += n
		counts.ByStatus[status.String()] += n
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("iterate person counts: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE hidden)
		FROM notes WHERE domain = $1`, domain).Scan(&counts.Notes, &counts.HiddenNotes)
	if err != nil {
		return counts, fmt.Errorf("count notes: %w", err)
	}
	return counts, nil
}

const noteColumns = `domain, id, person_id, seq, status, found, linked_person_id,
	author_name, author_email, author_phone, email_of_found_person, phone_of_found_person,
	last_known_location, text, photo_id, photo_url, source_date, entry_date,
	original_domain, spam_score, quarantined, hidden, reviewed`

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		n          models.Note
		found      sql.NullBool
		photoID    sql.NullInt64
		sourceDate sql.NullTime
	)
	err := row.Scan(
		&n.Domain, &n.ID, &n.PersonID, &n.Seq, &n.Status, &found, &n.LinkedPersonID,
		&n.AuthorName, &n.AuthorEmail, &n.AuthorPhone, &n.EmailOfFoundPerson, &n.PhoneOfFoundPerson,
		&n.LastKnownLocation, &n.Text, &photoID, &n.PhotoURL, &sourceDate, &n.EntryDate,
		&n.OriginalDomain, &n.SpamScore, &n.Quarantined, &n.Hidden, &n.Reviewed,
	)
	if err != nil {
		return nil, err
	}
	n.Found = models.Found{Value: found.Bool, Valid: found.Valid}
	n.PhotoID = nullInt64(photoID)
	n.SourceDate = nullTime(sourceDate)
	return &n, nil
}

func (s *PostgresStore) CreateNote(ctx context.Context, n *models.Note) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (domain, id, person_id, status, found, linked_person_id,
			author_name, author_email, author_phone, email_of_found_person, phone_of_found_person,
			last_known_location, text, photo_id, photo_url, source_date, entry_date,
			original_domain, spam_score, quarantined, hidden, reviewed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (domain, id) DO NOTHING
		RETURNING seq`,
		n.Domain, string(n.ID), string(n.PersonID), string(n.Status),
		sql.NullBool{Bool: n.Found.Value, Valid: n.Found.Valid}, string(n.LinkedPersonID),
		n.AuthorName, n.AuthorEmail, n.AuthorPhone, n.EmailOfFoundPerson, n.PhoneOfFoundPerson,
		n.LastKnownLocation, n.Text, toNullInt64(n.PhotoID), n.PhotoURL, toNullTime(n.SourceDate), n.EntryDate,
		n.OriginalDomain, n.SpamScore, n.Quarantined, n.Hidden, n.Reviewed,
	).Scan(&n.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindNote(ctx context.Context, domain string, noteID id.RecordID) (*models.Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE domain = $1 AND id = $2`, domain, string(noteID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateNoteFlags(ctx context.Context, n *models.Note) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes SET hidden = $3, reviewed = $4, quarantined = $5
		WHERE domain = $1 AND id = $2`,
		n.Domain, string(n.ID), n.Hidden, n.Reviewed, n.Quarantined)
	if err != nil {
		return fmt.Errorf("update note flags: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryNotes(ctx context.Context, q string, args ...any) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()
	var out []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListNotes(ctx context.Context, domain string, personID id.RecordID) ([]*models.Note, error) {
	return s.queryNotes(ctx, `SELECT `+noteColumns+` FROM notes
		WHERE domain = $1 AND person_id = $2
		ORDER BY entry_date, seq`, domain, string(personID))
}

func (s *PostgresStore) DeleteNotes(ctx context.Context, domain string, personID id.RecordID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE domain = $1 AND person_id = $2`, domain, string(personID))
	if err != nil {
		return 0, fmt.Errorf("delete notes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) ListReviewQueue(ctx context.Context, domain string, filter models.ReviewFilter) ([]*models.Note, error) {
	args := []any{domain}
	q := `SELECT ` + noteColumns + ` FROM notes WHERE domain = $1 AND NOT reviewed`
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	q += ` ORDER BY entry_date DESC, seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryNotes(ctx, q, args...)
}

func (s *PostgresStore) AppendNoteFlag(ctx context.Context, flag models.NoteFlag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO note_flags (domain, note_id, hidden, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		flag.Domain, string(flag.NoteID), flag.Hidden, flag.Reason, flag.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note flag: %w", err)
	}
	return nil
}

func (s *PostgresStore) SavePhoto(ctx context.Context, photo *models.Photo) (int64, error) {
	var photoID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO photos (domain, content_type, data, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		photo.Domain, photo.ContentType, photo.Data, photo.CreatedAt).Scan(&photoID)
	if err != nil {
		return 0, fmt.Errorf("insert photo: %w", err)
	}
	return photoID, nil
}

func (s *PostgresStore) FindPhoto(ctx context.Context, domain string, photoID int64) (*models.Photo, error) {
	var photo models.Photo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, domain, content_type, data, created_at
		FROM photos WHERE domain = $1 AND id = $2`, domain, photoID).
		Scan(&photo.ID, &photo.Domain, &photo.ContentType, &photo.Data, &photo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find photo: %w", err)
	}
	return &photo, nil
}

func (s *PostgresStore) DeletePhotos(ctx context.Context, domain string, photoIDs []int64) error {
	if len(photoIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE domain = $1 AND id = ANY($2)`, domain, pq.Array(photoIDs))
	if err != nil {
		return fmt.Errorf("delete photos: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) (bool, error) {
	// xmax is zero only for freshly inserted rows.
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (domain, person_id, email, language, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain, person_id, email) DO UPDATE SET language = EXCLUDED.language
		RETURNING (xmax = 0)`,
		sub.Domain, string(sub.PersonID), sub.Email, sub.Language, sub.CreatedAt).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert subscription: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, domain string, personID id.RecordID, email string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM subscriptions WHERE domain = $1 AND person_id = $2 AND email = $3`,
		domain, string(personID), email)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context, domain string, personID id.RecordID) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, person_id, email, language, created_at
		FROM subscriptions WHERE domain = $1 AND person_id = $2
		ORDER BY email`, domain, string(personID))
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()
	var out []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.Domain, &sub.PersonID, &sub.Email, &sub.Language, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteSubscriptions(ctx context.Context, domain string, personID id.RecordID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE domain = $1 AND person_id = $2`, domain, string(personID))
	if err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
