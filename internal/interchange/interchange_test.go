package interchange

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personfinder/internal/person/models"
	dErrors "personfinder/pkg/domain-errors"
)

var entry = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPersonRecordToPerson(t *testing.T) {
	t.Run("builds a clone of the source domain", func(t *testing.T) {
		r := PersonRecord{
			PersonRecordID: "mirror/person.7",
			FullName:       "Ana Lopez",
			SourceDate:     "2026-02-28T08:30:00Z",
			ExpiryDate:     "2026-04-01T00:00:00Z",
		}
		p, err := r.ToPerson("haiti", entry)
		require.NoError(t, err)
		assert.Equal(t, "haiti", p.Domain)
		assert.Equal(t, "mirror", p.OriginalDomain)
		assert.True(t, p.IsClone())
		assert.Equal(t, entry, p.EntryDate)
		require.NotNil(t, p.SourceDate)
		assert.Equal(t, time.Date(2026, 2, 28, 8, 30, 0, 0, time.UTC), *p.SourceDate)
		require.NotNil(t, p.ExpiryDate)
	})

	cases := map[string]PersonRecord{
		"missing id":     {FullName: "x"},
		"malformed id":   {PersonRecordID: "person.7", FullName: "x"},
		"reserved id":    {PersonRecordID: "global/person.7", FullName: "x"},
		"missing name":   {PersonRecordID: "mirror/person.7"},
		"bad date":       {PersonRecordID: "mirror/person.7", FullName: "x", SourceDate: "2026-02-28"},
		"bad entry date": {PersonRecordID: "mirror/person.7", FullName: "x", EntryDate: "yesterday"},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.ToPerson("haiti", entry)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), err)
		})
	}
}

func TestNoteRecordToNote(t *testing.T) {
	r := NoteRecord{
		NoteRecordID:         "mirror/note.1",
		PersonRecordID:       "mirror/person.7",
		LinkedPersonRecordID: "mirror/person.8",
		Status:               "believed_alive",
		Found:                "true",
		Text:                 "at the shelter",
	}
	n, err := r.ToNote("haiti", entry)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBelievedAlive, n.Status)
	assert.Equal(t, models.FoundTrue, n.Found)
	assert.Equal(t, "mirror/person.8", string(n.LinkedPersonID))
	assert.Equal(t, "mirror", n.OriginalDomain)

	bad := r
	bad.Status = "sleeping"
	_, err = bad.ToNote("haiti", entry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	bad = r
	bad.Found = "maybe"
	_, err = bad.ToNote("haiti", entry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	bad = r
	bad.PersonRecordID = ""
	_, err = bad.ToNote("haiti", entry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestJSONCodec(t *testing.T) {
	feed := `{
	  "persons": [{"person_record_id": "mirror/person.1", "full_name": "A",
	               "notes": [{"note_record_id": "mirror/note.1", "text": "nested"}]}],
	  "notes": [{"note_record_id": "mirror/note.2", "person_record_id": "mirror/person.1", "text": "flat"}]
	}`

	persons, notes, err := JSONCodec{}.Parse(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Empty(t, persons[0].Notes)
	require.Len(t, notes, 2)
	assert.Equal(t, "mirror/person.1", notes[0].PersonRecordID)
	assert.Equal(t, "mirror/note.2", notes[1].NoteRecordID)

	_, _, err = JSONCodec{}.Parse(strings.NewReader("{"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	var buf bytes.Buffer
	err = JSONCodec{}.Serialize(&buf, persons, func(personID string) ([]NoteRecord, error) {
		return []NoteRecord{{NoteRecordID: "mirror/note.3", PersonRecordID: personID, Text: "again"}}, nil
	})
	require.NoError(t, err)
	persons, notes, err = JSONCodec{}.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, persons, 1)
	require.Len(t, notes, 1)
	assert.Equal(t, "mirror/note.3", notes[0].NoteRecordID)
}

func TestFilterSensitive(t *testing.T) {
	records := []Record{
		PersonOf(PersonRecord{
			PersonRecordID: "haiti/person.1",
			FullName:       "A",
			DateOfBirth:    "1990-01-01",
			AuthorEmail:    "a@example.org",
			Notes:          []NoteRecord{{NoteRecordID: "haiti/note.0", AuthorPhone: "555"}},
		}),
		NoteOf(NoteRecord{NoteRecordID: "haiti/note.1", EmailOfFoundPerson: "b@example.org", Text: "kept"}),
	}
	FilterSensitive(records)

	assert.Empty(t, records[0].Person.DateOfBirth)
	assert.Empty(t, records[0].Person.AuthorEmail)
	assert.Equal(t, "A", records[0].Person.FullName)
	assert.Empty(t, records[0].Person.Notes[0].AuthorPhone)
	assert.Empty(t, records[1].Note.EmailOfFoundPerson)
	assert.Equal(t, "kept", records[1].Note.Text)
	assert.Equal(t, "haiti/note.1", records[1].ID())
}

func TestFromPersonRoundTrip(t *testing.T) {
	expiry := entry.Add(48 * time.Hour)
	p := &models.Person{Domain: "haiti", ID: "haiti/person.1", FullName: "A", EntryDate: entry, ExpiryDate: &expiry}
	r := FromPerson(p)
	assert.Equal(t, "2026-03-01T12:00:00Z", r.EntryDate)
	assert.Equal(t, "2026-03-03T12:00:00Z", r.ExpiryDate)

	back, err := r.ToPerson("haiti", entry)
	require.NoError(t, err)
	require.NotNil(t, back.ExpiryDate)
	assert.True(t, expiry.Equal(*back.ExpiryDate))
	assert.False(t, back.IsClone())
}
