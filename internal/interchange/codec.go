package interchange

import (
	"encoding/json"
	"io"

	dErrors "personfinder/pkg/domain-errors"
)

// Parser reads a feed into person and note records. Notes nested under a
// person are returned in the note list with their person id filled in.
type Parser interface {
	Parse(r io.Reader) ([]PersonRecord, []NoteRecord, error)
}

// NoteProvider returns the notes to embed under a person.
type NoteProvider func(personRecordID string) ([]NoteRecord, error)

// Serializer writes person records, embedding each person's notes.
type Serializer interface {
	Serialize(w io.Writer, persons []PersonRecord, notes NoteProvider) error
}

// JSONCodec is the JSON rendition of the record feed:
//
//	{"persons":[{...,"notes":[...]}],"notes":[...]}
type JSONCodec struct{}

type document struct {
	Persons []PersonRecord `json:"persons,omitempty"`
	Notes   []NoteRecord   `json:"notes,omitempty"`
}

func (JSONCodec) Parse(r io.Reader) ([]PersonRecord, []NoteRecord, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed record feed")
	}
	persons := make([]PersonRecord, 0, len(doc.Persons))
	var notes []NoteRecord
	for _, p := range doc.Persons {
		for _, n := range p.Notes {
			if n.PersonRecordID == "" {
				n.PersonRecordID = p.PersonRecordID
			}
			notes = append(notes, n)
		}
		p.Notes = nil
		persons = append(persons, p)
	}
	notes = append(notes, doc.Notes...)
	return persons, notes, nil
}

func (JSONCodec) Serialize(w io.Writer, persons []PersonRecord, notes NoteProvider) error {
	doc := document{Persons: make([]PersonRecord, 0, len(persons))}
	for _, p := range persons {
		if notes != nil {
			embedded, err := notes(p.PersonRecordID)
			if err != nil {
				return err
			}
			p.Notes = embedded
		}
		doc.Persons = append(doc.Persons, p)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
