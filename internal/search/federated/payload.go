package federated

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Entry references one person by record id.
type Entry struct {
	PersonRecordID string `json:"person_record_id"`
}

// Payload is a peer's answer: name matches and all-field matches, each
// ranked by the peer.
type Payload struct {
	NameEntries []Entry `json:"name_entries"`
	AllEntries  []Entry `json:"all_entries"`
}

// DecodePayload parses a peer body. Bodies that are not a JSON object, or
// that omit both lists, are malformed.
func DecodePayload(body []byte) (*Payload, error) {
	var raw struct {
		NameEntries *[]Entry `json:"name_entries"`
		AllEntries  *[]Entry `json:"all_entries"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode peer payload: %w", err)
	}
	if raw.NameEntries == nil && raw.AllEntries == nil {
		return nil, fmt.Errorf("decode peer payload: no entry lists")
	}
	p := &Payload{}
	if raw.NameEntries != nil {
		p.NameEntries = *raw.NameEntries
	}
	if raw.AllEntries != nil {
		p.AllEntries = *raw.AllEntries
	}
	return p, nil
}

// PeerURL builds the query url for a peer base url such as
// "https://peer.example/haiti".
func PeerURL(base, rawQuery string) string {
	return strings.TrimRight(base, "/") + "/query?q=" + url.QueryEscape(rawQuery)
}
