package domain

import "testing"

// FuzzParseID checks parsing never panics and accepted ids round trip.
func FuzzParseID(f *testing.F) {
	f.Add("")
	f.Add("haiti/person.1")
	f.Add("global/person.1")
	f.Add("/")
	f.Add("a//b")
	f.Add("'; DROP TABLE person;--/x")
	f.Add(string([]byte{0x00, '/', 0x01}))

	f.Fuzz(func(t *testing.T, input string) {
		domain, local, err := ParseID(input)
		if err != nil {
			return
		}
		id, err := MakeID(domain, local)
		if err != nil {
			t.Fatalf("parsed id failed to rebuild: %v", err)
		}
		if id.String() != input {
			t.Fatalf("round trip changed id: %q -> %q", input, id)
		}
	})
}
