package models

import "sort"

// SortNotes orders notes by entry date, then insertion order.
func SortNotes(notes []*Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.Before(b.EntryDate)
		}
		return a.Seq < b.Seq
	})
}

// Project recomputes the derived status fields from the person's notes. The
// most recently entered visible note wins; equal entry dates fall back to
// insertion order so the later write wins. Linked ids from visible notes are
// appended in note order, existing links are kept.
func (p *Person) Project(notes []*Note) {
	ordered := append([]*Note(nil), notes...)
	SortNotes(ordered)

	p.LatestStatus = StatusUnspecified
	p.LatestFound = FoundUnknown
	p.LatestStatusDate = nil
	for _, n := range ordered {
		if !n.Visible() {
			continue
		}
		p.LatestStatus = n.Status
		p.LatestFound = n.Found
		entered := n.EntryDate
		p.LatestStatusDate = &entered
		if !n.LinkedPersonID.IsZero() && n.LinkedPersonID != p.ID && !p.HasLink(n.LinkedPersonID) {
			p.LinkedPersonIDs = append(p.LinkedPersonIDs, n.LinkedPersonID)
		}
	}
}
