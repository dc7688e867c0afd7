package sync

import (
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
)

// DriftStatus classifies how the index disagrees with the note store for one
// note. It is computed on every pass and never stored.
type DriftStatus int

const (
	// NotIndexed means the note is active and has no document
	NotIndexed DriftStatus = iota + 1
	// NotRemoved means the note is deleted and still has documents
	NotRemoved
	// Stale means the documents do not reflect the current note
	Stale
	// Duplicated means the note has more than one whole-note document
	Duplicated
)

// Statuses lists every DriftStatus in repair order.
var Statuses = []DriftStatus{NotIndexed, NotRemoved, Stale, Duplicated}

func (s DriftStatus) String() string {
	switch s {
	case NotIndexed:
		return "not-indexed"
	case NotRemoved:
		return "not-removed"
	case Stale:
		return "stale"
	case Duplicated:
		return "duplicated"
	}
	return "unknown"
}

// Classification maps each drift status to the external ids of the notes in
// that state, in the order the notes were given. Consistent notes are absent.
type Classification map[DriftStatus][]string

// Len returns the number of drifted notes.
func (c Classification) Len() int {
	n := 0
	for _, ids := range c {
		n += len(ids)
	}
	return n
}

// ClassifyNotes compares notes against their whole-note documents.
func ClassifyNotes(notes []records.Projection, docs []noteindex.Document) Classification {
	byNote := make(map[string][]noteindex.Document, len(docs))
	for _, d := range docs {
		byNote[d.NoteID] = append(byNote[d.NoteID], d)
	}

	result := make(Classification)
	for _, n := range notes {
		indexed := byNote[n.ExternalID]
		switch {
		case n.IsActive() && len(indexed) == 0:
			result[NotIndexed] = append(result[NotIndexed], n.ExternalID)
		case !n.IsActive() && len(indexed) > 0:
			result[NotRemoved] = append(result[NotRemoved], n.ExternalID)
		case n.IsActive() && len(indexed) > 1:
			result[Duplicated] = append(result[Duplicated], n.ExternalID)
		case n.IsActive() && indexed[0].ContentHash != n.ContentHash:
			result[Stale] = append(result[Stale], n.ExternalID)
		}
	}
	return result
}

// ClassifyFields compares notes against their field documents. An active note
// with no field values expects no documents and is consistent without any.
func ClassifyFields(notes []records.FieldProjection, docs []fieldindex.Document) Classification {
	byNote := make(map[string][]fieldindex.Document, len(docs))
	for _, d := range docs {
		byNote[d.NoteID] = append(byNote[d.NoteID], d)
	}

	result := make(Classification)
	for _, n := range notes {
		indexed := byNote[n.ExternalID]
		expected := expectedFields(n.Fields)
		switch {
		case !n.IsActive() && len(indexed) > 0:
			result[NotRemoved] = append(result[NotRemoved], n.ExternalID)
		case !n.IsActive():
		case len(indexed) == 0 && len(expected) > 0:
			result[NotIndexed] = append(result[NotIndexed], n.ExternalID)
		case fieldsDiffer(expected, indexed):
			result[Stale] = append(result[Stale], n.ExternalID)
		}
	}
	return result
}

type fieldState struct {
	names  map[string]struct{}
	values map[string]int
}

// expectedFields returns the field state the index should hold for fields.
// Fields without values produce no documents and are left out. A field id
// repeated across entries keeps the name of its first entry with values, the
// same name fieldindex.NewDocuments writes.
func expectedFields(fields []records.Field) map[string]*fieldState {
	expected := make(map[string]*fieldState, len(fields))
	for _, f := range fields {
		if len(f.Values) == 0 {
			continue
		}
		st, ok := expected[f.FieldID]
		if !ok {
			st = &fieldState{names: map[string]struct{}{f.Name: {}}, values: map[string]int{}}
			expected[f.FieldID] = st
		}
		for _, v := range f.Values {
			st.values[v] = 1
		}
	}
	return expected
}

func fieldsDiffer(expected map[string]*fieldState, docs []fieldindex.Document) bool {
	indexed := make(map[string]*fieldState, len(expected))
	for _, d := range docs {
		st, ok := indexed[d.FieldID]
		if !ok {
			st = &fieldState{names: map[string]struct{}{}, values: map[string]int{}}
			indexed[d.FieldID] = st
		}
		st.names[d.Name] = struct{}{}
		st.values[d.Value]++
	}

	if len(indexed) != len(expected) {
		return true
	}
	for fieldID, want := range expected {
		got, ok := indexed[fieldID]
		if !ok || len(got.names) != 1 || len(got.values) != len(want.values) {
			return true
		}
		for name := range got.names {
			if _, ok := want.names[name]; !ok {
				return true
			}
		}
		for v, count := range got.values {
			// A value indexed twice is a duplicate pair.
			if count != 1 || want.values[v] != 1 {
				return true
			}
		}
	}
	return false
}
