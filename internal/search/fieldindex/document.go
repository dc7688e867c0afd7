// Package fieldindex is the access layer of the decomposed search index: one
// document per (note, field, value), used for field level facet search.
package fieldindex

import (
	"time"

	"github.com/notebox/notebox-indexer/internal/ids"
	"github.com/notebox/notebox-indexer/internal/records"
)

// Document is one value of one field of a note.
type Document struct {
	ID             string `json:"id"`
	NoteID         string `json:"noteId"`
	OwnerID        string `json:"ownerId"`
	FieldID        string `json:"fieldId"`
	Name           string `json:"name"`
	Value          string `json:"value"`
	ContentHash    string `json:"contentHash"`
	SynchronizedAt int64  `json:"synchronizedAt"`
}

// NewDocuments decomposes note into one document per distinct (field id,
// value) pair, even when a field id repeats across entries. A repeated field
// id keeps the name of its first entry with values.
// Document ids are synthetic and drawn from idp.
func NewDocuments(note *records.Note, idp ids.Provider, syncedAt time.Time) []Document {
	type pair struct{ fieldID, value string }

	var docs []Document
	names := make(map[string]string, len(note.Fields))
	seen := make(map[pair]struct{})
	for _, f := range note.Fields {
		if len(f.Values) == 0 {
			continue
		}
		name, ok := names[f.FieldID]
		if !ok {
			name = f.Name
			names[f.FieldID] = name
		}
		for _, v := range f.Values {
			key := pair{f.FieldID, v}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			docs = append(docs, Document{
				ID:             idp.NewID(),
				NoteID:         note.ExternalID,
				OwnerID:        note.OwnerID,
				FieldID:        f.FieldID,
				Name:           name,
				Value:          v,
				ContentHash:    note.ContentHash,
				SynchronizedAt: syncedAt.UnixMilli(),
			})
		}
	}
	return docs
}
