// Package noteindex is the access layer of the whole-note search index: one
// document per note, carrying the note's title and its field values as filters.
package noteindex

import (
	"time"

	"github.com/notebox/notebox-indexer/internal/records"
)

// Document is the search representation of one note. ID equals NoteID for a
// document written by this package; a document stored under any other id is
// a duplicate.
type Document struct {
	ID             string              `json:"id"`
	NoteID         string              `json:"noteId"`
	OwnerID        string              `json:"ownerId"`
	Title          string              `json:"title"`
	Filters        map[string][]string `json:"filters"`
	ContentHash    string              `json:"contentHash"`
	CreatedAt      int64               `json:"createdAt"`
	ModifiedAt     int64               `json:"modifiedAt"`
	SynchronizedAt int64               `json:"synchronizedAt"`
}

// NewDocument builds the document of note as synchronized at syncedAt.
// Fields sharing a name are merged under one filter.
func NewDocument(note *records.Note, syncedAt time.Time) Document {
	filters := make(map[string][]string, len(note.Fields))
	for _, f := range note.Fields {
		filters[f.Name] = append(filters[f.Name], f.Values...)
	}
	return Document{
		ID:             note.ExternalID,
		NoteID:         note.ExternalID,
		OwnerID:        note.OwnerID,
		Title:          note.Title,
		Filters:        filters,
		ContentHash:    note.ContentHash,
		CreatedAt:      note.CreatedAt.UnixMilli(),
		ModifiedAt:     note.ModifiedAt.UnixMilli(),
		SynchronizedAt: syncedAt.UnixMilli(),
	}
}
