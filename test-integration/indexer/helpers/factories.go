package helpers

import (
	"fmt"
	"time"

	"github.com/notebox/notebox-indexer/internal/records"
)

// NewNote returns an active note of ownerID with one field, last modified
// two days ago so that any major pass covers it
func NewNote(ownerID, externalID string) *records.Note {
	modified := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	return &records.Note{
		ExternalID:  externalID,
		OwnerID:     ownerID,
		Title:       "Note " + externalID,
		ContentHash: fmt.Sprintf("hash-%s-1", externalID),
		Status:      records.StatusActive,
		Fields: []records.Field{
			{FieldID: externalID + "-project", Name: "project", Values: []string{"alpha", "beta"}},
		},
		CreatedAt:  modified,
		ModifiedAt: modified,
	}
}
