// Package records reads the authoritative note store that the search indexes
// are reconciled against.
package records

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a note.
type Status string

const (
	// StatusActive marks a note that must be searchable
	StatusActive Status = "ACTIVE"
	// StatusDeleted marks a note that must not be searchable
	StatusDeleted Status = "DELETED"
)

// ErrNotFound is returned when a note does not exist.
var ErrNotFound = errors.New("note not found")

// Field is one named field of a note. A field may hold several values.
type Field struct {
	FieldID string   `json:"fieldId"`
	Name    string   `json:"name"`
	Values  []string `json:"values"`
}

// Projection is the narrow view of a note used to classify whole-note drift.
type Projection struct {
	InternalID  int64
	ExternalID  string
	OwnerID     string
	ContentHash string
	Status      Status
}

// IsActive reports whether the note should be present in the indexes.
func (p Projection) IsActive() bool {
	return p.Status == StatusActive
}

// FieldProjection extends Projection with the note's fields, which the
// per-field index is compared against.
type FieldProjection struct {
	Projection
	Fields []Field
}

// Note is a full note, used to build index documents.
type Note struct {
	InternalID  int64
	ExternalID  string
	OwnerID     string
	Title       string
	Fields      []Field
	ContentHash string
	Status      Status
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Projection returns the narrow view of n.
func (n *Note) Projection() Projection {
	return Projection{
		InternalID:  n.InternalID,
		ExternalID:  n.ExternalID,
		OwnerID:     n.OwnerID,
		ContentHash: n.ContentHash,
		Status:      n.Status,
	}
}

// Page selects a slice of an ordered result. Number is zero based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows skipped before the page.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// Next returns the following page.
func (p Page) Next() Page {
	return Page{Number: p.Number + 1, Size: p.Size}
}
