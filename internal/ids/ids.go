// Package ids provides identifier generation for search documents and ledger entries.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Provider generates unique identifiers.
type Provider interface {
	NewID() string
}

// UUIDProvider generates random UUIDv4 strings.
type UUIDProvider struct{}

// NewID returns a new random UUID.
func (UUIDProvider) NewID() string {
	return uuid.NewString()
}

// Sequence generates predictable identifiers ("<prefix>-1", "<prefix>-2", ...).
// It is safe for concurrent use and intended for tests.
type Sequence struct {
	prefix string

	mu   sync.Mutex
	next int
}

// NewSequence creates a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next identifier in the sequence.
func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}
