package sync_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	gosync "sync"
	"time"

	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
)

var errEngineDown = errors.New("engine down")

// memoryStore is an in-memory records.Store ordered by internal id.
type memoryStore struct {
	mu     gosync.Mutex
	nextID int64
	notes  []*records.Note
}

func (s *memoryStore) add(note records.Note) *records.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	note.InternalID = s.nextID
	if note.Status == "" {
		note.Status = records.StatusActive
	}
	s.notes = append(s.notes, &note)
	return &note
}

func (s *memoryStore) update(externalID string, fn func(*records.Note)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ExternalID == externalID {
			fn(n)
		}
	}
}

func (s *memoryStore) filter(match func(*records.Note) bool) []*records.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*records.Note
	for _, n := range s.notes {
		if match(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out
}

func between(start, end time.Time) func(*records.Note) bool {
	return func(n *records.Note) bool {
		return !n.ModifiedAt.Before(start) && n.ModifiedAt.Before(end)
	}
}

func before(cutoff time.Time) func(*records.Note) bool {
	return func(n *records.Note) bool {
		return n.ModifiedAt.Before(cutoff)
	}
}

func paginate(notes []*records.Note, page records.Page) []*records.Note {
	from := min(page.Offset(), len(notes))
	to := min(from+page.Size, len(notes))
	return notes[from:to]
}

func projections(notes []*records.Note) []records.Projection {
	out := make([]records.Projection, len(notes))
	for i, n := range notes {
		out[i] = n.Projection()
	}
	return out
}

func fieldProjections(notes []*records.Note) []records.FieldProjection {
	out := make([]records.FieldProjection, len(notes))
	for i, n := range notes {
		out[i] = records.FieldProjection{Projection: n.Projection(), Fields: n.Fields}
	}
	return out
}

func (s *memoryStore) CountModifiedBetween(_ context.Context, start, end time.Time) (int64, error) {
	return int64(len(s.filter(between(start, end)))), nil
}

func (s *memoryStore) CountModifiedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return int64(len(s.filter(before(cutoff)))), nil
}

func (s *memoryStore) FindModifiedBetween(
	_ context.Context, start, end time.Time, page records.Page,
) ([]records.Projection, error) {
	return projections(paginate(s.filter(between(start, end)), page)), nil
}

func (s *memoryStore) FindModifiedBefore(_ context.Context, cutoff time.Time, page records.Page) ([]records.Projection, error) {
	return projections(paginate(s.filter(before(cutoff)), page)), nil
}

func (s *memoryStore) FindFieldsModifiedBetween(
	_ context.Context, start, end time.Time, page records.Page,
) ([]records.FieldProjection, error) {
	return fieldProjections(paginate(s.filter(between(start, end)), page)), nil
}

func (s *memoryStore) FindFieldsModifiedBefore(
	_ context.Context, cutoff time.Time, page records.Page,
) ([]records.FieldProjection, error) {
	return fieldProjections(paginate(s.filter(before(cutoff)), page)), nil
}

func (s *memoryStore) FindByExternalID(_ context.Context, externalID string) (*records.Note, error) {
	found := s.filter(func(n *records.Note) bool { return n.ExternalID == externalID })
	if len(found) == 0 {
		return nil, records.ErrNotFound
	}
	return found[0], nil
}

func (s *memoryStore) DeleteAllByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, note := range s.notes {
		if note.OwnerID == ownerID && note.Status == records.StatusActive {
			note.Status = records.StatusDeleted
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Save(_ context.Context, note *records.Note) (*records.Note, error) {
	return s.add(*note), nil
}

// memoryIndex is an in-memory document store keyed by document id. It applies
// writes synchronously and counts them.
type memoryIndex[D any] struct {
	mu     gosync.Mutex
	docs   map[string]D
	noteID func(D) string
	docID  func(D) string
	// failSave makes saves of these note ids fail.
	failSave map[string]bool
	writes   int
}

func newMemoryIndex[D any](docID, noteID func(D) string) *memoryIndex[D] {
	return &memoryIndex[D]{docs: map[string]D{}, docID: docID, noteID: noteID, failSave: map[string]bool{}}
}

func (m *memoryIndex[D]) put(docs ...D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[m.docID(d)] = d
	}
}

func (m *memoryIndex[D]) snapshot() map[string]D {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.docs)
}

func (m *memoryIndex[D]) byNote(noteID string) []D {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []D
	for _, id := range slices.Sorted(maps.Keys(m.docs)) {
		if m.noteID(m.docs[id]) == noteID {
			out = append(out, m.docs[id])
		}
	}
	return out
}

func (m *memoryIndex[D]) Save(ctx context.Context, doc D) (search.TaskHandle, error) {
	return m.SaveAll(ctx, []D{doc})
}

func (m *memoryIndex[D]) SaveAll(_ context.Context, docs []D) (search.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		if m.failSave[m.noteID(d)] {
			return search.TaskHandle{}, errEngineDown
		}
	}
	m.writes++
	for _, d := range docs {
		m.docs[m.docID(d)] = d
	}
	return search.TaskHandle{TaskUID: int64(m.writes), Status: search.TaskStatusEnqueued}, nil
}

func (m *memoryIndex[D]) Delete(_ context.Context, id string) (search.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	delete(m.docs, id)
	return search.TaskHandle{TaskUID: int64(m.writes)}, nil
}

func (m *memoryIndex[D]) deleteWhere(match func(D) bool) (search.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	maps.DeleteFunc(m.docs, func(_ string, d D) bool { return match(d) })
	return search.TaskHandle{TaskUID: int64(m.writes)}, nil
}

func (m *memoryIndex[D]) DeleteAllByNoteID(_ context.Context, noteID string) (search.TaskHandle, error) {
	return m.deleteWhere(func(d D) bool { return m.noteID(d) == noteID })
}

func (m *memoryIndex[D]) FindByNoteIDs(_ context.Context, noteIDs []string) ([]D, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []D
	for _, id := range slices.Sorted(maps.Keys(m.docs)) {
		if slices.Contains(noteIDs, m.noteID(m.docs[id])) {
			out = append(out, m.docs[id])
		}
	}
	return out, nil
}

func (*memoryIndex[D]) EnsureIndex(context.Context) error { return nil }

type memoryNoteIndex struct {
	*memoryIndex[noteindex.Document]
}

var _ noteindex.Index = (*memoryNoteIndex)(nil)

func newMemoryNoteIndex() *memoryNoteIndex {
	return &memoryNoteIndex{newMemoryIndex(
		func(d noteindex.Document) string { return d.ID },
		func(d noteindex.Document) string { return d.NoteID },
	)}
}

func (*memoryNoteIndex) Name() string { return "notes" }

func (m *memoryNoteIndex) DeleteAllByOwner(_ context.Context, ownerID string) (search.TaskHandle, error) {
	return m.deleteWhere(func(d noteindex.Document) bool { return d.OwnerID == ownerID })
}

func (*memoryNoteIndex) Search(context.Context, string, string, string, int) (*noteindex.SearchResult, error) {
	return &noteindex.SearchResult{}, nil
}

func (*memoryNoteIndex) SearchWithFilters(context.Context, noteindex.FilterQuery) (*noteindex.SearchResult, error) {
	return &noteindex.SearchResult{}, nil
}

type memoryFieldIndex struct {
	*memoryIndex[fieldindex.Document]
}

var _ fieldindex.Index = (*memoryFieldIndex)(nil)

func newMemoryFieldIndex() *memoryFieldIndex {
	return &memoryFieldIndex{newMemoryIndex(
		func(d fieldindex.Document) string { return d.ID },
		func(d fieldindex.Document) string { return d.NoteID },
	)}
}

func (*memoryFieldIndex) Name() string { return "note_fields" }

func (m *memoryFieldIndex) DeleteAllByOwner(_ context.Context, ownerID string) (search.TaskHandle, error) {
	return m.deleteWhere(func(d fieldindex.Document) bool { return d.OwnerID == ownerID })
}

func (*memoryFieldIndex) SearchFieldNameFacets(context.Context, string, string) ([]search.FacetHit, error) {
	return nil, nil
}

func (*memoryFieldIndex) SearchFieldValueFacets(context.Context, string, string, string) ([]search.FacetHit, error) {
	return nil, nil
}
