package sync_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/notebox/notebox-indexer/internal/ids"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
	"github.com/notebox/notebox-indexer/internal/sync"
)

func active(id, hash string) records.Projection {
	return records.Projection{ExternalID: id, ContentHash: hash, Status: records.StatusActive}
}

func deleted(id string) records.Projection {
	return records.Projection{ExternalID: id, ContentHash: "gone", Status: records.StatusDeleted}
}

func noteDoc(id, noteID, hash string) noteindex.Document {
	return noteindex.Document{ID: id, NoteID: noteID, ContentHash: hash}
}

func TestDriftStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not-indexed", sync.NotIndexed.String())
	assert.Equal(t, "not-removed", sync.NotRemoved.String())
	assert.Equal(t, "stale", sync.Stale.String())
	assert.Equal(t, "duplicated", sync.Duplicated.String())
	assert.Equal(t, "unknown", sync.DriftStatus(0).String())
}

func TestClassifyNotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		notes []records.Projection
		docs  []noteindex.Document
		want  sync.Classification
	}{
		{
			name:  "active without document is not indexed",
			notes: []records.Projection{active("n-1", "a")},
			want:  sync.Classification{sync.NotIndexed: {"n-1"}},
		},
		{
			name:  "deleted with one document is not removed",
			notes: []records.Projection{deleted("n-1")},
			docs:  []noteindex.Document{noteDoc("n-1", "n-1", "a")},
			want:  sync.Classification{sync.NotRemoved: {"n-1"}},
		},
		{
			name:  "deleted with two documents is not removed",
			notes: []records.Projection{deleted("n-1")},
			docs:  []noteindex.Document{noteDoc("n-1", "n-1", "a"), noteDoc("x", "n-1", "a")},
			want:  sync.Classification{sync.NotRemoved: {"n-1"}},
		},
		{
			name:  "active with one document and different hash is stale",
			notes: []records.Projection{active("n-1", "new")},
			docs:  []noteindex.Document{noteDoc("n-1", "n-1", "old")},
			want:  sync.Classification{sync.Stale: {"n-1"}},
		},
		{
			name:  "active with two documents is duplicated",
			notes: []records.Projection{active("n-1", "a")},
			docs:  []noteindex.Document{noteDoc("n-1", "n-1", "a"), noteDoc("foreign", "n-1", "a")},
			want:  sync.Classification{sync.Duplicated: {"n-1"}},
		},
		{
			name:  "active with matching document is consistent",
			notes: []records.Projection{active("n-1", "a")},
			docs:  []noteindex.Document{noteDoc("n-1", "n-1", "a")},
			want:  sync.Classification{},
		},
		{
			name:  "deleted without document is consistent",
			notes: []records.Projection{deleted("n-1")},
			want:  sync.Classification{},
		},
		{
			name: "mixed page keeps note order per status",
			notes: []records.Projection{
				active("n-1", "a"), active("n-2", "b"), deleted("n-3"), active("n-4", "d"), active("n-5", "e"),
			},
			docs: []noteindex.Document{
				noteDoc("n-2", "n-2", "stale"),
				noteDoc("n-3", "n-3", "c"),
				noteDoc("n-4", "n-4", "d"),
				noteDoc("n-4-copy", "n-4", "d"),
				noteDoc("other", "n-99", "z"),
			},
			want: sync.Classification{
				sync.NotIndexed: {"n-1", "n-5"},
				sync.Stale:      {"n-2"},
				sync.NotRemoved: {"n-3"},
				sync.Duplicated: {"n-4"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sync.ClassifyNotes(tt.notes, tt.docs)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ClassifyNotes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func fieldNote(id string, status records.Status, fields ...records.Field) records.FieldProjection {
	return records.FieldProjection{
		Projection: records.Projection{ExternalID: id, ContentHash: "h", Status: status},
		Fields:     fields,
	}
}

func field(id, name string, values ...string) records.Field {
	return records.Field{FieldID: id, Name: name, Values: values}
}

func fieldDoc(noteID, fieldID, name, value string) fieldindex.Document {
	return fieldindex.Document{
		ID: noteID + "/" + fieldID + "/" + name + "/" + value, NoteID: noteID, FieldID: fieldID, Name: name, Value: value,
	}
}

func TestClassifyFields(t *testing.T) {
	t.Parallel()

	origin := field("f-1", "Origin", "Ethiopia", "Kenya")
	roast := field("f-2", "Roast", "Light")
	consistentDocs := []fieldindex.Document{
		fieldDoc("n-1", "f-1", "Origin", "Ethiopia"),
		fieldDoc("n-1", "f-1", "Origin", "Kenya"),
		fieldDoc("n-1", "f-2", "Roast", "Light"),
	}

	tests := []struct {
		name  string
		notes []records.FieldProjection
		docs  []fieldindex.Document
		want  sync.Classification
	}{
		{
			name:  "active without documents is not indexed",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, origin)},
			want:  sync.Classification{sync.NotIndexed: {"n-1"}},
		},
		{
			name:  "active without field values needs no documents",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, field("f-1", "Origin"))},
			want:  sync.Classification{},
		},
		{
			name:  "deleted with documents is not removed",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusDeleted, origin)},
			docs:  consistentDocs[:1],
			want:  sync.Classification{sync.NotRemoved: {"n-1"}},
		},
		{
			name:  "one document per field value is consistent",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, origin, roast)},
			docs:  consistentDocs,
			want:  sync.Classification{},
		},
		{
			name:  "missing field is stale",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, origin, roast)},
			docs:  consistentDocs[:2],
			want:  sync.Classification{sync.Stale: {"n-1"}},
		},
		{
			name:  "extra field is stale",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, origin)},
			docs:  consistentDocs,
			want:  sync.Classification{sync.Stale: {"n-1"}},
		},
		{
			name:  "different value set is stale",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, field("f-1", "Origin", "Ethiopia", "Brazil"), roast)},
			docs:  consistentDocs,
			want:  sync.Classification{sync.Stale: {"n-1"}},
		},
		{
			name:  "field documents with two names are stale",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, origin, roast)},
			docs: []fieldindex.Document{
				fieldDoc("n-1", "f-1", "Origin", "Ethiopia"),
				fieldDoc("n-1", "f-1", "Country", "Kenya"),
				fieldDoc("n-1", "f-2", "Roast", "Light"),
			},
			want: sync.Classification{sync.Stale: {"n-1"}},
		},
		{
			name:  "renamed field is stale",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, field("f-2", "Roast level", "Light"))},
			docs:  []fieldindex.Document{fieldDoc("n-1", "f-2", "Roast", "Light")},
			want:  sync.Classification{sync.Stale: {"n-1"}},
		},
		{
			name:  "value indexed twice is stale",
			notes: []records.FieldProjection{fieldNote("n-1", records.StatusActive, roast)},
			docs: []fieldindex.Document{
				fieldDoc("n-1", "f-2", "Roast", "Light"),
				{ID: "copy", NoteID: "n-1", FieldID: "f-2", Name: "Roast", Value: "Light"},
			},
			want: sync.Classification{sync.Stale: {"n-1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sync.ClassifyFields(tt.notes, tt.docs)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ClassifyFields() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyFields_BuiltDocumentsAreConsistent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields []records.Field
	}{
		{
			name:   "distinct fields",
			fields: []records.Field{field("f-1", "Origin", "Ethiopia", "Kenya"), field("f-2", "Roast", "Light")},
		},
		{
			name:   "repeated field id with overlapping values",
			fields: []records.Field{field("f-1", "Origin", "Ethiopia"), field("f-1", "Origin", "Ethiopia", "Kenya")},
		},
		{
			name:   "repeated field id with a different name",
			fields: []records.Field{field("f-1", "Origin", "Ethiopia"), field("f-1", "Country", "Kenya")},
		},
		{
			name:   "repeated value within a field",
			fields: []records.Field{field("f-1", "Origin", "Kenya", "Kenya")},
		},
		{
			name:   "empty entry before the named one",
			fields: []records.Field{field("f-1", "Unnamed"), field("f-1", "Origin", "Kenya")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			note := &records.Note{ExternalID: "n-1", ContentHash: "h", Status: records.StatusActive, Fields: tt.fields}
			docs := fieldindex.NewDocuments(note, ids.NewSequence("fd"), time.Now())

			got := sync.ClassifyFields([]records.FieldProjection{fieldNote("n-1", records.StatusActive, tt.fields...)}, docs)
			assert.Zero(t, got.Len(), "documents written by a repair must classify as consistent, got %v", got)
		})
	}
}

func TestClassification_Len(t *testing.T) {
	t.Parallel()

	c := sync.Classification{sync.NotIndexed: {"a", "b"}, sync.Stale: {"c"}}
	assert.Equal(t, 3, c.Len())
	assert.Zero(t, sync.Classification{}.Len())
}
