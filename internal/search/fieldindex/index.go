package fieldindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/notebox/notebox-indexer/internal/search"
)

const (
	// DefaultIndexName is the engine index uid holding field documents
	DefaultIndexName = "note_fields"

	fetchLimit = 1000
)

// Attribute names used in filters and settings
const (
	AttrNoteID  = "noteId"
	AttrOwnerID = "ownerId"
	AttrFieldID = "fieldId"
	AttrName    = "name"
	AttrValue   = "value"
)

// Settings are the engine settings the queries of this package rely on.
var Settings = search.IndexSettings{
	SearchableAttributes: []string{AttrName, AttrValue},
	FilterableAttributes: []string{AttrNoteID, AttrOwnerID, AttrFieldID, AttrName, AttrValue},
}

// Index reads and writes field documents.
type Index interface {
	Save(ctx context.Context, doc Document) (search.TaskHandle, error)
	SaveAll(ctx context.Context, docs []Document) (search.TaskHandle, error)
	Delete(ctx context.Context, id string) (search.TaskHandle, error)
	DeleteAllByOwner(ctx context.Context, ownerID string) (search.TaskHandle, error)
	DeleteAllByNoteID(ctx context.Context, noteID string) (search.TaskHandle, error)
	FindByNoteIDs(ctx context.Context, noteIDs []string) ([]Document, error)
	// SearchFieldNameFacets suggests the owner's field names matching query.
	SearchFieldNameFacets(ctx context.Context, ownerID, query string) ([]search.FacetHit, error)
	// SearchFieldValueFacets suggests the owner's values of fieldName matching query.
	SearchFieldValueFacets(ctx context.Context, ownerID, fieldName, query string) ([]search.FacetHit, error)
	EnsureIndex(ctx context.Context) error
	Name() string
}

// Option configures the index
type Option func(*meiliIndex)

// WithIndexName overrides DefaultIndexName
func WithIndexName(name string) Option {
	return func(i *meiliIndex) {
		if name != "" {
			i.name = name
		}
	}
}

type meiliIndex struct {
	client search.Client
	name   string
}

// New creates an Index backed by client.
func New(client search.Client, opts ...Option) Index {
	i := &meiliIndex{client: client, name: DefaultIndexName}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *meiliIndex) Name() string {
	return i.name
}

func (i *meiliIndex) EnsureIndex(ctx context.Context) error {
	return i.client.EnsureIndex(ctx, i.name, "id", Settings)
}

func (i *meiliIndex) Save(ctx context.Context, doc Document) (search.TaskHandle, error) {
	return i.client.AddDocuments(ctx, i.name, []Document{doc})
}

func (i *meiliIndex) SaveAll(ctx context.Context, docs []Document) (search.TaskHandle, error) {
	return i.client.AddDocuments(ctx, i.name, docs)
}

func (i *meiliIndex) Delete(ctx context.Context, id string) (search.TaskHandle, error) {
	return i.client.DeleteDocument(ctx, i.name, id)
}

func (i *meiliIndex) DeleteAllByOwner(ctx context.Context, ownerID string) (search.TaskHandle, error) {
	return i.client.DeleteDocumentsByFilter(ctx, i.name, search.Eq(AttrOwnerID, ownerID))
}

func (i *meiliIndex) DeleteAllByNoteID(ctx context.Context, noteID string) (search.TaskHandle, error) {
	return i.client.DeleteDocumentsByFilter(ctx, i.name, search.Eq(AttrNoteID, noteID))
}

func (i *meiliIndex) FindByNoteIDs(ctx context.Context, noteIDs []string) ([]Document, error) {
	if len(noteIDs) == 0 {
		return nil, nil
	}
	filter := search.In(AttrNoteID, noteIDs)

	var docs []Document
	for offset := 0; ; offset += fetchLimit {
		resp, err := i.client.FetchDocuments(ctx, i.name, search.FetchRequest{
			Filter: filter,
			Offset: offset,
			Limit:  fetchLimit,
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Results {
			var doc Document
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("%w: field document: %v", search.ErrDeserialization, err)
			}
			docs = append(docs, doc)
		}
		if len(resp.Results) == 0 || int64(offset+len(resp.Results)) >= resp.Total {
			return docs, nil
		}
	}
}

func (i *meiliIndex) SearchFieldNameFacets(ctx context.Context, ownerID, query string) ([]search.FacetHit, error) {
	return i.facets(ctx, AttrName, query, search.Eq(AttrOwnerID, ownerID))
}

func (i *meiliIndex) SearchFieldValueFacets(
	ctx context.Context, ownerID, fieldName, query string,
) ([]search.FacetHit, error) {
	return i.facets(ctx, AttrValue, query, search.And(
		search.Eq(AttrOwnerID, ownerID),
		search.Eq(AttrName, fieldName),
	))
}

func (i *meiliIndex) facets(ctx context.Context, facetName, query, filter string) ([]search.FacetHit, error) {
	resp, err := i.client.FacetSearch(ctx, i.name, search.FacetSearchRequest{
		FacetName:  facetName,
		FacetQuery: query,
		Filter:     filter,
	})
	if err != nil {
		return nil, err
	}
	if resp.FacetHits == nil {
		return []search.FacetHit{}, nil
	}
	return resp.FacetHits, nil
}
