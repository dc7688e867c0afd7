package noteindex

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/notebox/notebox-indexer/internal/search"
)

const (
	// DefaultIndexName is the engine index uid holding note documents
	DefaultIndexName = "notes"

	// DefaultHitsPerPage is the page size of search results
	DefaultHitsPerPage = 20

	// DefaultCropLength is the number of words kept around a match in the title
	DefaultCropLength = 30

	// fetchLimit is the page size used when browsing documents by note id
	fetchLimit = 1000

	filtersPrefix = "filters."
)

// Attribute names used in filters and settings
const (
	AttrNoteID     = "noteId"
	AttrOwnerID    = "ownerId"
	AttrCreatedAt  = "createdAt"
	AttrModifiedAt = "modifiedAt"
	AttrFilters    = "filters"
	AttrTitle      = "title"
)

// Settings are the engine settings the queries of this package rely on.
var Settings = search.IndexSettings{
	SearchableAttributes: []string{AttrTitle, AttrFilters},
	FilterableAttributes: []string{AttrNoteID, AttrOwnerID, AttrCreatedAt, AttrModifiedAt, AttrFilters},
	SortableAttributes:   []string{AttrCreatedAt, AttrModifiedAt},
}

// Index reads and writes whole-note documents. Writes return the engine
// task; deleting ids or filters that match nothing is not an error.
type Index interface {
	Save(ctx context.Context, doc Document) (search.TaskHandle, error)
	SaveAll(ctx context.Context, docs []Document) (search.TaskHandle, error)
	Delete(ctx context.Context, id string) (search.TaskHandle, error)
	DeleteAllByOwner(ctx context.Context, ownerID string) (search.TaskHandle, error)
	DeleteAllByNoteID(ctx context.Context, noteID string) (search.TaskHandle, error)
	// FindByNoteIDs returns every document whose noteId is one of noteIDs,
	// including documents stored under a foreign id.
	FindByNoteIDs(ctx context.Context, noteIDs []string) ([]Document, error)
	// Search runs a full-text query over the owner's notes. page is 1 based.
	Search(ctx context.Context, ownerID, query, highlightTag string, page int) (*SearchResult, error)
	// SearchWithFilters selects the owner's notes by filter values and date
	// ranges and highlights the requested values that matched.
	SearchWithFilters(ctx context.Context, q FilterQuery) (*SearchResult, error)
	// EnsureIndex creates the index and applies Settings.
	EnsureIndex(ctx context.Context) error
	// Name returns the engine index uid.
	Name() string
}

// TimeRange is the half-open interval [From, To). A zero bound is open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// FilterQuery is a structured search over filter values.
type FilterQuery struct {
	OwnerID      string
	Filters      map[string][]string
	Created      *TimeRange
	Modified     *TimeRange
	HighlightTag string
	Page         int
}

// Hit is one search result.
type Hit struct {
	NoteID  string
	OwnerID string
	// Title is cropped and highlighted for free-text searches.
	Title string
	// Filters holds the matched filters of a free-text search, or every
	// filter of the note with matched values highlighted for a filter search.
	Filters    map[string][]string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// SearchResult is one page of hits.
type SearchResult struct {
	Hits      []Hit
	Page      int
	TotalHits int64
	HasNext   bool
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

// WithHitsPerPage overrides DefaultHitsPerPage
func WithHitsPerPage(n int) Option {
	return func(i *meiliIndex) {
		if n > 0 {
			i.hitsPerPage = n
		}
	}
}

type meiliIndex struct {
	client      search.Client
	name        string
	hitsPerPage int
}

// New creates an Index backed by client.
func New(client search.Client, opts ...Option) Index {
	i := &meiliIndex{
		client:      client,
		name:        DefaultIndexName,
		hitsPerPage: DefaultHitsPerPage,
	}
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
				return nil, fmt.Errorf("%w: note document: %v", search.ErrDeserialization, err)
			}
			docs = append(docs, doc)
		}
		if len(resp.Results) == 0 || int64(offset+len(resp.Results)) >= resp.Total {
			return docs, nil
		}
	}
}

// rawHit is a search hit with the engine's formatting metadata. Numbers are
// rendered as strings in _formatted, so it only decodes the text attributes.
type rawHit struct {
	Document
	Formatted *struct {
		Title   string              `json:"title"`
		Filters map[string][]string `json:"filters"`
	} `json:"_formatted"`
	MatchesPosition map[string][]search.MatchPosition `json:"_matchesPosition"`
}

func (i *meiliIndex) Search(
	ctx context.Context, ownerID, query, highlightTag string, page int,
) (*SearchResult, error) {
	page = max(page, 1)
	pre, post := tags(highlightTag)
	resp, err := i.client.Search(ctx, i.name, search.SearchRequest{
		Query:                 query,
		Filter:                search.Eq(AttrOwnerID, ownerID),
		AttributesToCrop:      []string{AttrTitle},
		CropLength:            DefaultCropLength,
		AttributesToHighlight: []string{AttrTitle, AttrFilters},
		HighlightPreTag:       pre,
		HighlightPostTag:      post,
		ShowMatchesPosition:   true,
		Page:                  page,
		HitsPerPage:           i.hitsPerPage,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		h, err := decodeHit(raw)
		if err != nil {
			return nil, err
		}
		matched, err := matchedFilters(h)
		if err != nil {
			return nil, err
		}
		hit := newHit(h.Document)
		hit.Filters = matched
		if h.Formatted != nil && h.Formatted.Title != "" {
			hit.Title = h.Formatted.Title
		}
		hits = append(hits, hit)
	}
	return newResult(resp, page, hits), nil
}

func (i *meiliIndex) SearchWithFilters(ctx context.Context, q FilterQuery) (*SearchResult, error) {
	page := max(q.Page, 1)
	resp, err := i.client.Search(ctx, i.name, search.SearchRequest{
		Filter:      buildFilter(q),
		Page:        page,
		HitsPerPage: i.hitsPerPage,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		h, err := decodeHit(raw)
		if err != nil {
			return nil, err
		}
		hit := newHit(h.Document)
		hit.Filters = HighlightFilters(h.Filters, q.Filters, q.HighlightTag)
		hits = append(hits, hit)
	}
	return newResult(resp, page, hits), nil
}

// HighlightFilters returns a copy of source in which every value that was also
// requested for the same filter name is wrapped in highlightTag. Other values
// are returned unchanged.
func HighlightFilters(source, requested map[string][]string, highlightTag string) map[string][]string {
	pre, post := tags(highlightTag)
	out := make(map[string][]string, len(source))
	for name, values := range source {
		wanted := requested[name]
		highlighted := make([]string, len(values))
		for idx, v := range values {
			if slices.Contains(wanted, v) {
				v = pre + v + post
			}
			highlighted[idx] = v
		}
		out[name] = highlighted
	}
	return out
}

func buildFilter(q FilterQuery) string {
	parts := []string{search.Eq(AttrOwnerID, q.OwnerID)}
	for _, name := range slices.Sorted(maps.Keys(q.Filters)) {
		if values := q.Filters[name]; len(values) > 0 {
			parts = append(parts, search.In(filtersPrefix+name, values))
		}
	}
	parts = append(parts, rangeFilter(AttrCreatedAt, q.Created)...)
	parts = append(parts, rangeFilter(AttrModifiedAt, q.Modified)...)
	return search.And(parts...)
}

func rangeFilter(attribute string, r *TimeRange) []string {
	if r == nil {
		return nil
	}
	var parts []string
	if !r.From.IsZero() {
		parts = append(parts, search.Gte(attribute, r.From.UnixMilli()))
	}
	if !r.To.IsZero() {
		parts = append(parts, search.Lt(attribute, r.To.UnixMilli()))
	}
	return parts
}

// matchedFilters maps every matched filters.<name> path back to the values of
// the un-highlighted source document, preferring the highlighted rendering
// when the engine returned one with the same shape.
func matchedFilters(h *rawHit) (map[string][]string, error) {
	matched := make(map[string][]string)
	for path := range h.MatchesPosition {
		name, ok := strings.CutPrefix(path, filtersPrefix)
		if !ok {
			continue
		}
		source, ok := h.Filters[name]
		if !ok {
			return nil, fmt.Errorf("%w: document %s matched %q but has no such filter",
				search.ErrInconsistentState, h.ID, path)
		}
		values := source
		if h.Formatted != nil {
			if formatted := h.Formatted.Filters[name]; len(formatted) == len(source) {
				values = formatted
			}
		}
		matched[name] = slices.Clone(values)
	}
	return matched, nil
}

func decodeHit(raw json.RawMessage) (*rawHit, error) {
	var h rawHit
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: note hit: %v", search.ErrDeserialization, err)
	}
	if h.NoteID == "" {
		return nil, fmt.Errorf("%w: note hit %s has no noteId", search.ErrDeserialization, h.ID)
	}
	return &h, nil
}

func newHit(doc Document) Hit {
	return Hit{
		NoteID:     doc.NoteID,
		OwnerID:    doc.OwnerID,
		Title:      doc.Title,
		CreatedAt:  time.UnixMilli(doc.CreatedAt).UTC(),
		ModifiedAt: time.UnixMilli(doc.ModifiedAt).UTC(),
	}
}

func newResult(resp *search.SearchResponse, page int, hits []Hit) *SearchResult {
	return &SearchResult{
		Hits:      hits,
		Page:      page,
		TotalHits: resp.TotalHits,
		HasNext:   resp.TotalPages > page,
	}
}

func tags(highlightTag string) (string, string) {
	if highlightTag == "" {
		return "", ""
	}
	return "<" + highlightTag + ">", "</" + highlightTag + ">"
}
