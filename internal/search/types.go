package search

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of an asynchronous engine task.
type TaskStatus string

const (
	// TaskStatusEnqueued means the task is waiting to be processed
	TaskStatusEnqueued TaskStatus = "enqueued"
	// TaskStatusProcessing means the task is being processed
	TaskStatusProcessing TaskStatus = "processing"
	// TaskStatusSucceeded means the task completed successfully
	TaskStatusSucceeded TaskStatus = "succeeded"
	// TaskStatusFailed means the task completed with an error
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCanceled means the task was canceled before completion
	TaskStatusCanceled TaskStatus = "canceled"
)

// IsTerminal reports whether the task will not change state anymore.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusCanceled:
		return true
	case TaskStatusEnqueued, TaskStatusProcessing:
		return false
	}
	return false
}

// TaskHandle is the summary the engine returns when it accepts a write.
// Completion is observed only by polling the task with Await.
type TaskHandle struct {
	TaskUID    int64      `json:"taskUid"`
	IndexUID   string     `json:"indexUid"`
	Status     TaskStatus `json:"status"`
	Type       string     `json:"type"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

// Task is the full state of an asynchronous engine task.
type Task struct {
	UID        int64      `json:"uid"`
	IndexUID   string     `json:"indexUid"`
	Status     TaskStatus `json:"status"`
	Type       string     `json:"type"`
	Error      *TaskError `json:"error,omitempty"`
	EnqueuedAt *time.Time `json:"enqueuedAt,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TaskError describes why a task failed.
type TaskError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
	Link    string `json:"link,omitempty"`
}

// SearchRequest is the body of a search query.
type SearchRequest struct {
	Query                 string   `json:"q"`
	Filter                string   `json:"filter,omitempty"`
	AttributesToRetrieve  []string `json:"attributesToRetrieve,omitempty"`
	AttributesToCrop      []string `json:"attributesToCrop,omitempty"`
	CropLength            int      `json:"cropLength,omitempty"`
	AttributesToHighlight []string `json:"attributesToHighlight,omitempty"`
	HighlightPreTag       string   `json:"highlightPreTag,omitempty"`
	HighlightPostTag      string   `json:"highlightPostTag,omitempty"`
	ShowMatchesPosition   bool     `json:"showMatchesPosition,omitempty"`
	Facets                []string `json:"facets,omitempty"`
	Sort                  []string `json:"sort,omitempty"`
	Page                  int      `json:"page,omitempty"`
	HitsPerPage           int      `json:"hitsPerPage,omitempty"`
}

// SearchResponse is the result of a search query. Hits are kept raw so each
// index can decode them into its own document shape.
type SearchResponse struct {
	Hits              []json.RawMessage           `json:"hits"`
	Query             string                      `json:"query"`
	Page              int                         `json:"page"`
	HitsPerPage       int                         `json:"hitsPerPage"`
	TotalPages        int                         `json:"totalPages"`
	TotalHits         int64                       `json:"totalHits"`
	FacetDistribution map[string]map[string]int64 `json:"facetDistribution,omitempty"`
	ProcessingTimeMs  int64                       `json:"processingTimeMs"`
}

// MatchPosition locates a query match inside an attribute.
type MatchPosition struct {
	Start   int   `json:"start"`
	Length  int   `json:"length"`
	Indices []int `json:"indices,omitempty"`
}

// FacetSearchRequest is the body of a facet-only search.
type FacetSearchRequest struct {
	FacetName  string `json:"facetName"`
	FacetQuery string `json:"facetQuery,omitempty"`
	Query      string `json:"q,omitempty"`
	Filter     string `json:"filter,omitempty"`
}

// FacetHit is one value of a facet distribution.
type FacetHit struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// FacetSearchResponse is the result of a facet-only search.
type FacetSearchResponse struct {
	FacetHits        []FacetHit `json:"facetHits"`
	FacetQuery       *string    `json:"facetQuery"`
	ProcessingTimeMs int64      `json:"processingTimeMs"`
}

// FetchRequest browses documents by filter without ranking.
type FetchRequest struct {
	Filter string   `json:"filter,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
}

// FetchResponse is one page of browsed documents.
type FetchResponse struct {
	Results []json.RawMessage `json:"results"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	Total   int64             `json:"total"`
}

// IndexSettings are the attribute settings an index needs for the filters,
// sorts and facets issued against it.
type IndexSettings struct {
	SearchableAttributes []string `json:"searchableAttributes,omitempty"`
	FilterableAttributes []string `json:"filterableAttributes,omitempty"`
	SortableAttributes   []string `json:"sortableAttributes,omitempty"`
}
