package api

import (
	"github.com/notebox/notebox-indexer/internal/sync"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse reports the outcome of every dependency check
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncResponse summarizes a pass run on demand
type SyncResponse struct {
	Variant    string         `json:"variant"`
	Mode       string         `json:"mode"`
	Total      int64          `json:"total"`
	Scanned    int            `json:"scanned"`
	Repaired   map[string]int `json:"repaired"`
	Failed     int            `json:"failed"`
	DurationMS int64          `json:"durationMs"`
}

func newSyncResponse(r *sync.Result) SyncResponse {
	repaired := make(map[string]int, len(r.Repaired))
	for status, n := range r.Repaired {
		repaired[status.String()] = n
	}
	return SyncResponse{
		Variant:    string(r.Variant),
		Mode:       string(r.Mode),
		Total:      r.Total,
		Scanned:    r.Scanned,
		Repaired:   repaired,
		Failed:     r.Failed,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// RemediationResponse reports a single withdrawal step run by an operator
type RemediationResponse struct {
	SubjectID string `json:"subjectId"`
	Process   string `json:"process"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
}

// HistoryResponse lists the ledger of a subject, oldest first
type HistoryResponse struct {
	SubjectID string               `json:"subjectId"`
	Entries   []withdrawal.History `json:"entries"`
}
