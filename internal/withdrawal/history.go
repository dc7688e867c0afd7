package withdrawal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Process names one step of the withdrawal cascade
type Process string

const (
	// ProcessNoteDelete deletes the subject's notes from the note store
	ProcessNoteDelete Process = "NOTE_DELETE"
	// ProcessNoteIndexDelete deletes the subject's whole-note documents
	ProcessNoteIndexDelete Process = "NOTE_INDEX_DELETE"
	// ProcessNoteFieldIndexDelete deletes the subject's per-field documents
	ProcessNoteFieldIndexDelete Process = "NOTE_FIELD_INDEX_DELETE"
)

// Processes lists the steps in the order the cascade runs them
var Processes = []Process{ProcessNoteDelete, ProcessNoteIndexDelete, ProcessNoteFieldIndexDelete}

// ParseProcess returns the Process named s
func ParseProcess(s string) (Process, error) {
	for _, p := range Processes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown withdrawal process %q", s)
}

// History is one ledger entry: the outcome of one step for one subject
type History struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Process   Process   `json:"process"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryStore is the append-only withdrawal ledger
//
//go:generate mockgen -destination=mocks/mock_history_store.go -package=mocks -source=history.go HistoryStore
type HistoryStore interface {
	// Append stores entry. Entries are never updated.
	Append(ctx context.Context, entry *History) error
	// ListBySubject returns the entries of subjectID, oldest first.
	ListBySubject(ctx context.Context, subjectID string) ([]History, error)
}

type pgHistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a Postgres backed ledger
func NewHistoryStore(pool *pgxpool.Pool) HistoryStore {
	return &pgHistoryStore{pool: pool}
}

func (s *pgHistoryStore) Append(ctx context.Context, entry *History) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO withdraw_process_history (id, subject_id, process, passed, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5)`,
		entry.ID, entry.SubjectID, string(entry.Process), entry.Passed, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append withdrawal history: %w", err)
	}
	return nil
}

func (s *pgHistoryStore) ListBySubject(ctx context.Context, subjectID string) ([]History, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, subject_id, process, passed, created_at
		 FROM withdraw_process_history
		 WHERE subject_id = $1
		 ORDER BY created_at, id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (History, error) {
		var h History
		var process string
		if err := row.Scan(&h.ID, &h.SubjectID, &process, &h.Passed, &h.CreatedAt); err != nil {
			return History{}, err
		}
		h.Process = Process(process)
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan withdrawal history: %w", err)
	}
	return entries, nil
}
