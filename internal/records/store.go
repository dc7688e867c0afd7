package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read side of the note store plus the owner-wide deletion used
// by account withdrawal. Pages are always ordered by internal id ascending.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	// CountModifiedBetween counts notes modified in [start, end).
	CountModifiedBetween(ctx context.Context, start, end time.Time) (int64, error)
	// CountModifiedBefore counts notes modified strictly before cutoff.
	CountModifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// FindModifiedBetween returns a page of notes modified in [start, end).
	FindModifiedBetween(ctx context.Context, start, end time.Time, page Page) ([]Projection, error)
	// FindModifiedBefore returns a page of notes modified strictly before cutoff.
	FindModifiedBefore(ctx context.Context, cutoff time.Time, page Page) ([]Projection, error)
	// FindFieldsModifiedBetween is FindModifiedBetween with the notes' fields.
	FindFieldsModifiedBetween(ctx context.Context, start, end time.Time, page Page) ([]FieldProjection, error)
	// FindFieldsModifiedBefore is FindModifiedBefore with the notes' fields.
	FindFieldsModifiedBefore(ctx context.Context, cutoff time.Time, page Page) ([]FieldProjection, error)
	// FindByExternalID returns the note or ErrNotFound.
	FindByExternalID(ctx context.Context, externalID string) (*Note, error)
	// DeleteAllByOwner marks every active note of owner as deleted and returns
	// how many notes changed.
	DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error)
	// Save inserts or replaces a note by external id.
	Save(ctx context.Context, note *Note) (*Note, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a Postgres backed note store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const (
	projectionColumns = `id, external_id, owner_id, content_hash, status`
	noteColumns       = `id, external_id, owner_id, title, fields, content_hash, status, created_at, modified_at`

	betweenClause = `modified_at >= $1 AND modified_at < $2`
	beforeClause  = `modified_at < $1`
)

func (s *pgStore) CountModifiedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return s.count(ctx, betweenClause, start, end)
}

func (s *pgStore) CountModifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.count(ctx, beforeClause, cutoff)
}

func (s *pgStore) count(ctx context.Context, where string, args ...any) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notes WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

func (s *pgStore) FindModifiedBetween(ctx context.Context, start, end time.Time, page Page) ([]Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM notes WHERE ` + betweenClause +
		` ORDER BY id LIMIT $3 OFFSET $4`
	return s.findProjections(ctx, query, start, end, page.Size, page.Offset())
}

func (s *pgStore) FindModifiedBefore(ctx context.Context, cutoff time.Time, page Page) ([]Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM notes WHERE ` + beforeClause +
		` ORDER BY id LIMIT $2 OFFSET $3`
	return s.findProjections(ctx, query, cutoff, page.Size, page.Offset())
}

func (s *pgStore) findProjections(ctx context.Context, query string, args ...any) ([]Projection, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Projection, error) {
		var p Projection
		err := row.Scan(&p.InternalID, &p.ExternalID, &p.OwnerID, &p.ContentHash, &p.Status)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notes: %w", err)
	}
	return result, nil
}

func (s *pgStore) FindFieldsModifiedBetween(
	ctx context.Context, start, end time.Time, page Page,
) ([]FieldProjection, error) {
	query := `SELECT ` + projectionColumns + `, fields FROM notes WHERE ` + betweenClause +
		` ORDER BY id LIMIT $3 OFFSET $4`
	return s.findFieldProjections(ctx, query, start, end, page.Size, page.Offset())
}

func (s *pgStore) FindFieldsModifiedBefore(ctx context.Context, cutoff time.Time, page Page) ([]FieldProjection, error) {
	query := `SELECT ` + projectionColumns + `, fields FROM notes WHERE ` + beforeClause +
		` ORDER BY id LIMIT $2 OFFSET $3`
	return s.findFieldProjections(ctx, query, cutoff, page.Size, page.Offset())
}

func (s *pgStore) findFieldProjections(ctx context.Context, query string, args ...any) ([]FieldProjection, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (FieldProjection, error) {
		var p FieldProjection
		err := row.Scan(&p.InternalID, &p.ExternalID, &p.OwnerID, &p.ContentHash, &p.Status, &p.Fields)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notes: %w", err)
	}
	return result, nil
}

func (s *pgStore) FindByExternalID(ctx context.Context, externalID string) (*Note, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE external_id = $1`, externalID)
	note, err := scanNote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", externalID, err)
	}
	return note, nil
}

func (s *pgStore) DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notes SET status = $2, modified_at = now() WHERE owner_id = $1 AND status <> $2`,
		ownerID, StatusDeleted)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notes of owner %s: %w", ownerID, err)
	}
	slog.Debug("Deleted notes of owner", "owner_id", ownerID, "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

func (s *pgStore) Save(ctx context.Context, note *Note) (*Note, error) {
	if note == nil {
		return nil, fmt.Errorf("note cannot be nil")
	}
	if note.ExternalID == "" {
		return nil, fmt.Errorf("note external id is required")
	}
	status := note.Status
	if status == "" {
		status = StatusActive
	}
	fields := note.Fields
	if fields == nil {
		fields = []Field{}
	}
	modifiedAt := note.ModifiedAt
	if modifiedAt.IsZero() {
		modifiedAt = time.Now().UTC()
	}
	createdAt := note.CreatedAt
	if createdAt.IsZero() {
		createdAt = modifiedAt
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO notes (external_id, owner_id, title, fields, content_hash, status, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			title = EXCLUDED.title,
			fields = EXCLUDED.fields,
			content_hash = EXCLUDED.content_hash,
			status = EXCLUDED.status,
			modified_at = EXCLUDED.modified_at
		RETURNING `+noteColumns,
		note.ExternalID, note.OwnerID, note.Title, fields, note.ContentHash, status, createdAt, modifiedAt)
	saved, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save note %s: %w", note.ExternalID, err)
	}
	return saved, nil
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	if err := row.Scan(&n.InternalID, &n.ExternalID, &n.OwnerID, &n.Title, &n.Fields,
		&n.ContentHash, &n.Status, &n.CreatedAt, &n.ModifiedAt); err != nil {
		return nil, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.ModifiedAt = n.ModifiedAt.UTC()
	return &n, nil
}
