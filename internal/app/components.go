package app

import (
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notebox/notebox-indexer/internal/kafka"
	"github.com/notebox/notebox-indexer/internal/search"
	"github.com/notebox/notebox-indexer/internal/search/fieldindex"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
	pkgsync "github.com/notebox/notebox-indexer/internal/sync"
	"github.com/notebox/notebox-indexer/internal/sync/coordinator"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

// Components groups everything the indexer runs. The Kafka fields are nil
// when no kafka section is configured.
//
//nolint:revive // This name is fine
type Components struct {
	Pool         *pgxpool.Pool
	SearchClient search.Client
	NoteIndex    noteindex.Index
	FieldIndex   fieldindex.Index

	// Runners holds one runner per index variant
	Runners     []*coordinator.Runner
	Coordinator coordinator.Coordinator

	Cascade  *withdrawal.Cascade
	Producer *kafka.Producer
	Consumer *kafka.Consumer

	ownsPool  bool
	closeOnce sync.Once
}

// Runner returns the runner of variant, or nil
func (c *Components) Runner(variant pkgsync.Variant) *coordinator.Runner {
	for _, r := range c.Runners {
		if r.Variant() == variant {
			return r
		}
	}
	return nil
}

// Close releases the Kafka clients and the pool opened by the builder.
// An injected pool is left open.
func (c *Components) Close() {
	c.closeOnce.Do(func() {
		if c.Consumer != nil {
			c.Consumer.Close()
		}
		if c.Producer != nil {
			c.Producer.Close()
		}
		if c.ownsPool && c.Pool != nil {
			c.Pool.Close()
		}
		slog.Debug("Indexer components closed")
	})
}
