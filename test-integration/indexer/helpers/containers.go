// Package helpers starts the indexer dependencies and drives the ops server
// in integration tests.
package helpers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/notebox/notebox-indexer/database"
)

const (
	postgresImage = "postgres:16-alpine"
	searchImage   = "getmeili/meilisearch:v1.12"
	redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v24.2.4"

	// SearchMasterKey is the API key of the search container
	SearchMasterKey = "integration-master-key"
)

// Environment holds the running dependencies of the indexer
type Environment struct {
	Pool           *pgxpool.Pool
	SearchEndpoint string
	Brokers        []string

	containers []tc.Container
}

// StartEnvironment starts Postgres with every migration applied, the search
// engine and a Kafka-compatible broker
func StartEnvironment(ctx context.Context) (*Environment, error) {
	env := &Environment{}
	ok := false
	defer func() {
		if !ok {
			env.Stop(context.WithoutCancel(ctx))
		}
	}()

	pg, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("notebox"),
		postgres.WithUsername("indexer"),
		postgres.WithPassword("indexer"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres: %w", err)
	}
	env.containers = append(env.containers, pg)

	connString, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(connString, 0); err != nil {
		return nil, err
	}
	if env.Pool, err = pgxpool.New(ctx, connString); err != nil {
		return nil, err
	}

	engine, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        searchImage,
			ExposedPorts: []string{"7700/tcp"},
			Env: map[string]string{
				"MEILI_MASTER_KEY":   SearchMasterKey,
				"MEILI_NO_ANALYTICS": "true",
				"MEILI_ENV":          "development",
			},
			WaitingFor: wait.ForHTTP("/health").WithPort("7700/tcp"),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start search engine: %w", err)
	}
	env.containers = append(env.containers, engine)
	if env.SearchEndpoint, err = engine.PortEndpoint(ctx, "7700/tcp", "http"); err != nil {
		return nil, err
	}

	broker, err := redpanda.Run(ctx, redpandaImage)
	if err != nil {
		return nil, fmt.Errorf("failed to start redpanda: %w", err)
	}
	env.containers = append(env.containers, broker)
	seed, err := broker.KafkaSeedBroker(ctx)
	if err != nil {
		return nil, err
	}
	env.Brokers = []string{seed}

	ok = true
	return env, nil
}

// Stop closes the pool and terminates every container
func (e *Environment) Stop(ctx context.Context) {
	if e.Pool != nil {
		e.Pool.Close()
	}
	for _, c := range e.containers {
		_ = c.Terminate(ctx)
	}
}
