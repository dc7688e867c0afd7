package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/onsi/gomega"

	"github.com/notebox/notebox-indexer/internal/api"
	"github.com/notebox/notebox-indexer/internal/app"
	"github.com/notebox/notebox-indexer/internal/config"
)

// IndexerTestHelper runs the indexer against an Environment and calls its
// ops server
type IndexerTestHelper struct {
	baseURL    string
	httpClient *http.Client
	app        *app.IndexerApp
}

// NewConfig returns a configuration pointing at env. Scheduled jobs are
// disabled so that only on-demand passes run.
func NewConfig(env *Environment) *config.Config {
	disabled := false
	off := &config.JobConfig{Enabled: &disabled}
	return &config.Config{
		Database: &config.DatabaseConfig{Host: "unused", User: "unused", Database: "unused"},
		Search: &config.SearchConfig{
			Endpoint:     env.SearchEndpoint,
			APIKey:       SearchMasterKey,
			AwaitTimeout: "30s",
		},
		Kafka: &config.KafkaConfig{
			Brokers: env.Brokers,
			GroupID: "indexer-integration",
		},
		Sync: &config.SyncConfig{
			Notes:  &config.VariantSyncConfig{Minor: off, Major: off},
			Fields: &config.VariantSyncConfig{Minor: off, Major: off},
		},
	}
}

// StartIndexer builds the indexer on an ephemeral port and starts it
func StartIndexer(ctx context.Context, env *Environment, cfg *config.Config) (*IndexerTestHelper, error) {
	indexer, err := app.NewIndexerApp(ctx, app.WithConfig(cfg), app.WithPool(env.Pool))
	if err != nil {
		return nil, fmt.Errorf("failed to build indexer: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	go func() {
		if err := indexer.Serve(ln); err != nil {
			// The test fails when it tries to connect
			fmt.Fprintf(os.Stderr, "Indexer failed: %v\n", err)
		}
	}()

	return &IndexerTestHelper{
		baseURL:    "http://" + ln.Addr().String(),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		app:        indexer,
	}, nil
}

// App returns the running indexer
func (h *IndexerTestHelper) App() *app.IndexerApp {
	return h.app
}

// Stop gracefully stops the indexer
func (h *IndexerTestHelper) Stop() error {
	return h.app.Stop(10 * time.Second)
}

// WaitForReady waits until every readiness check passes
func (h *IndexerTestHelper) WaitForReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := h.httpClient.Get(h.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("indexer returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 500*time.Millisecond).Should(gomega.Succeed(), "Indexer should be ready")
}

// Sync runs an on-demand pass
func (h *IndexerTestHelper) Sync(variant, mode string) (*api.SyncResponse, error) {
	resp, err := h.httpClient.Post(fmt.Sprintf("%s/admin/sync/%s/%s", h.baseURL, variant, mode), "", nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync returned status %d", resp.StatusCode)
	}
	var out api.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the withdrawal ledger of subjectID
func (h *IndexerTestHelper) History(subjectID string) (*api.HistoryResponse, error) {
	resp, err := h.httpClient.Get(fmt.Sprintf("%s/admin/withdrawals/%s/history", h.baseURL, subjectID))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history returned status %d", resp.StatusCode)
	}
	var out api.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
