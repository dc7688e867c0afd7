// Package app provides application lifecycle management for the indexer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notebox/notebox-indexer/internal/config"
)

// IndexerApp runs the sync coordinator, the withdrawal consumer and the ops
// server, and shuts them down together
type IndexerApp struct {
	config     *config.Config
	components *Components
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start listens on the configured address. It blocks until Stop is called
// or a background worker fails.
func (app *IndexerApp) Start() error {
	ln, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(ln)
}

// Serve is Start on an existing listener
func (app *IndexerApp) Serve(ln net.Listener) error {
	g, gctx := errgroup.WithContext(app.ctx)

	if app.components.Coordinator != nil {
		g.Go(func() error {
			if err := app.components.Coordinator.Start(gctx); err != nil {
				return fmt.Errorf("sync coordinator failed: %w", err)
			}
			return nil
		})
	}

	if app.components.Consumer != nil {
		g.Go(func() error {
			if err := app.components.Consumer.Run(gctx); err != nil {
				return fmt.Errorf("withdrawal consumer failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("Server listening", "address", ln.Addr().String())
		if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	// A failed worker takes the server down with it
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), time.Second)
		defer cancel()
		_ = app.httpServer.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}

// Stop gracefully stops the application with the given timeout. In-flight
// admin passes get the timeout to finish before the server is closed.
func (app *IndexerApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down indexer...")

	if app.components.Coordinator != nil {
		if err := app.components.Coordinator.Stop(); err != nil {
			slog.Error("Failed to stop sync coordinator", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	shutdownErr := app.httpServer.Shutdown(shutdownCtx)

	if app.cancelFunc != nil {
		app.cancelFunc()
	}
	app.components.Close()

	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}
	slog.Info("Indexer shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *IndexerApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the ops server
func (app *IndexerApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetComponents returns the running components
func (app *IndexerApp) GetComponents() *Components {
	return app.components
}
