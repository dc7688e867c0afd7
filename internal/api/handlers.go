package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notebox/notebox-indexer/internal/sync"
	"github.com/notebox/notebox-indexer/internal/versions"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
)

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, versions.GetVersionInfo(), http.StatusOK)
}

// readinessHandler runs every check and answers 503 when any of them fails
func readinessHandler(checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.check(r.Context()); err != nil {
				slog.Warn("Readiness check failed", "check", c.name, "error", err)
				resp.Checks[c.name] = err.Error()
				resp.Status = "not ready"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.name] = "ok"
		}
		writeJSON(w, resp, status)
	}
}

func syncHandler(runners map[sync.Variant]SyncRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variant := sync.Variant(chi.URLParam(r, "variant"))
		mode := sync.Mode(chi.URLParam(r, "mode"))

		runner, ok := runners[variant]
		if !ok {
			writeError(w, fmt.Sprintf("unknown sync variant %q", variant), http.StatusNotFound)
			return
		}
		if mode != sync.ModeMinor && mode != sync.ModeMajor {
			writeError(w, fmt.Sprintf("unknown sync mode %q", mode), http.StatusBadRequest)
			return
		}

		slog.Info("Running sync on demand", "variant", variant, "mode", mode)
		result, err := runner.Sink(r.Context(), mode)
		if err != nil {
			slog.Error("On-demand sync failed", "variant", variant, "mode", mode, "error", err)
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, newSyncResponse(result), http.StatusOK)
	}
}

func remediateHandler(svc WithdrawalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "subjectId")
		process, err := withdrawal.ParseProcess(chi.URLParam(r, "step"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := RemediationResponse{SubjectID: subjectID, Process: string(process), Passed: true}
		if err := svc.Remediate(r.Context(), subjectID, process); err != nil {
			resp.Passed = false
			resp.Error = err.Error()
			writeJSON(w, resp, http.StatusBadGateway)
			return
		}
		writeJSON(w, resp, http.StatusOK)
	}
}

func historyHandler(svc WithdrawalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "subjectId")
		entries, err := svc.History(r.Context(), subjectID)
		if err != nil {
			slog.Error("Failed to read withdrawal history", "subject_id", subjectID, "error", err)
			writeError(w, "failed to read withdrawal history", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []withdrawal.History{}
		}
		writeJSON(w, HistoryResponse{SubjectID: subjectID, Entries: entries}, http.StatusOK)
	}
}
