/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Loads the embedded demo data sets into the store and republishes the
  feed, so every derived figure can be explored without manual entry.

USAGE VIA API:
  GET  /api/scenarios
  GET  /api/scenarios/current
  POST /api/scenarios/load   {"scenario_id": "credit-book"}
  POST /api/scenarios/reset

HOW LOADING WORKS:
  1. Reset store and feed (barrier closes, observers see "loading")
  2. Apply the scenario to the store
  3. Reload the feed from the store (barrier opens)

  The work runs on a context detached from the request, so a client that
  disconnects cannot leave the barrier closed. If step 2 or 3 fails the
  feed is reloaded from whatever the store holds, and a background
  refresher keeps retrying until the barrier opens again.

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - scenarios/scenarios.go: Fixture parsing and Apply
*/
package api

import (
	"context"
	"net/http"

	"github.com/pumpline/fuel-ledger/feed"
	"github.com/pumpline/fuel-ledger/scenarios"
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := scenarios.List()
	if err != nil {
		h.fail(w, r, "Failed to list scenarios", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := scenarios.Get(current)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.Info)
}

// LoadScenario resets all data and loads the named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := scenarios.Get(req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown scenario", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if err := h.resetAll(ctx); err != nil {
		h.fail(w, r, "Failed to reset data", err)
		return
	}
	if err := s.Apply(ctx, h.Store); err != nil {
		h.recoverFeed(ctx)
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	if err := h.Feed.Load(ctx, h.Store); err != nil {
		h.startRecovery()
		h.fail(w, r, "Failed to reload collections", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	h.log.WithContext(ctx).Infow("scenario loaded", "scenario", s.ID, "records", s.RecordCount())
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ScenarioID: s.ID,
		Customers:  len(s.Customers),
		Suppliers:  len(s.Suppliers),
		Records:    s.RecordCount(),
		Generation: uint64(h.Feed.Generation()),
	})
}

// ResetDatabase clears all data and leaves the feed ready and empty.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	if err := h.resetAll(ctx); err != nil {
		h.fail(w, r, "Failed to reset data", err)
		return
	}
	if err := h.Feed.Load(ctx, h.Store); err != nil {
		h.startRecovery()
		h.fail(w, r, "Failed to reload collections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) resetAll(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.Feed.Reset()

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// recoverFeed republishes what the store holds after a failed scenario load.
func (h *Handler) recoverFeed(ctx context.Context) {
	if err := h.Feed.Load(ctx, h.Store); err != nil {
		h.startRecovery()
	}
}

// startRecovery hands the feed to a background refresher, replacing any
// earlier one. The refresher exits on its own once the barrier opens.
func (h *Handler) startRecovery() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.recovery != nil {
		h.recovery.Stop()
	}
	h.recovery = feed.NewRefresher(h.Feed, h.Store, h.RetryInterval, h.log)
	h.recovery.Start()
	h.log.Warnw("feed reload failed, retrying in background", "retry_interval", h.RetryInterval)
}

// Close stops any background reload started by a failed scenario load.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.recovery != nil {
		h.recovery.Stop()
		h.recovery = nil
	}
}
