package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conciergehq/lifecycle/internal/domain/run"
	"github.com/conciergehq/lifecycle/internal/domain/subscription"
	"github.com/conciergehq/lifecycle/internal/port/messagequeue"
	"github.com/conciergehq/lifecycle/internal/service"
)

const (
	defaultRunsLimit = 20
	healthTimeout    = 2 * time.Second
)

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Lifecycle     *service.Engine
	Subscriptions *service.SubscriptionService
	DB            Pinger
	Queue         messagequeue.Queue // optional
}

// CheckSubscriptions handles GET /api/v1/lifecycle/check and GET /check-subscriptions.
// It runs the lifecycle engine and returns the run summary.
func (h *Handlers) CheckSubscriptions(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Lifecycle.Run(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, rep.Summarize())
}

// ListRuns handles GET /api/v1/lifecycle/runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRunsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := h.Lifecycle.History(r.Context(), limit)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []run.Record{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type subscriptionResponse struct {
	Subscription subscription.Info `json:"subscription"`
}

// GetSubscription handles GET /api/v1/subscriptions/{tenantID}
func (h *Handlers) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	info, err := h.Subscriptions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{Subscription: info})
}

type healthStatus struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	NATS     string `json:"nats"`
}

// Health handles GET /health. A failed database ping reports 503.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := healthStatus{Status: "ok", Postgres: "ok", NATS: "disabled"}
	code := http.StatusOK
	if err := h.DB.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Postgres = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if h.Queue != nil {
		status.NATS = "connected"
		if !h.Queue.IsConnected() {
			status.NATS = "disconnected"
		}
	}
	writeJSON(w, code, status)
}
