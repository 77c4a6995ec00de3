package handlers

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/vedran77/statusd/internal/logger"
)

// Pinger reports whether a backend dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

var shipNames = []string{
	"So Much For Subtlety",
	"Of Course I Still Love You",
	"Just Read The Instructions",
	"Sleeper Service",
	"Mistake Not...",
	"Lasting Damage",
	"Unfortunate Conflict Of Evidence",
	"Anticipation Of A New Lover's Arrival, The",
	"Experiencing A Significant Gravitas Shortfall",
	"Sense Amid Madness, Wit Amidst Folly",
}

// pingResponse is picked once per process.
var pingResponse = sync.OnceValue(func() string {
	return shipNames[rand.Intn(len(shipNames))]
})

type SystemHandler struct {
	backend   Pinger
	logger    logger.Logger
	startTime time.Time
	version   string
}

func NewSystemHandler(backend Pinger, log logger.Logger, startTime time.Time, version string) *SystemHandler {
	return &SystemHandler{backend: backend, logger: log, startTime: startTime, version: version}
}

func (h *SystemHandler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(pingResponse()))
}

type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Version:       h.version,
	})
}

type readyResponse struct {
	Ready bool `json:"ready"`
}

func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if err := h.backend.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{Ready: false})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Ready: true})
}
