// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// Stats is the operational snapshot served on /stats. The counters are
// populated only while the service is running; a stopped service still
// reports its configuration.
type Stats struct {
	Started       bool   `json:"started"`
	StorePath     string `json:"store_path"`
	TxAttempts    int    `json:"tx_attempts"`
	TotalUsers    int    `json:"total_users"`
	OpenEvents    int    `json:"open_events"`
	WaitlistDepth int    `json:"waitlist_depth"`
}

// StatsProvider reports the current operational snapshot.
type StatsProvider interface {
	GetStats() Stats
}

// StatsHandler serves the operational snapshot.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
