// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorePath is the SQLite database file for admission state.
	StorePath string `koanf:"store_path"`

	// ScoreScaleMinutes maps one social score point to minutes of queue
	// priority when deriving effective times.
	ScoreScaleMinutes float64 `koanf:"score_scale_minutes"`

	// BaselineScore is the score that maps to zero priority offset.
	BaselineScore float64 `koanf:"baseline_score"`

	// CancelGraceHours is how long before start a cancellation still counts
	// as early.
	CancelGraceHours int `koanf:"cancel_grace_hours"`

	// LatenessThresholdMinutes is how long after start an arrival still
	// counts as on time.
	LatenessThresholdMinutes int `koanf:"lateness_threshold_minutes"`

	// CheckInEarlyGraceMinutes is how long before start check-in opens.
	CheckInEarlyGraceMinutes int `koanf:"checkin_early_grace_minutes"`

	// SweepIntervalSeconds is how often the background sweeper scans for
	// ended events.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`

	// TxAttempts bounds transaction retries under lock contention.
	TxAttempts int `koanf:"tx_attempts"`

	// ScoreDeltas overrides ledger magnitudes per reason, e.g.
	// {"no_show": -25}. Reasons not listed keep their defaults.
	ScoreDeltas map[string]float64 `koanf:"score_deltas"`

	// ScoreHistoryLimit caps GET /users/{id}/score ledger entries.
	ScoreHistoryLimit int `koanf:"score_history_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		StorePath:                "velvet.db",
		ScoreScaleMinutes:        1,
		BaselineScore:            100.0,
		CancelGraceHours:         24,
		LatenessThresholdMinutes: 15,
		CheckInEarlyGraceMinutes: 30,
		SweepIntervalSeconds:     60,
		TxAttempts:               3,
		ScoreDeltas:              map[string]float64{},
		ScoreHistoryLimit:        50,
	}
}
