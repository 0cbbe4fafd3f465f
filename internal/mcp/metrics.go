package mcp

import (
	"sync"
	"time"
)

// ReloadMetrics tracks re-index outcomes for the index_stats tool. All methods
// are safe for concurrent use.
type ReloadMetrics struct {
	mu           sync.RWMutex
	lastTime     time.Time
	lastDuration time.Duration
	lastError    string
	total        int64
	succeeded    int64
	failed       int64
	symbols      int
}

// MetricsSnapshot is a copy of ReloadMetrics at one point in time.
type MetricsSnapshot struct {
	LastReloadTime       time.Time `json:"last_reload_time"`
	LastReloadDurationMS int64     `json:"last_reload_duration_ms"`
	LastReloadError      string    `json:"last_reload_error,omitempty"`
	TotalReloads         int64     `json:"total_reloads"`
	SuccessfulReloads    int64     `json:"successful_reloads"`
	FailedReloads        int64     `json:"failed_reloads"`
	Symbols              int       `json:"symbols"`
}

func NewReloadMetrics() *ReloadMetrics {
	return &ReloadMetrics{}
}

// RecordReload records one reload. symbols is ignored when err is set, so a
// failed reload keeps reporting the count of the index still being served.
func (m *ReloadMetrics) RecordReload(d time.Duration, err error, symbols int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastTime = time.Now()
	m.lastDuration = d
	m.total++
	if err != nil {
		m.failed++
		m.lastError = err.Error()
		return
	}
	m.succeeded++
	m.lastError = ""
	m.symbols = symbols
}

// Snapshot returns the current values.
func (m *ReloadMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		LastReloadTime:       m.lastTime,
		LastReloadDurationMS: m.lastDuration.Milliseconds(),
		LastReloadError:      m.lastError,
		TotalReloads:         m.total,
		SuccessfulReloads:    m.succeeded,
		FailedReloads:        m.failed,
		Symbols:              m.symbols,
	}
}
