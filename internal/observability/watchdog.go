package observability

import (
	"log/slog"
	"sync"
	"time"

	"github.com/syntrobox/ociq/internal/config"
)

// Watchdog tracks query outcomes in a sliding window and warns when the
// capability denial rate crosses the configured threshold. A sustained spike
// in denials means the caller keeps generating snippets outside the
// whitelist, which is the signature of prompt-injection probing.
type Watchdog struct {
	mu        sync.Mutex
	denied    *slidingWindow
	admitted  *slidingWindow
	threshold float64
	logger    *slog.Logger
}

type slidingWindow struct {
	entries []time.Time
	window  time.Duration
}

// NewWatchdog creates a watchdog from config.
func NewWatchdog(cfg *config.WatchdogConfig, logger *slog.Logger) *Watchdog {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = 5 * time.Minute
	}
	threshold := cfg.DenialRateThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Watchdog{
		denied:    &slidingWindow{window: window},
		admitted:  &slidingWindow{window: window},
		threshold: threshold,
		logger:    logger,
	}
}

// RecordDenied records a capability-denied query. Nil-safe.
func (w *Watchdog) RecordDenied(requestID string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.denied.add()
	w.checkDenialRate(requestID)
}

// RecordAdmitted records a query that passed validation. Nil-safe.
func (w *Watchdog) RecordAdmitted() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.admitted.add()
}

// checkDenialRate warns when denials dominate the window.
// Must be called with w.mu held.
func (w *Watchdog) checkDenialRate(requestID string) {
	denied := w.denied.count()
	admitted := w.admitted.count()
	total := denied + admitted

	if total < 5 {
		return // Not enough data.
	}

	rate := float64(denied) / float64(total)
	if rate > w.threshold && w.logger != nil {
		w.logger.Warn("watchdog: high capability denial rate",
			slog.String("request_id", requestID),
			slog.Float64("denial_rate", rate),
			slog.Float64("threshold", w.threshold),
			slog.Int("denials", denied),
			slog.Int("total", total),
		)
	}
}

// add appends an entry and prunes expired ones.
func (w *slidingWindow) add() {
	now := time.Now()
	w.entries = append(w.entries, now)
	w.prune(now)
}

// count returns the number of entries within the window.
func (w *slidingWindow) count() int {
	w.prune(time.Now())
	return len(w.entries)
}

// prune removes entries older than the window duration.
func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.entries) && w.entries[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = w.entries[i:]
	}
}
