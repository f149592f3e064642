// Package monitor samples the DOM state of tracked cards at a fixed cadence
// from inside the page. The sampler runs on the page's own event loop
// (setInterval), concurrent with whatever the host driver awaits, and
// accumulates per-card histories in a page-global slot owned by exactly one
// monitoring session at a time: created on Start, drained and deleted on
// Stop.
package monitor

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/rishi-jat/cardwatch/compliance/cardstate"
)

//go:embed monitor.js
var samplerJS string

// collectJS drains the page-global slot: stops the timer, removes the slot,
// and returns the histories serialised. Safe when no monitor was started.
const collectJS = `() => {
	const m = window.__COMPLIANCE_MONITOR__;
	if (!m) return "{}";
	clearInterval(m.timer);
	delete window.__COMPLIANCE_MONITOR__;
	return JSON.stringify(m.histories);
}`

// Monitor controls one in-page sampling session.
type Monitor struct {
	logger *slog.Logger
}

// New creates a Monitor.
func New(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{logger: logger}
}

// Start injects the sampler for the given card IDs. The first sample is
// taken synchronously during injection, before the first timer fire.
func (m *Monitor) Start(page *rod.Page, cardIDs []string, interval time.Duration) error {
	_, err := page.Eval(samplerJS, cardIDs, interval.Milliseconds())
	if err != nil {
		return fmt.Errorf("monitor: inject sampler: %w", err)
	}
	m.logger.Debug("monitor: sampler started",
		"cards", len(cardIDs), "interval", interval)
	return nil
}

// Stop disables the sampler and returns the accumulated histories.
// Idempotent: stopping a page with no active monitor returns an empty map.
func (m *Monitor) Stop(page *rod.Page) (cardstate.Histories, error) {
	res, err := page.Eval(collectJS)
	if err != nil {
		return nil, fmt.Errorf("monitor: collect histories: %w", err)
	}

	histories, err := cardstate.ParseHistories([]byte(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	return histories, nil
}

// settledJS reports whether every rendered tracked card has finished
// loading. Cards not in the DOM are ignored: a render failure shows up as
// an empty history later, not as a stall here.
const settledJS = `(cardIds) => {
	let seen = 0;
	for (const id of cardIds) {
		const el = document.querySelector('[data-card-id="' + CSS.escape(id) + '"]');
		if (!el) continue;
		seen++;
		if (el.getAttribute('data-loading') === 'true') return false;
	}
	return seen > 0;
}`

// WaitSettled blocks until every rendered tracked card reports
// data-loading="false", or until timeout. Timing out is not an error:
// the caller evaluates whatever history was captured, and the criteria
// machinery turns missing phases into skip or fail on their own.
func (m *Monitor) WaitSettled(page *rod.Page, cardIDs []string, timeout, pollEvery time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		res, err := page.Eval(settledJS, cardIDs)
		if err == nil && res.Value.Bool() {
			return true
		}
		time.Sleep(pollEvery)
	}
	m.logger.Warn("monitor: cards did not settle before timeout",
		"timeout", timeout, "cards", len(cardIDs))
	return false
}
