// Package navigator drives the browser to the dashboard's diagnostic route
// and blocks until the page publishes the batch manifest. A manifest that
// never appears is fatal for the run: without it the harness does not know
// which cards exist, so there is nothing meaningful to evaluate.
package navigator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/rishi-jat/cardwatch/compliance/cardstate"
)

// ErrManifestTimeout means the manifest global never appeared before the
// deadline. Usually the app failed to boot or an auth redirect fired.
var ErrManifestTimeout = errors.New("navigator: manifest did not appear")

// ErrManifestNull means the global appeared but holds null — the app
// published before its card selection resolved. Distinct from a timeout so
// triage starts in the right place.
var ErrManifestNull = errors.New("navigator: manifest is null")

// manifestProbe distinguishes absent ("") from null ("null") from a real
// manifest (its JSON).
const manifestProbe = `() => {
	const m = window.__COMPLIANCE_MANIFEST__;
	if (m === undefined) return "";
	if (m === null) return "null";
	return JSON.stringify(m);
}`

// diagnosticsProbe gathers the page state reported on manifest timeout.
const diagnosticsProbe = `() => JSON.stringify({
	path: location.pathname,
	hasLoginForm: !!document.querySelector('form input[type="password"]'),
	hasSidebar: !!document.querySelector('[data-testid="sidebar"], aside'),
	bodyPreview: (document.body ? document.body.innerText : '').slice(0, 300),
})`

const (
	probeEvery    = 200 * time.Millisecond
	progressEvery = 10 * time.Second
)

// Navigator drives batch navigation on one page.
type Navigator struct {
	baseURL string
	logger  *slog.Logger
}

// New creates a Navigator for the dashboard at baseURL.
func New(baseURL string, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{baseURL: baseURL, logger: logger}
}

// BatchURL renders the diagnostic route URL for a zero-based batch index.
// The route itself is 1-indexed.
func (n *Navigator) BatchURL(batchIndex, size int) string {
	return fmt.Sprintf("%s/compliance-check?batch=%d&size=%d", n.baseURL, batchIndex+1, size)
}

// ToBatch navigates to the given zero-based batch and waits for the
// manifest, up to timeout. The warmup batch deserves a generous timeout to
// absorb one-time bundle compilation.
func (n *Navigator) ToBatch(page *rod.Page, batchIndex, size int, timeout time.Duration) (*cardstate.Manifest, error) {
	url := n.BatchURL(batchIndex, size)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigator: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		n.logger.Warn("navigator: wait load", "url", url, "error", err)
	}
	return n.waitManifest(page, url, timeout)
}

// Away navigates to the dashboard root, leaving the diagnostic route. Used
// between the cold and warm phases.
func (n *Navigator) Away(page *rod.Page) error {
	if err := page.Navigate(n.baseURL + "/"); err != nil {
		return fmt.Errorf("navigator: navigate away: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		n.logger.Warn("navigator: wait load after navigate away", "error", err)
	}
	return nil
}

func (n *Navigator) waitManifest(page *rod.Page, url string, timeout time.Duration) (*cardstate.Manifest, error) {
	deadline := time.Now().Add(timeout)
	lastProgress := time.Now()

	for time.Now().Before(deadline) {
		res, err := page.Eval(manifestProbe)
		if err == nil {
			switch raw := res.Value.Str(); raw {
			case "":
				// Not published yet; keep polling.
			case "null":
				return nil, ErrManifestNull
			default:
				m, err := cardstate.ParseManifest([]byte(raw))
				if err != nil {
					return nil, err
				}
				return m, nil
			}
		}

		if time.Since(lastProgress) >= progressEvery {
			lastProgress = time.Now()
			n.logger.Info("navigator: still waiting for manifest",
				"url", url, "remaining", time.Until(deadline).Round(time.Second))
		}
		time.Sleep(probeEvery)
	}

	diag := n.diagnostics(page)
	return nil, fmt.Errorf("%w after %s at %s: %s", ErrManifestTimeout, timeout, url, diag)
}

// diagnostics collects a triage payload; failures here must never mask the
// underlying timeout.
func (n *Navigator) diagnostics(page *rod.Page) string {
	res, err := page.Eval(diagnosticsProbe)
	if err != nil {
		return fmt.Sprintf("diagnostics unavailable: %v", err)
	}
	raw := res.Value.Str()

	var d struct {
		Path         string `json:"path"`
		HasLoginForm bool   `json:"hasLoginForm"`
		HasSidebar   bool   `json:"hasSidebar"`
		BodyPreview  string `json:"bodyPreview"`
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return raw
	}
	return fmt.Sprintf("path=%s loginForm=%t sidebar=%t body=%q",
		d.Path, d.HasLoginForm, d.HasSidebar, d.BodyPreview)
}
