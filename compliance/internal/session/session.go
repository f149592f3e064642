// Package session establishes a known starting condition in the browser:
// seeded auth/demo/onboarding state, and cleared cache stores for cold
// starts. Warm return deliberately has no operation here; leaving the
// stores alone is the whole point of the warm phase.
package session

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
)

// companionURLKey is the localStorage key the dashboard reads to locate its
// companion process; the harness points it at the companion mock.
const companionURLKey = "companion-base-url"

// seedScriptTmpl sets the persisted keys the dashboard expects before any
// page script runs: a bearer token so no login redirect happens, demo mode
// off, onboarding/tour flags so no overlay covers the cards, a synthetic
// user cache, the backend-availability marker, the cache schema version, and
// the companion base URL (%s slot, filled per run since the companion mock
// binds an ephemeral port). Storage errors are swallowed: a fresh profile
// may not have every engine.
const seedScriptTmpl = `(() => {
	try {
		localStorage.setItem('auth-token', 'cardwatch-compliance-token');
		localStorage.setItem('demo-mode', 'false');
		localStorage.setItem('onboarding-complete', 'true');
		localStorage.setItem('tour-completed', 'true');
		localStorage.setItem('user-cache',
			JSON.stringify({ name: 'cardwatch', role: 'viewer' }));
		localStorage.setItem('backend-available',
			JSON.stringify({ available: true, checkedAt: Date.now() }));
		localStorage.setItem('cache-schema-version', '1');
%s	} catch (e) {}
})()`

// cachePatternTest is the shared predicate for cache-table keys. Kept as a
// single JS fragment so clearing and counting can never drift apart.
const cachePatternTest = `(k) =>
	k.indexOf('cache:') === 0 ||
	k.indexOf('dashboard-cards') !== -1 ||
	k.indexOf('kubestellar-stack-cache') !== -1`

// clearScript removes cache-pattern localStorage keys and deletes every
// IndexedDB database, best-effort.
const clearScript = `async () => {
	const matches = ` + cachePatternTest + `;
	try {
		const keys = [];
		for (let i = 0; i < localStorage.length; i++) keys.push(localStorage.key(i));
		for (const k of keys) {
			if (matches(k)) localStorage.removeItem(k);
		}
	} catch (e) {}
	try {
		if (indexedDB.databases) {
			const dbs = await indexedDB.databases();
			await Promise.all(dbs.map((d) => new Promise((resolve) => {
				const req = indexedDB.deleteDatabase(d.name);
				req.onsuccess = req.onerror = req.onblocked = () => resolve();
			})));
		}
	} catch (e) {}
	return true;
}`

// countScript sums cache-pattern localStorage keys plus rows across all
// object stores of every IndexedDB database. Read-only: the evaluator never
// writes to the stores it audits.
const countScript = `async () => {
	const matches = ` + cachePatternTest + `;
	let total = 0;
	try {
		for (let i = 0; i < localStorage.length; i++) {
			if (matches(localStorage.key(i))) total++;
		}
	} catch (e) {}
	try {
		if (indexedDB.databases) {
			const dbs = await indexedDB.databases();
			for (const d of dbs) {
				total += await new Promise((resolve) => {
					const open = indexedDB.open(d.name);
					open.onerror = () => resolve(0);
					open.onsuccess = () => {
						const db = open.result;
						const names = Array.from(db.objectStoreNames);
						if (names.length === 0) { db.close(); return resolve(0); }
						let sum = 0;
						let pending = names.length;
						const tx = db.transaction(names, 'readonly');
						for (const n of names) {
							const req = tx.objectStore(n).count();
							req.onsuccess = () => {
								sum += req.result;
								if (--pending === 0) { db.close(); resolve(sum); }
							};
							req.onerror = () => {
								if (--pending === 0) { db.close(); resolve(sum); }
							};
						}
					};
				});
			}
		}
	} catch (e) {}
	return total;
}`

// Bootstrap seeds and clears browser-persisted state.
type Bootstrap struct {
	companionURL string
	logger       *slog.Logger
}

// New creates a Bootstrap. companionURL is the base URL of the companion
// mock; empty leaves the dashboard's own companion setting untouched.
func New(companionURL string, logger *slog.Logger) *Bootstrap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrap{companionURL: companionURL, logger: logger}
}

// SeedScript renders the init script installed on new documents, with this
// run's companion base URL filled in.
func (b *Bootstrap) SeedScript() string {
	companion := ""
	if b.companionURL != "" {
		companion = fmt.Sprintf("\t\tlocalStorage.setItem('%s', %q);\n",
			companionURLKey, b.companionURL)
	}
	return fmt.Sprintf(seedScriptTmpl, companion)
}

// InstallInitScript registers the seed script to run before any page script
// on every subsequent navigation. Call once per page, before the warmup
// navigation.
func (b *Bootstrap) InstallInitScript(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(b.SeedScript()); err != nil {
		return fmt.Errorf("session: install init script: %w", err)
	}
	return nil
}

// EstablishColdStart re-seeds the persisted keys and clears all cache
// stores on the current document. Idempotent and safe to call repeatedly;
// clearing errors are swallowed because "nothing to clean up" is the common
// case on a fresh profile.
func (b *Bootstrap) EstablishColdStart(page *rod.Page) error {
	if _, err := page.Eval(`() => { ` + b.SeedScript() + `; return true; }`); err != nil {
		return fmt.Errorf("session: seed storage: %w", err)
	}
	if _, err := page.Eval(clearScript); err != nil {
		b.logger.Warn("session: cache clear failed", "error", err)
	}
	return nil
}

// CountCacheEntries reports the combined persisted-cache entry count for
// the persistent-cache criterion.
func (b *Bootstrap) CountCacheEntries(page *rod.Page) (int, error) {
	res, err := page.Eval(countScript)
	if err != nil {
		return 0, fmt.Errorf("session: count cache entries: %w", err)
	}
	return res.Value.Int(), nil
}
