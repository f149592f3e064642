package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"golang.org/x/sync/errgroup"

	"github.com/rishi-jat/cardwatch/compliance/cardstate"
	"github.com/rishi-jat/cardwatch/compliance/criteria"
	"github.com/rishi-jat/cardwatch/compliance/internal/browser"
	"github.com/rishi-jat/cardwatch/compliance/internal/mocknet"
	"github.com/rishi-jat/cardwatch/compliance/internal/monitor"
	"github.com/rishi-jat/cardwatch/compliance/internal/navigator"
	"github.com/rishi-jat/cardwatch/compliance/internal/session"
	"github.com/rishi-jat/cardwatch/compliance/report"
	"github.com/rishi-jat/cardwatch/idgen"
)

// phase names a stage of a compliance run. Transitions are linear; a fatal
// error aborts the run in whatever phase it occurred.
type phase string

const (
	phaseIdle        phase = "idle"
	phaseBootstrap   phase = "bootstrapping"
	phaseWarming     phase = "warming"
	phaseColdBatches phase = "cold_batches"
	phaseAway        phase = "navigating_away"
	phaseWarmBatches phase = "warm_batches"
	phaseAggregating phase = "aggregating"
	phaseDone        phase = "done"
)

// settledPollEvery is how often the settle wait re-evaluates the page.
// Coarser than the sampler cadence; the sampler keeps its own clock.
const settledPollEvery = 100 * time.Millisecond

// refreshWatch extends the cold observation window after a forced refresh
// so the sampler can catch the spinner-over-content phase.
const refreshWatch = 500 * time.Millisecond

// Harness runs the full compliance cycle against a dashboard instance.
type Harness struct {
	cfg    *Config
	logger *slog.Logger
	newID  idgen.Generator
	gate   report.Gate

	phase phase
}

// Option adjusts harness construction.
type Option func(*Harness)

// WithGate replaces the default CI gate.
func WithGate(g report.Gate) Option {
	return func(h *Harness) { h.gate = g }
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(h *Harness) { h.newID = gen }
}

// New builds a Harness. cfg must have defaults applied (LoadConfigFile and
// DefaultConfig both do).
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Harness{
		cfg:    cfg,
		logger: logger,
		newID:  idgen.Timestamped(idgen.UUIDv7()),
		gate:   report.DefaultGate(),
		phase:  phaseIdle,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Harness) setPhase(p phase) {
	h.logger.Info("phase transition", "from", string(h.phase), "to", string(p))
	h.phase = p
}

// Run executes one compliance cycle: cold loads across every batch, a
// navigation away, warm returns across every batch, then aggregation,
// artifact writing and the CI gate. The returned report is non-nil whenever
// aggregation was reached, even if the gate failed.
func (h *Harness) Run(ctx context.Context) (*report.Report, error) {
	runID := h.newID()
	h.logger.Info("compliance run starting", "run_id", runID, "base_url", h.cfg.BaseURL)

	h.setPhase(phaseBootstrap)

	mgr := browser.NewManager(browser.Config{
		RemoteURL: h.cfg.RemoteBrowser,
		Headful:   h.cfg.Headful,
		Logger:    h.logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	defer mgr.Close()

	companion := mocknet.NewCompanion(h.logger)
	companionURL, err := companion.Start(h.cfg.CompanionAddr)
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(companion.Serve)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		companion.Close(closeCtx)
		if err := g.Wait(); err != nil {
			h.logger.Warn("companion exited with error", "error", err)
		}
	}()
	h.logger.Info("companion mock listening", "url", companionURL)

	page, err := mgr.OpenPage(gctx, "about:blank")
	if err != nil {
		return nil, err
	}
	defer page.Close()

	bootstrap := session.New(companionURL, h.logger)
	if err := bootstrap.InstallInitScript(page); err != nil {
		return nil, err
	}

	reqLog := mocknet.NewRequestLog()
	mockCfg := mocknet.Config{
		StreamDelay:   h.cfg.Mock.StreamDelay,
		RESTDelayMin:  h.cfg.Mock.RESTDelayMin,
		RESTDelayMax:  h.cfg.Mock.RESTDelayMax,
		CatchAllDelay: h.cfg.Mock.CatchAllDelay,
		Logger:        h.logger,
	}
	stopMock, err := mocknet.Install(page, mockCfg, reqLog)
	if err != nil {
		return nil, err
	}
	defer stopMock()

	nav := navigator.New(h.cfg.BaseURL, h.logger)
	mon := monitor.New(h.logger)

	// Warmup: the first navigation pays one-time bundle compilation, so it
	// gets the long timeout. Its manifest also fixes the batch count for
	// the rest of the run.
	h.setPhase(phaseWarming)
	first, err := nav.ToBatch(page, 0, h.cfg.BatchSize, h.cfg.WarmupTimeout)
	if err != nil {
		return nil, fmt.Errorf("compliance: warmup: %w", err)
	}
	totalBatches := first.TotalBatches(h.cfg.BatchSize)
	h.logger.Info("warmup complete",
		"total_cards", first.TotalCards, "total_batches", totalBatches)

	h.setPhase(phaseColdBatches)
	batches := make([]*report.BatchResult, 0, totalBatches)
	for i := 0; i < totalBatches; i++ {
		br, err := h.runColdBatch(page, nav, mon, bootstrap, reqLog, i)
		if err != nil {
			return nil, err
		}
		batches = append(batches, br)
	}

	h.setPhase(phaseAway)
	if err := nav.Away(page); err != nil {
		return nil, err
	}

	h.setPhase(phaseWarmBatches)
	for i := 0; i < totalBatches; i++ {
		if err := h.runWarmBatch(page, nav, mon, i, batches[i]); err != nil {
			return nil, err
		}
	}

	h.setPhase(phaseAggregating)
	rep := report.Aggregate(runID, batches)
	if err := report.WriteFiles(h.cfg.OutputDir, rep); err != nil {
		return rep, err
	}
	h.logger.Info("artifacts written", "dir", h.cfg.OutputDir)

	if err := h.gate.Check(rep); err != nil {
		h.setPhase(phaseDone)
		return rep, err
	}

	h.setPhase(phaseDone)
	h.logger.Info("compliance run finished", "run_id", runID,
		"cards", rep.Summary.TotalCards, "failed", rep.Summary.Failed)
	return rep, nil
}

// runColdBatch navigates to batch i, re-establishes cold-start state,
// observes the cards until they settle (or the load timeout expires) and
// evaluates the cold-phase criteria. Manifest failure is fatal; a settle
// timeout is not.
func (h *Harness) runColdBatch(page *rod.Page, nav *navigator.Navigator, mon *monitor.Monitor, bootstrap *session.Bootstrap, reqLog *mocknet.RequestLog, batch int) (*report.BatchResult, error) {
	log := h.logger.With("batch", batch, "cycle", "cold")
	reqLog.Reset()

	m, err := nav.ToBatch(page, batch, h.cfg.BatchSize, h.cfg.ManifestTimeout)
	if err != nil {
		return nil, fmt.Errorf("compliance: cold batch %d: %w", batch, err)
	}
	if len(m.Selected) == 0 {
		log.Info("batch is empty, skipping")
		return &report.BatchResult{BatchIndex: batch}, nil
	}

	if err := bootstrap.EstablishColdStart(page); err != nil {
		return nil, fmt.Errorf("compliance: cold batch %d: %w", batch, err)
	}

	ids := m.CardIDs()
	if err := mon.Start(page, ids, h.cfg.PollInterval); err != nil {
		return nil, fmt.Errorf("compliance: cold batch %d: %w", batch, err)
	}
	settled := mon.WaitSettled(page, ids, h.cfg.LoadTimeout, settledPollEvery)
	if !settled {
		log.Warn("cards did not settle within load timeout",
			"timeout", h.cfg.LoadTimeout)
	}

	if h.cfg.ForceRefresh && settled {
		h.triggerRefresh(page, ids, log)
		time.Sleep(refreshWatch)
	}

	histories, err := mon.Stop(page)
	if err != nil {
		return nil, fmt.Errorf("compliance: cold batch %d: %w", batch, err)
	}

	cacheEntries, err := bootstrap.CountCacheEntries(page)
	if err != nil {
		log.Warn("cache count failed", "error", err)
		cacheEntries = 0
	}
	streamRequests := reqLog.Count()
	log.Info("cold batch observed", "cards", len(ids), "settled", settled,
		"stream_requests", streamRequests, "cache_entries", cacheEntries)

	return buildColdResults(batch, m, histories, streamRequests, cacheEntries), nil
}

// runWarmBatch returns to batch i and observes the cards for a fixed window,
// then evaluates the warm-return criteria into the batch's existing results.
func (h *Harness) runWarmBatch(page *rod.Page, nav *navigator.Navigator, mon *monitor.Monitor, batch int, br *report.BatchResult) error {
	log := h.logger.With("batch", batch, "cycle", "warm")

	m, err := nav.ToBatch(page, batch, h.cfg.BatchSize, h.cfg.ManifestTimeout)
	if err != nil {
		return fmt.Errorf("compliance: warm batch %d: %w", batch, err)
	}
	if len(m.Selected) == 0 {
		log.Info("batch is empty, skipping")
		return nil
	}

	ids := m.CardIDs()
	if err := mon.Start(page, ids, h.cfg.PollInterval); err != nil {
		return fmt.Errorf("compliance: warm batch %d: %w", batch, err)
	}
	time.Sleep(h.cfg.WarmWatch)
	histories, err := mon.Stop(page)
	if err != nil {
		return fmt.Errorf("compliance: warm batch %d: %w", batch, err)
	}
	log.Info("warm batch observed", "cards", len(ids))

	attachWarmResults(br, m, histories, h.cfg.GraceSamples, h.cfg.PollInterval)
	return nil
}

// refreshClickJS clicks each card's refresh affordance if it has one.
// Returns the number of clicks dispatched.
const refreshClickJS = `(ids) => {
	let clicked = 0;
	for (const id of ids) {
		const card = document.querySelector('[data-card-id="' + CSS.escape(id) + '"]');
		if (!card) continue;
		const btn = card.querySelector('[data-testid="refresh-button"], [aria-label="Refresh"], button.refresh');
		if (btn) { btn.click(); clicked++; }
	}
	return clicked;
}`

func (h *Harness) triggerRefresh(page *rod.Page, ids []string, log *slog.Logger) {
	res, err := page.Eval(refreshClickJS, ids)
	if err != nil {
		log.Warn("refresh trigger failed", "error", err)
		return
	}
	log.Info("refresh triggered", "clicked", res.Value.Int(), "cards", len(ids))
}

// buildColdResults evaluates the cold-phase criteria for every card in the
// manifest. Cards the sampler never saw get empty histories, which the
// per-history evaluators report as skips.
func buildColdResults(batch int, m *cardstate.Manifest, histories cardstate.Histories, streamRequests, cacheEntries int) *report.BatchResult {
	br := &report.BatchResult{BatchIndex: batch}
	for _, item := range m.Selected {
		cr := report.NewCardResult(item.CardType, item.CardID)
		h := histories[item.CardID]
		cr.Attach(criteria.EvaluateCleanLoading(h))
		cr.Attach(criteria.EvaluateSpinner(h))
		cr.Attach(criteria.EvaluateStreaming(streamRequests))
		cr.Attach(criteria.EvaluateSkeletonTransition(h))
		cr.Attach(criteria.EvaluateIncrementalRefresh(h))
		cr.Attach(criteria.EvaluatePersistentCache(cacheEntries))
		br.Cards = append(br.Cards, cr)
	}
	return br
}

// attachWarmResults merges warm-return verdicts into an existing batch.
// A card present on the warm pass but absent from the cold one (the page
// may select differently across navigations) gets a fresh result holding
// only warm criteria.
func attachWarmResults(br *report.BatchResult, m *cardstate.Manifest, histories cardstate.Histories, graceSamples int, pollInterval time.Duration) {
	for _, item := range m.Selected {
		cr := br.Find(item.CardID)
		if cr == nil {
			cr = report.NewCardResult(item.CardType, item.CardID)
			br.Cards = append(br.Cards, cr)
		}
		h := histories[item.CardID]
		cr.Attach(criteria.EvaluateWarmImmediacy(h, graceSamples, pollInterval))
		cr.Attach(criteria.EvaluateWarmStability(h))
	}
}
