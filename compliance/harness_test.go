package compliance

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rishi-jat/cardwatch/compliance/cardstate"
	"github.com/rishi-jat/cardwatch/compliance/criteria"
	"github.com/rishi-jat/cardwatch/compliance/internal/mocknet"
	"github.com/rishi-jat/cardwatch/compliance/internal/session"
)

func settledSnap() cardstate.Snapshot {
	return cardstate.Snapshot{TextContentLength: 120}
}

func loadingSnap() cardstate.Snapshot {
	return cardstate.Snapshot{DataLoading: "true", HasSkeleton: true}
}

func manifest(items ...cardstate.ManifestItem) *cardstate.Manifest {
	return &cardstate.Manifest{Selected: items, TotalCards: len(items)}
}

func TestBuildColdResultsEvaluatesAllColdCriteria(t *testing.T) {
	m := manifest(cardstate.ManifestItem{CardType: "ClusterStatus", CardID: "cluster-status-0"})
	histories := cardstate.Histories{
		"cluster-status-0": {loadingSnap(), settledSnap()},
	}

	br := buildColdResults(2, m, histories, 3, 5)
	if br.BatchIndex != 2 {
		t.Fatalf("BatchIndex = %d, want 2", br.BatchIndex)
	}
	if len(br.Cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(br.Cards))
	}

	cr := br.Cards[0]
	want := []criteria.ID{
		criteria.CleanLoading, criteria.SpinnerWhileLoad, criteria.StreamingUsage,
		criteria.SkeletonTransition, criteria.IncrementalRefresh, criteria.PersistentCache,
	}
	for _, id := range want {
		if _, ok := cr.Criteria[id]; !ok {
			t.Errorf("missing result for %s", id)
		}
	}
	if _, ok := cr.Criteria[criteria.WarmImmediacy]; ok {
		t.Error("cold pass must not evaluate warm criteria")
	}
}

func TestBuildColdResultsMissingHistorySkips(t *testing.T) {
	m := manifest(cardstate.ManifestItem{CardType: "NodeHealth", CardID: "node-health-0"})

	br := buildColdResults(0, m, cardstate.Histories{}, 1, 1)
	cr := br.Cards[0]
	if got := cr.Criteria[criteria.CleanLoading].Status; got != criteria.Skip {
		t.Errorf("CleanLoading without history = %s, want skip", got)
	}
	// The counter-based criteria still evaluate.
	if got := cr.Criteria[criteria.StreamingUsage].Status; got != criteria.Pass {
		t.Errorf("StreamingUsage = %s, want pass", got)
	}
}

func TestAttachWarmResultsMergesByCardID(t *testing.T) {
	m := manifest(cardstate.ManifestItem{CardType: "ClusterStatus", CardID: "cluster-status-0"})
	histories := cardstate.Histories{
		"cluster-status-0": {settledSnap(), settledSnap()},
	}

	br := buildColdResults(0, m, histories, 1, 1)

	attachWarmResults(br, m, histories, 10, 50*time.Millisecond)
	if len(br.Cards) != 1 {
		t.Fatalf("warm merge created a duplicate card: %d cards", len(br.Cards))
	}
	cr := br.Cards[0]
	if got := cr.Criteria[criteria.WarmImmediacy].Status; got != criteria.Pass {
		t.Errorf("WarmImmediacy = %s, want pass", got)
	}
	if _, ok := cr.Criteria[criteria.WarmStability]; !ok {
		t.Error("missing WarmStability result")
	}
}

func TestAttachWarmResultsCreatesMissingCard(t *testing.T) {
	br := buildColdResults(0, manifest(), cardstate.Histories{}, 0, 0)

	warm := manifest(cardstate.ManifestItem{CardType: "PolicyList", CardID: "policy-list-3"})
	attachWarmResults(br, warm, cardstate.Histories{}, 10, 50*time.Millisecond)

	cr := br.Find("policy-list-3")
	if cr == nil {
		t.Fatal("warm-only card was not created")
	}
	if _, ok := cr.Criteria[criteria.CleanLoading]; ok {
		t.Error("warm-only card must not carry cold results")
	}
	if got := cr.Criteria[criteria.WarmImmediacy].Status; got != criteria.Skip {
		t.Errorf("WarmImmediacy without history = %s, want skip", got)
	}
}

func TestCompanionURLSeededIntoPage(t *testing.T) {
	companion := mocknet.NewCompanion(nil)
	companionURL, err := companion.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("companion start: %v", err)
	}
	go companion.Serve()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		companion.Close(ctx)
	}()

	// Same construction Run performs: the bootstrap carries the live
	// ephemeral URL, so every navigation seeds it before page scripts run.
	bootstrap := session.New(companionURL, nil)
	if !strings.Contains(bootstrap.SeedScript(), companionURL) {
		t.Errorf("init script does not point the dashboard at %s:\n%s",
			companionURL, bootstrap.SeedScript())
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig("http://localhost:5173")
	if cfg.BatchSize != 8 {
		t.Errorf("BatchSize = %d, want 8", cfg.BatchSize)
	}
	if cfg.PollInterval != 50*time.Millisecond {
		t.Errorf("PollInterval = %s, want 50ms", cfg.PollInterval)
	}
	if cfg.GraceSamples != 10 {
		t.Errorf("GraceSamples = %d, want 10", cfg.GraceSamples)
	}
	if cfg.WarmupTimeout <= cfg.ManifestTimeout {
		t.Error("warmup timeout should exceed the per-batch manifest timeout")
	}
	if cfg.OutputDir != "test-results" {
		t.Errorf("OutputDir = %q, want test-results", cfg.OutputDir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardwatch.yaml")
	data := []byte("base_url: http://localhost:9000\nbatch_size: 4\nforce_refresh: true\nmock:\n  stream_delay: 200ms\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.BatchSize != 4 {
		t.Errorf("BatchSize = %d, want 4", cfg.BatchSize)
	}
	if !cfg.ForceRefresh {
		t.Error("ForceRefresh not set")
	}
	if cfg.Mock.StreamDelay != 200*time.Millisecond {
		t.Errorf("Mock.StreamDelay = %s, want 200ms", cfg.Mock.StreamDelay)
	}
	// Unset fields still get defaults.
	if cfg.GraceSamples != 10 {
		t.Errorf("GraceSamples = %d, want 10", cfg.GraceSamples)
	}
}

func TestLoadConfigFileRequiresBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardwatch.yaml")
	if err := os.WriteFile(path, []byte("batch_size: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for missing base_url")
	}
}
