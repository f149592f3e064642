// Package cardstate defines the observed DOM state of dashboard cards:
// point-in-time snapshots, per-card histories, and the batch manifest the
// dashboard publishes on its diagnostic route.
//
// Snapshots are produced by the in-page sampler and decoded here; they are
// immutable once captured. The criterion evaluators consume them read-only.
package cardstate

// Snapshot is a single point-in-time observation of one card's DOM state.
// Field names mirror the JSON emitted by the in-page sampler.
type Snapshot struct {
	// Timestamp is the page's monotonic clock (performance.now()), ms.
	Timestamp float64 `json:"timestamp"`

	// DataLoading is the card's data-loading attribute: "true", "false",
	// or "" when the attribute is absent.
	DataLoading string `json:"dataLoading"`

	// DataEffectiveLoading is the optional secondary loading flag
	// distinguishing "visually loading" from "fetch in flight".
	// Empty when the card does not emit it.
	DataEffectiveLoading string `json:"dataEffectiveLoading"`

	HasDemoBadge      bool `json:"hasDemoBadge"`
	HasYellowBorder   bool `json:"hasYellowBorder"`
	HasSkeleton       bool `json:"hasSkeleton"`
	HasSpinningIcon   bool `json:"hasSpinningIcon"`
	TextContentLength int  `json:"textContentLength"`
	HasVisualContent  bool `json:"hasVisualContent"`
}

// minContentText is the trimmed text length above which a card is
// considered to show real content rather than chrome/labels.
const minContentText = 10

// Loading reports whether the card was fetching when the snapshot was
// taken. The effective-loading attribute wins when present; otherwise the
// plain data-loading attribute decides.
func (s Snapshot) Loading() bool {
	if s.DataEffectiveLoading != "" {
		return s.DataEffectiveLoading == "true"
	}
	return s.DataLoading == "true"
}

// HasContent reports whether the card shows content: text beyond the
// minimum, or any visual content element.
func (s Snapshot) HasContent() bool {
	return s.TextContentLength > minContentText || s.HasVisualContent
}

// Settled reports whether the card has finished loading and shows content.
// This is the "content appeared" condition of the skeleton transition
// criterion: loading false AND content present.
func (s Snapshot) Settled() bool {
	return !s.Loading() && s.HasContent()
}

// History is the ordered sequence of snapshots captured for one card within
// one monitoring session. Index order equals capture order; index 0 is the
// immediate sample taken synchronously at monitor start. Cold-load and
// warm-return sessions yield separate histories that are never merged.
type History []Snapshot

// Histories maps card ID to the history captured for that card.
type Histories map[string]History
