package cardstate

import (
	"encoding/json"
	"fmt"
)

// ManifestItem describes one card slot in a batch.
type ManifestItem struct {
	CardType string `json:"cardType"`
	CardID   string `json:"cardId"`
}

// Manifest is the global object the dashboard publishes once the diagnostic
// route has rendered a batch. TotalCards is read once (from the warmup
// batch) to derive the total batch count.
type Manifest struct {
	AllCardTypes []string       `json:"allCardTypes"`
	TotalCards   int            `json:"totalCards"`
	Batch        int            `json:"batch"`
	BatchSize    int            `json:"batchSize"`
	Selected     []ManifestItem `json:"selected"`
}

// CardIDs returns the selected card IDs in manifest order.
func (m *Manifest) CardIDs() []string {
	ids := make([]string, 0, len(m.Selected))
	for _, it := range m.Selected {
		ids = append(ids, it.CardID)
	}
	return ids
}

// TotalBatches computes ceil(TotalCards / size). A non-positive size yields
// zero, which callers treat as "nothing to do".
func (m *Manifest) TotalBatches(size int) int {
	if size <= 0 {
		return 0
	}
	return (m.TotalCards + size - 1) / size
}

// ParseManifest decodes the JSON-serialised manifest read out of the page.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cardstate: parse manifest: %w", err)
	}
	return &m, nil
}

// ParseHistories decodes the JSON-serialised per-card histories returned by
// the in-page monitor on stop.
func ParseHistories(data []byte) (Histories, error) {
	var h Histories
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("cardstate: parse histories: %w", err)
	}
	if h == nil {
		h = make(Histories)
	}
	return h, nil
}
