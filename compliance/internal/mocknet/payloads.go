package mocknet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// seedCluster is the one deterministic record every mocked backend response
// is built from. Stable values keep card rendering reproducible between
// runs, which the criterion evaluators depend on.
var seedCluster = map[string]any{
	"name":      "mock-cluster-1",
	"context":   "kind-mock",
	"status":    "Ready",
	"nodes":     3,
	"pods":      42,
	"namespace": "default",
	"version":   "v1.31.0",
}

// sseBody renders the two-event synthetic stream: one cluster_data event
// carrying the seed record, then done.
func sseBody() string {
	data, _ := json.Marshal(seedCluster)
	var b strings.Builder
	fmt.Fprintf(&b, "event: cluster_data\ndata: %s\n\n", data)
	b.WriteString("event: done\ndata: {}\n\n")
	return b.String()
}

// restBody reshapes the seed record as a plain JSON object, tagged so the
// dashboard (and a human reading a HAR dump) can tell mock data apart.
func restBody() string {
	data, _ := json.Marshal(map[string]any{
		"source":   "mock",
		"clusters": []any{seedCluster},
	})
	return string(data)
}

// emptyListBody is the catch-all response for unmatched API routes.
const emptyListBody = `{"source":"mock","items":[]}`

// feedJSONBody mimics a JSON-wrapping feed proxy response so the RSS
// widget's loading window is observable without real network access.
func feedJSONBody() string {
	data, _ := json.Marshal(map[string]any{
		"status": "ok",
		"feed":   map[string]any{"title": "Mock Feed", "url": "https://feed.invalid/rss"},
		"items": []any{
			map[string]any{
				"title":   "Mock article one",
				"link":    "https://feed.invalid/1",
				"pubDate": "2026-01-02 03:04:05",
			},
			map[string]any{
				"title":   "Mock article two",
				"link":    "https://feed.invalid/2",
				"pubDate": "2026-01-03 03:04:05",
			},
		},
	})
	return string(data)
}

// feedXMLBody is the raw-XML variant for proxies that return the feed
// untranslated.
const feedXMLBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Mock Feed</title>
    <link>https://feed.invalid/rss</link>
    <item><title>Mock article one</title><link>https://feed.invalid/1</link></item>
    <item><title>Mock article two</title><link>https://feed.invalid/2</link></item>
  </channel>
</rss>`
