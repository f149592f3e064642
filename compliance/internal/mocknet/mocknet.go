// Package mocknet replaces the dashboard's outbound traffic with
// deterministic, latency-injected fakes so loading phases are hermetic and
// long enough for the 50ms sampler to capture. It hijacks REST and SSE
// endpoints plus external feed proxies in the page, and runs a real local
// companion server for the health/exec channel.
package mocknet

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Config sets the injected latencies. The stream delay must exceed a couple
// of sampler intervals or loading phases become invisible; the REST delay
// is randomized within its bounds to avoid lock-step timing artifacts.
type Config struct {
	StreamDelay   time.Duration
	RESTDelayMin  time.Duration
	RESTDelayMax  time.Duration
	CatchAllDelay time.Duration
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.StreamDelay <= 0 {
		c.StreamDelay = 150 * time.Millisecond
	}
	if c.RESTDelayMin <= 0 {
		c.RESTDelayMin = 80 * time.Millisecond
	}
	if c.RESTDelayMax <= c.RESTDelayMin {
		c.RESTDelayMax = 250 * time.Millisecond
	}
	if c.CatchAllDelay <= 0 {
		c.CatchAllDelay = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// feedHosts are the external feed/CORS-proxy domains the dashboard's RSS
// widget reaches for.
var feedHosts = []string{
	"api.rss2json.com",
	"api.allorigins.win",
}

type routeKind int

const (
	routeNone routeKind = iota
	routeStream
	routeAPI
	routeFeedJSON
	routeFeedXML
)

// classify decides which mock family a URL belongs to. Stream detection
// runs before the general API match so the catch-all never swallows an SSE
// endpoint.
func classify(url string) routeKind {
	if strings.Contains(url, "/api/") {
		if strings.Contains(url, "stream") {
			return routeStream
		}
		return routeAPI
	}
	for _, h := range feedHosts {
		if strings.Contains(url, h) {
			if strings.Contains(url, "rss2json") {
				return routeFeedJSON
			}
			return routeFeedXML
		}
	}
	return routeNone
}

// Install registers the hijack router on the page and starts it. Setup
// failure is fatal to the run; there is no retry. The returned stop
// function tears the router down.
func Install(page *rod.Page, cfg Config, reqLog *RequestLog) (stop func(), err error) {
	cfg.defaults()

	router := page.HijackRequests()
	err = router.Add("*", "", func(ctx *rod.Hijack) {
		url := ctx.Request.URL().String()

		switch classify(url) {
		case routeStream:
			reqLog.Append(url)
			time.Sleep(cfg.StreamDelay)
			ctx.Response.SetHeader("Content-Type", "text/event-stream")
			ctx.Response.SetBody(sseBody())

		case routeAPI:
			ctx.Response.SetHeader("Content-Type", "application/json")
			if strings.Contains(url, "/api/clusters") {
				time.Sleep(restDelay(cfg))
				ctx.Response.SetBody(restBody())
			} else {
				// Unmatched API family: fixed delay, empty list.
				time.Sleep(cfg.CatchAllDelay)
				ctx.Response.SetBody(emptyListBody)
			}

		case routeFeedJSON:
			time.Sleep(cfg.CatchAllDelay)
			ctx.Response.SetHeader("Content-Type", "application/json")
			ctx.Response.SetBody(feedJSONBody())

		case routeFeedXML:
			time.Sleep(cfg.CatchAllDelay)
			ctx.Response.SetHeader("Content-Type", "application/xml")
			ctx.Response.SetBody(feedXMLBody)

		default:
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("mocknet: add hijack route: %w", err)
	}

	go router.Run()
	cfg.Logger.Debug("mocknet: hijack router installed")

	return func() {
		if err := router.Stop(); err != nil {
			cfg.Logger.Warn("mocknet: router stop", "error", err)
		}
	}, nil
}

func restDelay(cfg Config) time.Duration {
	span := cfg.RESTDelayMax - cfg.RESTDelayMin
	return cfg.RESTDelayMin + rand.N(span)
}
