package mocknet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"
)

// Companion is the local stand-in for the dashboard's companion process.
// It answers the health probe, refuses everything else with 503, and echoes
// structured results on the exec WebSocket. It listens on a real loopback
// port because the browser dials it directly; hijacking cannot intercept a
// WebSocket upgrade.
type Companion struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// NewCompanion creates a companion mock. Start must be called before use.
func NewCompanion(logger *slog.Logger) *Companion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Companion{logger: logger}
}

// Start binds addr (use "127.0.0.1:0" for an ephemeral port) and serves in
// the calling goroutine's errgroup; it returns the base URL to point the
// dashboard at.
func (c *Companion) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("mocknet: companion listen: %w", err)
	}
	c.ln = ln

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","version":"mock","backend":"cardwatch"}`)
	})
	r.Handle("/exec", websocket.Handler(c.echoExec))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"unavailable"}`)
	})

	c.srv = &http.Server{Handler: r}
	c.logger.Debug("mocknet: companion listening", "addr", ln.Addr().String())
	return "http://" + ln.Addr().String(), nil
}

// Serve blocks serving requests until Close. http.ErrServerClosed is the
// normal shutdown signal and is not reported as an error.
func (c *Companion) Serve() error {
	if c.srv == nil || c.ln == nil {
		return fmt.Errorf("mocknet: companion not started")
	}
	if err := c.srv.Serve(c.ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("mocknet: companion serve: %w", err)
	}
	return nil
}

// Close shuts the companion down. Best-effort: errors are logged, not
// returned, since teardown races with the browser closing its sockets.
func (c *Companion) Close(ctx context.Context) {
	if c.srv == nil {
		return
	}
	if err := c.srv.Shutdown(ctx); err != nil {
		c.logger.Warn("mocknet: companion shutdown", "error", err)
	}
}

// execMessage is the structured exec-channel envelope.
type execMessage struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// echoExec answers every received message with a result envelope carrying
// the same id and payload. Unparseable input gets the empty-result default
// rather than an error: the channel mock never fails a card on its own.
func (c *Companion) echoExec(ws *websocket.Conn) {
	defer ws.Close()
	for {
		var raw string
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			return
		}

		reply := execMessage{Type: "result", Payload: json.RawMessage(`{"items":[]}`)}
		var in execMessage
		if err := json.Unmarshal([]byte(raw), &in); err == nil {
			reply.ID = in.ID
			if len(in.Payload) > 0 {
				reply.Payload = in.Payload
			}
		}

		if err := websocket.JSON.Send(ws, reply); err != nil {
			c.logger.Warn("mocknet: exec echo send", "error", err)
			return
		}
	}
}
