package mocknet

import "sync"

// RequestLog records every intercepted SSE stream URL for the streaming
// criterion. One log is shared across the whole run; the orchestrator
// resets it at the start of each cold batch so a batch is never credited
// with another batch's requests. The hijack router writes from the page's
// event goroutines, hence the lock.
type RequestLog struct {
	mu   sync.Mutex
	urls []string
}

// NewRequestLog creates an empty log.
func NewRequestLog() *RequestLog {
	return &RequestLog{}
}

// Append records one intercepted stream URL.
func (l *RequestLog) Append(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, url)
}

// Reset clears the log.
func (l *RequestLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = l.urls[:0]
}

// Count returns the number of recorded stream requests.
func (l *RequestLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.urls)
}

// URLs returns a copy of the recorded URLs in capture order.
func (l *RequestLog) URLs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.urls))
	copy(out, l.urls)
	return out
}
