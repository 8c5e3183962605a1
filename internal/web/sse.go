package web

import (
	"net/http"
	"strings"
	"sync"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
)

// MonitorStream is the SSE stream carrying the live monitor fragments
const MonitorStream = "monitor"

// FormStream returns the SSE stream name of a schedule form session
func FormStream(formID string) string {
	return "form-" + formID
}

// Publisher pushes a named event with an HTML payload to one stream
type Publisher interface {
	Publish(stream, event string, data []byte)
}

// MonitorWatcher is told when a page connects to or leaves the monitor stream
type MonitorWatcher interface {
	Attach(client string)
	Detach(client string)
}

// Broadcaster wraps an r3labs SSE server and counts the subscribers of
// every stream
type Broadcaster struct {
	server *sse.Server
	logger *zap.Logger

	mu          sync.Mutex
	subscribers map[string]int
	watcher     MonitorWatcher
}

// NewBroadcaster creates the SSE server with the monitor stream already open
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	server := sse.New()
	// Fragments are full snapshots; a reconnecting client gets the page again
	server.AutoReplay = false
	server.AutoStream = false
	server.SplitData = true
	server.CreateStream(MonitorStream)

	return &Broadcaster{
		server:      server,
		logger:      logger,
		subscribers: make(map[string]int),
	}
}

// WatchMonitor registers the watcher told about monitor pages. Each page
// identifies itself with the client query parameter of its stream URL.
func (b *Broadcaster) WatchMonitor(w MonitorWatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watcher = w
}

// subscribe counts a connection and returns the function that uncounts it.
// It runs on the request goroutine, so connect and leave of one connection
// are always seen in order.
func (b *Broadcaster) subscribe(stream, client string) func() {
	b.mu.Lock()
	b.subscribers[stream]++
	count := b.subscribers[stream]
	watcher := b.watcher
	b.mu.Unlock()

	b.logger.Debug("SSE client connected", zap.String("stream", stream), zap.Int("subscribers", count))
	if stream == MonitorStream && watcher != nil {
		watcher.Attach(client)
	}

	return func() {
		b.mu.Lock()
		b.subscribers[stream]--
		count := b.subscribers[stream]
		if count <= 0 {
			delete(b.subscribers, stream)
		}
		b.mu.Unlock()

		b.logger.Debug("SSE client left", zap.String("stream", stream), zap.Int("subscribers", count))
		if stream == MonitorStream && watcher != nil {
			watcher.Detach(client)
		}
	}
}

// Subscribers returns the number of clients connected to a stream
func (b *Broadcaster) Subscribers(stream string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribers[stream]
}

// OpenStream creates a stream if it does not exist yet
func (b *Broadcaster) OpenStream(stream string) {
	if !b.server.StreamExists(stream) {
		b.server.CreateStream(stream)
	}
}

// CloseStream removes a stream and disconnects its subscribers
func (b *Broadcaster) CloseStream(stream string) {
	b.server.RemoveStream(stream)
}

// Publish sends an event to every subscriber of a stream
func (b *Broadcaster) Publish(stream, event string, data []byte) {
	b.server.Publish(stream, &sse.Event{
		Event: []byte(event),
		Data:  data,
	})
}

// ServeHTTP implements the http.Handler interface for SSE connections
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logSSERequest(b.logger, r)

	stream := r.URL.Query().Get("stream")
	if stream == "" {
		http.Error(w, "stream parameter required", http.StatusBadRequest)
		return
	}
	if !b.server.StreamExists(stream) {
		http.Error(w, "unknown stream", http.StatusNotFound)
		return
	}

	if !isEventStreamSupported(r) {
		http.Error(w, "This endpoint requires EventStream support", http.StatusNotAcceptable)
		return
	}

	// Disable nginx proxy buffering
	w.Header().Set("X-Accel-Buffering", "no")

	// ServeHTTP returns once the client is gone or the stream is closed
	unsubscribe := b.subscribe(stream, r.URL.Query().Get("client"))
	defer unsubscribe()

	b.server.ServeHTTP(w, r)
}

// Close disconnects every client
func (b *Broadcaster) Close() {
	b.server.Close()
}

// isEventStreamSupported checks if the client accepts event streams
func isEventStreamSupported(r *http.Request) bool {
	accepts := r.Header.Get("Accept")
	return accepts == "" ||
		accepts == "*/*" ||
		strings.Contains(accepts, "text/event-stream")
}
