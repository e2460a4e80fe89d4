// Package sse streams clip store changes to local clients as Server-Sent
// Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types published for clip store changes.
const (
	TypeClipSaved     = "clip.saved"
	TypeFolderChanged = "folder.changed"
	TypeRecentUpdated = "recent.updated"
)

// Options configures a Broker. Zero values select defaults.
type Options struct {
	// RecentThrottle is the minimum gap between recent.updated events.
	RecentThrottle time.Duration
	// KeepAlive is the interval of comment pings on idle streams.
	KeepAlive time.Duration
	// Replay is how many past events are kept for clients that reconnect
	// with Last-Event-ID.
	Replay int
}

func (o Options) withDefaults() Options {
	if o.RecentThrottle <= 0 {
		o.RecentThrottle = 2 * time.Second
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = 30 * time.Second
	}
	if o.Replay < 0 {
		o.Replay = 0
	}
	return o
}

const clientBuffer = 64

type message struct {
	id  uint64
	raw []byte
}

type subscribeReq struct {
	ch     chan []byte
	lastID uint64
}

type clipEventReq struct {
	kind string
	data any
}

// Broker fans events out to SSE clients.
//
// A single goroutine owns the client set, the replay buffer, the event
// counter and the recent.updated throttle. Public methods talk to it over
// channels.
type Broker struct {
	opts Options

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	clipEventCh   chan clipEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker.
func NewBroker(opts Options) *Broker {
	b := &Broker{
		opts:          opts.withDefaults(),
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		clipEventCh:   make(chan clipEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]message, 0, b.opts.Replay)
	var seq uint64
	var lastRecent time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		msg := message{
			id:  seq,
			raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)),
		}
		if b.opts.Replay > 0 {
			if len(history) == b.opts.Replay {
				history = append(history[:0], history[1:]...)
			}
			history = append(history, msg)
		}
		for ch := range clients {
			select {
			case ch <- msg.raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			if req.lastID > 0 {
				for _, m := range history {
					if m.id <= req.lastID {
						continue
					}
					select {
					case req.ch <- m.raw:
					default:
					}
				}
			}
			clients[req.ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.clipEventCh:
			broadcast(Event{Type: req.kind, Data: req.data})
			if now := time.Now(); now.Sub(lastRecent) >= b.opts.RecentThrottle {
				lastRecent = now
				broadcast(Event{Type: TypeRecentUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. Buffered events newer than lastID are queued
// on the returned channel first; lastID 0 skips the replay.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- subscribeReq{ch: ch, lastID: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishClipEvent publishes a clip store change followed by a throttled
// recent.updated event.
func (b *Broker) PublishClipEvent(kind string, data any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.clipEventCh <- clipEventReq{kind: kind, data: data}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.opts.KeepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
