package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/clipper/internal/clipstore"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: 100 * time.Millisecond})
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe(0)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: 100 * time.Millisecond})
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeClipSaved, Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: clip.saved") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishClipEvent_RecentThrottle(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: 500 * time.Millisecond})
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	// First event should trigger recent.updated; the second, right after,
	// should not.
	b.PublishClipEvent(TypeClipSaved, map[string]string{"name": "a"})
	b.PublishClipEvent(TypeClipSaved, map[string]string{"name": "b"})

	time.Sleep(50 * time.Millisecond)
	recentCount := 0
	clipCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "event: "+TypeRecentUpdated) {
				recentCount++
			} else {
				clipCount++
			}
		default:
			break loop
		}
	}

	if clipCount != 2 {
		t.Errorf("clip events = %d, want 2", clipCount)
	}
	if recentCount != 1 {
		t.Errorf("recent events = %d, want 1 (throttled)", recentCount)
	}
}

func TestOnStoreEvent(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: time.Hour})
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	b.OnStoreEvent(clipstore.Event{
		Kind: clipstore.EventClipSaved,
		Clip: &clipstore.Clip{Name: "2024-01-01 00:05 Hello", Path: "/r/clippings/2024-01-01 00:05 Hello.md"},
	})
	b.OnStoreEvent(clipstore.Event{
		Kind:   clipstore.EventFolderChanged,
		Layout: clipstore.Layout{Root: "/new", Clippings: "clippings", Daily: "Daily"},
	})

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 3 {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-timeout:
			t.Fatalf("got %d messages, want 3: %q", len(got), got)
		}
	}

	if !strings.Contains(got[0], "event: clip.saved") || !strings.Contains(got[0], `"name":"2024-01-01 00:05 Hello"`) {
		t.Errorf("first = %q", got[0])
	}
	if !strings.Contains(got[1], "event: recent.updated") {
		t.Errorf("second = %q", got[1])
	}
	if !strings.Contains(got[2], "event: folder.changed") || !strings.Contains(got[2], `"daily":"Daily"`) {
		t.Errorf("third = %q", got[2])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: 100 * time.Millisecond})
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeFolderChanged, Data: map[string]string{"root": "/x"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: folder.changed") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSubscribe_ReplaysAfterLastID(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: time.Hour, Replay: 2})
	defer b.Close()

	probe := b.Subscribe(0)
	for _, name := range []string{"a", "b", "c"} {
		b.Publish(Event{Type: TypeClipSaved, Data: map[string]string{"name": name}})
	}
	for i := 0; i < 3; i++ {
		select {
		case <-probe:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for publish")
		}
	}
	b.Unsubscribe(probe)

	// Event 1 has left the two-slot buffer; only 3 is newer than 2.
	ch := b.Subscribe(2)
	defer b.Unsubscribe(ch)
	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 3\n") || !strings.Contains(s, `"name":"c"`) {
			t.Errorf("replayed %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no replay")
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHandler_KeepAlive(t *testing.T) {
	b := NewBroker(Options{KeepAlive: 10 * time.Millisecond})
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), ": ping") {
		t.Errorf("no keepalive in %q", w.Body.String())
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: time.Second})
	defer b.Close()
	ch := b.Subscribe(0)
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(Options{RecentThrottle: 100 * time.Millisecond})
	ch := b.Subscribe(0)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeClipSaved, Data: map[string]string{"path": "x.md"}})
	b.PublishClipEvent(TypeClipSaved, map[string]string{"path": "x.md"})
}
