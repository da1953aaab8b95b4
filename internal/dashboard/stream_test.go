package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newWSServer(t *testing.T, hub *Hub) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		NewClient(hub, conn)
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHubReplaysSeedToNewClient(t *testing.T) {
	t.Parallel()
	hub := NewHub(discardLogger())
	hub.Seed([]string{"line-1", "line-2"})
	go hub.Run()

	_, wsURL := newWSServer(t, hub)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt logEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if evt.Type != "snapshot" {
		t.Fatalf("event type = %q, want snapshot", evt.Type)
	}
	if len(evt.Lines) != 2 || evt.Lines[0] != "line-1" {
		t.Fatalf("snapshot lines = %v", evt.Lines)
	}
}

func TestHubBroadcastsAppendToConnectedClients(t *testing.T) {
	t.Parallel()
	hub := NewHub(discardLogger())
	go hub.Run()

	_, wsURL := newWSServer(t, hub)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to process the registration before broadcasting.
	time.Sleep(50 * time.Millisecond)
	hub.BroadcastLines([]string{"fresh line"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt logEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read append event: %v", err)
	}
	if evt.Type != "append" {
		t.Fatalf("event type = %q, want append", evt.Type)
	}
	if len(evt.Lines) != 1 || evt.Lines[0] != "fresh line" {
		t.Fatalf("append lines = %v", evt.Lines)
	}
}

func TestAppendBoundedTrimsToCapacity(t *testing.T) {
	t.Parallel()
	recent := []string{"a", "b", "c"}
	got := appendBounded(recent, []string{"d", "e"}, 4)
	want := []string{"b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("appendBounded = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("appendBounded = %v, want %v", got, want)
		}
	}
}
