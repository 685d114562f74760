package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/playback"

	"github.com/gorilla/websocket"
)

func TestHubSnapshotTakenAfterRegistration(t *testing.T) {
	hub := NewHub(nil, testLogger())
	registered := make(chan int, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.serve(conn, func() Event {
			// Runs under the hub lock.
			registered <- len(hub.clients)
			return Event{Type: EventState, State: &playback.StateChange{SpeakingIndex: 2, Mechanism: speech.MechanismLocal}}
		})
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := <-registered; n != 1 {
		t.Fatalf("clients when snapshot was taken = %d, want 1", n)
	}
	if first.State == nil || first.State.SpeakingIndex != 2 {
		t.Fatalf("initial event = %+v", first)
	}

	// Broadcasts after the snapshot reach the client in order.
	hub.OnState(playback.StateChange{SpeakingIndex: speech.NoIndex, Mechanism: speech.MechanismNone})
	var next Event
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read: %v", err)
	}
	if next.State == nil || next.State.SpeakingIndex != speech.NoIndex {
		t.Fatalf("next event = %+v", next)
	}
}
