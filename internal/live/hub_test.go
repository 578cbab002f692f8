package live

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"notapilot/internal/dispatch"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastsRuns(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	run := dispatch.DispatchRun{ID: "run-1", Source: dispatch.SourceVercelCron, Picked: 3, Sent: 2, Retried: 1, ClaimedJobIDs: []string{"j1", "j2"}}
	if err := hub.Record(context.Background(), run); err != nil {
		t.Fatalf("record: %v", err)
	}

	var msg struct {
		Type string               `json:"type"`
		Run  dispatch.DispatchRun `json:"run"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "dispatch_run" || msg.Run.ID != "run-1" || msg.Run.Sent != 2 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Run.ClaimedJobIDs) != 0 {
		t.Fatalf("claimed job ids broadcast: %v", msg.Run.ClaimedJobIDs)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHub_RecordWithoutClients(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	if err := hub.Record(context.Background(), dispatch.DispatchRun{ID: "x"}); err != nil {
		t.Fatalf("record: %v", err)
	}
}
