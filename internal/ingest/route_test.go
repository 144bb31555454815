package ingest

import (
	"net"
	"testing"
	"time"
)

func TestRouteServerAcceptsAndPushesOneMessagePerAgent(t *testing.T) {
	srv, err := NewRouteServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv.Start()
	defer srv.Stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if _, err := conn.Write([]byte(`{"agent-1":["dock-a","dock-b"],"agent-2":["dock-c"]}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	conn.Close()

	msgs := waitForDrain(t, func() []RouteMessage { return srv.Inbox.Drain() }, 2)

	byAgent := map[string]RouteMessage{}
	for _, m := range msgs {
		byAgent[m.AgentID] = m
	}
	if len(byAgent["agent-1"].Targets) != 2 || byAgent["agent-1"].Targets[0] != "dock-a" {
		t.Fatalf("agent-1 targets wrong: %v", byAgent["agent-1"])
	}
	if len(byAgent["agent-2"].Targets) != 1 {
		t.Fatalf("agent-2 targets wrong: %v", byAgent["agent-2"])
	}
	if byAgent["agent-1"].CorrelationID == "" {
		t.Fatal("expected a non-empty correlation id")
	}
}

func TestRouteServerDropsMalformedJSON(t *testing.T) {
	srv, err := NewRouteServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv.Start()
	defer srv.Stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.Write([]byte(`not json`))
	conn.Close()

	time.Sleep(50 * time.Millisecond)
	if got := srv.Inbox.Drain(); got != nil {
		t.Fatalf("malformed message should be dropped, got %v", got)
	}
}

func waitForDrain[T any](t *testing.T, drain func() []T, want int) []T {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var all []T
	for time.Now().Before(deadline) {
		all = append(all, drain()...)
		if len(all) >= want {
			return all
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", want, len(all))
	return nil
}
