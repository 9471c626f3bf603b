package realtime

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func drainOne(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case env := <-client.Outbox():
		return env
	default:
		t.Fatal("expected a queued envelope")
		return Envelope{}
	}
}

func TestHubBroadcastReachesEveryRoomMember(t *testing.T) {
	hub := NewHub(zap.NewNop())

	gateA := hub.Join("gate-1")
	gateB := hub.Join("gate-1")
	other := hub.Join("user-1")

	hub.Broadcast([]string{"gate-1"}, "credential.refresh", map[string]string{"credential": "x"})

	for _, client := range []*Client{gateA, gateB} {
		env := drainOne(t, client)
		if env.Event != "credential.refresh" {
			t.Fatalf("event = %q", env.Event)
		}
		var payload map[string]string
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["credential"] != "x" {
			t.Fatalf("payload = %v", payload)
		}
	}

	select {
	case env := <-other.Outbox():
		t.Fatalf("unrelated room received %q", env.Event)
	default:
	}
}

func TestHubBroadcastDeduplicatesTargets(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := hub.Join("user-1")

	// the same identity can appear on both sides of an event
	hub.Broadcast([]string{"user-1", "user-1"}, "checkin.created", nil)

	drainOne(t, client)
	select {
	case env := <-client.Outbox():
		t.Fatalf("duplicate delivery of %q", env.Event)
	default:
	}
}

func TestHubBroadcastToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Broadcast([]string{"nobody-home"}, "checkin.created", nil)
}

func TestHubLeaveClosesOutbox(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := hub.Join("user-1")

	hub.Leave(client)

	if _, open := <-client.Outbox(); open {
		t.Fatal("outbox still open after leave")
	}
	if client.Send(Envelope{Event: "credential.refresh"}) {
		t.Fatal("send succeeded on a closed client")
	}

	// leaving twice must not panic on a double close
	hub.Leave(client)

	hub.Broadcast([]string{"user-1"}, "checkin.created", nil)
}

func TestClientSendDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := hub.Join("user-1")

	for i := 0; i < clientSendBuffer; i++ {
		if !client.Send(Envelope{Event: "credential.refresh"}) {
			t.Fatalf("send %d rejected below capacity", i)
		}
	}
	if client.Send(Envelope{Event: "credential.refresh"}) {
		t.Fatal("send succeeded past buffer capacity")
	}

	drainOne(t, client)
	if !client.Send(Envelope{Event: "credential.refresh"}) {
		t.Fatal("send rejected after drain freed capacity")
	}
}
