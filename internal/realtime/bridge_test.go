package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/events"
)

func TestBridgeDeliversCheckCreated(t *testing.T) {
	hub, manager, _ := newSessionFixture()
	dispatcher := events.NewInMemoryDispatcher()
	bridge := NewBridge(hub, manager, dispatcher, testPresenceConfig(), zap.NewNop())
	bridge.RegisterHandlers()

	offering := domain.Identity{ID: "gate-1", Username: "front-door", Role: domain.RoleGate}
	scanning := domain.Identity{ID: "user-1", Username: "alice", FirstName: "Alice", Role: domain.RoleUser}

	gateClient := hub.Join(offering.ID)
	userClient := hub.Join(scanning.ID)

	check := domain.CheckEvent{
		ID:                 "check-1",
		OfferingIdentityID: offering.ID,
		ScanningIdentityID: scanning.ID,
		Type:               domain.CheckTypeEntry,
		ScanTime:           time.Now().UTC(),
	}
	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventCheckCreated,
		Payload: events.CheckCreatedPayload{
			Check:            check,
			OfferingIdentity: offering,
			ScanningIdentity: scanning,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	// the offering room hears who scanned it before the shared announcement
	scanned := waitEnvelope(t, gateClient, time.Second)
	if scanned.Event != EventCredentialScanned {
		t.Fatalf("first gate event = %q, want %q", scanned.Event, EventCredentialScanned)
	}
	var who IdentitySummary
	if err := json.Unmarshal(scanned.Data, &who); err != nil {
		t.Fatalf("unmarshal scanner summary: %v", err)
	}
	if who.ID != scanning.ID || who.FirstName != "Alice" {
		t.Fatalf("scanner summary = %+v", who)
	}

	for _, client := range []*Client{gateClient, userClient} {
		env := waitEnvelope(t, client, time.Second)
		if env.Event != EventCheckinCreated {
			t.Fatalf("event = %q, want %q", env.Event, EventCheckinCreated)
		}
		var payload CheckinCreatedPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.ID != check.ID || payload.Type != domain.CheckTypeEntry {
			t.Fatalf("payload = %+v", payload)
		}
		if payload.OfferingIdentity.ID != offering.ID || payload.ScanningIdentity.ID != scanning.ID {
			t.Fatalf("payload identities = %+v", payload)
		}
	}
}

func TestBridgeRotatesOfferingSessionsAfterCheck(t *testing.T) {
	hub, manager, tokens := newSessionFixture()
	dispatcher := events.NewInMemoryDispatcher()
	bridge := NewBridge(hub, manager, dispatcher, testPresenceConfig(), zap.NewNop())
	bridge.RegisterHandlers()

	principal := testPrincipal(domain.RoleGate)
	client := hub.Join(principal.Identity.ID)
	session := manager.Attach(client, principal)
	defer manager.Detach(session)

	first := refreshCorrelationID(t, tokens, waitEnvelope(t, client, time.Second))

	offering := *principal.Identity
	scanning := domain.Identity{ID: "user-1", Username: "alice", Role: domain.RoleUser}
	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventCheckCreated,
		Payload: events.CheckCreatedPayload{
			Check: domain.CheckEvent{
				ID:                 "check-1",
				OfferingIdentityID: offering.ID,
				ScanningIdentityID: scanning.ID,
				Type:               domain.CheckTypeEntry,
			},
			OfferingIdentity: offering,
			ScanningIdentity: scanning,
		},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	// credential.scanned, then checkin.created, then the rotated credential
	var rotated string
	for i := 0; i < 3; i++ {
		env := waitEnvelope(t, client, time.Second)
		if env.Event == EventCredentialRefresh {
			rotated = refreshCorrelationID(t, tokens, env)
		}
	}
	if rotated == "" {
		t.Fatal("no rotated credential after check delivery")
	}
	if rotated == first {
		t.Fatal("rotation reused the redeemed correlation id")
	}
}

func TestBridgeTimerResetRestartsSessions(t *testing.T) {
	hub, manager, tokens := newSessionFixture()
	dispatcher := events.NewInMemoryDispatcher()
	bridge := NewBridge(hub, manager, dispatcher, testPresenceConfig(), zap.NewNop())
	bridge.RegisterHandlers()

	principal := testPrincipal(domain.RoleGate)
	client := hub.Join(principal.Identity.ID)
	session := manager.Attach(client, principal)
	defer manager.Detach(session)

	refreshCorrelationID(t, tokens, waitEnvelope(t, client, time.Second))

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTimerReset,
		Payload: events.TimerResetPayload{IdentityID: principal.Identity.ID, IntervalSeconds: 1, Initial: true},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	refreshCorrelationID(t, tokens, waitEnvelope(t, client, time.Second))
}

func TestBridgeRejectsUnexpectedPayload(t *testing.T) {
	hub, manager, _ := newSessionFixture()
	dispatcher := events.NewInMemoryDispatcher()
	bridge := NewBridge(hub, manager, dispatcher, testPresenceConfig(), zap.NewNop())
	bridge.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventCheckCreated,
		Payload: "not-a-check",
	})
	if err == nil {
		t.Fatal("expected a payload type error")
	}
}
