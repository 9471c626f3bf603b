package realtime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/config"
	"github.com/spec-kit/checkin-service/internal/events"
)

// Bridge forwards persisted domain events to the rooms of the identities
// involved. Delivery is best effort: a persisted check record is never
// rolled back because a push failed.
type Bridge struct {
	hub        *Hub
	sessions   *SessionManager
	dispatcher events.Dispatcher
	cfg        config.PresenceConfig
	logger     *zap.Logger
}

// NewBridge builds the bridge.
func NewBridge(hub *Hub, sessions *SessionManager, dispatcher events.Dispatcher, cfg config.PresenceConfig, logger *zap.Logger) *Bridge {
	return &Bridge{
		hub:        hub,
		sessions:   sessions,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the domain events the realtime layer serves.
func (b *Bridge) RegisterHandlers() {
	if b.dispatcher == nil {
		return
	}
	b.dispatcher.Subscribe(events.EventCheckCreated, b.handleCheckCreated)
	b.dispatcher.Subscribe(events.EventTimerReset, b.handleTimerReset)
}

func (b *Bridge) handleCheckCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CheckCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}

	offeringID := payload.OfferingIdentity.ID
	scanningID := payload.ScanningIdentity.ID

	// the offering side learns who scanned it before the shared announcement
	b.hub.DirectTo(offeringID, EventCredentialScanned, SummarizeIdentity(payload.ScanningIdentity))

	b.hub.Broadcast([]string{offeringID, scanningID}, EventCheckinCreated, CheckinCreatedPayload{
		ID:               payload.Check.ID,
		Type:             payload.Check.Type,
		ScanTime:         payload.Check.ScanTime,
		OfferingIdentity: SummarizeIdentity(payload.OfferingIdentity),
		ScanningIdentity: SummarizeIdentity(payload.ScanningIdentity),
	})

	// rotate the just-redeemed credential early on every live device
	b.sessions.ResetFor(offeringID, b.cfg.RefreshInterval(), false)

	b.logger.Info("check delivered",
		zap.String("check_id", payload.Check.ID),
		zap.String("offering_identity_id", offeringID),
		zap.String("scanning_identity_id", scanningID))
	return nil
}

func (b *Bridge) handleTimerReset(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TimerResetPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	b.sessions.ResetFor(payload.IdentityID,
		time.Duration(payload.IntervalSeconds)*time.Second, payload.Initial)
	return nil
}
