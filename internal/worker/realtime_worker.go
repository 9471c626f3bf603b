package worker

import (
	"github.com/spec-kit/checkin-service/internal/realtime"
)

// StartRealtimeWorker registers the realtime delivery handlers.
func StartRealtimeWorker(bridge *realtime.Bridge) {
	if bridge == nil {
		return
	}
	bridge.RegisterHandlers()
}
