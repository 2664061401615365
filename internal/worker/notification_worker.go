package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/realtime"
	"github.com/spec-kit/repairdesk/internal/service"
)

const (
	relayInitialBackoff = time.Second
	relayMaxBackoff     = 30 * time.Second
)

// Relay is a cross-process event feed that blocks until ctx ends or the feed breaks.
type Relay interface {
	Run(ctx context.Context, deliver func(realtime.Envelope)) error
}

// StartNotificationWorker registers the handlers that forward domain events to realtime
// subscribers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// RunRelay keeps relay subscribed until ctx is done, restarting it with exponential
// backoff whenever the subscription drops.
func RunRelay(ctx context.Context, relay Relay, deliver func(realtime.Envelope), logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backoff := relayInitialBackoff
	for {
		started := time.Now()
		err := relay.Run(ctx, deliver)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > relayMaxBackoff {
			backoff = relayInitialBackoff
		}
		logger.Warn("realtime relay interrupted", zap.Error(err), zap.Duration("retry_in", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff *= 2
		if backoff > relayMaxBackoff {
			backoff = relayMaxBackoff
		}
	}
}
