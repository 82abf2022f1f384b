package testutil

import (
	"context"
	"sync"
	"time"

	"staybook/internal/notify"
	"staybook/pkg/config"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

var _ notify.Dispatcher = (*Dispatcher)(nil)

// Dispatcher records every side effect it is handed.
type Dispatcher struct {
	mu            sync.Mutex
	notifications []model.Notification
	audits        []model.AuditEntry
	confirmations []notify.ConfirmationMessage
	cancellations []notify.CancellationMessage
	events        []notify.Event

	// CancellationDelay blocks each cancellation send until it elapses or the
	// send context expires. The send context is derived the way notify.Sink
	// derives it: caller cancellation is ignored, the caller's deadline is not.
	CancellationDelay time.Duration
}

func (d *Dispatcher) Notify(_ context.Context, n model.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, n)
}

func (d *Dispatcher) Record(_ context.Context, entry model.AuditEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audits = append(d.audits, entry)
}

func (d *Dispatcher) SendBookingConfirmation(_ context.Context, msg notify.ConfirmationMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmations = append(d.confirmations, msg)
}

func (d *Dispatcher) SendBookingCancellation(ctx context.Context, msg notify.CancellationMessage) {
	if d.CancellationDelay > 0 {
		ctx, cancel := notify.Detach(ctx, config.DefaultNotificationTimeout)
		defer cancel()
		select {
		case <-time.After(d.CancellationDelay):
		case <-ctx.Done():
			return
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancellations = append(d.cancellations, msg)
}

func (d *Dispatcher) Publish(_ context.Context, event notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *Dispatcher) Notifications() []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Notification(nil), d.notifications...)
}

func (d *Dispatcher) Audits() []model.AuditEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.AuditEntry(nil), d.audits...)
}

func (d *Dispatcher) Confirmations() []notify.ConfirmationMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.ConfirmationMessage(nil), d.confirmations...)
}

func (d *Dispatcher) Cancellations() []notify.CancellationMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.CancellationMessage(nil), d.cancellations...)
}

// Events returns the published events, optionally only those of one type.
func (d *Dispatcher) Events(eventType string) []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Event
	for _, e := range d.events {
		if eventType == "" || e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Config returns a configuration with production defaults and a silent logger.
func Config() *config.Config {
	return &config.Config{
		ReadTimeout:              config.DefaultReadTimeout,
		WriteTimeout:             config.DefaultWriteTimeout,
		RequestTimeout:           config.DefaultRequestTimeout,
		WebhookProcessingTimeout: config.DefaultWebhookProcessingTimeout,
		ReaperItemTimeout:        config.DefaultReaperItemTimeout,
		ReaperBatchSize:          config.DefaultReaperBatchSize,
		StaleBookingAfter:        config.DefaultStaleBookingAfter,
		ClaimWindow:              config.DefaultClaimWindow,
		OrphanSearchLimit:        config.DefaultOrphanSearchLimit,
		NotificationTimeout:      config.DefaultNotificationTimeout,
		StatusCacheTTL:           config.DefaultStatusCacheTTL,
		PublicBaseURL:            config.DefaultPublicBaseURL,
		Log:                      logger.Discard(),
	}
}
