package notifications

import (
	"context"
	"sync"
	"time"

	"apimon/internal/core"
	"apimon/internal/features/monitor/handlers"
)

const resubscribeDelay = time.Second

// Feature mails outage and recovery alerts
type Feature struct {
	*core.BaseFeature
	source   handlers.EventSource
	notifier *Notifier
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewFeature creates the notifications feature. It subscribes to source on
// Init so mail delivery never holds up the engine.
func NewFeature(logger *core.Logger, source handlers.EventSource, sender Sender, config core.NotificationsConfig) *Feature {
	base := core.NewBaseFeature("notifications", "Email alerts for outages and recoveries", config.Enabled, logger)
	return &Feature{
		BaseFeature: base,
		source:      source,
		notifier:    NewNotifier(sender, config.AlertRecipient, base.Logger().Logger),
	}
}

// Init starts the notifier
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	f.wg.Add(1)
	go f.run(runCtx)

	f.Logger().Info("Notifications feature initialized")
	return nil
}

// run keeps the notifier subscribed. The hub drops a subscriber that falls
// behind, so a slow mail provider costs events rather than stalling checks.
func (f *Feature) run(ctx context.Context) {
	defer f.wg.Done()

	for {
		sub := f.source.Subscribe()
		f.notifier.Run(ctx, sub.Events())
		f.source.Unsubscribe(sub)

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
			f.Logger().Warn("Notifier lost its subscription, resubscribing")
		}
	}
}

// Shutdown stops the notifier and waits for any send in progress
func (f *Feature) Shutdown(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
		f.wg.Wait()
	}
	return f.BaseFeature.Shutdown(ctx)
}
