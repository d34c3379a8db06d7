package notifications

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"apimon/internal/features/monitor/models"
)

// Sender delivers a templated message
type Sender interface {
	Send(ctx context.Context, recipient, templateFile string, data any) error
}

// AlertEmail is the data rendered by the alert template
type AlertEmail struct {
	Alert         models.Alert
	SeverityLabel string
}

// Notifier mails alerts read from an event stream
type Notifier struct {
	sender      Sender
	recipient   string
	sendTimeout time.Duration
	logger      *slog.Logger
}

// NewNotifier creates a notifier mailing recipient
func NewNotifier(sender Sender, recipient string, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:      sender,
		recipient:   recipient,
		sendTimeout: 30 * time.Second,
		logger:      logger,
	}
}

// ShouldNotify reports whether an alert is worth an email: outages and
// recoveries are, slow responses and error rate warnings are not
func ShouldNotify(alert models.Alert) bool {
	return alert.Severity == models.SeverityCritical || alert.Kind == models.AlertRecovered
}

// Run consumes events until the channel closes or ctx is done
func (n *Notifier) Run(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			alert, isAlert := event.Payload.(models.Alert)
			if event.Type != models.EventAlert || !isAlert || !ShouldNotify(alert) {
				continue
			}
			n.notify(ctx, alert)
		}
	}
}

func (n *Notifier) notify(ctx context.Context, alert models.Alert) {
	ctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()

	data := AlertEmail{
		Alert:         alert,
		SeverityLabel: strings.ToUpper(string(alert.Severity)),
	}
	if err := n.sender.Send(ctx, n.recipient, "alert.tmpl", data); err != nil {
		n.logger.Error("Failed to send alert email", "endpoint_id", alert.EndpointID, "kind", alert.Kind, "error", err)
		return
	}
	n.logger.Info("Alert email sent", "endpoint_id", alert.EndpointID, "kind", alert.Kind)
}
