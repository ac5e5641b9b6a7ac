// Package log is the notifier used when no mail relay is configured: it records what would
// have been sent.
package log

import (
	"context"

	domnotif "github.com/Zhima-Mochi/colleshop/internal/domain/notification"
	"github.com/Zhima-Mochi/colleshop/internal/observability"
	"github.com/Zhima-Mochi/colleshop/internal/observability/logctx"
)

type Notifier struct {
	log observability.Logger
}

func New(logger observability.Logger) *Notifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Notifier{log: logger.With(observability.F("component", "log_notifier"))}
}

func (n *Notifier) Send(ctx context.Context, msg domnotif.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	logctx.FromOr(ctx, n.log).Info("notification_logged",
		observability.F("to", msg.To),
		observability.F("subject", msg.Subject),
		observability.F("html_bytes", len(msg.HTML)),
	)
	return nil
}
