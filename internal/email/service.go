package email

import (
	"context"
)

// Notifier delivers the non-fatal balance warnings the back office wants
// to see when a prepaid credit runs out.
type Notifier interface {
	NotifyBalanceExhausted(ctx context.Context, balanceKind, holderName string) error
}

// NoopNotifier discards notifications. Used when SMTP is not configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyBalanceExhausted(_ context.Context, _, _ string) error {
	return nil
}
