package identity

import (
	"context"
	"fmt"
)

// logNotifier is the default Notifier. It only prints delivery intents;
// real transports (SMTP, queues) implement Notifier and plug in.
type logNotifier struct {
	baseURL string
	logger  Logger
}

// NewLogNotifier returns a Notifier that logs verification and reset
// links instead of delivering them.
func NewLogNotifier(baseURL string, logger Logger) Notifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &logNotifier{baseURL: baseURL, logger: logger}
}

func (n *logNotifier) SendVerification(ctx context.Context, account *Account, secret string) error {
	n.logger.Info("sending verification email to=%s link=%s", account.Email,
		fmt.Sprintf("%s/verify/%s/%s", n.baseURL, account.ID.String(), secret))
	return nil
}

func (n *logNotifier) SendPasswordReset(ctx context.Context, account *Account, secret string) error {
	n.logger.Info("sending password reset email to=%s link=%s", account.Email,
		fmt.Sprintf("%s/reset-password/%s/%s", n.baseURL, account.ID.String(), secret))
	return nil
}

func normalizeNotifier(n Notifier, baseURL string, logger Logger) Notifier {
	if n == nil {
		return NewLogNotifier(baseURL, logger)
	}
	return n
}
