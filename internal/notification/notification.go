package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTPCode is a one-time code delivered out-of-band for step-up
	// authentication or account unfreeze.
	KindOTPCode = "otp_code"
	// KindAccountFrozen informs the holder their account was frozen.
	KindAccountFrozen = "account_frozen"
)

// Message describes a notification payload. The delivery channel (SMS,
// email, push) is an implementation concern of the Notifier.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. It stands in
// for a real delivery channel in development; OTP message bodies are
// redacted so codes never reach the log.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	body := message.Body
	if message.Kind == KindOTPCode {
		body = "[redacted]"
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", body)
	return nil
}
