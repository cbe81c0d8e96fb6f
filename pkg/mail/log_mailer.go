package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/cultach/cultach-api/pkg/logger"
)

type logMailer struct{}

// NewLogMailer returns a Mailer that writes messages to the application log
// instead of delivering them. Intended for development setups without SMTP.
func NewLogMailer() Mailer {
	return logMailer{}
}

func (logMailer) Send(_ context.Context, msg Message) error {
	logger.WithModule("mail").Info("outbound email (delivery disabled)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
