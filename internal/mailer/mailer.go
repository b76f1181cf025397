// Package mailer holds the outbound email collaborator. Delivery is an
// external service in production; the log mailer stands in for local and
// test environments.
package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer writes outbound mail to the log instead of sending it.
type LogMailer struct {
	logger *zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info().Str("to", to).Str("subject", subject).Msg("outbound email")
	return nil
}

// Noop discards outbound email entirely.
type Noop struct{}

func (Noop) Send(context.Context, string, string, string) error {
	return nil
}
