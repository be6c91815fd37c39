package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a logging transport.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message headers and body size.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if _, err := newMsg(msg); err != nil {
		return err
	}
	s.logger.Info("mail (log transport)",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Text)),
	)
	return nil
}
