package mail

import (
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/pkg/config"
)

// NewSender selects SMTP when a host is configured and the logging transport otherwise.
func NewSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg)
}
