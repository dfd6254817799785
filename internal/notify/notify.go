// Package notify alerts operators about conditions that need manual repair.
package notify

import (
	"context"

	"github.com/bcnelson/dyndns/internal/config"
	"github.com/sirupsen/logrus"
)

// Notifier delivers an operator alert.
type Notifier interface {
	Notify(ctx context.Context, title, content string) error
}

// New returns a Telegram notifier when one is configured, Nop otherwise.
func New(cfg config.NotifyConfig, logger *logrus.Entry) Notifier {
	if !cfg.TelegramEnabled() {
		return Nop{}
	}
	return NewTelegram(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramChatID, logger)
}

// Nop discards alerts.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }
