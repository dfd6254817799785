package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Telegram sends alerts through the Bot API sendMessage method.
type Telegram struct {
	client *resty.Client
	token  string
	chatID int64
	logger *logrus.Entry
}

var _ Notifier = (*Telegram)(nil)

type telegramResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram creates a Telegram notifier against apiURL
// (normally https://api.telegram.org).
func NewTelegram(apiURL, token string, chatID int64, logger *logrus.Entry) *Telegram {
	cli := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(time.Second)

	return &Telegram{
		client: cli,
		token:  token,
		chatID: chatID,
		logger: logger.WithField("notifier", "telegram"),
	}
}

func (t *Telegram) Notify(ctx context.Context, title, content string) error {
	rtn := &telegramResp{}
	resp, err := t.client.R().
		SetContext(ctx).
		SetResult(rtn).
		SetError(rtn).
		SetBody(map[string]any{
			"chat_id": t.chatID,
			"text":    fmt.Sprintf("#dyndns\n%s\n%s", title, content),
		}).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("[telegram] send failed: %w", err)
	}
	if resp.IsError() || !rtn.OK {
		return fmt.Errorf("[telegram] %s: %s", resp.Status(), rtn.Description)
	}

	t.logger.WithField("title", title).Debug("alert sent")
	return nil
}
