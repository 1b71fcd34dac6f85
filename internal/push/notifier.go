// Package push formats a run report and delivers it to the configured
// notification channels. Channels are independent: one failing delivery
// never blocks or fails another, and failures are reported back to the
// caller instead of raised.
package push

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/config"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Channel is one delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

// Delivery is the per-channel outcome of one notification round.
type Delivery struct {
	Channel string `json:"channel"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

type Notifier struct {
	cfg      config.PushConfig
	channels []Channel
	logger   *zap.Logger
}

// NewNotifier builds a notifier with one channel per configured service.
// Services whose required fields are absent are not registered at all.
func NewNotifier(cfg config.PushConfig, timeout time.Duration, logger *zap.Logger) *Notifier {
	client := &http.Client{Timeout: timeout}

	var channels []Channel
	if cfg.Telegram.ApiURL != "" && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		channels = append(channels, &telegramChannel{cfg: cfg.Telegram, http: client})
	}
	if cfg.DingTalk.Webhook != "" {
		channels = append(channels, &dingTalkChannel{cfg: cfg.DingTalk, http: client})
	}
	if cfg.Feishu.Webhook != "" {
		channels = append(channels, &feishuChannel{cfg: cfg.Feishu, http: client})
	}
	if cfg.Bark.ApiURL != "" && cfg.Bark.Token != "" {
		channels = append(channels, &barkChannel{cfg: cfg.Bark, http: client})
	}
	if cfg.Gotify.ApiURL != "" && cfg.Gotify.Token != "" {
		channels = append(channels, &gotifyChannel{cfg: cfg.Gotify, http: client})
	}
	if cfg.Webhook.URL != "" {
		channels = append(channels, &webhookChannel{cfg: cfg.Webhook, http: client})
	}

	return &Notifier{cfg: cfg, channels: channels, logger: logger}
}

// Notify formats the report and attempts delivery on every channel. The
// returned slice has one entry per attempted channel.
func (n *Notifier) Notify(ctx context.Context, report *taskstypes.Report) []Delivery {
	if !n.cfg.Enable {
		n.logger.Info("push disabled, skipping notification")
		return nil
	}
	if n.cfg.ErrorPushOnly && report.Summary.Failed == 0 {
		n.logger.Info("error-only push and no failures, skipping notification")
		return nil
	}
	if len(n.channels) == 0 {
		n.logger.Info("no push channels configured")
		return nil
	}

	title := Title(report)
	message := n.mask(Format(report))

	deliveries := make([]Delivery, 0, len(n.channels))
	for _, ch := range n.channels {
		err := ch.Send(ctx, title, message)
		if err != nil {
			n.logger.Warn("push delivery failed",
				zap.String("channel", ch.Name()),
				zap.Error(err),
			)
			deliveries = append(deliveries, Delivery{Channel: ch.Name(), Error: err.Error()})
			continue
		}
		n.logger.Info("push delivered", zap.String("channel", ch.Name()))
		deliveries = append(deliveries, Delivery{Channel: ch.Name(), OK: true})
	}
	return deliveries
}

// mask blanks configured block keys (tokens, uids) out of the message so
// they never reach a third-party push service.
func (n *Notifier) mask(message string) string {
	for _, key := range n.cfg.BlockKeys {
		if key == "" {
			continue
		}
		message = strings.ReplaceAll(message, key, strings.Repeat("*", len(key)))
	}
	return message
}
