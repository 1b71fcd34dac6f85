package push

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/copyleftdev/hoyosign/internal/config"
)

func postJSON(ctx context.Context, client *http.Client, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

type telegramChannel struct {
	cfg  config.TelegramConfig
	http *http.Client
}

func (c *telegramChannel) Name() string { return "telegram" }

func (c *telegramChannel) Send(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("https://%s/bot%s/sendMessage", c.cfg.ApiURL, c.cfg.BotToken)
	form := url.Values{
		"chat_id": {c.cfg.ChatID},
		"text":    {title + "\n\n" + message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

type dingTalkChannel struct {
	cfg  config.DingTalkConfig
	http *http.Client
}

func (c *dingTalkChannel) Name() string { return "dingtalk" }

func (c *dingTalkChannel) Send(ctx context.Context, title, message string) error {
	endpoint := c.cfg.Webhook
	if c.cfg.Secret != "" {
		// Signed webhooks require timestamp+secret HMAC in the query.
		timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
		mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
		mac.Write([]byte(timestamp + "\n" + c.cfg.Secret))
		sign := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
		endpoint = fmt.Sprintf("%s&timestamp=%s&sign=%s", endpoint, timestamp, sign)
	}

	return postJSON(ctx, c.http, endpoint, map[string]interface{}{
		"msgtype": "text",
		"text":    map[string]string{"content": title + "\n\n" + message},
	})
}

type feishuChannel struct {
	cfg  config.FeishuConfig
	http *http.Client
}

func (c *feishuChannel) Name() string { return "feishu" }

func (c *feishuChannel) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, c.http, c.cfg.Webhook, map[string]interface{}{
		"msg_type": "text",
		"content":  map[string]string{"text": title + "\n\n" + message},
	})
}

type barkChannel struct {
	cfg  config.BarkConfig
	http *http.Client
}

func (c *barkChannel) Name() string { return "bark" }

func (c *barkChannel) Send(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(c.cfg.ApiURL, "/"),
		c.cfg.Token,
		url.PathEscape(title),
		url.PathEscape(message),
	)
	if c.cfg.Icon != "" {
		endpoint += "?icon=" + url.QueryEscape(c.cfg.Icon)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

type gotifyChannel struct {
	cfg  config.GotifyConfig
	http *http.Client
}

func (c *gotifyChannel) Name() string { return "gotify" }

func (c *gotifyChannel) Send(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("%s/message?token=%s", strings.TrimRight(c.cfg.ApiURL, "/"), c.cfg.Token)
	return postJSON(ctx, c.http, endpoint, map[string]interface{}{
		"title":    title,
		"message":  message,
		"priority": c.cfg.Priority,
	})
}

type webhookChannel struct {
	cfg  config.WebhookConfig
	http *http.Client
}

func (c *webhookChannel) Name() string { return "webhook" }

func (c *webhookChannel) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, c.http, c.cfg.URL, map[string]string{
		"title":   title,
		"message": message,
	})
}
