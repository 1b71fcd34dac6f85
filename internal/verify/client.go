// Package verify adapts a third-party geetest solving service. The backend
// URL, extra query parameters and JSON body are opaque configuration; the
// only interpretation applied is substituting the {gt} and {challenge}
// placeholders of the body template.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/config"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

type Client struct {
	cfg    config.GeetestConfig
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg config.GeetestConfig, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// solverResponse is the conventional response shape of geetest solving
// services: the token pair sits under a "data" object.
type solverResponse struct {
	Data struct {
		Validate string `json:"validate"`
		Seccode  string `json:"seccode"`
	} `json:"data"`
}

// Solve sends the challenge to the configured backend and returns the
// solved token pair. It fails with VerificationUnavailable when the backend
// is missing or unreachable, and VerificationRejected when the backend
// answers without a solution.
func (c *Client) Solve(ctx context.Context, ch *taskstypes.Challenge) (*taskstypes.Solution, error) {
	if c.cfg.URL == "" {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "no solver backend configured")
	}
	if ch == nil || ch.GT == "" || ch.Challenge == "" {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationRejected, "challenge payload is incomplete")
	}

	reqURL, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "invalid solver URL: %v", err)
	}
	query := reqURL.Query()
	query.Set("gt", ch.GT)
	query.Set("challenge", ch.Challenge)
	for key, value := range c.cfg.Params {
		query.Set(key, value)
	}
	reqURL.RawQuery = query.Encode()

	body := make(map[string]string, len(c.cfg.Body))
	for key, value := range c.cfg.Body {
		value = strings.ReplaceAll(value, "{gt}", ch.GT)
		value = strings.ReplaceAll(value, "{challenge}", ch.Challenge)
		body[key] = value
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "encoding solver request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "building solver request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("solver backend unreachable", zap.Error(err))
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "solver request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "solver returned status %s", resp.Status)
	}

	var solved solverResponse
	if err := json.NewDecoder(resp.Body).Decode(&solved); err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationRejected, "decoding solver response: %v", err)
	}
	if solved.Data.Validate == "" {
		return nil, taskstypes.NewAPIError(taskstypes.ErrVerificationRejected, "solver answered without a validate token")
	}

	seccode := solved.Data.Seccode
	if seccode == "" {
		// Convention of the upstream services: seccode derives from validate.
		seccode = solved.Data.Validate + "|jordan"
	}

	c.logger.Debug("challenge solved",
		zap.String("task_id", ch.TaskID.String()),
	)
	return &taskstypes.Solution{Validate: solved.Data.Validate, Seccode: seccode}, nil
}
