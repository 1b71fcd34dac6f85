package games

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

const userAgentMobile = "Mozilla/5.0 (iPhone; CPU iPhone OS 15_4 like Mac OS X) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) miHoYoBBS/" + appVersion

// Client is the shared outbound HTTP layer for every game API. One cookie jar
// per process is enough: per-request Cookie headers carry the account
// credentials, the jar only keeps transient server-set cookies.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

func NewClient(timeout time.Duration, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		http:   &http.Client{Timeout: timeout, Jar: jar},
		logger: logger,
	}, nil
}

// envelope is the common response wrapper of the bbs and takumi APIs.
type envelope struct {
	Retcode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do sends one JSON API call with the account's credentials and the DS
// header attached, classifying transport and HTTP-level failures. body may
// be nil for GET-shaped calls.
func (c *Client) Do(ctx context.Context, method, url string, acct *taskstypes.Account, body interface{}, sol *taskstypes.Solution) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "encoding request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "building request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("User-Agent", userAgentMobile)
	req.Header.Set("Cookie", acct.Cookie)
	req.Header.Set("DS", generateDS(acct.Platform))
	req.Header.Set("x-rpc-app_version", appVersion)
	req.Header.Set("x-rpc-client_type", "5")
	req.Header.Set("x-rpc-device_id", acct.DeviceID)
	if sol != nil {
		// Retried call after a solved challenge: the tokens ride as headers.
		req.Header.Set("x-rpc-validate", sol.Validate)
		req.Header.Set("x-rpc-seccode", sol.Seccode)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrNetwork, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, taskstypes.NewAPIError(taskstypes.ErrRateLimited, "HTTP 429 from %s", url)
	}
	if resp.StatusCode >= 500 {
		return nil, taskstypes.NewAPIError(taskstypes.ErrNetwork, "server error %s from %s", resp.Status, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "unexpected status %s from %s", resp.Status, url)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "decoding response: %v", err)
	}
	return &env, nil
}

// Platform retcodes with a known meaning. Everything else is unknown.
const (
	retOK            = 0
	retAlreadySigned = -5003
	retNeedVerify    = 1034
	retLoginExpired  = -100
	retTokenInvalid  = 10001
	retTooFrequent   = 10101
)

// classify maps a non-OK envelope to the error taxonomy. verification
// challenges carry their payload when the response includes one.
func classify(env *envelope) error {
	switch env.Retcode {
	case retNeedVerify:
		ch := extractChallenge(env.Data)
		if ch != nil {
			return taskstypes.NewVerificationError(ch)
		}
		return taskstypes.NewAPIError(taskstypes.ErrVerificationRequired, "verification required, no challenge payload: %s", env.Message)
	case retLoginExpired, retTokenInvalid:
		return taskstypes.NewAPIError(taskstypes.ErrAuth, "login expired: %s", env.Message)
	case retTooFrequent:
		return taskstypes.NewAPIError(taskstypes.ErrRateLimited, "too frequent: %s", env.Message)
	default:
		return taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "retcode %d: %s", env.Retcode, env.Message)
	}
}

func extractChallenge(data json.RawMessage) *taskstypes.Challenge {
	if len(data) == 0 {
		return nil
	}
	var payload struct {
		GT        string `json:"gt"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	if payload.GT == "" || payload.Challenge == "" {
		return nil
	}
	return &taskstypes.Challenge{GT: payload.GT, Challenge: payload.Challenge}
}
