package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/config"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

func testChallenge() *taskstypes.Challenge {
	return &taskstypes.Challenge{
		TaskID:    uuid.New(),
		GT:        "gt-token",
		Challenge: "challenge-token",
	}
}

func newTestClient(url string, cfg config.GeetestConfig) *Client {
	cfg.URL = url
	return NewClient(cfg, 5*time.Second, zap.NewNop())
}

func TestSolve_Success(t *testing.T) {
	var gotQuery map[string]string
	var gotBody map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"gt":        r.URL.Query().Get("gt"),
			"challenge": r.URL.Query().Get("challenge"),
			"token":     r.URL.Query().Get("token"),
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"validate":"v-token","seccode":"s-token"}}`))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL, config.GeetestConfig{
		Params: map[string]string{"token": "api-key"},
		Body:   map[string]string{"gt": "{gt}", "challenge": "{challenge}"},
	})

	sol, err := client.Solve(context.Background(), testChallenge())
	require.NoError(t, err)
	assert.Equal(t, "v-token", sol.Validate)
	assert.Equal(t, "s-token", sol.Seccode)

	assert.Equal(t, "gt-token", gotQuery["gt"])
	assert.Equal(t, "challenge-token", gotQuery["challenge"])
	assert.Equal(t, "api-key", gotQuery["token"])
	assert.Equal(t, "gt-token", gotBody["gt"])
	assert.Equal(t, "challenge-token", gotBody["challenge"])
}

func TestSolve_SeccodeFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"validate":"v-token"}}`))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL, config.GeetestConfig{})

	sol, err := client.Solve(context.Background(), testChallenge())
	require.NoError(t, err)
	assert.Equal(t, "v-token|jordan", sol.Seccode)
}

func TestSolve_NoBackendConfigured(t *testing.T) {
	client := NewClient(config.GeetestConfig{}, time.Second, zap.NewNop())

	_, err := client.Solve(context.Background(), testChallenge())
	require.Error(t, err)
	assert.Equal(t, taskstypes.ErrVerificationUnavailable, taskstypes.KindOf(err))
}

func TestSolve_IncompleteChallenge(t *testing.T) {
	client := newTestClient("http://localhost:1", config.GeetestConfig{})

	_, err := client.Solve(context.Background(), &taskstypes.Challenge{GT: "gt-only"})
	require.Error(t, err)
	assert.Equal(t, taskstypes.ErrVerificationRejected, taskstypes.KindOf(err))
}

func TestSolve_BackendError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL, config.GeetestConfig{})

	_, err := client.Solve(context.Background(), testChallenge())
	require.Error(t, err)
	assert.Equal(t, taskstypes.ErrVerificationUnavailable, taskstypes.KindOf(err))
}

func TestSolve_EmptyValidate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"validate":""}}`))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL, config.GeetestConfig{})

	_, err := client.Solve(context.Background(), testChallenge())
	require.Error(t, err)
	assert.Equal(t, taskstypes.ErrVerificationRejected, taskstypes.KindOf(err))
}
