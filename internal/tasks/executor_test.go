package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/games"
	"github.com/copyleftdev/hoyosign/internal/retry"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
	"github.com/copyleftdev/hoyosign/internal/tasks/mocks"
)

func testAccount() *taskstypes.Account {
	return &taskstypes.Account{
		ID:     "acct-1",
		Cookie: "cookie",
		Games:  []taskstypes.GameID{taskstypes.GameGenshin},
		Kinds:  []taskstypes.TaskKind{taskstypes.KindSignIn},
	}
}

func newTestExecutor(api *mocks.MockGameAPI, verifier *mocks.MockVerifier, policy retry.Policy) *Executor {
	registry := games.NewRegistry()
	if api != nil {
		registry.Register(api)
	}
	return NewExecutor(registry, verifier, policy, zap.NewNop())
}

func TestExecutorRun_Success(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, taskstypes.StatusCompleted, task.Status)
	assert.Equal(t, 1, api.CallsFor(taskstypes.KindSignIn))
}

func TestExecutorRun_AlreadyDoneNoRetry(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeAlreadyDone, nil)
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeAlreadyDone, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
}

func TestExecutorRun_UnregisteredGameSkipped(t *testing.T) {
	exec := newTestExecutor(nil, mocks.NewMockVerifier(), retry.Policy{})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameStarRail, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeSkipped, res.Outcome)
	assert.Zero(t, res.Attempts)
}

func TestExecutorRun_NetworkErrorExhaustsBudget(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.ScriptN(taskstypes.KindSignIn, 4, taskstypes.OutcomeFailed,
		taskstypes.NewAPIError(taskstypes.ErrNetwork, "connection reset"))
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3, Cooldown: time.Millisecond})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeFailed, res.Outcome)
	assert.Equal(t, taskstypes.ErrNetwork, res.ErrorKind)
	// MaxRetries retries after the first attempt.
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 4, api.CallsFor(taskstypes.KindSignIn))
}

func TestExecutorRun_NetworkErrorRecovers(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeFailed,
		taskstypes.NewAPIError(taskstypes.ErrRateLimited, "too frequent"))
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeSuccess, nil)
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3, Cooldown: time.Millisecond})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
}

func TestExecutorRun_AuthErrorTerminal(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeFailed,
		taskstypes.NewAPIError(taskstypes.ErrAuth, "login expired"))
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3, Cooldown: time.Millisecond})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeFailed, res.Outcome)
	assert.Equal(t, taskstypes.ErrAuth, res.ErrorKind)
	assert.Equal(t, 1, api.CallsFor(taskstypes.KindSignIn))
}

func TestExecutorRun_VerificationSolvedThenSuccess(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeFailed,
		taskstypes.NewVerificationError(&taskstypes.Challenge{GT: "gt", Challenge: "ch"}))
	verifier := mocks.NewMockVerifier()
	exec := newTestExecutor(api, verifier, retry.Policy{MaxRetries: 3})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	require.Equal(t, taskstypes.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, verifier.SolveCount())

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.False(t, calls[0].HasSolution)
	assert.True(t, calls[1].HasSolution)
}

func TestExecutorRun_VerificationRetryFailsTerminal(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeFailed,
		taskstypes.NewVerificationError(&taskstypes.Challenge{GT: "gt", Challenge: "ch"}))
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeFailed,
		taskstypes.NewAPIError(taskstypes.ErrNetwork, "connection reset"))
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3, Cooldown: time.Millisecond})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	// The retried call after a solve is terminal either way, even for an
	// otherwise retryable error kind.
	assert.Equal(t, taskstypes.OutcomeFailed, res.Outcome)
	assert.Equal(t, taskstypes.ErrNetwork, res.ErrorKind)
	assert.Equal(t, 2, api.CallsFor(taskstypes.KindSignIn))
}

func TestExecutorRun_SecondChallengeTerminal(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.ScriptN(taskstypes.KindSignIn, 2, taskstypes.OutcomeFailed,
		taskstypes.NewVerificationError(&taskstypes.Challenge{GT: "gt", Challenge: "ch"}))
	verifier := mocks.NewMockVerifier()
	exec := newTestExecutor(api, verifier, retry.Policy{MaxRetries: 3})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeFailed, res.Outcome)
	assert.Equal(t, taskstypes.ErrVerificationRequired, res.ErrorKind)
	assert.Equal(t, 1, verifier.SolveCount())
}

func TestExecutorRun_SolverUnavailableTerminal(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	api.Script(taskstypes.KindSignIn, taskstypes.OutcomeFailed,
		taskstypes.NewVerificationError(&taskstypes.Challenge{GT: "gt", Challenge: "ch"}))
	verifier := mocks.NewMockVerifier()
	verifier.SetSolution(nil, taskstypes.NewAPIError(taskstypes.ErrVerificationUnavailable, "no solver backend configured"))
	exec := newTestExecutor(api, verifier, retry.Policy{MaxRetries: 3})

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(context.Background(), task)

	assert.Equal(t, taskstypes.OutcomeFailed, res.Outcome)
	assert.Equal(t, taskstypes.ErrVerificationUnavailable, res.ErrorKind)
	assert.Equal(t, 1, api.CallsFor(taskstypes.KindSignIn))
}

func TestExecutorRun_CancelledBeforeFirstCall(t *testing.T) {
	api := mocks.NewMockGameAPI(taskstypes.GameGenshin)
	exec := newTestExecutor(api, mocks.NewMockVerifier(), retry.Policy{MaxRetries: 3})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := taskstypes.NewTask(testAccount(), taskstypes.GameGenshin, taskstypes.KindSignIn)
	res := exec.Run(ctx, task)

	assert.Equal(t, taskstypes.OutcomeSkipped, res.Outcome)
	assert.Zero(t, api.CallsFor(taskstypes.KindSignIn))
}
