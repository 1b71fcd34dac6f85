package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/games"
	"github.com/copyleftdev/hoyosign/internal/retry"
	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Verifier solves a human-verification challenge. This decouples the
// executor from the concrete solver client.
type Verifier interface {
	Solve(ctx context.Context, ch *taskstypes.Challenge) (*taskstypes.Solution, error)
}

// Executor drives one task to its terminal result: it calls the game API,
// classifies failures, consults the retry policy, and runs the single
// solve-and-retry verification cycle a task is allowed.
type Executor struct {
	registry *games.Registry
	verifier Verifier
	policy   retry.Policy
	logger   *zap.Logger
}

func NewExecutor(registry *games.Registry, verifier Verifier, policy retry.Policy, logger *zap.Logger) *Executor {
	return &Executor{
		registry: registry,
		verifier: verifier,
		policy:   policy,
		logger:   logger,
	}
}

// Run executes the task until it is terminal. It always returns a result;
// every error is absorbed into the result's classification.
func (e *Executor) Run(ctx context.Context, task *taskstypes.Task) taskstypes.TaskResult {
	task.Status = taskstypes.StatusRunning
	logger := e.logger.With(
		zap.String("task_id", task.ID.String()),
		zap.String("account", task.Account.ID),
		zap.String("game", string(task.Game)),
		zap.String("kind", string(task.Kind)),
	)

	api, err := e.registry.Get(task.Game)
	if err != nil {
		logger.Warn("skipping task for unregistered game")
		return e.finish(task, taskstypes.OutcomeSkipped, "", "no API for game "+string(task.Game))
	}

	verificationUsed := false
	for {
		if err := ctx.Err(); err != nil {
			return e.finish(task, taskstypes.OutcomeSkipped, "", "run cancelled before execution")
		}

		task.Attempts++
		outcome, err := e.call(ctx, api, task, nil)
		if err == nil {
			logger.Info("task finished", zap.String("outcome", string(outcome)))
			return e.finish(task, outcome, "", "")
		}

		kind := taskstypes.KindOf(err)
		if kind == taskstypes.ErrVerificationRequired {
			if verificationUsed {
				logger.Warn("second verification challenge, giving up")
				return e.finish(task, taskstypes.OutcomeFailed, kind, "verification challenged twice")
			}
			verificationUsed = true
			return e.solveAndRetry(ctx, api, task, err, logger)
		}

		decision := e.policy.Decide(kind, task.Attempts)
		if !decision.Retry {
			logger.Warn("task failed",
				zap.String("error_kind", string(kind)),
				zap.Int("attempts", task.Attempts),
				zap.Error(err),
			)
			return e.finish(task, taskstypes.OutcomeFailed, kind, err.Error())
		}

		logger.Debug("retrying after cooldown",
			zap.String("error_kind", string(kind)),
			zap.Int("attempt", task.Attempts),
			zap.Duration("delay", decision.Delay),
		)
		if err := sleepCtx(ctx, decision.Delay); err != nil {
			return e.finish(task, taskstypes.OutcomeFailed, kind, "run cancelled during retry delay")
		}
	}
}

// solveAndRetry runs the one verification cycle a task gets: solve the
// challenge, then repeat the original call once with the solution attached.
// Whatever that retried call does, the task is terminal afterwards.
func (e *Executor) solveAndRetry(ctx context.Context, api games.API, task *taskstypes.Task, cause error, logger *zap.Logger) taskstypes.TaskResult {
	ch := taskstypes.ChallengeOf(cause)
	if ch == nil {
		return e.finish(task, taskstypes.OutcomeFailed, taskstypes.ErrVerificationRequired, "challenge payload missing from response")
	}
	ch.TaskID = task.ID

	logger.Info("verification challenged, delegating to solver")
	sol, err := e.verifier.Solve(ctx, ch)
	if err != nil {
		kind := taskstypes.KindOf(err)
		logger.Warn("solver failed", zap.String("error_kind", string(kind)), zap.Error(err))
		return e.finish(task, taskstypes.OutcomeFailed, kind, err.Error())
	}

	task.Attempts++
	outcome, err := e.call(ctx, api, task, sol)
	if err != nil {
		kind := taskstypes.KindOf(err)
		logger.Warn("retried call failed after solve", zap.String("error_kind", string(kind)))
		return e.finish(task, taskstypes.OutcomeFailed, kind, err.Error())
	}

	logger.Info("task finished after verification", zap.String("outcome", string(outcome)))
	return e.finish(task, outcome, "", "")
}

func (e *Executor) call(ctx context.Context, api games.API, task *taskstypes.Task, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	if task.Kind == taskstypes.KindSignIn {
		return api.SignIn(ctx, task.Account, sol)
	}
	return api.Mission(ctx, task.Account, task.Kind, sol)
}

func (e *Executor) finish(task *taskstypes.Task, outcome taskstypes.Outcome, kind taskstypes.ErrorKind, detail string) taskstypes.TaskResult {
	if outcome == taskstypes.OutcomeFailed {
		task.Status = taskstypes.StatusFailed
	} else {
		task.Status = taskstypes.StatusCompleted
	}
	return taskstypes.TaskResult{
		TaskID:    task.ID,
		AccountID: task.Account.ID,
		Game:      task.Game,
		Kind:      task.Kind,
		Outcome:   outcome,
		ErrorKind: kind,
		Attempts:  task.Attempts,
		Detail:    detail,
	}
}

// sleepCtx sleeps for d or until the context is done, whichever comes
// first. Every cooldown and retry delay goes through here so cancellation
// is observed at each suspension point.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
