package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Orchestrator is the top-level run driver: it expands each account's
// enabled games and task kinds into concrete tasks, runs one queue per
// account concurrently under a bounded semaphore, and streams every result
// into the aggregator as it arrives. One invocation processes the whole
// task list and returns; there is no scheduling.
type Orchestrator struct {
	executor      *Executor
	cooldown      time.Duration
	maxConcurrent int64
	logger        *zap.Logger
}

func NewOrchestrator(executor *Executor, cooldown time.Duration, maxConcurrent int, logger *zap.Logger) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		executor:      executor,
		cooldown:      cooldown,
		maxConcurrent: int64(maxConcurrent),
		logger:        logger,
	}
}

// Run executes all tasks for all accounts and returns the finalized
// report. Accounts run concurrently up to the configured bound; tasks
// within an account run sequentially through the account's queue.
// Cancellation is cooperative: queues observe ctx between tasks and
// attempts, and already-produced results stay in the report.
func (o *Orchestrator) Run(ctx context.Context, accounts []*taskstypes.Account) *taskstypes.Report {
	agg := NewAggregator()
	sem := semaphore.NewWeighted(o.maxConcurrent)

	o.logger.Info("starting run",
		zap.Int("accounts", len(accounts)),
		zap.Int64("max_concurrent", o.maxConcurrent),
	)

	var wg sync.WaitGroup
	for _, account := range accounts {
		tasks := Expand(account)
		if len(tasks) == 0 {
			o.logger.Warn("account has no enabled tasks", zap.String("account", account.ID))
			continue
		}

		wg.Add(1)
		go func(account *taskstypes.Account, tasks []*taskstypes.Task) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				// Cancelled while waiting for a slot: the whole queue
				// reports as skipped rather than disappearing.
				for _, task := range tasks {
					agg.Add(taskstypes.TaskResult{
						TaskID:    task.ID,
						AccountID: task.Account.ID,
						Game:      task.Game,
						Kind:      task.Kind,
						Outcome:   taskstypes.OutcomeSkipped,
						Detail:    "run cancelled before execution",
					})
				}
				return
			}
			defer sem.Release(1)

			queue := NewQueue(o.executor, o.cooldown, o.logger)
			queue.Run(ctx, account, tasks, agg.Add)
		}(account, tasks)
	}

	wg.Wait()
	report := agg.Finalize()
	o.logger.Info("run finished",
		zap.String("run_id", report.RunID.String()),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("skipped", report.Summary.Skipped),
	)
	return report
}

// Expand enumerates an account's tasks in their execution order: for each
// enabled game, the configured task kinds in the order the account listed
// them. Listing sign_in first preserves sign-before-claim ordering.
func Expand(account *taskstypes.Account) []*taskstypes.Task {
	var out []*taskstypes.Task
	for _, game := range account.Games {
		for _, kind := range account.Kinds {
			out = append(out, taskstypes.NewTask(account, game, kind))
		}
	}
	return out
}
