package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Queue runs one account's tasks strictly in order with a cooldown between
// consecutive tasks. A failed task never aborts the rest of the account's
// work; only cancellation does, and even then every remaining task still
// emits a (skipped) result so none is silently dropped.
type Queue struct {
	executor *Executor
	cooldown time.Duration
	logger   *zap.Logger
}

func NewQueue(executor *Executor, cooldown time.Duration, logger *zap.Logger) *Queue {
	return &Queue{
		executor: executor,
		cooldown: cooldown,
		logger:   logger,
	}
}

// Run processes the tasks in enumeration order, handing each result to
// emit as soon as it exists.
func (q *Queue) Run(ctx context.Context, account *taskstypes.Account, tasks []*taskstypes.Task, emit func(taskstypes.TaskResult)) {
	logger := q.logger.With(zap.String("account", account.ID))
	logger.Info("starting account queue", zap.Int("tasks", len(tasks)))

	for i, task := range tasks {
		if ctx.Err() != nil {
			emit(q.cancelled(task))
			continue
		}

		if i > 0 {
			if err := sleepCtx(ctx, q.cooldown); err != nil {
				emit(q.cancelled(task))
				continue
			}
		}

		emit(q.executor.Run(ctx, task))
	}

	logger.Info("account queue finished")
}

func (q *Queue) cancelled(task *taskstypes.Task) taskstypes.TaskResult {
	return taskstypes.TaskResult{
		TaskID:    task.ID,
		AccountID: task.Account.ID,
		Game:      task.Game,
		Kind:      task.Kind,
		Outcome:   taskstypes.OutcomeSkipped,
		Attempts:  task.Attempts,
		Detail:    "run cancelled before execution",
	}
}
