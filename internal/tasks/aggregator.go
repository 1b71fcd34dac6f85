package tasks

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Aggregator accumulates task results from concurrently running account
// queues. Results arrive in arbitrary interleaving across accounts; the
// only guarantee consumed here is that each task reports exactly once.
type Aggregator struct {
	mu     sync.Mutex
	report *taskstypes.Report
	final  bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		report: &taskstypes.Report{
			RunID:     uuid.New(),
			StartedAt: time.Now().UTC(),
			Accounts:  make(map[string]map[taskstypes.GameID]map[taskstypes.TaskKind]taskstypes.TaskResult),
		},
	}
}

// Add records one terminal result. Safe for concurrent use.
func (a *Aggregator) Add(res taskstypes.TaskResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	games, ok := a.report.Accounts[res.AccountID]
	if !ok {
		games = make(map[taskstypes.GameID]map[taskstypes.TaskKind]taskstypes.TaskResult)
		a.report.Accounts[res.AccountID] = games
	}
	kinds, ok := games[res.Game]
	if !ok {
		kinds = make(map[taskstypes.TaskKind]taskstypes.TaskResult)
		games[res.Game] = kinds
	}
	kinds[res.Kind] = res

	switch res.Outcome {
	case taskstypes.OutcomeSuccess, taskstypes.OutcomeAlreadyDone:
		a.report.Summary.Succeeded++
	case taskstypes.OutcomeFailed:
		a.report.Summary.Failed++
	case taskstypes.OutcomeSkipped:
		a.report.Summary.Skipped++
	}
}

// Finalize stamps the finish time and returns the report. Further Add
// calls after Finalize are a caller bug; the report is handed off as-is.
func (a *Aggregator) Finalize() *taskstypes.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.final {
		a.report.FinishedAt = time.Now().UTC()
		a.final = true
	}
	return a.report
}
