package mocks

import (
	"context"
	"sync"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Call records one invocation of the mock game API.
type Call struct {
	Kind        taskstypes.TaskKind
	HasSolution bool
}

type response struct {
	outcome taskstypes.Outcome
	err     error
}

// MockGameAPI implements the games.API interface for testing. Responses
// are scripted per task kind and consumed in order; once a kind's script
// runs out, calls succeed.
type MockGameAPI struct {
	mu      sync.Mutex
	game    taskstypes.GameID
	calls   []Call
	scripts map[taskstypes.TaskKind][]response
}

// NewMockGameAPI creates a mock API for the given game
func NewMockGameAPI(game taskstypes.GameID) *MockGameAPI {
	return &MockGameAPI{
		game:    game,
		scripts: make(map[taskstypes.TaskKind][]response),
	}
}

// Script appends one scripted response for the kind.
func (m *MockGameAPI) Script(kind taskstypes.TaskKind, outcome taskstypes.Outcome, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[kind] = append(m.scripts[kind], response{outcome: outcome, err: err})
}

// ScriptN appends the same scripted response n times.
func (m *MockGameAPI) ScriptN(kind taskstypes.TaskKind, n int, outcome taskstypes.Outcome, err error) {
	for i := 0; i < n; i++ {
		m.Script(kind, outcome, err)
	}
}

func (m *MockGameAPI) Game() taskstypes.GameID { return m.game }

func (m *MockGameAPI) SignIn(ctx context.Context, acct *taskstypes.Account, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	return m.respond(taskstypes.KindSignIn, sol)
}

func (m *MockGameAPI) Mission(ctx context.Context, acct *taskstypes.Account, kind taskstypes.TaskKind, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	return m.respond(kind, sol)
}

func (m *MockGameAPI) respond(kind taskstypes.TaskKind, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Kind: kind, HasSolution: sol != nil})

	queue := m.scripts[kind]
	if len(queue) == 0 {
		return taskstypes.OutcomeSuccess, nil
	}
	next := queue[0]
	m.scripts[kind] = queue[1:]
	return next.outcome, next.err
}

// Calls returns a copy of the recorded invocations.
func (m *MockGameAPI) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor counts the recorded invocations for one kind.
func (m *MockGameAPI) CallsFor(kind taskstypes.TaskKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// MockVerifier implements the tasks.Verifier interface for testing.
type MockVerifier struct {
	mu       sync.Mutex
	solution *taskstypes.Solution
	err      error
	calls    []*taskstypes.Challenge
}

func NewMockVerifier() *MockVerifier {
	return &MockVerifier{
		solution: &taskstypes.Solution{Validate: "validate-token", Seccode: "validate-token|jordan"},
	}
}

// SetSolution scripts the solution returned by Solve.
func (m *MockVerifier) SetSolution(sol *taskstypes.Solution, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solution = sol
	m.err = err
}

func (m *MockVerifier) Solve(ctx context.Context, ch *taskstypes.Challenge) (*taskstypes.Solution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ch)
	if m.err != nil {
		return nil, m.err
	}
	return m.solution, nil
}

// SolveCount returns how many times Solve was invoked.
func (m *MockVerifier) SolveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
