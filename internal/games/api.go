// Package games holds the per-game API glue: one thin client per supported
// title behind a single API interface, selected by game identifier.
package games

import (
	"context"
	"fmt"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// API is the contract the task executor drives. A solution is attached when
// retrying a call that was blocked by a verification challenge; it is nil
// otherwise.
type API interface {
	Game() taskstypes.GameID

	// SignIn performs the daily check-in for the account.
	SignIn(ctx context.Context, acct *taskstypes.Account, sol *taskstypes.Solution) (taskstypes.Outcome, error)

	// Mission performs one community task kind (read, like, share, or the
	// mission state query) on the game's forum board.
	Mission(ctx context.Context, acct *taskstypes.Account, kind taskstypes.TaskKind, sol *taskstypes.Solution) (taskstypes.Outcome, error)
}

// Registry maps game identifiers to their API implementation.
type Registry struct {
	apis map[taskstypes.GameID]API
}

func NewRegistry() *Registry {
	return &Registry{apis: make(map[taskstypes.GameID]API)}
}

func (r *Registry) Register(api API) {
	r.apis[api.Game()] = api
}

func (r *Registry) Get(id taskstypes.GameID) (API, error) {
	api, ok := r.apis[id]
	if !ok {
		return nil, fmt.Errorf("no API registered for game %q", id)
	}
	return api, nil
}

func (r *Registry) Games() []taskstypes.GameID {
	ids := make([]taskstypes.GameID, 0, len(r.apis))
	for id := range r.apis {
		ids = append(ids, id)
	}
	return ids
}
