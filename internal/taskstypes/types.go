package taskstypes

import (
	"time"

	"github.com/google/uuid"
)

// GameID identifies one of the supported game platforms.
type GameID string

const (
	GameGenshin      GameID = "GenshinImpact"
	GameHonkai3      GameID = "HonkaiImpact3"
	GameHonkaiGakuen GameID = "HoukaiGakuen2"
	GameThemis       GameID = "TearsOfThemis"
	GameStarRail     GameID = "StarRail"
	GameZenless      GameID = "ZenlessZoneZero"
)

// TaskKind is the kind of action a task performs against a game platform.
type TaskKind string

const (
	KindSignIn        TaskKind = "sign_in"
	KindRead          TaskKind = "read"
	KindLike          TaskKind = "like"
	KindShare         TaskKind = "share"
	KindMissionStatus TaskKind = "mission_status"
)

// MissionKinds lists the community-task kinds, excluding the daily sign-in.
var MissionKinds = []TaskKind{KindRead, KindLike, KindShare, KindMissionStatus}

// Task status constants
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Outcome is the terminal result classification of a task.
// AlreadyDone is a first-class outcome: the platform reported the action
// was performed earlier today, which is not an error.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeAlreadyDone Outcome = "already_done"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
)

// Account holds one user's credentials and enabled work. Credentials are
// opaque to everything except the game API clients and are never logged.
type Account struct {
	ID       string     `json:"id"`
	Cookie   string     `json:"-"`
	SToken   string     `json:"-"`
	DeviceID string     `json:"device_id,omitempty"`
	Platform string     `json:"platform,omitempty"`
	Games    []GameID   `json:"games"`
	Kinds    []TaskKind `json:"kinds"`
}

// Task is one unit of work: one kind of action for one account on one game.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	Account   *Account   `json:"-"`
	Game      GameID     `json:"game"`
	Kind      TaskKind   `json:"kind"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewTask(account *Account, game GameID, kind TaskKind) *Task {
	return &Task{
		ID:        uuid.New(),
		Account:   account,
		Game:      game,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// TaskResult is the immutable terminal record of a task. Every task produces
// exactly one of these; the aggregator owns it after hand-off.
type TaskResult struct {
	TaskID    uuid.UUID `json:"task_id"`
	AccountID string    `json:"account_id"`
	Game      GameID    `json:"game"`
	Kind      TaskKind  `json:"kind"`
	Outcome   Outcome   `json:"outcome"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Attempts  int       `json:"attempts"`
	Detail    string    `json:"detail,omitempty"`
}

// Challenge is a human-verification gate returned by a game API in place of
// a normal response. It lives only for one solving round-trip.
type Challenge struct {
	TaskID    uuid.UUID `json:"task_id"`
	GT        string    `json:"gt"`
	Challenge string    `json:"challenge"`
}

// Solution is a solved verification token pair as returned by the solver
// backend. Seccode conventionally derives from Validate when absent.
type Solution struct {
	Validate string `json:"validate"`
	Seccode  string `json:"seccode"`
}

// Report is the aggregation of a whole run, keyed account -> game -> kind.
type Report struct {
	RunID      uuid.UUID                                     `json:"run_id"`
	StartedAt  time.Time                                     `json:"started_at"`
	FinishedAt time.Time                                     `json:"finished_at"`
	Accounts   map[string]map[GameID]map[TaskKind]TaskResult `json:"accounts"`
	Summary    Summary                                       `json:"summary"`
}

// Summary holds the run-level outcome counts. AlreadyDone counts as
// succeeded: the day's action is complete either way.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// VerificationHit reports whether any task in the run failed on a
// verification challenge, which selects a distinct push title.
func (r *Report) VerificationHit() bool {
	for _, games := range r.Accounts {
		for _, kinds := range games {
			for _, res := range kinds {
				switch res.ErrorKind {
				case ErrVerificationRequired, ErrVerificationUnavailable, ErrVerificationRejected:
					return true
				}
			}
		}
	}
	return false
}
