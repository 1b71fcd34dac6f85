package games

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Overridable in tests.
var signBaseURL = "https://api-takumi.mihoyo.com/event/luna"

// meta is the static per-title wiring of the shared luna sign endpoint and
// the bbs forum board carrying the game's community missions.
type meta struct {
	id      taskstypes.GameID
	name    string
	actID   string
	gameBiz string
	gids    string
}

var gameTable = []meta{
	{taskstypes.GameGenshin, "原神", "e202009291139501", "hk4e_cn", "2"},
	{taskstypes.GameHonkai3, "崩坏3", "e202306201626331", "bh3_cn", "1"},
	{taskstypes.GameHonkaiGakuen, "崩坏学园2", "e202203291431091", "bh2_cn", "3"},
	{taskstypes.GameThemis, "未定事件簿", "e202202251749321", "nxx_cn", "4"},
	{taskstypes.GameStarRail, "崩坏：星穹铁道", "e202304121516551", "hkrpg_cn", "6"},
	{taskstypes.GameZenless, "绝区零", "e202406242138391", "nap_cn", "8"},
}

// gameAPI implements API for one title. Sign-in goes through the shared
// luna endpoint parameterized by act_id; missions share the bbs client.
type gameAPI struct {
	meta    meta
	client  *Client
	mission *missionClient
	logger  *zap.Logger
}

// Compile-time check to ensure gameAPI implements the interface
var _ API = (*gameAPI)(nil)

// RegisterAll builds one API per supported title onto the registry.
func RegisterAll(reg *Registry, client *Client, logger *zap.Logger) {
	mission := newMissionClient(client)
	for _, m := range gameTable {
		reg.Register(&gameAPI{
			meta:    m,
			client:  client,
			mission: mission,
			logger:  logger.With(zap.String("game", string(m.id))),
		})
	}
}

func (g *gameAPI) Game() taskstypes.GameID { return g.meta.id }

// signData is the sign endpoint's success payload. A zero retcode can still
// be a verification block: risk control answers with gt/challenge inside
// the data object instead of a dedicated retcode.
type signData struct {
	GT        string `json:"gt"`
	Challenge string `json:"challenge"`
	RiskCode  int    `json:"risk_code"`
	Success   int    `json:"success"`
}

func (g *gameAPI) SignIn(ctx context.Context, acct *taskstypes.Account, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	body := map[string]string{
		"act_id": g.meta.actID,
	}

	env, err := g.client.Do(ctx, "POST", signBaseURL+"/sign", acct, body, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}

	switch env.Retcode {
	case retOK:
		var data signData
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				return taskstypes.OutcomeFailed, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "decoding sign data: %v", err)
			}
		}
		if data.GT != "" && data.Challenge != "" {
			// Risk-controlled: the call "succeeded" but the reward is
			// withheld until the challenge is solved.
			return taskstypes.OutcomeFailed, taskstypes.NewVerificationError(&taskstypes.Challenge{
				GT:        data.GT,
				Challenge: data.Challenge,
			})
		}
		g.logger.Debug("sign-in accepted", zap.String("account", acct.ID))
		return taskstypes.OutcomeSuccess, nil
	case retAlreadySigned:
		return taskstypes.OutcomeAlreadyDone, nil
	default:
		return taskstypes.OutcomeFailed, classify(env)
	}
}

func (g *gameAPI) Mission(ctx context.Context, acct *taskstypes.Account, kind taskstypes.TaskKind, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	switch kind {
	case taskstypes.KindRead:
		return g.mission.Read(ctx, acct, g.meta.gids, sol)
	case taskstypes.KindLike:
		return g.mission.Like(ctx, acct, g.meta.gids, sol)
	case taskstypes.KindShare:
		return g.mission.Share(ctx, acct, g.meta.gids, sol)
	case taskstypes.KindMissionStatus:
		return g.mission.State(ctx, acct, sol)
	default:
		return taskstypes.OutcomeFailed, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "unsupported mission kind %q", kind)
	}
}
