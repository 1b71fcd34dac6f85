package games

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

// Overridable in tests.
var bbsBaseURL = "https://bbs-api.miyoushe.com"

// missionClient performs the community (myb) tasks against the bbs API.
// The endpoints are board-scoped; the gids value selects the game's forum.
type missionClient struct {
	client *Client
}

func newMissionClient(client *Client) *missionClient {
	return &missionClient{client: client}
}

// postList fetches a handful of recent posts from the board; read, like
// and share all operate on one of them.
func (m *missionClient) postList(ctx context.Context, acct *taskstypes.Account, gids string, sol *taskstypes.Solution) ([]string, error) {
	url := fmt.Sprintf("%s/post/api/feeds/posts?fresh_action=1&gids=%s&is_first_initialize=false", bbsBaseURL, gids)
	env, err := m.client.Do(ctx, "GET", url, acct, nil, sol)
	if err != nil {
		return nil, err
	}
	if env.Retcode != retOK {
		return nil, classify(env)
	}

	var data struct {
		List []struct {
			Post struct {
				PostID string `json:"post_id"`
			} `json:"post"`
		} `json:"list"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "decoding post list: %v", err)
	}

	ids := make([]string, 0, len(data.List))
	for _, item := range data.List {
		if item.Post.PostID != "" {
			ids = append(ids, item.Post.PostID)
		}
	}
	if len(ids) == 0 {
		return nil, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "board %s returned no posts", gids)
	}
	return ids, nil
}

func (m *missionClient) Read(ctx context.Context, acct *taskstypes.Account, gids string, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	posts, err := m.postList(ctx, acct, gids, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}

	url := fmt.Sprintf("%s/post/api/getPostFull?post_id=%s", bbsBaseURL, posts[0])
	env, err := m.client.Do(ctx, "GET", url, acct, nil, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}
	if env.Retcode != retOK {
		return taskstypes.OutcomeFailed, classify(env)
	}
	return taskstypes.OutcomeSuccess, nil
}

func (m *missionClient) Like(ctx context.Context, acct *taskstypes.Account, gids string, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	posts, err := m.postList(ctx, acct, gids, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}

	body := map[string]interface{}{
		"post_id":   posts[0],
		"is_cancel": false,
	}
	env, err := m.client.Do(ctx, "POST", bbsBaseURL+"/apihub/sapi/upvotePost", acct, body, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}
	if env.Retcode != retOK {
		return taskstypes.OutcomeFailed, classify(env)
	}
	return taskstypes.OutcomeSuccess, nil
}

func (m *missionClient) Share(ctx context.Context, acct *taskstypes.Account, gids string, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	posts, err := m.postList(ctx, acct, gids, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}

	url := fmt.Sprintf("%s/apihub/api/getShareConf?entity_id=%s&entity_type=1", bbsBaseURL, posts[0])
	env, err := m.client.Do(ctx, "GET", url, acct, nil, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}
	if env.Retcode != retOK {
		return taskstypes.OutcomeFailed, classify(env)
	}
	return taskstypes.OutcomeSuccess, nil
}

// State queries the myb mission completion state. When every mission has
// reached its threshold the day's work is already done, which is reported
// as the already-done outcome rather than success.
func (m *missionClient) State(ctx context.Context, acct *taskstypes.Account, sol *taskstypes.Solution) (taskstypes.Outcome, error) {
	url := bbsBaseURL + "/apihub/sapi/getUserMissionsState"
	env, err := m.client.Do(ctx, "GET", url, acct, nil, sol)
	if err != nil {
		return taskstypes.OutcomeFailed, err
	}
	if env.Retcode != retOK {
		return taskstypes.OutcomeFailed, classify(env)
	}

	var data struct {
		States []struct {
			MissionKey    string `json:"mission_key"`
			IsGetAward    bool   `json:"is_get_award"`
			HappenedTimes int    `json:"happened_times"`
			Mission       struct {
				Threshold int `json:"threshold"`
			} `json:"mission"`
		} `json:"states"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return taskstypes.OutcomeFailed, taskstypes.NewAPIError(taskstypes.ErrUnknownAPI, "decoding mission state: %v", err)
	}

	allDone := len(data.States) > 0
	for _, s := range data.States {
		if s.HappenedTimes < s.Mission.Threshold {
			allDone = false
			break
		}
	}
	if allDone {
		return taskstypes.OutcomeAlreadyDone, nil
	}
	return taskstypes.OutcomeSuccess, nil
}
