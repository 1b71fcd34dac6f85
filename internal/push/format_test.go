package push

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

func reportWith(results ...taskstypes.TaskResult) *taskstypes.Report {
	report := &taskstypes.Report{
		RunID:    uuid.New(),
		Accounts: make(map[string]map[taskstypes.GameID]map[taskstypes.TaskKind]taskstypes.TaskResult),
	}
	for _, res := range results {
		games, ok := report.Accounts[res.AccountID]
		if !ok {
			games = make(map[taskstypes.GameID]map[taskstypes.TaskKind]taskstypes.TaskResult)
			report.Accounts[res.AccountID] = games
		}
		kinds, ok := games[res.Game]
		if !ok {
			kinds = make(map[taskstypes.TaskKind]taskstypes.TaskResult)
			games[res.Game] = kinds
		}
		kinds[res.Kind] = res

		switch res.Outcome {
		case taskstypes.OutcomeSuccess, taskstypes.OutcomeAlreadyDone:
			report.Summary.Succeeded++
		case taskstypes.OutcomeFailed:
			report.Summary.Failed++
		case taskstypes.OutcomeSkipped:
			report.Summary.Skipped++
		}
	}
	return report
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		results []taskstypes.TaskResult
		want    string
	}{
		{
			"all succeeded",
			[]taskstypes.TaskResult{
				{AccountID: "a", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeSuccess},
			},
			"「hoyosign」执行成功!",
		},
		{
			"partial failure",
			[]taskstypes.TaskResult{
				{AccountID: "a", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeSuccess},
				{AccountID: "a", Game: taskstypes.GameGenshin, Kind: taskstypes.KindRead, Outcome: taskstypes.OutcomeFailed, ErrorKind: taskstypes.ErrRateLimited},
			},
			"「hoyosign」部分账号执行失败！",
		},
		{
			"full failure",
			[]taskstypes.TaskResult{
				{AccountID: "a", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeFailed, ErrorKind: taskstypes.ErrAuth},
			},
			"「hoyosign」执行失败!",
		},
		{
			"verification dominates",
			[]taskstypes.TaskResult{
				{AccountID: "a", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeSuccess},
				{AccountID: "b", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeFailed, ErrorKind: taskstypes.ErrVerificationRequired},
			},
			"「hoyosign」签到触发人机验证！",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(reportWith(tt.results...)))
		})
	}
}

func TestFormat(t *testing.T) {
	report := reportWith(
		taskstypes.TaskResult{AccountID: "bravo", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeAlreadyDone},
		taskstypes.TaskResult{AccountID: "alpha", Game: taskstypes.GameStarRail, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeSuccess},
		taskstypes.TaskResult{AccountID: "alpha", Game: taskstypes.GameStarRail, Kind: taskstypes.KindRead, Outcome: taskstypes.OutcomeFailed, Detail: "rate_limited: too frequent"},
	)

	message := Format(report)

	assert.Contains(t, message, "✅ 成功: 2 · ❌ 失败: 1")
	assert.Contains(t, message, "🌈 账号 alpha:")
	assert.Contains(t, message, "🎮 StarRail")
	assert.Contains(t, message, "📅签到：✓ 已经完成过了")
	assert.Contains(t, message, "📰阅读：✕ (rate_limited: too frequent)")

	// Accounts are sorted, alpha before bravo.
	assert.Less(t, strings.Index(message, "alpha"), strings.Index(message, "bravo"))
}

func TestFormat_SkippedCounter(t *testing.T) {
	report := reportWith(
		taskstypes.TaskResult{AccountID: "a", Game: taskstypes.GameGenshin, Kind: taskstypes.KindSignIn, Outcome: taskstypes.OutcomeSkipped, Detail: "run cancelled before execution"},
	)

	message := Format(report)
	assert.Contains(t, message, "⏭️ 跳过: 1")
	assert.Contains(t, message, "run cancelled before execution")
}
