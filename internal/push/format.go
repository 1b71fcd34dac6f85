package push

import (
	"fmt"
	"sort"
	"strings"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

var kindNames = map[taskstypes.TaskKind]string{
	taskstypes.KindSignIn:        "📅签到",
	taskstypes.KindRead:          "📰阅读",
	taskstypes.KindLike:          "❤️点赞",
	taskstypes.KindShare:         "↗️分享",
	taskstypes.KindMissionStatus: "🪙任务进度",
}

var kindOrder = []taskstypes.TaskKind{
	taskstypes.KindSignIn,
	taskstypes.KindRead,
	taskstypes.KindLike,
	taskstypes.KindShare,
	taskstypes.KindMissionStatus,
}

// Title picks the notification title from the run's aggregate state,
// mirroring the status codes of the source system: full success, partial
// failure, full failure, or a verification block.
func Title(report *taskstypes.Report) string {
	switch {
	case report.VerificationHit():
		return "「hoyosign」签到触发人机验证！"
	case report.Summary.Failed == 0:
		return "「hoyosign」执行成功!"
	case report.Summary.Succeeded > 0:
		return "「hoyosign」部分账号执行失败！"
	default:
		return "「hoyosign」执行失败!"
	}
}

// Format renders the report as the human-readable message body pushed to
// every channel. Accounts and games are sorted so the output is stable.
func Format(report *taskstypes.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "✅ 成功: %d · ❌ 失败: %d",
		report.Summary.Succeeded, report.Summary.Failed)
	if report.Summary.Skipped > 0 {
		fmt.Fprintf(&b, " · ⏭️ 跳过: %d", report.Summary.Skipped)
	}
	b.WriteString("\n")

	accountIDs := make([]string, 0, len(report.Accounts))
	for id := range report.Accounts {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	for _, accountID := range accountIDs {
		fmt.Fprintf(&b, "\n🌈 账号 %s:\n", accountID)

		games := report.Accounts[accountID]
		gameIDs := make([]string, 0, len(games))
		for id := range games {
			gameIDs = append(gameIDs, string(id))
		}
		sort.Strings(gameIDs)

		for _, gameID := range gameIDs {
			fmt.Fprintf(&b, "🎮 %s\n", gameID)
			kinds := games[taskstypes.GameID(gameID)]
			for _, kind := range kindOrder {
				res, ok := kinds[kind]
				if !ok {
					continue
				}
				b.WriteString(formatResult(res))
				b.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatResult(res taskstypes.TaskResult) string {
	name, ok := kindNames[res.Kind]
	if !ok {
		name = string(res.Kind)
	}

	switch res.Outcome {
	case taskstypes.OutcomeSuccess:
		return fmt.Sprintf("%s：✓", name)
	case taskstypes.OutcomeAlreadyDone:
		return fmt.Sprintf("%s：✓ 已经完成过了", name)
	case taskstypes.OutcomeSkipped:
		return fmt.Sprintf("%s：⏭️ %s", name, res.Detail)
	default:
		detail := res.Detail
		if detail == "" {
			detail = string(res.ErrorKind)
		}
		return fmt.Sprintf("%s：✕ (%s)", name, detail)
	}
}
