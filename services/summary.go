package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"xinji/aiclient"
	"xinji/config"
	"xinji/models"
)

// weeklyText 는 일기 본문을 날짜순으로 이어 붙인다. 편당 perDiary 자, 전체 maxTotal 자를 넘지 않는다.
// 복호화에 실패한 일기는 건너뛴다.
func weeklyText(diaries []models.Diary, contents map[string]models.DiaryContent, cipher ContentCipher, perDiary, maxTotal int) string {
	var sb strings.Builder
	total := 0
	for _, d := range diaries {
		c, ok := contents[d.ID]
		if !ok {
			continue
		}
		plain, err := cipher.Decrypt(c.Content)
		if err != nil {
			continue
		}
		plain = stripTags(plain)
		if cut, truncated := truncateRunes(plain, perDiary); truncated {
			plain = cut + "..."
		}
		block := "【" + d.DiaryDate.Format("2006-01-02") + "】\n" + plain + "\n\n"
		n := utf8.RuneCountInString(block)
		if total+n > maxTotal {
			break
		}
		sb.WriteString(block)
		total += n
	}
	return sb.String()
}

// summarize 는 AI 요약을 시도하고, 실패하거나 형식이 맞지 않으면 로컬 템플릿을 쓴다.
func summarize(ctx context.Context, ai aiclient.Client, model string, st weeklyStats, diaryText string) (models.WeeklySummary, bool) {
	if ai == nil || st.DiaryCount == 0 {
		return localSummary(st), false
	}
	resp, err := ai.Complete(ctx, aiclient.Request{
		Model: model,
		Messages: []aiclient.Message{
			{Role: aiclient.RoleSystem, Content: weeklySystemPrompt},
			{Role: aiclient.RoleUser, Content: buildWeeklyPrompt(st, diaryText)},
		},
		JSONMode: true,
		Purpose:  "weekly_summary",
	})
	if err != nil {
		config.Logger.Warnf("weekly summary ai call failed, using local summary: %v", err)
		return localSummary(st), false
	}
	sum, err := parseWeeklySummary(resp.Content)
	if err != nil {
		config.Logger.Warnf("weekly summary ai response rejected, using local summary: %v", err)
		return localSummary(st), false
	}
	return sum, true
}

func parseWeeklySummary(content string) (models.WeeklySummary, error) {
	var sum models.WeeklySummary
	if err := json.Unmarshal([]byte(aiclient.StripCodeFence(content)), &sum); err != nil {
		return sum, fmt.Errorf("decode summary: %w", err)
	}
	sum.Summary = strings.TrimSpace(sum.Summary)
	switch {
	case sum.Summary == "":
		return sum, fmt.Errorf("summary is empty")
	case len(sum.Suggestions) != 3:
		return sum, fmt.Errorf("want 3 suggestions, got %d", len(sum.Suggestions))
	case len(sum.ActionPoints) != 2:
		return sum, fmt.Errorf("want 2 action points, got %d", len(sum.ActionPoints))
	}
	return sum, nil
}

// localSummary 는 항상 같은 입력에 같은 문구를 만든다.
func localSummary(st weeklyStats) models.WeeklySummary {
	if st.DiaryCount == 0 {
		return models.WeeklySummary{
			Summary:      "本周没有记录日记，建议养成每天记录的习惯。",
			Suggestions:  []string{"试着记录今天发生的一件小事。", "不用担心写得好不好，真实感受最重要。", "如果不知从何写起，可以描述一个场景或一种感觉。"},
			ActionPoints: []string{"写一篇50字以上的日记", "设定一个明天写日记的提醒"},
		}
	}
	avg := 0.5
	if st.AverageIntensity != nil {
		avg = *st.AverageIntensity
	}
	return models.WeeklySummary{
		Summary: fmt.Sprintf("本周共记录了%d篇日记，整体情绪状态以%s为主，平均情绪强度%.2f。",
			st.DiaryCount, models.Emotion(st.MostFrequentEmotion).Label(), avg),
		Suggestions:  []string{emotionAdvice(st.MostFrequentEmotion), "回顾一下本周让你开心的瞬间。", "思考一下，是什么触发了你的主要情绪？"},
		ActionPoints: []string{"继续保持记录，关注自己的情绪变化", "挑选一个建议，在本周尝试一下"},
	}
}

func emotionAdvice(emotion string) string {
	switch models.Emotion(emotion) {
	case models.EmotionSad, models.EmotionAnxious, models.EmotionFear:
		return "建议适当放松，进行一些让自己开心的活动。"
	case models.EmotionAngry:
		return "建议练习情绪管理，避免冲动行为。"
	case models.EmotionHappy:
		return "继续保持积极的心态！"
	}
	return "继续记录，关注自己的情绪变化。"
}
