package services

import (
	"fmt"
	"strings"

	"xinji/models"
)

const (
	analysisSystemPrompt = "你是一个专业的心理咨询师，擅长情绪分析和认知行为疗法。请分析用户日记中的情绪状态，用JSON格式返回结果。"
	weeklySystemPrompt   = "你是一个专业的心理咨询师，擅长情绪支持与CBT技巧。请严格按要求输出 JSON。"
)

func buildAnalysisPrompt(content string, maxChars int) string {
	text, _ := truncateRunes(content, maxChars)
	return fmt.Sprintf(`请分析以下日记内容的情绪状态：

---
%s
---

请返回JSON格式的分析结果，包含以下字段：
{
    "emotions": {
        "HAPPY": 0.0-1.0,
        "SAD": 0.0-1.0,
        "ANGRY": 0.0-1.0,
        "FEAR": 0.0-1.0,
        "SURPRISE": 0.0-1.0,
        "DISGUST": 0.0-1.0,
        "NEUTRAL": 0.0-1.0,
        "ANXIOUS": 0.0-1.0
    },
    "keywords": ["关键词1", "关键词2", ...],
    "suggestion": "调节建议文字"
}`, text)
}

func buildWeeklyPrompt(s weeklyStats, diaryText string) string {
	keywords := "(无)"
	if len(s.Keywords) > 0 {
		keywords = strings.Join(s.Keywords[:min(5, len(s.Keywords))], ", ")
	}
	avg := "(无)"
	if s.AverageIntensity != nil {
		avg = fmt.Sprintf("%.2f", *s.AverageIntensity)
	}
	return fmt.Sprintf(`请根据以下用户一周的日记全文与统计信息，生成一份温暖、专业且可执行的周报总结，并严格按 JSON 返回。

日期范围: %s 至 %s
日记总数: %d篇
分析日记数: %d篇
主要情绪(统计): %s
平均情绪强度(统计): %s
高频关键词(统计): %s

===== 本周日记正文（可能已截断） =====
%s
===== 结束 =====

返回 JSON 结构必须严格符合以下 schema（不要输出多余字段，不要输出 markdown，不要用代码块）：
{
  "summary": "一段100-180字的总结，语气温暖、具体、有同理心",
  "suggestions": ["建议1", "建议2", "建议3"],
  "actionPoints": ["行动点1", "行动点2"]
}

约束：
- 必须结合日记正文中的具体事件/人物/活动，避免只总结情绪标签
- suggestions 必须恰好 3 条，每条 18-40 字，具体可操作
- actionPoints 必须恰好 2 条，每条以动词开头
- 避免诊断口吻，不要给出医疗结论`,
		s.WeekStart, s.WeekEnd, s.DiaryCount, s.AnalyzedCount,
		models.Emotion(s.MostFrequentEmotion).Label(), avg, keywords, diaryText)
}
