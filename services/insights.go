package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xinji/apperr"
	"xinji/cache"
	"xinji/dto"
	"xinji/models"
	"xinji/repositories"
)

const (
	InsightEmotionPattern   = "EMOTION_PATTERN"
	InsightCognitivePattern = "COGNITIVE_PATTERN"

	emotionPatternConfidence   = 0.85
	cognitivePatternConfidence = 0.72
)

// insightWindow 는 timeRange 를 [start, end) 로 바꾼다. 알 수 없는 값은 month 이다.
func insightWindow(timeRange string, now time.Time, loc *time.Location) (string, time.Time, time.Time) {
	end := cache.EndOfDay(now, loc)
	switch strings.ToLower(strings.TrimSpace(timeRange)) {
	case "week":
		return "week", end.AddDate(0, 0, -7), end
	case "all":
		return "all", end.AddDate(-1, 0, 0), end
	}
	return "month", end.AddDate(0, -1, 0), end
}

// GetInsights 는 Pro 회원 전용이다. 신뢰도는 고정 상수이다.
func (s *ReportService) GetInsights(ctx context.Context, userID, timeRange string) (dto.InsightsReportDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return dto.InsightsReportDTO{}, apperr.Unauthorized("用户不存在")
	}
	if err != nil {
		return dto.InsightsReportDTO{}, apperr.Internal("user lookup failed", err)
	}
	now := s.now()
	if !user.IsPro(now) {
		return dto.InsightsReportDTO{}, apperr.Forbidden("此功能仅限Pro会员使用")
	}

	rng, start, end := insightWindow(timeRange, now, s.loc)
	results, err := s.completedInRange(ctx, userID, start, end)
	if err != nil {
		return dto.InsightsReportDTO{}, apperr.Internal("insights load failed", err)
	}

	out := dto.InsightsReportDTO{
		TimeRange:  rng,
		StartDate:  start.Format(time.DateOnly),
		EndDate:    end.AddDate(0, 0, -1).Format(time.DateOnly),
		Insights:   []dto.InsightDTO{},
		GrowthPlan: s.rules.GrowthPlan(),
	}

	emotions := map[string]int{}
	distortions := map[string]int{}
	for _, a := range results {
		if a.PrimaryEmotion != "" {
			emotions[a.PrimaryEmotion]++
		}
		for _, d := range a.CognitiveDistortions {
			if d.Type != models.DistortionNone {
				distortions[d.Type]++
			}
		}
	}

	dominant := mostFrequent(emotions, emotionOrder())
	if dominant != "" {
		out.Insights = append(out.Insights, dto.InsightDTO{
			Type:       InsightEmotionPattern,
			Title:      "情绪波动规律",
			Content:    fmt.Sprintf("您在这段时间内主要情绪为%s，出现了%d次", models.Emotion(dominant).Label(), emotions[dominant]),
			Confidence: emotionPatternConfidence,
		})
	}
	if top := mostFrequent(distortions, s.rules.distortionOrder()); top != "" {
		out.Insights = append(out.Insights, dto.InsightDTO{
			Type:       InsightCognitivePattern,
			Title:      "认知偏差倾向",
			Content:    fmt.Sprintf("检测到您有轻微的'%s'认知偏差倾向，建议关注", s.rules.DistortionName(top)),
			Confidence: cognitivePatternConfidence,
		})
	}

	out.EmotionForecast = forecast(results, s.rules.ForecastTriggers())
	m := s.rules.Mindfulness(dominant)
	out.MindfulnessSuggestions = []dto.MindfulnessDTO{{Title: m.Title, Duration: m.Duration, URL: m.Link}}
	return out, nil
}

// completedInRange 는 기간 안의 일기가 현재 가리키는 COMPLETED 분석만 모은다.
func (s *ReportService) completedInRange(ctx context.Context, userID string, start, end time.Time) ([]models.AnalysisResult, error) {
	diaries, err := s.diaries.ListInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	var ids []string
	for _, d := range diaries {
		if d.AnalysisID != "" {
			ids = append(ids, d.AnalysisID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	byID, err := s.analyses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load analyses: %w", err)
	}
	out := make([]models.AnalysisResult, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok && a.Status == models.AnalysisCompleted {
			out = append(out, a)
		}
	}
	return out, nil
}

// forecast 부정 감정이 주 감정인 비율이 0.6 초과면 HIGH, 0.3 초과면 MEDIUM 이다.
// 트리거는 부정 감정 분석에서 가장 많이 나온 키워드 최대 3개, 없으면 기본값이다.
func forecast(results []models.AnalysisResult, defaults []string) dto.EmotionForecastDTO {
	out := dto.EmotionForecastDTO{NextWeekRisk: models.RiskLow, Triggers: defaults}
	if len(results) == 0 {
		return out
	}
	var negative []models.AnalysisResult
	for _, a := range results {
		if models.Emotion(a.PrimaryEmotion).IsNegative() {
			negative = append(negative, a)
		}
	}
	share := float64(len(negative)) / float64(len(results))
	switch {
	case share > 0.6:
		out.NextWeekRisk = models.RiskHigh
	case share > 0.3:
		out.NextWeekRisk = models.RiskMedium
	}
	if kws := rankKeywords(negative, 3); len(kws) > 0 {
		out.Triggers = kws
	}
	return out
}
