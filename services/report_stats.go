package services

import (
	"sort"
	"time"

	"xinji/models"
)

// weeklyStats 는 주간 리포트의 통계 부분이다. 조회와 사전 생성이 같은 계산을 쓴다.
type weeklyStats struct {
	WeekStart           string
	WeekEnd             string
	DiaryCount          int
	AnalyzedCount       int
	Trend               []models.EmotionTrendPoint
	Distribution        map[string]int
	AverageIntensity    *float64
	MostFrequentEmotion string
	Keywords            []string
}

// weekStartOf 는 loc 기준으로 date 이하의 가장 가까운 월요일 00:00 이다.
func weekStartOf(date time.Time, loc *time.Location) time.Time {
	d := date.In(loc)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// computeWeeklyStats 는 분석이 끝난 일기(현재 포인터가 COMPLETED 인 것)만 감정 통계에 넣는다.
// diaries 는 날짜 오름차순이어야 한다.
func computeWeeklyStats(start time.Time, diaries []models.Diary, current map[string]models.AnalysisResult, keywordSlots int) weeklyStats {
	st := weeklyStats{
		WeekStart:    start.Format(time.DateOnly),
		WeekEnd:      start.AddDate(0, 0, 6).Format(time.DateOnly),
		DiaryCount:   len(diaries),
		Trend:        []models.EmotionTrendPoint{},
		Distribution: map[string]int{},
		Keywords:     []string{},
	}

	var total float64
	var results []models.AnalysisResult
	for _, d := range diaries {
		if !d.IsAnalyzed || d.AnalysisID == "" {
			continue
		}
		a, ok := current[d.AnalysisID]
		if !ok || a.Status != models.AnalysisCompleted || a.PrimaryEmotion == "" {
			continue
		}
		st.Trend = append(st.Trend, models.EmotionTrendPoint{
			Date:      d.DiaryDate.Format(time.DateOnly),
			Emotion:   a.PrimaryEmotion,
			Intensity: a.EmotionIntensity,
		})
		st.Distribution[a.PrimaryEmotion]++
		total += a.EmotionIntensity
		results = append(results, a)
	}
	sort.SliceStable(st.Trend, func(i, j int) bool { return st.Trend[i].Date < st.Trend[j].Date })

	st.AnalyzedCount = len(results)
	if len(results) > 0 {
		avg := total / float64(len(results))
		st.AverageIntensity = &avg
		st.MostFrequentEmotion = mostFrequent(st.Distribution, emotionOrder())
	}
	st.Keywords = padKeywords(rankKeywords(results, keywordSlots), keywordSlots)
	return st
}

func emotionOrder() []string {
	out := make([]string, len(models.Emotions))
	for i, e := range models.Emotions {
		out[i] = string(e)
	}
	return out
}

// mostFrequent 는 최빈값이다. 동점이면 order 상 앞의 키가 이기고, order 에 없는 키는 사전순으로 뒤에 온다.
func mostFrequent(counts map[string]int, order []string) string {
	keys := make([]string, 0, len(counts))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		seen[k] = true
		if _, ok := counts[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range counts {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	best, bestN := "", 0
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

// rankKeywords 는 빈도 내림차순, 동점이면 처음 등장한 순서이다. 최대 limit 개.
func rankKeywords(results []models.AnalysisResult, limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, a := range results {
		for _, kw := range a.Keywords {
			if kw == "" {
				continue
			}
			if _, ok := counts[kw]; !ok {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}

// padKeywords 는 화면 표시용으로 키워드를 순환 반복해 정확히 n 개로 맞춘다. 비어 있으면 빈 목록이다.
func padKeywords(src []string, n int) []string {
	if len(src) == 0 {
		return []string{}
	}
	if len(src) >= n {
		return append([]string(nil), src[:n]...)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}
