package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xinji/aiclient"
	"xinji/apperr"
	"xinji/cache"
	"xinji/config"
	"xinji/dto"
	"xinji/events"
	"xinji/models"
	"xinji/repositories"
)

type ReportService struct {
	users      UserStore
	diaries    DiaryStore
	contents   ContentStore
	analyses   AnalysisStore
	reports    ReportStore
	store      cache.Store
	rules      *RuleEngine
	ai         aiclient.Client
	cipher     ContentCipher
	dispatcher TaskDispatcher
	cfg        config.ReportConfig
	model      string
	loc        *time.Location
	now        func() time.Time
}

type ReportDeps struct {
	Users      UserStore
	Diaries    DiaryStore
	Contents   ContentStore
	Analyses   AnalysisStore
	Reports    ReportStore
	Store      cache.Store
	Rules      *RuleEngine
	AI         aiclient.Client
	Cipher     ContentCipher
	Dispatcher TaskDispatcher
	Config     config.ReportConfig
	Model      string
	Location   *time.Location
}

func NewReportService(d ReportDeps) *ReportService {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		users:      d.Users,
		diaries:    d.Diaries,
		contents:   d.Contents,
		analyses:   d.Analyses,
		reports:    d.Reports,
		store:      d.Store,
		rules:      d.Rules,
		ai:         d.AI,
		cipher:     d.Cipher,
		dispatcher: d.Dispatcher,
		cfg:        d.Config,
		model:      d.Model,
		loc:        loc,
		now:        time.Now,
	}
}

// BatchResult 는 주간 리포트 일괄 생성 결과이다.
type BatchResult struct {
	Users     int `json:"users"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// loadWeek 는 [start, start+7d) 의 일기와 각 일기가 현재 가리키는 분석 결과를 읽는다.
func (s *ReportService) loadWeek(ctx context.Context, userID string, start time.Time) ([]models.Diary, map[string]models.AnalysisResult, error) {
	diaries, err := s.diaries.ListInRange(ctx, userID, start, start.AddDate(0, 0, 7))
	if err != nil {
		return nil, nil, fmt.Errorf("list diaries: %w", err)
	}
	var ids []string
	for _, d := range diaries {
		if d.AnalysisID != "" {
			ids = append(ids, d.AnalysisID)
		}
	}
	current := map[string]models.AnalysisResult{}
	if len(ids) > 0 {
		current, err = s.analyses.GetByIDs(ctx, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("load analyses: %w", err)
		}
	}
	return diaries, current, nil
}

// GetWeeklyReport 통계는 저장소에서 매번 계산한다. 요약은 미리 생성된 문서가 있을 때만 채운다.
func (s *ReportService) GetWeeklyReport(ctx context.Context, userID string, date time.Time) (dto.WeeklyReportDTO, error) {
	if date.IsZero() {
		date = s.now()
	}
	start := weekStartOf(date, s.loc)

	diaries, current, err := s.loadWeek(ctx, userID, start)
	if err != nil {
		return dto.WeeklyReportDTO{}, apperr.Internal("weekly report load failed", err)
	}
	st := computeWeeklyStats(start, diaries, current, s.cfg.KeywordSlots)

	out := dto.WeeklyReportDTO{
		WeekStart:           st.WeekStart,
		WeekEnd:             st.WeekEnd,
		DiaryCount:          st.DiaryCount,
		AnalyzedCount:       st.AnalyzedCount,
		EmotionTrend:        st.Trend,
		EmotionDistribution: st.Distribution,
		AverageIntensity:    st.AverageIntensity,
		MostFrequentEmotion: st.MostFrequentEmotion,
		Keywords:            st.Keywords,
	}

	stored, err := s.reports.GetByUserWeek(ctx, userID, st.WeekStart)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
	case err != nil:
		config.Logger.Warnf("load weekly report %s/%s: %v", userID, st.WeekStart, err)
	case stored.AISummary != "":
		var sum models.WeeklySummary
		if err := json.Unmarshal([]byte(stored.AISummary), &sum); err != nil {
			config.Logger.Warnf("decode weekly summary %s/%s: %v", userID, st.WeekStart, err)
		} else {
			out.Summary = &sum
		}
	}

	// 응답 캐시는 이 서비스가 읽지 않는다. 같은 키를 보는 외부 소비자를 위해 쓰고, 갱신 시 지운다.
	if body, err := json.Marshal(out); err == nil {
		if err := s.store.Set(ctx, cache.ReportCacheKey(userID, st.WeekStart), string(body), s.cfg.CacheTTL); err != nil {
			config.Logger.Warnf("cache weekly report %s/%s: %v", userID, st.WeekStart, err)
		}
	}
	return out, nil
}

// TriggerWeeklyRefresh 는 debounce 창 안의 두 번째 요청을 조용히 버린다. 큐에 쌓지 않는다.
func (s *ReportService) TriggerWeeklyRefresh(ctx context.Context, userID string, date time.Time) (dto.RefreshDTO, error) {
	if date.IsZero() {
		date = s.now()
	}
	weekStart := weekStartOf(date, s.loc).Format(time.DateOnly)
	out := dto.RefreshDTO{WeekStart: weekStart}

	lockKey := cache.ReportRefreshLockKey(userID, weekStart)
	ok, err := s.store.SetNX(ctx, lockKey, "1", s.cfg.RefreshDebounce)
	if err != nil {
		return out, apperr.Internal("report refresh lock failed", err)
	}
	if !ok {
		config.Logger.Debugf("weekly refresh for %s/%s debounced", userID, weekStart)
		return out, nil
	}

	taskID, err := s.dispatcher.DispatchWeeklyRefresh(ctx, userID, weekStart)
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), lockKey); derr != nil {
			config.Logger.Warnf("release refresh lock %s: %v", lockKey, derr)
		}
		return out, apperr.Internal("report refresh dispatch failed", err)
	}
	out.Accepted = true
	out.TaskID = taskID
	config.InfoWithFields("weekly refresh dispatched", config.Fields{"task_id": taskID, "user_id": userID, "week_start": weekStart})
	return out, nil
}

// ForceWeeklyRefresh 는 debounce 잠금을 지우고 TriggerWeeklyRefresh 를 호출한다.
// 분석 완료처럼 통계가 바뀐 뒤의 갱신이 앞선 요청에 묻히지 않게 한다.
func (s *ReportService) ForceWeeklyRefresh(ctx context.Context, userID string, date time.Time) (dto.RefreshDTO, error) {
	if date.IsZero() {
		date = s.now()
	}
	weekStart := weekStartOf(date, s.loc).Format(time.DateOnly)
	if err := s.store.Delete(ctx, cache.ReportRefreshLockKey(userID, weekStart)); err != nil {
		return dto.RefreshDTO{WeekStart: weekStart}, apperr.Internal("report refresh unlock failed", err)
	}
	return s.TriggerWeeklyRefresh(ctx, userID, date)
}

// ExecuteWeeklyRefresh 는 큐 워커에서 호출된다. 저장 실패만 에러로 돌려 버스가 재시도하게 한다.
func (s *ReportService) ExecuteWeeklyRefresh(ctx context.Context, evt events.WeeklyRefreshRequestedEvent) error {
	fields := config.Fields{"task_id": evt.TaskID, "user_id": evt.UserID, "week_start": evt.WeekStart}
	start, err := time.ParseInLocation(time.DateOnly, evt.WeekStart, s.loc)
	if err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("weekly refresh dropped: bad week start", fields)
		return nil
	}

	report, err := s.build(ctx, evt.UserID, start)
	if err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("weekly refresh failed", fields)
		return err
	}
	if err := s.store.Delete(ctx, cache.ReportCacheKey(evt.UserID, evt.WeekStart)); err != nil {
		config.Logger.Warnf("invalidate weekly report cache %s/%s: %v", evt.UserID, evt.WeekStart, err)
	}
	fields["diary_count"] = report.DiaryCount
	config.InfoWithFields("weekly report refreshed", fields)
	return nil
}

// build 는 통계와 요약을 만들어 업서트한다. 일기가 없는 주도 고정 문구 요약으로 저장한다.
func (s *ReportService) build(ctx context.Context, userID string, start time.Time) (*models.WeeklyReport, error) {
	diaries, current, err := s.loadWeek(ctx, userID, start)
	if err != nil {
		return nil, err
	}
	st := computeWeeklyStats(start, diaries, current, s.cfg.KeywordSlots)

	text := ""
	if len(diaries) > 0 {
		ids := make([]string, len(diaries))
		for i, d := range diaries {
			ids[i] = d.ID
		}
		contents, err := s.contents.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load diary contents: %w", err)
		}
		text = weeklyText(diaries, contents, s.cipher, s.cfg.MaxCharsPerDiary, s.cfg.MaxTotalChars)
	}

	sum, _ := summarize(ctx, s.ai, s.model, st, text)
	blob, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}

	report := &models.WeeklyReport{
		ID:                  newID(),
		UserID:              userID,
		WeekStart:           st.WeekStart,
		WeekEnd:             st.WeekEnd,
		DiaryCount:          st.DiaryCount,
		AnalyzedCount:       st.AnalyzedCount,
		EmotionTrend:        st.Trend,
		EmotionDistribution: st.Distribution,
		MostFrequentEmotion: st.MostFrequentEmotion,
		Keywords:            st.Keywords,
		AISummary:           string(blob),
	}
	if st.AverageIntensity != nil {
		report.AverageIntensity = *st.AverageIntensity
	}
	if err := s.reports.UpsertByUserWeek(ctx, report); err != nil {
		return nil, fmt.Errorf("upsert weekly report: %w", err)
	}
	return report, nil
}

// GenerateWeeklyReports 는 지난주 리포트를 모든 사용자에 대해 만든다.
// 사용자 한 명의 실패는 집계만 하고 다음 사용자로 넘어간다.
func (s *ReportService) GenerateWeeklyReports(ctx context.Context) (BatchResult, error) {
	var res BatchResult
	start := weekStartOf(s.now(), s.loc).AddDate(0, 0, -7)
	pageSize := s.cfg.BatchPageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ids, err := s.users.ListActiveIDs(ctx, after, pageSize)
		if err != nil {
			return res, fmt.Errorf("list users after %q: %w", after, err)
		}
		for _, id := range ids {
			res.Users++
			generated, err := s.generateFor(ctx, id, start)
			switch {
			case err != nil:
				res.Failed++
				config.ErrorWithFields("weekly report generation failed", config.Fields{"user_id": id, "week_start": start.Format(time.DateOnly), "error": err.Error()})
			case generated:
				res.Generated++
			default:
				res.Skipped++
			}
		}
		if len(ids) < pageSize {
			break
		}
		after = ids[len(ids)-1]
	}

	config.InfoWithFields("weekly report batch finished", config.Fields{
		"week_start": start.Format(time.DateOnly),
		"users":      res.Users,
		"generated":  res.Generated,
		"skipped":    res.Skipped,
		"failed":     res.Failed,
	})
	return res, nil
}

func (s *ReportService) generateFor(ctx context.Context, userID string, start time.Time) (generated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	diaries, err := s.diaries.ListInRange(ctx, userID, start, start.AddDate(0, 0, 7))
	if err != nil {
		return false, fmt.Errorf("list diaries: %w", err)
	}
	if len(diaries) == 0 {
		return false, nil
	}
	if _, err := s.build(ctx, userID, start); err != nil {
		return false, err
	}
	return true, nil
}
