package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xinji/config"
	"xinji/models"
	"xinji/repositories"
)

const (
	expiringSoonWindow = 3 * 24 * time.Hour
	highRiskWindow     = 24 * time.Hour
	staleReason        = "worker lost: processing timed out"
)

// MaintenanceService 는 스케줄러가 돌리는 정리 작업 모음이다.
type MaintenanceService struct {
	users    UserStore
	diaries  DiaryStore
	contents ContentStore
	analyses AnalysisStore
	cfg      config.AnalysisConfig
	now      func() time.Time
}

func NewMaintenanceService(users UserStore, diaries DiaryStore, contents ContentStore, analyses AnalysisStore, cfg config.AnalysisConfig) *MaintenanceService {
	return &MaintenanceService{
		users:    users,
		diaries:  diaries,
		contents: contents,
		analyses: analyses,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ExpireMemberships 는 만료된 Pro 를 FREE 로 내리고 3일 안에 만료될 회원을 로그로 남긴다.
func (s *MaintenanceService) ExpireMemberships(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.users.DowngradeExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("downgrade expired members: %w", err)
	}
	soon, err := s.users.ListExpiringBetween(ctx, now, now.Add(expiringSoonWindow))
	if err != nil {
		return n, fmt.Errorf("list expiring members: %w", err)
	}
	for _, u := range soon {
		config.InfoWithFields("membership expiring soon", config.Fields{"user_id": u.ID, "member_expire_at": u.MemberExpireAt})
	}
	config.Logger.Infof("membership expiry: downgraded=%d expiring_soon=%d", n, len(soon))
	return n, nil
}

// MonitorHighRisk 는 최근 24시간의 HIGH 위험 분석을 사용자별로 묶어 경고 로그를 남긴다.
func (s *MaintenanceService) MonitorHighRisk(ctx context.Context) (int, error) {
	results, err := s.analyses.FindHighRiskSince(ctx, s.now().Add(-highRiskWindow))
	if err != nil {
		return 0, fmt.Errorf("find high risk analyses: %w", err)
	}
	perUser := map[string]int{}
	var order []string
	for _, a := range results {
		if _, ok := perUser[a.UserID]; !ok {
			order = append(order, a.UserID)
		}
		perUser[a.UserID]++
	}
	for _, userID := range order {
		config.WarnWithFields("high risk user detected", config.Fields{"user_id": userID, "count": perUser[userID]})
	}
	return len(order), nil
}

// ReconcileResult 는 한 번의 정합성 점검 결과이다.
type ReconcileResult struct {
	Repointed   int   `json:"repointed"`
	StaleFailed int64 `json:"stale_failed"`
}

// Sweep 은 분석 문서와 일기 메타데이터 사이의 어긋남을 맞춘다. 여러 번 돌려도 결과가 같다.
//  1. 일기의 최신 분석인데 일기가 가리키지 않는 COMPLETED 분석을 다시 연결한다.
//  2. stale_after 보다 오래 PROCESSING 인 분석을 FAILED 로 닫는다.
func (s *MaintenanceService) Sweep(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	now := s.now()

	completed, err := s.analyses.FindCompletedSince(ctx, now.Add(-s.cfg.ReconcileSince))
	if err != nil {
		return res, fmt.Errorf("find completed analyses: %w", err)
	}
	seen := map[string]bool{}
	for _, a := range completed {
		if seen[a.DiaryID] {
			continue
		}
		seen[a.DiaryID] = true

		ok, err := s.repoint(ctx, a.DiaryID)
		if err != nil {
			config.Logger.Warnf("reconcile diary %s: %v", a.DiaryID, err)
			continue
		}
		if ok {
			res.Repointed++
		}
	}

	res.StaleFailed, err = s.analyses.FailStaleProcessing(ctx, now.Add(-s.cfg.StaleAfter), staleReason)
	if err != nil {
		return res, fmt.Errorf("fail stale analyses: %w", err)
	}
	if res.Repointed > 0 || res.StaleFailed > 0 {
		config.InfoWithFields("reconcile sweep finished", config.Fields{"repointed": res.Repointed, "stale_failed": res.StaleFailed})
	}
	return res, nil
}

// repoint 는 최신 분석이 COMPLETED 이고 본문 마지막 수정 이후에 만들어졌을 때만 일기를 갱신한다.
func (s *MaintenanceService) repoint(ctx context.Context, diaryID string) (bool, error) {
	latest, err := s.analyses.LatestByDiary(ctx, diaryID)
	if err != nil {
		return false, err
	}
	if latest.Status != models.AnalysisCompleted {
		return false, nil
	}
	diary, err := s.diaries.GetByID(ctx, diaryID)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if diary.Deleted || diary.AnalysisID == latest.ID {
		return false, nil
	}
	content, err := s.contents.GetByID(ctx, diaryID)
	if err != nil {
		return false, err
	}
	if latest.CreatedAt.Before(content.UpdatedAt) {
		return false, nil
	}
	if err := s.diaries.MarkAnalyzed(ctx, diaryID, latest.ID, latest.PrimaryEmotion, latest.EmotionIntensity); err != nil {
		return false, err
	}
	config.InfoWithFields("diary re-pointed to orphaned analysis", config.Fields{"diary_id": diaryID, "analysis_id": latest.ID})
	return true, nil
}
