package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"xinji/aiclient"
	"xinji/apperr"
	"xinji/cache"
	"xinji/config"
	"xinji/dto"
	"xinji/events"
	"xinji/models"
	"xinji/repositories"
)

// AnalysisRefresher 는 ReportService 가 구현한다. 분석 완료 후 해당 주 요약을 다시 만들게 한다.
// 일기 작성 직후의 갱신이 debounce 창을 잡고 있으므로 창을 무시하고 발행해야 한다.
type AnalysisRefresher interface {
	ForceWeeklyRefresh(ctx context.Context, userID string, date time.Time) (dto.RefreshDTO, error)
}

// WeeklyRefresher 는 ReportService 가 구현한다. DiaryService 가 일기 변경 후 주간 요약 갱신을 요청할 때 쓴다.
type WeeklyRefresher interface {
	TriggerWeeklyRefresh(ctx context.Context, userID string, date time.Time) (dto.RefreshDTO, error)
}

type AnalysisService struct {
	users      UserStore
	diaries    DiaryStore
	contents   ContentStore
	analyses   AnalysisStore
	store      cache.Store
	quota      *QuotaService
	rules      *RuleEngine
	ai         aiclient.Client
	cipher     ContentCipher
	dispatcher TaskDispatcher
	refresher  AnalysisRefresher
	cfg        config.AnalysisConfig
	model      string
	now        func() time.Time
}

type AnalysisDeps struct {
	Users      UserStore
	Diaries    DiaryStore
	Contents   ContentStore
	Analyses   AnalysisStore
	Store      cache.Store
	Quota      *QuotaService
	Rules      *RuleEngine
	AI         aiclient.Client
	Cipher     ContentCipher
	Dispatcher TaskDispatcher
	Refresher  AnalysisRefresher
	Config     config.AnalysisConfig
	Model      string
}

func NewAnalysisService(d AnalysisDeps) *AnalysisService {
	return &AnalysisService{
		users:      d.Users,
		diaries:    d.Diaries,
		contents:   d.Contents,
		analyses:   d.Analyses,
		store:      d.Store,
		quota:      d.Quota,
		rules:      d.Rules,
		ai:         d.AI,
		cipher:     d.Cipher,
		dispatcher: d.Dispatcher,
		refresher:  d.Refresher,
		cfg:        d.Config,
		model:      d.Model,
		now:        time.Now,
	}
}

// loadOwnedDiary 삭제된 일기는 존재하지 않는 것으로 취급한다.
func loadOwnedDiary(ctx context.Context, diaries DiaryStore, userID, diaryID, forbiddenMsg string) (*models.Diary, error) {
	d, err := diaries.GetByID(ctx, diaryID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && d.Deleted) {
		return nil, apperr.NotFound("日记不存在")
	}
	if err != nil {
		return nil, apperr.Internal("diary lookup failed", err)
	}
	if d.UserID != userID {
		return nil, apperr.Forbidden(forbiddenMsg)
	}
	return d, nil
}

// Submit 은 PROCESSING 결과를 저장하고 작업을 큐에 넣은 뒤 바로 반환한다.
// 순서: 소유권, 한도 확인, 잠금(SetNX), 결과 저장, 발행, 한도 증가.
// 발행 이후에는 작업 결과와 무관하게 한도가 소모된다.
func (s *AnalysisService) Submit(ctx context.Context, userID, diaryID string) (dto.AnalysisDTO, error) {
	diary, err := loadOwnedDiary(ctx, s.diaries, userID, diaryID, "无权分析该日记")
	if err != nil {
		return dto.AnalysisDTO{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return dto.AnalysisDTO{}, apperr.Unauthorized("用户不存在")
	}
	if err != nil {
		return dto.AnalysisDTO{}, apperr.Internal("user lookup failed", err)
	}
	if err := s.quota.Check(ctx, user); err != nil {
		return dto.AnalysisDTO{}, err
	}

	lockKey := cache.AnalysisLockKey(diaryID)
	locked, err := s.store.SetNX(ctx, lockKey, "1", s.cfg.LockTTL)
	if err != nil {
		return dto.AnalysisDTO{}, apperr.Internal("analysis lock failed", err)
	}
	if !locked {
		return dto.AnalysisDTO{}, apperr.TooManyRequests("分析请求过于频繁，请2分钟后重试")
	}

	result, err := s.createProcessing(ctx, diary)
	if err != nil {
		// 아무 작업도 시작하지 않았으므로 잠금을 돌려준다.
		if derr := s.store.Delete(context.WithoutCancel(ctx), lockKey); derr != nil {
			config.Logger.Warnf("release analysis lock %s: %v", lockKey, derr)
		}
		return dto.AnalysisDTO{}, err
	}

	taskID, err := s.dispatcher.DispatchAnalysis(ctx, result.ID, diaryID, userID)
	if err != nil {
		// 제출 자체는 성공으로 응답하고 결과만 FAILED 로 남긴다.
		config.ErrorWithFields("analysis dispatch failed", config.Fields{"analysis_id": result.ID, "diary_id": diaryID, "error": err.Error()})
		if _, ferr := s.analyses.MarkFailed(context.WithoutCancel(ctx), result.ID, "dispatch failed: "+err.Error()); ferr != nil {
			config.Logger.Errorf("mark analysis %s failed: %v", result.ID, ferr)
		} else {
			result.Status = models.AnalysisFailed
		}
	}

	if _, err := s.quota.Increment(ctx, userID); err != nil {
		config.Logger.Warnf("increment ai quota for %s: %v", userID, err)
	}

	out := dto.NewAnalysisDTO(*result)
	out.TaskID = taskID
	config.InfoWithFields("analysis submitted", config.Fields{"task_id": taskID, "analysis_id": result.ID, "diary_id": diaryID, "user_id": userID})
	return out, nil
}

func (s *AnalysisService) createProcessing(ctx context.Context, diary *models.Diary) (*models.AnalysisResult, error) {
	content, err := s.contents.GetByID(ctx, diary.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("日记内容不存在")
	}
	if err != nil {
		return nil, apperr.Internal("diary content lookup failed", err)
	}
	// 복호화 가능 여부만 미리 확인한다. 워커는 저장소에서 다시 읽는다.
	if _, err := s.cipher.Decrypt(content.Content); err != nil {
		return nil, apperr.Internal("diary content decrypt failed", err)
	}

	result := &models.AnalysisResult{
		ID:        newID(),
		DiaryID:   diary.ID,
		UserID:    diary.UserID,
		Status:    models.AnalysisProcessing,
		CreatedAt: s.now(),
	}
	if err := s.analyses.Insert(ctx, result); err != nil {
		return nil, apperr.Internal("analysis insert failed", err)
	}
	return result, nil
}

// Get 은 현재 상태를 그대로 돌려준다. 완료를 기다리지 않는다.
func (s *AnalysisService) Get(ctx context.Context, userID, analysisID string) (dto.AnalysisDTO, error) {
	a, err := s.analyses.GetByID(ctx, analysisID)
	if errors.Is(err, repositories.ErrNotFound) {
		return dto.AnalysisDTO{}, apperr.NotFound("分析结果不存在")
	}
	if err != nil {
		return dto.AnalysisDTO{}, apperr.Internal("analysis lookup failed", err)
	}
	if a.UserID != userID {
		return dto.AnalysisDTO{}, apperr.Forbidden("无权查看该分析结果")
	}
	return dto.NewAnalysisDTO(*a), nil
}

// Execute 는 큐 워커에서 호출된다. 어떤 실패도 호출자에게 돌려주지 않고 FAILED 로 기록한다.
// 항상 nil 을 반환하므로 이벤트 버스가 재시도하지 않는다.
func (s *AnalysisService) Execute(ctx context.Context, evt events.AnalysisRequestedEvent) error {
	fields := config.Fields{"task_id": evt.TaskID, "analysis_id": evt.AnalysisID, "diary_id": evt.DiaryID}

	result, err := s.analyses.GetByID(ctx, evt.AnalysisID)
	if err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("analysis task dropped: result not loadable", fields)
		return nil
	}
	if result.Status != models.AnalysisProcessing {
		config.InfoWithFields("analysis task skipped: already "+string(result.Status), fields)
		return nil
	}
	result.TaskID = evt.TaskID

	if err := s.run(ctx, result); err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("analysis failed", fields)
		if _, ferr := s.analyses.MarkFailed(context.WithoutCancel(ctx), result.ID, err.Error()); ferr != nil {
			config.Logger.Errorf("mark analysis %s failed: %v", result.ID, ferr)
		}
		return nil
	}

	fields["primary_emotion"] = result.PrimaryEmotion
	fields["risk_level"] = string(result.RiskLevel)
	config.InfoWithFields("analysis completed", fields)
	return nil
}

func (s *AnalysisService) run(ctx context.Context, result *models.AnalysisResult) error {
	content, err := s.contents.GetByID(ctx, result.DiaryID)
	if err != nil {
		return fmt.Errorf("load diary content: %w", err)
	}
	plain, err := s.cipher.Decrypt(content.Content)
	if err != nil {
		return fmt.Errorf("decrypt diary content: %w", err)
	}

	resp, err := s.ai.Complete(ctx, aiclient.Request{
		Model: s.model,
		Messages: []aiclient.Message{
			{Role: aiclient.RoleSystem, Content: analysisSystemPrompt},
			{Role: aiclient.RoleUser, Content: buildAnalysisPrompt(plain, s.cfg.MaxPromptChars)},
		},
		JSONMode: true,
		Purpose:  "analysis",
	})
	if err != nil {
		return fmt.Errorf("ai completion: %w", err)
	}

	s.fill(result, plain, resp.Content)

	done, err := s.analyses.Complete(ctx, result)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	if !done {
		// 다른 경로(정리 작업)가 먼저 상태를 바꿨다.
		config.Logger.Warnf("analysis %s was no longer PROCESSING, result discarded", result.ID)
		return nil
	}

	// AI 호출 중에 본문이 수정됐으면 이전 본문의 분석을 일기에 붙이지 않는다. 결과 문서는 이력으로 남는다.
	latest, err := s.contents.GetByID(ctx, result.DiaryID)
	if err != nil {
		config.Logger.Warnf("recheck diary content %s after analysis %s: %v", result.DiaryID, result.ID, err)
		return nil
	}
	if !latest.UpdatedAt.Equal(content.UpdatedAt) {
		config.Logger.Infof("diary %s edited during analysis %s, pointer left unchanged", result.DiaryID, result.ID)
		return nil
	}

	// 문서 저장과 일기 갱신은 하나의 트랜잭션이 아니다. 실패하면 MaintenanceService.Sweep 이 다시 맞춘다.
	if err := s.diaries.MarkAnalyzed(ctx, result.DiaryID, result.ID, result.PrimaryEmotion, result.EmotionIntensity); err != nil {
		config.Logger.Errorf("back-fill diary %s with analysis %s: %v", result.DiaryID, result.ID, err)
		return nil
	}

	if s.refresher != nil {
		if diary, err := s.diaries.GetByID(ctx, result.DiaryID); err == nil && !diary.Deleted {
			if _, err := s.refresher.ForceWeeklyRefresh(ctx, result.UserID, diary.DiaryDate); err != nil {
				config.Logger.Warnf("trigger weekly refresh after analysis %s: %v", result.ID, err)
			}
		}
	}
	return nil
}

// fill 은 AI 응답과 원문으로 결과 필드를 결정적으로 채운다.
func (s *AnalysisService) fill(result *models.AnalysisResult, plain, aiContent string) {
	parsed := parseAIAnalysis(aiContent, s.cfg.MaxKeywords)
	if !parsed.Usable {
		config.Logger.Warnf("analysis %s: ai response unusable, using fallback distribution", result.ID)
	}
	primary, intensity := primaryEmotion(parsed.Emotions)
	now := s.now()

	result.Status = models.AnalysisCompleted
	result.Emotions = parsed.Emotions
	result.PrimaryEmotion = primary
	result.EmotionIntensity = intensity
	result.Keywords = parsed.Keywords
	result.CognitiveDistortions = s.rules.DetectDistortions(plain)
	result.Suggestions = s.rules.Suggestions(parsed.Suggestion, primary)
	result.RiskLevel = s.rules.AssessRisk(parsed.Keywords, parsed.Emotions)
	result.AnalyzedAt = &now
}

// newID 는 하이픈 없는 uuid 이다.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
