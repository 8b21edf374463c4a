package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"xinji/apperr"
	"xinji/cache"
	"xinji/config"
	"xinji/dto"
	"xinji/models"
	"xinji/repositories"
)

const diaryCreateInterval = time.Minute

type DiaryInput struct {
	Title     string
	Content   string
	DiaryDate time.Time
	IsDraft   bool
}

// DiaryPatch 는 nil 이 아닌 필드만 바꾼다.
type DiaryPatch struct {
	Title     *string
	Content   *string
	DiaryDate *time.Time
	IsDraft   *bool
}

type DiaryQuery struct {
	Page      int
	PageSize  int
	StartDate *time.Time
	EndDate   *time.Time
	Keyword   string
}

type DiaryService struct {
	diaries   DiaryStore
	contents  ContentStore
	store     cache.Store
	cipher    ContentCipher
	refresher WeeklyRefresher
	loc       *time.Location
	now       func() time.Time
}

func NewDiaryService(diaries DiaryStore, contents ContentStore, store cache.Store, cipher ContentCipher, refresher WeeklyRefresher, loc *time.Location) *DiaryService {
	if loc == nil {
		loc = time.Local
	}
	return &DiaryService{
		diaries:   diaries,
		contents:  contents,
		store:     store,
		cipher:    cipher,
		refresher: refresher,
		loc:       loc,
		now:       time.Now,
	}
}

// Create 는 사용자당 1분에 한 번만 허용한다.
// 본문 문서를 먼저 쓰고 메타데이터 행을 쓴다. 행 저장이 실패하면 본문을 지운다.
func (s *DiaryService) Create(ctx context.Context, userID string, in DiaryInput) (dto.DiaryDTO, error) {
	if strings.TrimSpace(in.Content) == "" {
		return dto.DiaryDTO{}, apperr.BadRequest("日记内容不能为空")
	}
	ok, err := s.store.SetNX(ctx, cache.DiaryCreateLimitKey(userID), "1", diaryCreateInterval)
	if err != nil {
		return dto.DiaryDTO{}, apperr.Internal("diary rate limit failed", err)
	}
	if !ok {
		return dto.DiaryDTO{}, apperr.TooManyRequests("创建过于频繁，请1分钟后重试")
	}

	encrypted, err := s.cipher.Encrypt(in.Content)
	if err != nil {
		return dto.DiaryDTO{}, apperr.Internal("diary encrypt failed", err)
	}
	date := in.DiaryDate
	if date.IsZero() {
		date = s.now()
	}

	diary := &models.Diary{
		ID:        newID(),
		UserID:    userID,
		Title:     in.Title,
		DiaryDate: s.dayOf(date),
		IsDraft:   in.IsDraft,
	}
	content := &models.DiaryContent{
		ID:      diary.ID,
		UserID:  userID,
		Content: encrypted,
		Preview: makePreview(in.Content),
	}
	if err := s.contents.Upsert(ctx, content); err != nil {
		return dto.DiaryDTO{}, apperr.Internal("diary content save failed", err)
	}
	if err := s.diaries.Create(ctx, diary); err != nil {
		if derr := s.contents.Delete(context.WithoutCancel(ctx), diary.ID); derr != nil {
			config.Logger.Errorf("remove orphan diary content %s: %v", diary.ID, derr)
		}
		return dto.DiaryDTO{}, apperr.Internal("diary save failed", err)
	}

	s.refresh(ctx, userID, diary.DiaryDate)
	config.InfoWithFields("diary created", config.Fields{"diary_id": diary.ID, "user_id": userID})
	return dto.NewDiaryDTO(*diary, content.Preview, in.Content), nil
}

// List 는 최신순 페이지이다. keyword 는 미리보기에서만 찾는다.
func (s *DiaryService) List(ctx context.Context, userID string, q DiaryQuery) (dto.Pagination[dto.DiaryDTO], error) {
	f := repositories.DiaryFilter{UserID: userID, Start: q.StartDate, End: q.EndDate}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		ids, err := s.contents.FindIDsByPreviewKeyword(ctx, userID, kw)
		if err != nil {
			return dto.Pagination[dto.DiaryDTO]{}, apperr.Internal("diary keyword search failed", err)
		}
		f.IDs = ids
	}

	items, total, err := s.diaries.ListByUser(ctx, f, q.Page, q.PageSize)
	if err != nil {
		return dto.Pagination[dto.DiaryDTO]{}, apperr.Internal("diary list failed", err)
	}
	ids := make([]string, len(items))
	for i, d := range items {
		ids[i] = d.ID
	}
	contents, err := s.contents.GetByIDs(ctx, ids)
	if err != nil {
		return dto.Pagination[dto.DiaryDTO]{}, apperr.Internal("diary preview load failed", err)
	}

	out := make([]dto.DiaryDTO, len(items))
	for i, d := range items {
		out[i] = dto.NewDiaryDTO(d, contents[d.ID].Preview, "")
	}
	page, pageSize := pageBounds(q.Page, q.PageSize)
	return dto.NewPagination(out, page, pageSize, total), nil
}

func (s *DiaryService) Get(ctx context.Context, userID, diaryID string) (dto.DiaryDTO, error) {
	diary, err := loadOwnedDiary(ctx, s.diaries, userID, diaryID, "无权查看该日记")
	if err != nil {
		return dto.DiaryDTO{}, err
	}
	content, plain, err := s.loadContent(ctx, diary.ID)
	if err != nil {
		return dto.DiaryDTO{}, err
	}
	return dto.NewDiaryDTO(*diary, content.Preview, plain), nil
}

// Update 에서 본문이 바뀌면 분석 포인터와 감정 요약을 비운다. 분석 이력 문서는 그대로 둔다.
func (s *DiaryService) Update(ctx context.Context, userID, diaryID string, p DiaryPatch) (dto.DiaryDTO, error) {
	diary, err := loadOwnedDiary(ctx, s.diaries, userID, diaryID, "无权修改该日记")
	if err != nil {
		return dto.DiaryDTO{}, err
	}
	content, plain, err := s.loadContent(ctx, diary.ID)
	if err != nil {
		return dto.DiaryDTO{}, err
	}
	oldDate := diary.DiaryDate

	if p.Title != nil {
		diary.Title = *p.Title
	}
	if p.IsDraft != nil {
		diary.IsDraft = *p.IsDraft
	}
	if p.DiaryDate != nil {
		diary.DiaryDate = s.dayOf(*p.DiaryDate)
	}
	if p.Content != nil && *p.Content != plain {
		if strings.TrimSpace(*p.Content) == "" {
			return dto.DiaryDTO{}, apperr.BadRequest("日记内容不能为空")
		}
		encrypted, err := s.cipher.Encrypt(*p.Content)
		if err != nil {
			return dto.DiaryDTO{}, apperr.Internal("diary encrypt failed", err)
		}
		content.Content = encrypted
		content.Preview = makePreview(*p.Content)
		if err := s.contents.Upsert(ctx, content); err != nil {
			return dto.DiaryDTO{}, apperr.Internal("diary content save failed", err)
		}
		plain = *p.Content

		diary.IsAnalyzed = false
		diary.AnalysisID = ""
		diary.PrimaryEmotion = ""
		diary.EmotionIntensity = 0
	}

	if err := s.diaries.Save(ctx, diary); err != nil {
		return dto.DiaryDTO{}, apperr.Internal("diary save failed", err)
	}

	s.refresh(ctx, userID, diary.DiaryDate)
	if !sameWeek(oldDate, diary.DiaryDate, s.loc) {
		s.refresh(ctx, userID, oldDate)
	}
	return dto.NewDiaryDTO(*diary, content.Preview, plain), nil
}

func (s *DiaryService) Delete(ctx context.Context, userID, diaryID string) error {
	diary, err := loadOwnedDiary(ctx, s.diaries, userID, diaryID, "无权删除该日记")
	if err != nil {
		return err
	}
	if err := s.diaries.SoftDelete(ctx, diary.ID); err != nil {
		return apperr.Internal("diary delete failed", err)
	}
	s.refresh(ctx, userID, diary.DiaryDate)
	return nil
}

func (s *DiaryService) loadContent(ctx context.Context, diaryID string) (*models.DiaryContent, string, error) {
	content, err := s.contents.GetByID(ctx, diaryID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", apperr.NotFound("日记内容不存在")
		}
		return nil, "", apperr.Internal("diary content lookup failed", err)
	}
	plain, err := s.cipher.Decrypt(content.Content)
	if err != nil {
		return nil, "", apperr.Internal("diary content decrypt failed", err)
	}
	return content, plain, nil
}

// refresh 실패는 요청을 실패시키지 않는다.
func (s *DiaryService) refresh(ctx context.Context, userID string, date time.Time) {
	if s.refresher == nil {
		return
	}
	if _, err := s.refresher.TriggerWeeklyRefresh(ctx, userID, date); err != nil {
		config.Logger.Warnf("trigger weekly refresh for %s: %v", userID, err)
	}
}

func (s *DiaryService) dayOf(t time.Time) time.Time {
	lt := t.In(s.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.loc)
}

func sameWeek(a, b time.Time, loc *time.Location) bool {
	return weekStartOf(a, loc).Equal(weekStartOf(b, loc))
}

// pageBounds 는 저장소와 같은 규칙으로 페이지 값을 맞춘다.
func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = 10
	case pageSize > 100:
		pageSize = 100
	}
	return page, pageSize
}
