package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xinji/apperr"
	"xinji/cache"
	"xinji/models"
)

type diaryFixture struct {
	svc       *DiaryService
	diaries   *fakeDiaries
	contents  *fakeContents
	refresher *recordingRefresher
}

func newDiaryFixture(t *testing.T) (*diaryFixture, func(userID string)) {
	t.Helper()
	store, mr := newTestCache(t)
	f := &diaryFixture{
		diaries:   newFakeDiaries(),
		contents:  newFakeContents(),
		refresher: &recordingRefresher{},
	}
	f.svc = NewDiaryService(f.diaries, f.contents, store, prefixCipher{}, f.refresher, time.UTC)
	clearLimit := func(userID string) { mr.Del(cache.DiaryCreateLimitKey(userID)) }
	return f, clearLimit
}

func TestDiary_CreateAndGet(t *testing.T) {
	f, _ := newDiaryFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, "u1", DiaryInput{
		Title:     "周三",
		Content:   "<p>今天去了公园</p>",
		DiaryDate: time.Date(2025, 1, 8, 21, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-08", created.DiaryDate)
	assert.Equal(t, "今天去了公园", created.Preview)
	assert.False(t, created.IsAnalyzed)

	stored := f.contents.byID[created.ID]
	assert.Equal(t, "enc:<p>今天去了公园</p>", stored.Content, "content is stored encrypted")
	assert.Len(t, f.refresher.calls, 1)

	got, err := f.svc.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>今天去了公园</p>", got.Content)

	_, err = f.svc.Get(ctx, "u2", created.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestDiary_CreateValidationAndRateLimit(t *testing.T) {
	f, clearLimit := newDiaryFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "u1", DiaryInput{Content: "   "})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Create(ctx, "u1", DiaryInput{Content: "第一篇"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "u1", DiaryInput{Content: "第二篇"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTooManyRequests))

	// 다른 사용자는 영향을 받지 않는다.
	_, err = f.svc.Create(ctx, "u2", DiaryInput{Content: "别人的"})
	require.NoError(t, err)

	clearLimit("u1")
	_, err = f.svc.Create(ctx, "u1", DiaryInput{Content: "第二篇"})
	require.NoError(t, err)
}

func TestDiary_CreateRowFailureRemovesContent(t *testing.T) {
	f, _ := newDiaryFixture(t)
	f.diaries.err = errors.New("db down")

	_, err := f.svc.Create(context.Background(), "u1", DiaryInput{Content: "内容"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Empty(t, f.contents.byID)
}

func TestDiary_UpdateContentResetsAnalysis(t *testing.T) {
	f, _ := newDiaryFixture(t)
	ctx := context.Background()
	f.diaries.byID["d1"] = &models.Diary{
		ID: "d1", UserID: "u1", DiaryDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		IsAnalyzed: true, AnalysisID: "a1", PrimaryEmotion: "SAD", EmotionIntensity: 0.9,
	}
	f.contents.byID["d1"] = models.DiaryContent{ID: "d1", UserID: "u1", Content: "enc:旧内容"}

	title := "新标题"
	out, err := f.svc.Update(ctx, "u1", "d1", DiaryPatch{Title: &title})
	require.NoError(t, err)
	assert.True(t, out.IsAnalyzed, "title-only edit keeps analysis")
	assert.Len(t, f.refresher.calls, 1)

	content := "新内容"
	nextWeek := time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)
	out, err = f.svc.Update(ctx, "u1", "d1", DiaryPatch{Content: &content, DiaryDate: &nextWeek})
	require.NoError(t, err)
	assert.False(t, out.IsAnalyzed)
	assert.Empty(t, out.AnalysisID)
	assert.Zero(t, out.EmotionIntensity)
	assert.Equal(t, "2025-01-14", out.DiaryDate)
	assert.Equal(t, "enc:新内容", f.contents.byID["d1"].Content)
	// 새 주와 이전 주를 모두 다시 계산한다.
	assert.Len(t, f.refresher.calls, 3)

	_, err = f.svc.Update(ctx, "u2", "d1", DiaryPatch{Title: &title})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestDiary_ListAndDelete(t *testing.T) {
	f, _ := newDiaryFixture(t)
	ctx := context.Background()
	for i, text := range []string{"跑步很开心", "加班很累", "周末跑步"} {
		id := string(rune('a' + i))
		f.diaries.byID[id] = &models.Diary{ID: id, UserID: "u1", DiaryDate: time.Date(2025, 1, 6+i, 0, 0, 0, 0, time.UTC)}
		f.contents.byID[id] = models.DiaryContent{ID: id, UserID: "u1", Content: "enc:" + text, Preview: text}
	}

	page, err := f.svc.List(ctx, "u1", DiaryQuery{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, "c", page.Data[0].ID, "newest first")
	assert.Empty(t, page.Data[0].Content)
	assert.Equal(t, "周末跑步", page.Data[0].Preview)

	page, err = f.svc.List(ctx, "u1", DiaryQuery{Keyword: "跑步"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = f.svc.List(ctx, "u1", DiaryQuery{Keyword: "不存在"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	require.NoError(t, f.svc.Delete(ctx, "u1", "a"))
	_, err = f.svc.Get(ctx, "u1", "a")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = f.svc.Delete(ctx, "u2", "b")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
