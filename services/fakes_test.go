package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"xinji/aiclient"
	"xinji/cache"
	"xinji/config"
	"xinji/models"
	"xinji/repositories"
)

func newTestCache(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisStore(rdb), mr
}

// testConfig 는 빈 YAML 을 읽어 기본값만 채운 설정이다.
func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\n"), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

// prefixCipher 는 "enc:" 접두사만 붙였다 뗀다. 접두사가 없으면 복호화 실패이다.
type prefixCipher struct{}

func (prefixCipher) Encrypt(plain string) (string, error) { return "enc:" + plain, nil }
func (prefixCipher) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.New("bad ciphertext")
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

type fakeAI struct {
	mu    sync.Mutex
	calls []aiclient.Request
	fn    func(req aiclient.Request) (aiclient.Response, error)
}

func (f *fakeAI) Complete(_ context.Context, req aiclient.Request) (aiclient.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn == nil {
		return aiclient.Response{}, errors.New("no response configured")
	}
	return f.fn(req)
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func replyWith(content string) func(aiclient.Request) (aiclient.Response, error) {
	return func(aiclient.Request) (aiclient.Response, error) { return aiclient.Response{Content: content}, nil }
}

type dispatchCall struct {
	Kind, A, B, C string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (f *fakeDispatcher) DispatchAnalysis(_ context.Context, analysisID, diaryID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, dispatchCall{"analysis", analysisID, diaryID, userID})
	return "task-" + analysisID, nil
}

func (f *fakeDispatcher) DispatchWeeklyRefresh(_ context.Context, userID, weekStart string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, dispatchCall{"report", userID, weekStart, ""})
	return "task-" + userID + "-" + weekStart, nil
}

func (f *fakeDispatcher) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.Deleted {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByPhoneHash(_ context.Context, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.PhoneHash == hash && !u.Deleted {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "nickname":
			u.Nickname = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		case "last_login_at":
			t := v.(time.Time)
			u.LastLoginAt = &t
		}
	}
	return nil
}

func (f *fakeUsers) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.Deleted = true
		u.PhoneHash = "deleted:" + id
	}
	return nil
}

func (f *fakeUsers) ListActiveIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, u := range f.byID {
		if !u.Deleted && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeUsers) ExtendMembership(_ context.Context, id string, months int, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	base := now
	if u.MemberExpireAt != nil && u.MemberExpireAt.After(now) {
		base = *u.MemberExpireAt
	}
	exp := base.AddDate(0, months, 0)
	u.MemberStatus = models.MemberPro
	u.MemberExpireAt = &exp
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) DowngradeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.byID {
		if u.MemberStatus == models.MemberPro && u.MemberExpireAt != nil && u.MemberExpireAt.Before(now) {
			u.MemberStatus = models.MemberFree
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) ListExpiringBetween(_ context.Context, from, to time.Time) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.byID {
		if u.MemberStatus == models.MemberPro && u.MemberExpireAt != nil && !u.MemberExpireAt.Before(from) && !u.MemberExpireAt.After(to) {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeDiaries struct {
	mu   sync.Mutex
	byID map[string]*models.Diary
	err  error
}

func newFakeDiaries(diaries ...models.Diary) *fakeDiaries {
	f := &fakeDiaries{byID: map[string]*models.Diary{}}
	for i := range diaries {
		d := diaries[i]
		f.byID[d.ID] = &d
	}
	return f
}

func (f *fakeDiaries) Create(_ context.Context, d *models.Diary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *d
	f.byID[d.ID] = &cp
	return nil
}

func (f *fakeDiaries) GetByID(_ context.Context, id string) (*models.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDiaries) Save(_ context.Context, d *models.Diary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.byID[d.ID] = &cp
	return nil
}

func (f *fakeDiaries) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.byID[id]; ok {
		d.Deleted = true
	}
	return nil
}

func (f *fakeDiaries) ListByUser(_ context.Context, flt repositories.DiaryFilter, page, pageSize int) ([]models.Diary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var allowed map[string]bool
	if flt.IDs != nil {
		allowed = map[string]bool{}
		for _, id := range flt.IDs {
			allowed[id] = true
		}
	}
	var out []models.Diary
	for _, d := range f.byID {
		if d.UserID != flt.UserID || d.Deleted || (allowed != nil && !allowed[d.ID]) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiaryDate.After(out[j].DiaryDate) })
	return out, int64(len(out)), nil
}

func (f *fakeDiaries) ListInRange(_ context.Context, userID string, start, end time.Time) ([]models.Diary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Diary
	for _, d := range f.byID {
		if d.UserID == userID && !d.Deleted && !d.DiaryDate.Before(start) && d.DiaryDate.Before(end) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiaryDate.Before(out[j].DiaryDate) })
	return out, nil
}

func (f *fakeDiaries) CountByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, d := range f.byID {
		if d.UserID == userID && !d.Deleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeDiaries) MarkAnalyzed(_ context.Context, id, analysisID, emotion string, intensity float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.IsAnalyzed = true
	d.AnalysisID = analysisID
	d.PrimaryEmotion = emotion
	d.EmotionIntensity = intensity
	return nil
}

type fakeContents struct {
	mu   sync.Mutex
	byID map[string]models.DiaryContent
}

func newFakeContents(contents ...models.DiaryContent) *fakeContents {
	f := &fakeContents{byID: map[string]models.DiaryContent{}}
	for _, c := range contents {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeContents) Upsert(_ context.Context, c *models.DiaryContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// 실제 저장소처럼 쓸 때마다 수정 시각을 갱신한다.
	c.UpdatedAt = time.Now()
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeContents) GetByID(_ context.Context, id string) (*models.DiaryContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (f *fakeContents) GetByIDs(_ context.Context, ids []string) (map[string]models.DiaryContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]models.DiaryContent{}
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeContents) FindIDsByPreviewKeyword(_ context.Context, userID, keyword string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for id, c := range f.byID {
		if c.UserID == userID && strings.Contains(c.Preview, keyword) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeContents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeAnalyses struct {
	mu   sync.Mutex
	byID map[string]*models.AnalysisResult
}

func newFakeAnalyses(results ...models.AnalysisResult) *fakeAnalyses {
	f := &fakeAnalyses{byID: map[string]*models.AnalysisResult{}}
	for i := range results {
		a := results[i]
		f.byID[a.ID] = &a
	}
	return f
}

func (f *fakeAnalyses) Insert(_ context.Context, a *models.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAnalyses) GetByID(_ context.Context, id string) (*models.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAnalyses) Complete(_ context.Context, a *models.AnalysisResult) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[a.ID]
	if !ok || cur.Status != models.AnalysisProcessing {
		return false, nil
	}
	cp := *a
	f.byID[a.ID] = &cp
	return true, nil
}

func (f *fakeAnalyses) MarkFailed(_ context.Context, id, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[id]
	if !ok || cur.Status != models.AnalysisProcessing {
		return false, nil
	}
	cur.Status = models.AnalysisFailed
	cur.ErrorMessage = reason
	return true, nil
}

func (f *fakeAnalyses) FailStaleProcessing(_ context.Context, before time.Time, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.byID {
		if a.Status == models.AnalysisProcessing && a.CreatedAt.Before(before) {
			a.Status = models.AnalysisFailed
			a.ErrorMessage = reason
			n++
		}
	}
	return n, nil
}

func (f *fakeAnalyses) GetByIDs(_ context.Context, ids []string) (map[string]models.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]models.AnalysisResult{}
	for _, id := range ids {
		if a, ok := f.byID[id]; ok {
			out[id] = *a
		}
	}
	return out, nil
}

func (f *fakeAnalyses) FindCompletedSince(_ context.Context, since time.Time) ([]models.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnalysisResult
	for _, a := range f.byID {
		if a.Status == models.AnalysisCompleted && !a.CreatedAt.Before(since) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAnalyses) LatestByDiary(_ context.Context, diaryID string) (*models.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.AnalysisResult
	for _, a := range f.byID {
		if a.DiaryID == diaryID && (latest == nil || a.CreatedAt.After(latest.CreatedAt)) {
			latest = a
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeAnalyses) FindHighRiskSince(_ context.Context, since time.Time) ([]models.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnalysisResult
	for _, a := range f.byID {
		if a.Status == models.AnalysisCompleted && a.RiskLevel == models.RiskHigh && a.AnalyzedAt != nil && !a.AnalyzedAt.Before(since) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeReports struct {
	mu     sync.Mutex
	byKey  map[string]models.WeeklyReport
	upsert int
	err    error
}

func newFakeReports() *fakeReports { return &fakeReports{byKey: map[string]models.WeeklyReport{}} }

func (f *fakeReports) UpsertByUserWeek(_ context.Context, w *models.WeeklyReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upsert++
	f.byKey[w.UserID+"|"+w.WeekStart] = *w
	return nil
}

func (f *fakeReports) GetByUserWeek(_ context.Context, userID, weekStart string) (*models.WeeklyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.byKey[userID+"|"+weekStart]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &w, nil
}

type fakeOrders struct {
	mu   sync.Mutex
	byID map[string]*models.Order
}

func newFakeOrders(orders ...models.Order) *fakeOrders {
	f := &fakeOrders{byID: map[string]*models.Order{}}
	for i := range orders {
		o := orders[i]
		f.byID[o.ID] = &o
	}
	return f
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.byID[o.ID] = &cp
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string, status models.OrderStatus, _, _ int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.byID {
		if o.UserID == userID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) TransitionStatus(_ context.Context, id string, from, to models.OrderStatus, fields map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if v, ok := fields["paid_at"].(time.Time); ok {
		o.PaidAt = &v
	}
	if v, ok := fields["transaction_id"].(string); ok {
		o.TransactionID = v
	}
	return true, nil
}

func (f *fakeOrders) ListExpiredPendingIDs(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, o := range f.byID {
		if o.Status == models.OrderPending && o.ExpireAt.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeOrders) UpdateStatusByIDs(_ context.Context, ids []string, status models.OrderStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if o, ok := f.byID[id]; ok && o.Status == models.OrderPending {
			o.Status = status
			n++
		}
	}
	return n, nil
}

type fakePayments struct {
	mu      sync.Mutex
	records []models.PaymentRecord
}

func (f *fakePayments) Create(_ context.Context, p *models.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *p)
	return nil
}

func (f *fakePayments) ListByOrder(_ context.Context, orderID string) ([]models.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentRecord
	for _, r := range f.records {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}
