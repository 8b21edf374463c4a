package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xinji/apperr"
	"xinji/cmd/api/middleware"
	"xinji/dto"
	"xinji/models"
	"xinji/services"
)

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// 필요한 메서드만 구현하고 나머지는 nil 인터페이스로 둔다.
type stubDiaries struct {
	DiaryService
	created services.DiaryInput
	query   services.DiaryQuery
	patch   services.DiaryPatch
	err     error
}

func (s *stubDiaries) Create(_ context.Context, userID string, in services.DiaryInput) (dto.DiaryDTO, error) {
	s.created = in
	return dto.DiaryDTO{ID: "d1", Title: in.Title, IsDraft: in.IsDraft}, s.err
}

func (s *stubDiaries) List(_ context.Context, _ string, q services.DiaryQuery) (dto.Pagination[dto.DiaryDTO], error) {
	s.query = q
	return dto.NewPagination[dto.DiaryDTO](nil, q.Page, q.PageSize, 0), s.err
}

func (s *stubDiaries) Get(_ context.Context, userID, diaryID string) (dto.DiaryDTO, error) {
	return dto.DiaryDTO{ID: diaryID}, s.err
}

func (s *stubDiaries) Update(_ context.Context, _, diaryID string, p services.DiaryPatch) (dto.DiaryDTO, error) {
	s.patch = p
	return dto.DiaryDTO{ID: diaryID}, s.err
}

type stubOrders struct {
	OrderService
	plan       models.PlanType
	status     models.OrderStatus
	notifyBody []byte
	err        error
}

func (s *stubOrders) CreateOrder(_ context.Context, _ string, plan models.PlanType) (dto.OrderDTO, error) {
	s.plan = plan
	return dto.OrderDTO{OrderID: "o1", PlanType: plan, Status: models.OrderPending}, s.err
}

func (s *stubOrders) ListOrders(_ context.Context, _ string, page, pageSize int, status models.OrderStatus) (dto.Pagination[dto.OrderDTO], error) {
	s.status = status
	return dto.NewPagination[dto.OrderDTO](nil, page, pageSize, 0), s.err
}

func (s *stubOrders) HandleWechatNotify(_ context.Context, body []byte) error {
	s.notifyBody = body
	return s.err
}

type stubReports struct {
	ReportService
	date      time.Time
	timeRange string
}

func (s *stubReports) GetWeeklyReport(_ context.Context, _ string, date time.Time) (dto.WeeklyReportDTO, error) {
	s.date = date
	return dto.WeeklyReportDTO{}, nil
}

func (s *stubReports) GetInsights(_ context.Context, _ string, timeRange string) (dto.InsightsReportDTO, error) {
	s.timeRange = timeRange
	return dto.InsightsReportDTO{}, nil
}

func newEngine(method, path string, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "u1")
		c.Next()
	}, h)
	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestCreateDiaryHandler(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)

	testCases := []struct {
		name      string
		body      string
		svcErr    error
		wantCode  int
		wantDraft bool
		wantDate  string
	}{
		{name: "draft defaults to true", body: `{"title":"t","content":"오늘"}`, wantCode: 200, wantDraft: true},
		{name: "explicit publish", body: `{"content":"c","is_draft":false,"diary_date":"2025-01-06"}`, wantCode: 200, wantDraft: false, wantDate: "2025-01-06"},
		{name: "missing content", body: `{"title":"t"}`, wantCode: 400},
		{name: "title too long", body: `{"title":"` + strings.Repeat("a", 51) + `","content":"c"}`, wantCode: 400},
		{name: "bad date", body: `{"content":"c","diary_date":"2025/01/06"}`, wantCode: 400},
		{name: "rate limited", body: `{"content":"c"}`, svcErr: apperr.TooManyRequests("操作过于频繁"), wantCode: 429},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubDiaries{err: tc.svcErr}
			r := newEngine(http.MethodPost, "/diary/create", CreateDiaryHandler(svc, loc))

			w, env := do(t, r, http.MethodPost, "/diary/create", tc.body)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantCode, env.Code)
			assert.NotEmpty(t, env.Timestamp)
			if tc.wantCode != 200 {
				return
			}
			assert.Equal(t, "成功", env.Message)
			assert.Equal(t, tc.wantDraft, svc.created.IsDraft)
			if tc.wantDate != "" {
				assert.Equal(t, tc.wantDate, svc.created.DiaryDate.Format(dto.DateLayout))
				assert.Equal(t, loc, svc.created.DiaryDate.Location())
			} else {
				assert.True(t, svc.created.DiaryDate.IsZero())
			}
		})
	}
}

func TestListDiariesHandler_ParsesQuery(t *testing.T) {
	svc := &stubDiaries{}
	r := newEngine(http.MethodGet, "/diary/list", ListDiariesHandler(svc, time.UTC))

	w, _ := do(t, r, http.MethodGet, "/diary/list?page=2&page_size=5&start_date=2025-01-01&keyword=%E5%BF%83", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, 2, svc.query.Page)
	assert.Equal(t, 5, svc.query.PageSize)
	assert.Equal(t, "心", svc.query.Keyword)
	require.NotNil(t, svc.query.StartDate)
	assert.Equal(t, "2025-01-01", svc.query.StartDate.Format(dto.DateLayout))
	assert.Nil(t, svc.query.EndDate)

	w, _ = do(t, r, http.MethodGet, "/diary/list?end_date=yesterday", "")
	assert.Equal(t, 400, w.Code)
}

func TestUpdateDiaryHandler_PatchFields(t *testing.T) {
	svc := &stubDiaries{}
	r := newEngine(http.MethodPut, "/diary/:id", UpdateDiaryHandler(svc, time.UTC))

	w, _ := do(t, r, http.MethodPut, "/diary/d9", `{"content":"새 내용"}`)
	require.Equal(t, 200, w.Code)
	require.NotNil(t, svc.patch.Content)
	assert.Equal(t, "새 내용", *svc.patch.Content)
	assert.Nil(t, svc.patch.Title)
	assert.Nil(t, svc.patch.DiaryDate)

	w, _ = do(t, r, http.MethodPut, "/diary/d9", `{"diary_date":""}`)
	assert.Equal(t, 400, w.Code)
}

func TestGetDiaryHandler_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{name: "not found", err: apperr.NotFound("日记不存在"), wantCode: 404, wantMessage: "日记不存在"},
		{name: "forbidden", err: apperr.Forbidden("无权访问"), wantCode: 403, wantMessage: "无权访问"},
		{name: "internal hides cause", err: errors.New("mongo: connection refused"), wantCode: 500},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(http.MethodGet, "/diary/:id", GetDiaryHandler(&stubDiaries{err: tc.err}))
			w, env := do(t, r, http.MethodGet, "/diary/d1", "")
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantCode, env.Code)
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, env.Message)
			}
			assert.NotContains(t, env.Message, "mongo")
			assert.Empty(t, env.Data)
		})
	}
}

func TestCreateOrderHandler_ValidatesPlan(t *testing.T) {
	svc := &stubOrders{}
	r := newEngine(http.MethodPost, "/order/create", CreateOrderHandler(svc))

	w, _ := do(t, r, http.MethodPost, "/order/create", `{"plan_type":"WEEKLY"}`)
	assert.Equal(t, 400, w.Code)

	w, env := do(t, r, http.MethodPost, "/order/create", `{"plan_type":"ANNUAL"}`)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, models.PlanType("ANNUAL"), svc.plan)

	var out dto.OrderDTO
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "o1", out.OrderID)
}

func TestListOrdersHandler_UppercasesStatus(t *testing.T) {
	svc := &stubOrders{}
	r := newEngine(http.MethodGet, "/order/list", ListOrdersHandler(svc))

	w, _ := do(t, r, http.MethodGet, "/order/list?status=paid", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, models.OrderStatus("PAID"), svc.status)
}

func TestWechatNotifyHandler(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode int
		wantAck  string
	}{
		{name: "accepted", wantCode: 200, wantAck: "SUCCESS"},
		{name: "bad signature", err: apperr.BadRequest("签名错误"), wantCode: 400, wantAck: "FAIL"},
		{name: "storage failure", err: errors.New("boom"), wantCode: 500, wantAck: "FAIL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrders{err: tc.err}
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.POST("/notify", WechatNotifyHandler(svc))

			req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(`{"out_trade_no":"o1"}`))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
			var ack struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
			assert.Equal(t, tc.wantAck, ack.Code)
			assert.JSONEq(t, `{"out_trade_no":"o1"}`, string(svc.notifyBody))
		})
	}
}

func TestReportHandlers_QueryDefaults(t *testing.T) {
	svc := &stubReports{}
	loc := time.FixedZone("CST", 8*3600)

	r := newEngine(http.MethodGet, "/report/weekly", GetWeeklyReportHandler(svc, loc))
	w, _ := do(t, r, http.MethodGet, "/report/weekly", "")
	require.Equal(t, 200, w.Code)
	assert.True(t, svc.date.IsZero())

	w, _ = do(t, r, http.MethodGet, "/report/weekly?start_date=2025-01-08", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, time.Date(2025, 1, 8, 0, 0, 0, 0, loc), svc.date)

	r = newEngine(http.MethodGet, "/report/insights", GetInsightsHandler(svc))
	_, _ = do(t, r, http.MethodGet, "/report/insights", "")
	assert.Equal(t, "month", svc.timeRange)
	_, _ = do(t, r, http.MethodGet, "/report/insights?time_range=all", "")
	assert.Equal(t, "all", svc.timeRange)
}
