package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"xinji/apperr"
	apidto "xinji/cmd/api/dto"
	"xinji/cmd/api/middleware"
	"xinji/cmd/api/trace"
	"xinji/config"
	"xinji/dto"
	"xinji/models"
	"xinji/services"
)

// 핸들러는 아래 인터페이스에만 의존한다. 구현은 services 패키지에 있다.

type UserService interface {
	SendCode(ctx context.Context, phone string) error
	Login(ctx context.Context, phone, code string) (dto.LoginDTO, error)
	RefreshToken(ctx context.Context, token string) (dto.TokenDTO, error)
	Profile(ctx context.Context, userID string) (dto.ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID string, nickname, avatar *string) (dto.ProfileDTO, error)
	DeleteAccount(ctx context.Context, userID, confirmText, phone, code string) error
}

type DiaryService interface {
	Create(ctx context.Context, userID string, in services.DiaryInput) (dto.DiaryDTO, error)
	List(ctx context.Context, userID string, q services.DiaryQuery) (dto.Pagination[dto.DiaryDTO], error)
	Get(ctx context.Context, userID, diaryID string) (dto.DiaryDTO, error)
	Update(ctx context.Context, userID, diaryID string, p services.DiaryPatch) (dto.DiaryDTO, error)
	Delete(ctx context.Context, userID, diaryID string) error
}

type AnalysisService interface {
	Submit(ctx context.Context, userID, diaryID string) (dto.AnalysisDTO, error)
	Get(ctx context.Context, userID, analysisID string) (dto.AnalysisDTO, error)
}

type ReportService interface {
	GetWeeklyReport(ctx context.Context, userID string, date time.Time) (dto.WeeklyReportDTO, error)
	TriggerWeeklyRefresh(ctx context.Context, userID string, date time.Time) (dto.RefreshDTO, error)
	GetInsights(ctx context.Context, userID, timeRange string) (dto.InsightsReportDTO, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, plan models.PlanType) (dto.OrderDTO, error)
	ListOrders(ctx context.Context, userID string, page, pageSize int, status models.OrderStatus) (dto.Pagination[dto.OrderDTO], error)
	GetOrder(ctx context.Context, userID, orderID string) (dto.OrderDTO, error)
	CancelOrder(ctx context.Context, userID, orderID string) (dto.OrderDTO, error)
	WechatPrepay(ctx context.Context, userID, orderID string) (dto.PrepayDTO, error)
	HandleWechatNotify(ctx context.Context, body []byte) error
	MockPay(ctx context.Context, userID, orderID string) (dto.OrderDTO, error)
	PaymentStatus(ctx context.Context, userID, orderID string) (dto.PaymentStatusDTO, error)
}

const invalidParamsMessage = "请求参数错误"

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, apidto.OK(data))
}

// fail 은 apperr 분류로 상태 코드를 정한다. 내부 오류는 원인을 로그에만 남긴다.
func fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	if code >= http.StatusInternalServerError {
		config.ErrorWithFields("request failed", config.Fields{
			"request_id": trace.RequestIDFromContext(c.Request.Context()),
			"path":       c.Request.URL.Path,
			"user_id":    middleware.UserID(c),
			"error":      err.Error(),
		})
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, apidto.Fail(code, apperr.PublicMessage(err)))
}

func badRequest(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, apidto.Fail(http.StatusBadRequest, invalidParamsMessage))
}

// parseDate 는 yyyy-MM-dd 를 loc 의 자정으로 읽는다. 빈 값은 zero time 이다.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dto.DateLayout, s, loc)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
