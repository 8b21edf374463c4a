package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"xinji/cmd/api/handlers"
	"xinji/cmd/api/middleware"
	_ "xinji/docs"
)

type Deps struct {
	Users    handlers.UserService
	Diaries  handlers.DiaryService
	Analyses handlers.AnalysisService
	Reports  handlers.ReportService
	Orders   handlers.OrderService
	Tokens   middleware.TokenParser
	Location *time.Location
}

func New(d Deps) *gin.Engine {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}

	r := gin.New()
	r.Use(middleware.RequestTrace(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// 인증이 필요 없는 경로
	{
		api.POST("/auth/send-code", handlers.SendCodeHandler(d.Users))
		api.POST("/auth/login", handlers.LoginHandler(d.Users))
		api.POST("/auth/logout", handlers.LogoutHandler())
		api.POST("/auth/refresh-token", handlers.RefreshTokenHandler(d.Users))
		api.POST("/payment/wechat/notify", handlers.WechatNotifyHandler(d.Orders))
	}

	authed := api.Group("", middleware.UserAuth(d.Tokens))
	{
		authed.GET("/user/profile", handlers.GetProfileHandler(d.Users))
		authed.PUT("/user/profile", handlers.UpdateProfileHandler(d.Users))
		authed.POST("/user/delete", handlers.DeleteAccountHandler(d.Users))

		authed.POST("/diary/create", handlers.CreateDiaryHandler(d.Diaries, loc))
		authed.GET("/diary/list", handlers.ListDiariesHandler(d.Diaries, loc))
		authed.GET("/diary/:id", handlers.GetDiaryHandler(d.Diaries))
		authed.PUT("/diary/:id", handlers.UpdateDiaryHandler(d.Diaries, loc))
		authed.DELETE("/diary/:id", handlers.DeleteDiaryHandler(d.Diaries))

		authed.POST("/analysis/submit", handlers.SubmitAnalysisHandler(d.Analyses))
		authed.GET("/analysis/:id", handlers.GetAnalysisHandler(d.Analyses))

		authed.GET("/report/weekly", handlers.GetWeeklyReportHandler(d.Reports, loc))
		authed.POST("/report/weekly/refresh", handlers.RefreshWeeklyReportHandler(d.Reports, loc))
		authed.GET("/report/insights", handlers.GetInsightsHandler(d.Reports))

		authed.POST("/order/create", handlers.CreateOrderHandler(d.Orders))
		authed.GET("/order/list", handlers.ListOrdersHandler(d.Orders))
		authed.GET("/order/:orderId", handlers.GetOrderHandler(d.Orders))
		authed.POST("/order/:orderId/cancel", handlers.CancelOrderHandler(d.Orders))

		authed.POST("/payment/wechat/prepay", handlers.WechatPrepayHandler(d.Orders))
		authed.POST("/payment/mock/pay", handlers.MockPayHandler(d.Orders))
		authed.GET("/payment/order/:orderId/status", handlers.PaymentStatusHandler(d.Orders))
	}

	return r
}

// WithCORS 는 gin 엔진 앞에 CORS 처리를 붙인다.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "X-Span-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Span-Id"},
		MaxAge:         600,
	})
	return c.Handler(h)
}
