package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"xinji/cmd/api/middleware"
)

// GetWeeklyReportHandler godoc
// @Summary      周报
// @Description  统计实时计算。summary 只在预先生成过时返回，没有时为 null。
// @Tags         report
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "该周任意一天 yyyy-MM-dd，缺省为本周"
// @Success      200         {object}  apidto.Response{data=dto.WeeklyReportDTO}
// @Failure      400         {object}  apidto.ErrorResponseDTO
// @Router       /report/weekly [get]
func GetWeeklyReportHandler(svc ReportService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := parseDate(c.Query("start_date"), loc)
		if err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.GetWeeklyReport(c.Request.Context(), middleware.UserID(c), date)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// RefreshWeeklyReportHandler godoc
// @Summary      重新生成周报 AI 总结
// @Description  一分钟内对同一周的重复请求会被忽略 (accepted=false)。
// @Tags         report
// @Security     BearerAuth
// @Produce      json
// @Param        date  query     string  false  "该周任意一天 yyyy-MM-dd，缺省为本周"
// @Success      200   {object}  apidto.Response{data=dto.RefreshDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Router       /report/weekly/refresh [post]
func RefreshWeeklyReportHandler(svc ReportService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := parseDate(c.Query("date"), loc)
		if err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.TriggerWeeklyRefresh(c.Request.Context(), middleware.UserID(c), date)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// GetInsightsHandler godoc
// @Summary      深度洞察 (Pro)
// @Tags         report
// @Security     BearerAuth
// @Produce      json
// @Param        time_range  query     string  false  "week | month | all (缺省 month)"
// @Success      200         {object}  apidto.Response{data=dto.InsightsReportDTO}
// @Failure      403         {object}  apidto.ErrorResponseDTO
// @Router       /report/insights [get]
func GetInsightsHandler(svc ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.GetInsights(c.Request.Context(), middleware.UserID(c), c.DefaultQuery("time_range", "month"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}
