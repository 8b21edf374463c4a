package handlers

import (
	"github.com/gin-gonic/gin"

	apidto "xinji/cmd/api/dto"
	"xinji/cmd/api/middleware"
)

// SubmitAnalysisHandler godoc
// @Summary      提交 AI 情绪分析
// @Description  立即返回 PROCESSING 状态的结果，客户端轮询 GET /analysis/{id}。同一日记同时只能有一个分析在进行。
// @Tags         analysis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.AnalysisRequest  true  "日记 ID"
// @Success      200   {object}  apidto.Response{data=dto.AnalysisDTO}
// @Failure      403   {object}  apidto.ErrorResponseDTO
// @Failure      404   {object}  apidto.ErrorResponseDTO
// @Failure      429   {object}  apidto.ErrorResponseDTO
// @Router       /analysis/submit [post]
func SubmitAnalysisHandler(svc AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.Submit(c.Request.Context(), middleware.UserID(c), req.DiaryID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// GetAnalysisHandler godoc
// @Summary      查询分析结果
// @Tags         analysis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "分析 ID"
// @Success      200  {object}  apidto.Response{data=dto.AnalysisDTO}
// @Failure      403  {object}  apidto.ErrorResponseDTO
// @Failure      404  {object}  apidto.ErrorResponseDTO
// @Router       /analysis/{id} [get]
func GetAnalysisHandler(svc AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}
