package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	apidto "xinji/cmd/api/dto"
	"xinji/cmd/api/middleware"
	"xinji/services"
)

// CreateDiaryHandler godoc
// @Summary      写日记
// @Description  同一用户每分钟最多创建一篇。is_draft 缺省为 true，diary_date 缺省为今天。
// @Tags         diary
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.DiaryRequest  true  "日记"
// @Success      200   {object}  apidto.Response{data=dto.DiaryDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Failure      429   {object}  apidto.ErrorResponseDTO
// @Router       /diary/create [post]
func CreateDiaryHandler(svc DiaryService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.DiaryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		date, err := parseDate(req.DiaryDate, loc)
		if err != nil {
			badRequest(c, err)
			return
		}
		in := services.DiaryInput{Title: req.Title, Content: req.Content, DiaryDate: date, IsDraft: true}
		if req.IsDraft != nil {
			in.IsDraft = *req.IsDraft
		}

		out, err := svc.Create(c.Request.Context(), middleware.UserID(c), in)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// ListDiariesHandler godoc
// @Summary      日记列表
// @Description  按日记日期倒序。keyword 只匹配预览文本。
// @Tags         diary
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "页码 (从 1 开始)"
// @Param        page_size   query     int     false  "每页条数 (<=100)"
// @Param        start_date  query     string  false  "yyyy-MM-dd"
// @Param        end_date    query     string  false  "yyyy-MM-dd"
// @Param        keyword     query     string  false  "关键词"
// @Success      200         {object}  apidto.Response{data=dto.Pagination[dto.DiaryDTO]}
// @Failure      400         {object}  apidto.ErrorResponseDTO
// @Router       /diary/list [get]
func ListDiariesHandler(svc DiaryService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := services.DiaryQuery{
			Page:     queryInt(c, "page", 1),
			PageSize: queryInt(c, "page_size", 20),
			Keyword:  c.Query("keyword"),
		}
		for key, dst := range map[string]**time.Time{"start_date": &q.StartDate, "end_date": &q.EndDate} {
			t, err := parseDate(c.Query(key), loc)
			if err != nil {
				badRequest(c, err)
				return
			}
			if !t.IsZero() {
				*dst = &t
			}
		}

		page, err := svc.List(c.Request.Context(), middleware.UserID(c), q)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

// GetDiaryHandler godoc
// @Summary      日记详情
// @Tags         diary
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "日记 ID"
// @Success      200  {object}  apidto.Response{data=dto.DiaryDTO}
// @Failure      403  {object}  apidto.ErrorResponseDTO
// @Failure      404  {object}  apidto.ErrorResponseDTO
// @Router       /diary/{id} [get]
func GetDiaryHandler(svc DiaryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// UpdateDiaryHandler godoc
// @Summary      修改日记
// @Description  修改正文会清除当前分析结果。
// @Tags         diary
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "日记 ID"
// @Param        body  body      apidto.DiaryUpdateRequest  true  "只修改传入的字段"
// @Success      200   {object}  apidto.Response{data=dto.DiaryDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Failure      403   {object}  apidto.ErrorResponseDTO
// @Failure      404   {object}  apidto.ErrorResponseDTO
// @Router       /diary/{id} [put]
func UpdateDiaryHandler(svc DiaryService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.DiaryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		patch := services.DiaryPatch{Title: req.Title, Content: req.Content, IsDraft: req.IsDraft}
		if req.DiaryDate != nil {
			date, err := parseDate(*req.DiaryDate, loc)
			if err != nil || date.IsZero() {
				badRequest(c, err)
				return
			}
			patch.DiaryDate = &date
		}

		out, err := svc.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), patch)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// DeleteDiaryHandler godoc
// @Summary      删除日记
// @Tags         diary
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "日记 ID"
// @Success      200  {object}  apidto.Response
// @Failure      403  {object}  apidto.ErrorResponseDTO
// @Failure      404  {object}  apidto.ErrorResponseDTO
// @Router       /diary/{id} [delete]
func DeleteDiaryHandler(svc DiaryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		ok(c, nil)
	}
}
