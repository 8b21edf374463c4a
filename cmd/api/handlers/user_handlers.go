package handlers

import (
	"github.com/gin-gonic/gin"

	apidto "xinji/cmd/api/dto"
	"xinji/cmd/api/middleware"
)

// GetProfileHandler godoc
// @Summary      当前用户资料
// @Tags         user
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  apidto.Response{data=dto.ProfileDTO}
// @Failure      401  {object}  apidto.ErrorResponseDTO
// @Router       /user/profile [get]
func GetProfileHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Profile(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// UpdateProfileHandler godoc
// @Summary      修改昵称或头像
// @Tags         user
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.UpdateProfileRequest  true  "只修改传入的字段"
// @Success      200   {object}  apidto.Response{data=dto.ProfileDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Router       /user/profile [put]
func UpdateProfileHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.UpdateProfile(c.Request.Context(), middleware.UserID(c), req.Nickname, req.Avatar)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// DeleteAccountHandler godoc
// @Summary      注销账号
// @Description  需要确认文本、本人手机号和验证码。
// @Tags         user
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.DeleteAccountRequest  true  "确认信息"
// @Success      200   {object}  apidto.Response
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Router       /user/delete [post]
func DeleteAccountHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.DeleteAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := svc.DeleteAccount(c.Request.Context(), middleware.UserID(c), req.ConfirmText, req.Phone, req.Code); err != nil {
			fail(c, err)
			return
		}
		ok(c, nil)
	}
}
