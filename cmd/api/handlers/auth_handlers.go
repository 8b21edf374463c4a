package handlers

import (
	"github.com/gin-gonic/gin"

	"xinji/cmd/api/auth"
	apidto "xinji/cmd/api/dto"
)

// SendCodeHandler godoc
// @Summary      发送登录验证码
// @Description  手机号每小时、每天有发送次数上限。mock 模式下验证码只写入日志。
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.SendCodeRequest  true  "手机号"
// @Success      200   {object}  apidto.Response
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Failure      429   {object}  apidto.ErrorResponseDTO
// @Router       /auth/send-code [post]
func SendCodeHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.SendCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := svc.SendCode(c.Request.Context(), req.Phone); err != nil {
			fail(c, err)
			return
		}
		ok(c, nil)
	}
}

// LoginHandler godoc
// @Summary      手机号验证码登录
// @Description  首次登录自动注册。
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.LoginRequest  true  "手机号与验证码"
// @Success      200   {object}  apidto.Response{data=dto.LoginDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Router       /auth/login [post]
func LoginHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.Login(c.Request.Context(), req.Phone, req.Code)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// LogoutHandler godoc
// @Summary      退出登录
// @Description  服务端不保存会话，客户端丢弃令牌即可。
// @Tags         auth
// @Produce      json
// @Success      200  {object}  apidto.Response
// @Router       /auth/logout [post]
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, nil)
	}
}

// RefreshTokenHandler godoc
// @Summary      刷新令牌
// @Description  令牌距过期不足一天，或已过期不超过一小时时签发新令牌。令牌可放在 Authorization 头或请求体。
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.RefreshTokenRequest  false  "旧令牌"
// @Success      200   {object}  apidto.Response{data=dto.TokenDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Failure      401   {object}  apidto.ErrorResponseDTO
// @Router       /auth/refresh-token [post]
func RefreshTokenHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c)
		if err != nil {
			var req apidto.RefreshTokenRequest
			if bindErr := c.ShouldBindJSON(&req); bindErr != nil || req.Token == "" {
				auth.AbortWithUnauthorized(c, err)
				return
			}
			token = req.Token
		}
		out, err := svc.RefreshToken(c.Request.Context(), token)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}
