package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"xinji/apperr"
	apidto "xinji/cmd/api/dto"
	"xinji/cmd/api/middleware"
	"xinji/config"
	"xinji/models"
)

// CreateOrderHandler godoc
// @Summary      创建会员订单
// @Description  订单 15 分钟内未支付自动过期。
// @Tags         order
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.CreateOrderRequest  true  "套餐"
// @Success      200   {object}  apidto.Response{data=dto.OrderDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Router       /order/create [post]
func CreateOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.CreateOrder(c.Request.Context(), middleware.UserID(c), models.PlanType(req.PlanType))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// ListOrdersHandler godoc
// @Summary      订单列表
// @Tags         order
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "页码 (从 1 开始)"
// @Param        page_size  query     int     false  "每页条数 (<=100)"
// @Param        status     query     string  false  "PENDING | PAID | CANCELLED | EXPIRED"
// @Success      200        {object}  apidto.Response{data=dto.Pagination[dto.OrderDTO]}
// @Router       /order/list [get]
func ListOrdersHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.OrderStatus(strings.ToUpper(c.Query("status")))
		page, err := svc.ListOrders(c.Request.Context(), middleware.UserID(c),
			queryInt(c, "page", 1), queryInt(c, "page_size", 20), status)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, page)
	}
}

// GetOrderHandler godoc
// @Summary      订单详情
// @Tags         order
// @Security     BearerAuth
// @Produce      json
// @Param        orderId  path      string  true  "订单号"
// @Success      200      {object}  apidto.Response{data=dto.OrderDTO}
// @Failure      403      {object}  apidto.ErrorResponseDTO
// @Failure      404      {object}  apidto.ErrorResponseDTO
// @Router       /order/{orderId} [get]
func GetOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.GetOrder(c.Request.Context(), middleware.UserID(c), c.Param("orderId"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// CancelOrderHandler godoc
// @Summary      取消订单
// @Description  只能取消待支付订单。
// @Tags         order
// @Security     BearerAuth
// @Produce      json
// @Param        orderId  path      string  true  "订单号"
// @Success      200      {object}  apidto.Response{data=dto.OrderDTO}
// @Failure      400      {object}  apidto.ErrorResponseDTO
// @Router       /order/{orderId}/cancel [post]
func CancelOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.CancelOrder(c.Request.Context(), middleware.UserID(c), c.Param("orderId"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// WechatPrepayHandler godoc
// @Summary      微信支付预下单
// @Tags         payment
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.PaymentRequest  true  "订单号"
// @Success      200   {object}  apidto.Response{data=dto.PrepayDTO}
// @Failure      400   {object}  apidto.ErrorResponseDTO
// @Router       /payment/wechat/prepay [post]
func WechatPrepayHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.WechatPrepay(c.Request.Context(), middleware.UserID(c), req.OrderID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// MockPayHandler godoc
// @Summary      模拟支付 (开发环境)
// @Tags         payment
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      apidto.PaymentRequest  true  "订单号"
// @Success      200   {object}  apidto.Response{data=dto.OrderDTO}
// @Failure      403   {object}  apidto.ErrorResponseDTO
// @Router       /payment/mock/pay [post]
func MockPayHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apidto.PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := svc.MockPay(c.Request.Context(), middleware.UserID(c), req.OrderID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// WechatNotifyHandler godoc
// @Summary      微信支付结果通知
// @Description  重复通知只处理一次。返回 FAIL 时微信会重试。
// @Tags         payment
// @Accept       json
// @Produce      json
// @Success      200  {object}  apidto.WechatNotifyAck
// @Failure      400  {object}  apidto.WechatNotifyAck
// @Failure      500  {object}  apidto.WechatNotifyAck
// @Router       /payment/wechat/notify [post]
func WechatNotifyHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, apidto.WechatNotifyAck{Code: "FAIL", Message: invalidParamsMessage})
			return
		}
		if err := svc.HandleWechatNotify(c.Request.Context(), body); err != nil {
			config.WarnWithFields("wechat notify rejected", config.Fields{"error": err.Error()})
			c.JSON(apperr.CodeOf(err), apidto.WechatNotifyAck{Code: "FAIL", Message: apperr.PublicMessage(err)})
			return
		}
		c.JSON(http.StatusOK, apidto.WechatNotifyAck{Code: "SUCCESS", Message: apidto.MessageOK})
	}
}

// PaymentStatusHandler godoc
// @Summary      查询订单支付状态
// @Tags         payment
// @Security     BearerAuth
// @Produce      json
// @Param        orderId  path      string  true  "订单号"
// @Success      200      {object}  apidto.Response{data=dto.PaymentStatusDTO}
// @Failure      403      {object}  apidto.ErrorResponseDTO
// @Failure      404      {object}  apidto.ErrorResponseDTO
// @Router       /payment/order/{orderId}/status [get]
func PaymentStatusHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.PaymentStatus(c.Request.Context(), middleware.UserID(c), c.Param("orderId"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}
