package dto

import (
	"time"

	"xinji/models"
)

type OrderDTO struct {
	OrderID     string             `json:"order_id" example:"o20250106093000123"`
	PlanType    models.PlanType    `json:"plan_type" example:"MONTHLY"`
	PlanName    string             `json:"plan_name"`
	Amount      float64            `json:"amount" example:"29"`
	AmountCents int64              `json:"amount_cents" example:"2900"`
	Status      models.OrderStatus `json:"status" example:"PENDING"`
	ExpireAt    time.Time          `json:"expire_at"`
	PaidAt      *time.Time         `json:"paid_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewOrderDTO(o models.Order) OrderDTO {
	return OrderDTO{
		OrderID:     o.ID,
		PlanType:    o.PlanType,
		PlanName:    o.PlanType.Label(),
		Amount:      float64(o.AmountCents) / 100,
		AmountCents: o.AmountCents,
		Status:      o.Status,
		ExpireAt:    o.ExpireAt,
		PaidAt:      o.PaidAt,
		CreatedAt:   o.CreatedAt,
	}
}

// PrepayDTO 는 클라이언트가 wx.requestPayment 에 넘기는 값이다.
type PrepayDTO struct {
	PrepayID  string `json:"prepay_id"`
	AppID     string `json:"app_id"`
	TimeStamp string `json:"time_stamp"`
	NonceStr  string `json:"nonce_str"`
	Package   string `json:"package" example:"prepay_id=wx123"`
	SignType  string `json:"sign_type" example:"RSA"`
	PaySign   string `json:"pay_sign"`
}

type PaymentStatusDTO struct {
	OrderID       string             `json:"order_id"`
	Status        models.OrderStatus `json:"status" example:"PAID"`
	PaidAt        *time.Time         `json:"paid_at,omitempty"`
	TransactionID string             `json:"transaction_id,omitempty"`
	Payments      int                `json:"payments"`
}
