package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderExpired   OrderStatus = "EXPIRED"
)

type PlanType string

const (
	PlanMonthly   PlanType = "MONTHLY"
	PlanQuarterly PlanType = "QUARTERLY"
	PlanAnnual    PlanType = "ANNUAL"
)

// Months 는 요금제별 멤버십 연장 개월 수이다.
func (p PlanType) Months() int {
	switch p {
	case PlanMonthly:
		return 1
	case PlanQuarterly:
		return 3
	case PlanAnnual:
		return 12
	}
	return 0
}

func (p PlanType) Label() string {
	switch p {
	case PlanMonthly:
		return "心迹Pro月度会员"
	case PlanQuarterly:
		return "心迹Pro季度会员"
	case PlanAnnual:
		return "心迹Pro年度会员"
	}
	return string(p)
}

// Order 금액 단위는 분(fen)이다.
type Order struct {
	ID            string      `gorm:"primaryKey;size:32" json:"order_id"`
	UserID        string      `gorm:"size:32;index" json:"user_id"`
	PlanType      PlanType    `gorm:"size:16" json:"plan_type"`
	AmountCents   int64       `json:"amount_cents"`
	Status        OrderStatus `gorm:"size:16;index:idx_order_status_expire,priority:1" json:"status"`
	ExpireAt      time.Time   `gorm:"index:idx_order_status_expire,priority:2" json:"expire_at"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	TransactionID string      `gorm:"size:64" json:"transaction_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type PaymentRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       string    `gorm:"size:32;index" json:"order_id"`
	UserID        string    `gorm:"size:32;index" json:"user_id"`
	TransactionID string    `gorm:"size:64" json:"transaction_id"`
	Channel       string    `gorm:"size:16" json:"channel"`
	AmountCents   int64     `json:"amount_cents"`
	TradeState    string    `gorm:"size:32" json:"trade_state"`
	RawNotify     string    `gorm:"type:text" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
