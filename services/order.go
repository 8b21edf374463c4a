package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"

	"xinji/apperr"
	"xinji/config"
	"xinji/dto"
	"xinji/models"
	"xinji/repositories"
)

const (
	ChannelWechat = "WECHAT"
	ChannelMock   = "MOCK"

	tradeStateSuccess = "SUCCESS"
)

type OrderService struct {
	orders   OrderStore
	payments PaymentStore
	users    UserStore
	prices   config.MembershipConfig
	cfg      config.OrderConfig
	now      func() time.Time
}

func NewOrderService(orders OrderStore, payments PaymentStore, users UserStore, prices config.MembershipConfig, cfg config.OrderConfig) *OrderService {
	return &OrderService{
		orders:   orders,
		payments: payments,
		users:    users,
		prices:   prices,
		cfg:      cfg,
		now:      time.Now,
	}
}

// PriceCents 는 설정의 위안 가격을 분 단위로 바꾼다. 알 수 없는 요금제는 0 이다.
func (s *OrderService) PriceCents(plan models.PlanType) int64 {
	switch plan {
	case models.PlanMonthly:
		return int64(s.prices.MonthlyPrice) * 100
	case models.PlanQuarterly:
		return int64(s.prices.QuarterlyPrice) * 100
	case models.PlanAnnual:
		return int64(s.prices.AnnualPrice) * 100
	}
	return 0
}

// newOrderID 는 o + yyyyMMddHHmmss + 3자리 난수 형식이다.
func newOrderID(now time.Time) string {
	return "o" + now.Format("20060102150405") + fmt.Sprintf("%03d", rand.IntN(1000))
}

func (s *OrderService) CreateOrder(ctx context.Context, userID string, plan models.PlanType) (dto.OrderDTO, error) {
	if plan.Months() == 0 {
		return dto.OrderDTO{}, apperr.BadRequest("无效的套餐类型")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return dto.OrderDTO{}, apperr.Unauthorized("用户不存在")
		}
		return dto.OrderDTO{}, apperr.Internal("user lookup failed", err)
	}

	now := s.now()
	order := &models.Order{
		ID:          newOrderID(now),
		UserID:      userID,
		PlanType:    plan,
		AmountCents: s.PriceCents(plan),
		Status:      models.OrderPending,
		ExpireAt:    now.Add(s.cfg.PendingTTL),
		CreatedAt:   now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return dto.OrderDTO{}, apperr.Internal("order create failed", err)
	}
	config.InfoWithFields("order created", config.Fields{"order_id": order.ID, "user_id": userID, "plan": string(plan), "amount_cents": order.AmountCents})
	return dto.NewOrderDTO(*order), nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string, page, pageSize int, status models.OrderStatus) (dto.Pagination[dto.OrderDTO], error) {
	items, total, err := s.orders.ListByUser(ctx, userID, status, page, pageSize)
	if err != nil {
		return dto.Pagination[dto.OrderDTO]{}, apperr.Internal("order list failed", err)
	}
	out := make([]dto.OrderDTO, len(items))
	for i, o := range items {
		out[i] = dto.NewOrderDTO(o)
	}
	page, pageSize = pageBounds(page, pageSize)
	return dto.NewPagination(out, page, pageSize, total), nil
}

func (s *OrderService) loadOwned(ctx context.Context, userID, orderID, forbiddenMsg string) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("订单不存在")
	}
	if err != nil {
		return nil, apperr.Internal("order lookup failed", err)
	}
	if o.UserID != userID {
		return nil, apperr.Forbidden(forbiddenMsg)
	}
	return o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (dto.OrderDTO, error) {
	o, err := s.loadOwned(ctx, userID, orderID, "无权查看该订单")
	if err != nil {
		return dto.OrderDTO{}, err
	}
	return dto.NewOrderDTO(*o), nil
}

// CancelOrder 는 PENDING 주문만 취소한다.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (dto.OrderDTO, error) {
	o, err := s.loadOwned(ctx, userID, orderID, "无权取消该订单")
	if err != nil {
		return dto.OrderDTO{}, err
	}
	if o.Status != models.OrderPending {
		return dto.OrderDTO{}, apperr.BadRequest("订单状态不允许取消")
	}
	ok, err := s.orders.TransitionStatus(ctx, o.ID, models.OrderPending, models.OrderCancelled, nil)
	if err != nil {
		return dto.OrderDTO{}, apperr.Internal("order cancel failed", err)
	}
	if !ok {
		return dto.OrderDTO{}, apperr.BadRequest("订单状态不允许取消")
	}
	o.Status = models.OrderCancelled
	return dto.NewOrderDTO(*o), nil
}

// WechatPrepay 는 결제 게이트웨이 없이 클라이언트용 결제 파라미터 모양만 맞춘다.
func (s *OrderService) WechatPrepay(ctx context.Context, userID, orderID string) (dto.PrepayDTO, error) {
	o, err := s.loadOwned(ctx, userID, orderID, "无权支付该订单")
	if err != nil {
		return dto.PrepayDTO{}, err
	}
	if o.Status != models.OrderPending {
		return dto.PrepayDTO{}, apperr.BadRequest("订单状态不允许支付")
	}
	now := s.now()
	if now.After(o.ExpireAt) {
		return dto.PrepayDTO{}, apperr.BadRequest("订单已过期")
	}

	prepayID := "wx" + strconv.FormatInt(now.UnixMilli(), 10)
	return dto.PrepayDTO{
		PrepayID:  prepayID,
		AppID:     s.cfg.WechatAppID,
		TimeStamp: strconv.FormatInt(now.Unix(), 10),
		NonceStr:  uuid.NewString(),
		Package:   "prepay_id=" + prepayID,
		SignType:  "RSA",
		PaySign:   "mock_sign",
	}, nil
}

// notifyField 는 평문 본문과 resource 로 감싼 본문을 모두 받는다.
func notifyField(body []byte, key string) string {
	if v, err := jsonparser.GetString(body, key); err == nil {
		return v
	}
	if v, err := jsonparser.GetString(body, "resource", key); err == nil {
		return v
	}
	return ""
}

// HandleWechatNotify 는 이미 PAID 인 주문에 대한 중복 통지를 무시한다. 서명 검증은 하지 않는다.
func (s *OrderService) HandleWechatNotify(ctx context.Context, body []byte) error {
	orderID := notifyField(body, "out_trade_no")
	txID := notifyField(body, "transaction_id")
	state := notifyField(body, "trade_state")
	if orderID == "" || state == "" {
		return apperr.BadRequest("通知内容不完整")
	}
	fields := config.Fields{"order_id": orderID, "transaction_id": txID, "trade_state": state}

	o, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("订单不存在")
	}
	if err != nil {
		return apperr.Internal("order lookup failed", err)
	}
	if state != tradeStateSuccess {
		config.WarnWithFields("wechat notify with non-success state", fields)
		return nil
	}
	if _, err := s.markPaid(ctx, o, txID, ChannelWechat, string(body)); err != nil {
		return err
	}
	config.InfoWithFields("wechat notify handled", fields)
	return nil
}

// MockPay 는 설정으로 켠 환경에서만 쓸 수 있다.
func (s *OrderService) MockPay(ctx context.Context, userID, orderID string) (dto.OrderDTO, error) {
	if !s.cfg.MockPayEnabled {
		return dto.OrderDTO{}, apperr.Forbidden("模拟支付未开启")
	}
	o, err := s.loadOwned(ctx, userID, orderID, "无权支付该订单")
	if err != nil {
		return dto.OrderDTO{}, err
	}
	txID := "mock_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	paid, err := s.markPaid(ctx, o, txID, ChannelMock, "")
	if err != nil {
		return dto.OrderDTO{}, err
	}
	return dto.NewOrderDTO(*paid), nil
}

// markPaid 는 PENDING 에서 PAID 로 한 번만 바꾼다. 이미 PAID 면 그대로 돌려준다.
// 상태 변경, 결제 기록, 멤버십 연장 순서이다.
func (s *OrderService) markPaid(ctx context.Context, o *models.Order, txID, channel, raw string) (*models.Order, error) {
	if o.Status == models.OrderPaid {
		return o, nil
	}
	if o.Status != models.OrderPending {
		return nil, apperr.BadRequest("订单状态不允许支付")
	}

	now := s.now()
	ok, err := s.orders.TransitionStatus(ctx, o.ID, models.OrderPending, models.OrderPaid, map[string]any{
		"paid_at":        now,
		"transaction_id": txID,
	})
	if err != nil {
		return nil, apperr.Internal("order pay failed", err)
	}
	if !ok {
		current, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, apperr.Internal("order reload failed", err)
		}
		if current.Status == models.OrderPaid {
			return current, nil
		}
		return nil, apperr.BadRequest("订单状态不允许支付")
	}
	o.Status = models.OrderPaid
	o.PaidAt = &now
	o.TransactionID = txID

	if err := s.payments.Create(ctx, &models.PaymentRecord{
		OrderID:       o.ID,
		UserID:        o.UserID,
		TransactionID: txID,
		Channel:       channel,
		AmountCents:   o.AmountCents,
		TradeState:    tradeStateSuccess,
		RawNotify:     raw,
		CreatedAt:     now,
	}); err != nil {
		config.Logger.Errorf("payment record for order %s: %v", o.ID, err)
	}

	user, err := s.users.ExtendMembership(ctx, o.UserID, o.PlanType.Months(), now)
	if err != nil {
		return nil, apperr.Internal("membership extend failed", err)
	}
	config.InfoWithFields("order paid", config.Fields{
		"order_id":         o.ID,
		"user_id":          o.UserID,
		"channel":          channel,
		"member_expire_at": user.MemberExpireAt,
	})
	return o, nil
}

func (s *OrderService) PaymentStatus(ctx context.Context, userID, orderID string) (dto.PaymentStatusDTO, error) {
	o, err := s.loadOwned(ctx, userID, orderID, "无权查看该订单")
	if err != nil {
		return dto.PaymentStatusDTO{}, err
	}
	records, err := s.payments.ListByOrder(ctx, o.ID)
	if err != nil {
		return dto.PaymentStatusDTO{}, apperr.Internal("payment lookup failed", err)
	}
	return dto.PaymentStatusDTO{
		OrderID:       o.ID,
		Status:        o.Status,
		PaidAt:        o.PaidAt,
		TransactionID: o.TransactionID,
		Payments:      len(records),
	}, nil
}

// CancelExpiredOrders 는 expire_at 이 지난 PENDING 주문을 EXPIRED 로 바꾼다.
func (s *OrderService) CancelExpiredOrders(ctx context.Context) (int64, error) {
	ids, err := s.orders.ListExpiredPendingIDs(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired orders: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.orders.UpdateStatusByIDs(ctx, ids, models.OrderExpired)
	if err != nil {
		return 0, fmt.Errorf("expire orders: %w", err)
	}
	config.Logger.Infof("expired %d pending orders", n)
	return n, nil
}
