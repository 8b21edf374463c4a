package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"xinji/models"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, status models.OrderStatus, page, pageSize int) ([]models.Order, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Order
	err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// TransitionStatus 는 현재 상태가 from 일 때만 to 로 바꾼다. 바뀌었으면 true 이다.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// ListExpiredPendingIDs 는 expire_at 이 지난 PENDING 주문 ID 목록이다.
func (r *OrderRepository) ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND expire_at < ?", models.OrderPending, now).
		Pluck("id", &ids).Error
	return ids, err
}

// UpdateStatusByIDs 는 ID 목록 중 여전히 PENDING 인 주문만 status 로 일괄 변경한다.
func (r *OrderRepository) UpdateStatusByIDs(ctx context.Context, ids []string, status models.OrderStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ? AND status = ?", ids, models.OrderPending).
		Update("status", status)
	return res.RowsAffected, res.Error
}

type PaymentRecordRepository struct {
	db *gorm.DB
}

func NewPaymentRecordRepository(db *gorm.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

func (r *PaymentRecordRepository) Create(ctx context.Context, p *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRecordRepository) ListByOrder(ctx context.Context, orderID string) ([]models.PaymentRecord, error) {
	var items []models.PaymentRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}
