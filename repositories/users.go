package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"xinji/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// GetByID 는 삭제되지 않은 사용자만 반환한다.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByPhoneHash(ctx context.Context, hash string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("phone_hash = ? AND deleted = ?", hash, false).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// SoftDelete 는 계정을 삭제 처리하고 같은 번호로 재가입할 수 있도록 phone_hash 를 비운다.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"deleted": true, "phone_hash": "deleted:" + id}).Error
}

// ListActiveIDs 는 id 오름차순 키셋 페이지네이션이다. 배치 작업에서 사용한다.
func (r *UserRepository) ListActiveIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("deleted = ? AND id > ?", false, afterID).
		Order("id ASC").Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// ExtendMembership 은 max(now, 현재 만료일) 에서 months 만큼 Pro 를 연장한다.
func (r *UserRepository) ExtendMembership(ctx context.Context, id string, months int, now time.Time) (*models.User, error) {
	var out models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		base := now
		if out.MemberStatus == models.MemberPro && out.MemberExpireAt != nil && out.MemberExpireAt.After(now) {
			base = *out.MemberExpireAt
		}
		expire := base.AddDate(0, months, 0)
		out.MemberStatus = models.MemberPro
		out.MemberExpireAt = &expire
		return tx.Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
			"member_status":    models.MemberPro,
			"member_expire_at": expire,
		}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// DowngradeExpired 는 만료된 Pro 회원을 FREE 로 되돌리고 변경 건수를 반환한다.
func (r *UserRepository) DowngradeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("member_status = ? AND member_expire_at IS NOT NULL AND member_expire_at < ?", models.MemberPro, now).
		Update("member_status", models.MemberFree)
	return res.RowsAffected, res.Error
}

func (r *UserRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("deleted = ? AND member_status = ? AND member_expire_at BETWEEN ? AND ?", false, models.MemberPro, from, to).
		Find(&users).Error
	return users, err
}
