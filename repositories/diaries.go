package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"xinji/models"
)

// DiaryFilter 는 사용자 일기 목록 조회 조건이다. IDs 가 nil 이 아니면 해당 ID 로 제한한다.
type DiaryFilter struct {
	UserID string
	Start  *time.Time
	End    *time.Time
	IDs    []string
}

type DiaryRepository struct {
	db *gorm.DB
}

func NewDiaryRepository(db *gorm.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

func (r *DiaryRepository) Create(ctx context.Context, d *models.Diary) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// GetByID 는 soft delete 여부와 무관하게 조회한다. 삭제 여부 판단은 서비스가 한다.
func (r *DiaryRepository) GetByID(ctx context.Context, id string) (*models.Diary, error) {
	var d models.Diary
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *DiaryRepository) Save(ctx context.Context, d *models.Diary) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DiaryRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Diary{}).Where("id = ?", id).Update("deleted", true).Error
}

// ListByUser 는 diary_date 최신순 페이지와 전체 건수를 반환한다.
func (r *DiaryRepository) ListByUser(ctx context.Context, f DiaryFilter, page, pageSize int) ([]models.Diary, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	q := r.db.WithContext(ctx).Model(&models.Diary{}).Where("user_id = ? AND deleted = ?", f.UserID, false)
	if f.Start != nil {
		q = q.Where("diary_date >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("diary_date <= ?", *f.End)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []models.Diary{}, 0, nil
		}
		q = q.Where("id IN ?", f.IDs)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Diary
	err := q.Order("diary_date DESC").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// ListInRange 는 [start, end) 구간의 삭제되지 않은 일기를 날짜 오름차순으로 반환한다.
func (r *DiaryRepository) ListInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Diary, error) {
	var items []models.Diary
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ? AND diary_date >= ? AND diary_date < ?", userID, false, start, end).
		Order("diary_date ASC").Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *DiaryRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Diary{}).
		Where("user_id = ? AND deleted = ?", userID, false).Count(&n).Error
	return n, err
}

// MarkAnalyzed 는 분석 완료 시 현재 분석 포인터와 감정 요약을 기록한다.
func (r *DiaryRepository) MarkAnalyzed(ctx context.Context, id, analysisID, emotion string, intensity float64) error {
	return r.db.WithContext(ctx).Model(&models.Diary{}).Where("id = ?", id).Updates(map[string]any{
		"is_analyzed":       true,
		"analysis_id":       analysisID,
		"primary_emotion":   emotion,
		"emotion_intensity": intensity,
	}).Error
}
