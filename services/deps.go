package services

import (
	"context"
	"time"

	"xinji/models"
	"xinji/repositories"
)

// 서비스는 아래의 작은 저장소 인터페이스에만 의존한다. 구현은 repositories 패키지에 있다.

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhoneHash(ctx context.Context, hash string) (*models.User, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	SoftDelete(ctx context.Context, id string) error
	ListActiveIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	ExtendMembership(ctx context.Context, id string, months int, now time.Time) (*models.User, error)
	DowngradeExpired(ctx context.Context, now time.Time) (int64, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.User, error)
}

type DiaryStore interface {
	Create(ctx context.Context, d *models.Diary) error
	GetByID(ctx context.Context, id string) (*models.Diary, error)
	Save(ctx context.Context, d *models.Diary) error
	SoftDelete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, f repositories.DiaryFilter, page, pageSize int) ([]models.Diary, int64, error)
	ListInRange(ctx context.Context, userID string, start, end time.Time) ([]models.Diary, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	MarkAnalyzed(ctx context.Context, id, analysisID, emotion string, intensity float64) error
}

type ContentStore interface {
	Upsert(ctx context.Context, c *models.DiaryContent) error
	GetByID(ctx context.Context, id string) (*models.DiaryContent, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.DiaryContent, error)
	FindIDsByPreviewKeyword(ctx context.Context, userID, keyword string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type AnalysisStore interface {
	Insert(ctx context.Context, a *models.AnalysisResult) error
	GetByID(ctx context.Context, id string) (*models.AnalysisResult, error)
	Complete(ctx context.Context, a *models.AnalysisResult) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	FailStaleProcessing(ctx context.Context, before time.Time, reason string) (int64, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.AnalysisResult, error)
	FindCompletedSince(ctx context.Context, since time.Time) ([]models.AnalysisResult, error)
	LatestByDiary(ctx context.Context, diaryID string) (*models.AnalysisResult, error)
	FindHighRiskSince(ctx context.Context, since time.Time) ([]models.AnalysisResult, error)
}

type ReportStore interface {
	UpsertByUserWeek(ctx context.Context, w *models.WeeklyReport) error
	GetByUserWeek(ctx context.Context, userID, weekStart string) (*models.WeeklyReport, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, status models.OrderStatus, page, pageSize int) ([]models.Order, int64, error)
	TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus, fields map[string]any) (bool, error)
	ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]string, error)
	UpdateStatusByIDs(ctx context.Context, ids []string, status models.OrderStatus) (int64, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.PaymentRecord) error
	ListByOrder(ctx context.Context, orderID string) ([]models.PaymentRecord, error)
}

// TaskDispatcher 는 events.Dispatcher 가 구현한다.
type TaskDispatcher interface {
	DispatchAnalysis(ctx context.Context, analysisID, diaryID, userID string) (string, error)
	DispatchWeeklyRefresh(ctx context.Context, userID, weekStart string) (string, error)
}

// ContentCipher 는 secure.Cipher 가 구현한다.
type ContentCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(encoded string) (string, error)
}

// TokenIssuer 는 cmd/api/auth.JWTManager 가 구현한다.
type TokenIssuer interface {
	Sign(sub, role string) (string, time.Time, error)
	// ParseIgnoringExpiry 는 서명만 검증하고 만료 시각과 함께 subject 를 돌려준다.
	ParseIgnoringExpiry(token string) (sub, role string, expiresAt time.Time, err error)
}
