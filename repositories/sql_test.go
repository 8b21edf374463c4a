package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"xinji/db"
	"xinji/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	u := &models.User{ID: "u1", PhoneHash: "h1", Nickname: "小心", MemberStatus: models.MemberFree}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByPhoneHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SoftDelete(ctx, "u1"))
	_, err = repo.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByPhoneHash(ctx, "h1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_ExtendMembership(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &models.User{ID: "u1", PhoneHash: "h1", MemberStatus: models.MemberFree}))

	u, err := repo.ExtendMembership(ctx, "u1", 1, now)
	require.NoError(t, err)
	assert.Equal(t, models.MemberPro, u.MemberStatus)
	assert.True(t, u.MemberExpireAt.Equal(now.AddDate(0, 1, 0)))

	// 아직 유효한 만료일 뒤로 이어 붙인다.
	u, err = repo.ExtendMembership(ctx, "u1", 3, now.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.True(t, u.MemberExpireAt.Equal(now.AddDate(0, 4, 0)))
}

func TestUserRepository_DowngradeExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(48 * time.Hour)

	require.NoError(t, repo.Create(ctx, &models.User{ID: "a", PhoneHash: "ha", MemberStatus: models.MemberPro, MemberExpireAt: &past}))
	require.NoError(t, repo.Create(ctx, &models.User{ID: "b", PhoneHash: "hb", MemberStatus: models.MemberPro, MemberExpireAt: &future}))

	n, err := repo.DowngradeExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	expiring, err := repo.ListExpiringBetween(ctx, now, now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "b", expiring[0].ID)

	ids, err := repo.ListActiveIDs(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
	ids, err = repo.ListActiveIDs(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestDiaryRepository_ListAndRange(t *testing.T) {
	ctx := context.Background()
	repo := NewDiaryRepository(setupTestDB(t))
	base := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Diary{
			ID:        fmt.Sprintf("d%d", i),
			UserID:    "u1",
			Title:     fmt.Sprintf("day %d", i),
			DiaryDate: base.AddDate(0, 0, i),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Diary{ID: "other", UserID: "u2", DiaryDate: base}))
	require.NoError(t, repo.SoftDelete(ctx, "d4"))

	items, total, err := repo.ListByUser(ctx, DiaryFilter{UserID: "u1"}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, "d3", items[0].ID)

	items, _, err = repo.ListByUser(ctx, DiaryFilter{UserID: "u1", IDs: []string{"d1"}}, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, total, err = repo.ListByUser(ctx, DiaryFilter{UserID: "u1", IDs: []string{}}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)

	inWeek, err := repo.ListInRange(ctx, "u1", base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, inWeek, 2)
	assert.Equal(t, "d1", inWeek[0].ID)

	n, err := repo.CountByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestDiaryRepository_MarkAnalyzed(t *testing.T) {
	ctx := context.Background()
	repo := NewDiaryRepository(setupTestDB(t))
	require.NoError(t, repo.Create(ctx, &models.Diary{ID: "d1", UserID: "u1", DiaryDate: time.Now()}))

	require.NoError(t, repo.MarkAnalyzed(ctx, "d1", "a1", "SAD", 0.7))

	d, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, d.IsAnalyzed)
	assert.Equal(t, "a1", d.AnalysisID)
	assert.Equal(t, "SAD", d.PrimaryEmotion)
	assert.InDelta(t, 0.7, d.EmotionIntensity, 1e-9)
}

func TestOrderRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(setupTestDB(t))
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.Order{ID: "o1", UserID: "u1", PlanType: models.PlanMonthly, AmountCents: 2900, Status: models.OrderPending, ExpireAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &models.Order{ID: "o2", UserID: "u1", PlanType: models.PlanAnnual, AmountCents: 28800, Status: models.OrderPending, ExpireAt: now.Add(time.Hour)}))

	ok, err := repo.TransitionStatus(ctx, "o2", models.OrderPending, models.OrderPaid, map[string]any{"transaction_id": "tx1"})
	require.NoError(t, err)
	assert.True(t, ok)

	// 두 번째 전이는 일어나지 않는다.
	ok, err = repo.TransitionStatus(ctx, "o2", models.OrderPending, models.OrderPaid, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.ListExpiredPendingIDs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, ids)

	n, err := repo.UpdateStatusByIDs(ctx, append(ids, "o2"), models.OrderExpired)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	items, total, err := repo.ListByUser(ctx, "u1", models.OrderExpired, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "o1", items[0].ID)

	paid, err := repo.GetByID(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, "tx1", paid.TransactionID)
}

func TestPaymentRecordRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRecordRepository(setupTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.PaymentRecord{OrderID: "o1", UserID: "u1", TransactionID: "tx", Channel: "WECHAT", AmountCents: 2900, TradeState: "SUCCESS"}))
	items, err := repo.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotZero(t, items[0].ID)
}
