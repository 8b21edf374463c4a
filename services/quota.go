package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"xinji/apperr"
	"xinji/cache"
	"xinji/config"
	"xinji/models"
)

// QuotaService 는 사용자별 일일 AI 분석 횟수를 캐시 카운터로 관리한다.
// Check 와 Increment 사이에는 원자성이 없다. 동시 요청이 몰리면 한도를 조금 넘을 수 있다.
type QuotaService struct {
	store cache.Store
	cfg   config.QuotaConfig
	loc   *time.Location
	now   func() time.Time
}

func NewQuotaService(store cache.Store, cfg config.QuotaConfig, loc *time.Location) *QuotaService {
	if loc == nil {
		loc = time.Local
	}
	return &QuotaService{store: store, cfg: cfg, loc: loc, now: time.Now}
}

// Limit 은 사용자 등급별 일일 한도이다.
func (s *QuotaService) Limit(u *models.User) int {
	if u.IsPro(s.now()) {
		return s.cfg.ProDailyLimit
	}
	return s.cfg.FreeDailyLimit
}

// Used 는 오늘 사용한 횟수이다. 키가 없으면 0 이다.
func (s *QuotaService) Used(ctx context.Context, userID string) (int, error) {
	v, err := s.store.Get(ctx, cache.QuotaKey(userID, s.now().In(s.loc)))
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Check 는 한도에 도달했으면 FORBIDDEN 을 반환한다.
func (s *QuotaService) Check(ctx context.Context, u *models.User) error {
	used, err := s.Used(ctx, u.ID)
	if err != nil {
		return apperr.Internal("quota lookup failed", err)
	}
	if used >= s.Limit(u) {
		if u.IsPro(s.now()) {
			return apperr.Forbidden("今日AI分析次数已用完，请明天再试")
		}
		return apperr.Forbidden("今日AI分析次数已用完，升级Pro会员可获得更多次数")
	}
	return nil
}

// Increment 는 카운터를 올리고 만료 시각을 오늘 끝으로 맞춘다.
func (s *QuotaService) Increment(ctx context.Context, userID string) (int64, error) {
	now := s.now().In(s.loc)
	key := cache.QuotaKey(userID, now)
	n, err := s.store.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := s.store.ExpireAt(ctx, key, cache.EndOfDay(now, s.loc)); err != nil {
		return n, err
	}
	return n, nil
}

// ResetAll 은 자정 배치에서 모든 카운터를 지운다. 만료로도 사라지므로 보조 수단이다.
func (s *QuotaService) ResetAll(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, cache.QuotaPrefix+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}
