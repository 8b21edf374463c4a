package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"xinji/apperr"
	"xinji/cache"
	"xinji/config"
	"xinji/dto"
	"xinji/models"
	"xinji/repositories"
	"xinji/secure"
)

const (
	deleteConfirmText = "我确认删除账号"
	maxNicknameRunes  = 32

	roleUser = "user"
	rolePro  = "pro"
)

type UserService struct {
	users   UserStore
	diaries DiaryStore
	store   cache.Store
	cipher  ContentCipher
	tokens  TokenIssuer
	quota   *QuotaService
	sms     config.SMSConfig
	jwt     config.JWTConfig
	loc     *time.Location
	now     func() time.Time
}

type UserDeps struct {
	Users    UserStore
	Diaries  DiaryStore
	Store    cache.Store
	Cipher   ContentCipher
	Tokens   TokenIssuer
	Quota    *QuotaService
	SMS      config.SMSConfig
	JWT      config.JWTConfig
	Location *time.Location
}

func NewUserService(d UserDeps) *UserService {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &UserService{
		users:   d.Users,
		diaries: d.Diaries,
		store:   d.Store,
		cipher:  d.Cipher,
		tokens:  d.Tokens,
		quota:   d.Quota,
		sms:     d.SMS,
		jwt:     d.JWT,
		loc:     loc,
		now:     time.Now,
	}
}

// SendCode 는 시간당/일당 발송 횟수를 센 뒤 6자리 코드를 저장한다.
// 실제 SMS 게이트웨이는 없고 mock 모드에서는 코드를 로그로 남긴다.
func (s *UserService) SendCode(ctx context.Context, phone string) error {
	if !secure.ValidPhone(phone) {
		return apperr.BadRequest("手机号格式不正确")
	}
	now := s.now()

	hourly, err := s.bump(ctx, cache.SMSHourCountKey(phone), now.Add(time.Hour))
	if err != nil {
		return apperr.Internal("sms hourly counter failed", err)
	}
	if hourly > int64(s.sms.HourlyLimit) {
		return apperr.TooManyRequests("发送过于频繁，请1小时后再试")
	}
	daily, err := s.bump(ctx, cache.SMSDayCountKey(phone), cache.EndOfDay(now, s.loc))
	if err != nil {
		return apperr.Internal("sms daily counter failed", err)
	}
	if daily > int64(s.sms.DailyLimit) {
		return apperr.TooManyRequests("今日发送次数已达上限")
	}

	code := fmt.Sprintf("%06d", rand.IntN(1_000_000))
	if err := s.store.Set(ctx, cache.SMSCodeKey(phone), code, s.sms.CodeTTL); err != nil {
		return apperr.Internal("sms code save failed", err)
	}

	if s.sms.MockEnabled {
		config.InfoWithFields("mock sms code issued", config.Fields{"phone": secure.MaskPhone(phone), "code": code})
	} else {
		config.WarnWithFields("sms gateway not configured, code stored only", config.Fields{"phone": secure.MaskPhone(phone)})
	}
	return nil
}

// bump 는 카운터를 올리고 처음 만든 키에만 만료 시각을 건다.
func (s *UserService) bump(ctx context.Context, key string, expireAt time.Time) (int64, error) {
	n, err := s.store.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.store.ExpireAt(ctx, key, expireAt); err != nil {
			return n, err
		}
	}
	return n, nil
}

// verifyCode 는 일치하면 코드를 지운다. 한 번만 쓸 수 있다.
func (s *UserService) verifyCode(ctx context.Context, phone, code string) error {
	stored, err := s.store.Get(ctx, cache.SMSCodeKey(phone))
	if errors.Is(err, cache.ErrMiss) || (err == nil && stored != code) {
		return apperr.BadRequest("验证码错误或已过期")
	}
	if err != nil {
		return apperr.Internal("sms code lookup failed", err)
	}
	if err := s.store.Delete(ctx, cache.SMSCodeKey(phone)); err != nil {
		config.Logger.Warnf("consume sms code for %s: %v", secure.MaskPhone(phone), err)
	}
	return nil
}

// Login 은 번호 해시로 사용자를 찾고, 없으면 FREE 사용자로 가입시킨다.
func (s *UserService) Login(ctx context.Context, phone, code string) (dto.LoginDTO, error) {
	if !secure.ValidPhone(phone) {
		return dto.LoginDTO{}, apperr.BadRequest("手机号格式不正确")
	}
	if err := s.verifyCode(ctx, phone, code); err != nil {
		return dto.LoginDTO{}, err
	}

	now := s.now()
	isNew := false
	user, err := s.users.GetByPhoneHash(ctx, secure.HashPhone(phone))
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		user, err = s.register(ctx, phone, now)
		if err != nil {
			return dto.LoginDTO{}, err
		}
		isNew = true
	case err != nil:
		return dto.LoginDTO{}, apperr.Internal("user lookup failed", err)
	}

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{"last_login_at": now}); err != nil {
		config.Logger.Warnf("update last login for %s: %v", user.ID, err)
	}
	user.LastLoginAt = &now

	token, exp, err := s.tokens.Sign(user.ID, tokenRole(user, now))
	if err != nil {
		return dto.LoginDTO{}, apperr.Internal("token sign failed", err)
	}
	profile, err := s.profileOf(ctx, user)
	if err != nil {
		return dto.LoginDTO{}, err
	}

	config.InfoWithFields("user logged in", config.Fields{"user_id": user.ID, "new_user": isNew})
	return dto.LoginDTO{
		TokenDTO:  dto.TokenDTO{Token: token, ExpiresAt: exp},
		IsNewUser: isNew,
		User:      profile,
	}, nil
}

func (s *UserService) register(ctx context.Context, phone string, now time.Time) (*models.User, error) {
	encrypted, err := s.cipher.Encrypt(phone)
	if err != nil {
		return nil, apperr.Internal("phone encrypt failed", err)
	}
	user := &models.User{
		ID:             newID(),
		PhoneHash:      secure.HashPhone(phone),
		PhoneEncrypted: encrypted,
		Nickname:       "用户" + phone[len(phone)-4:],
		MemberStatus:   models.MemberFree,
		CreatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Internal("user create failed", err)
	}
	return user, nil
}

// RefreshToken 은 만료 전 refresh_threshold 이내 또는 만료 후 expired_grace 이내에만 새 토큰을 준다.
func (s *UserService) RefreshToken(ctx context.Context, token string) (dto.TokenDTO, error) {
	sub, _, exp, err := s.tokens.ParseIgnoringExpiry(token)
	if err != nil {
		return dto.TokenDTO{}, apperr.Unauthorized("token无效")
	}
	now := s.now()
	switch {
	case now.After(exp.Add(s.jwt.ExpiredGrace)):
		return dto.TokenDTO{}, apperr.Unauthorized("token已过期，请重新登录")
	case exp.Sub(now) > s.jwt.RefreshThreshold:
		return dto.TokenDTO{}, apperr.BadRequest("token未到刷新时间")
	}

	user, err := s.loadUser(ctx, sub)
	if err != nil {
		return dto.TokenDTO{}, err
	}
	signed, newExp, err := s.tokens.Sign(user.ID, tokenRole(user, now))
	if err != nil {
		return dto.TokenDTO{}, apperr.Internal("token sign failed", err)
	}
	return dto.TokenDTO{Token: signed, ExpiresAt: newExp}, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (dto.ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return dto.ProfileDTO{}, err
	}
	return s.profileOf(ctx, user)
}

// UpdateProfile 은 nil 이 아닌 값만 바꾼다.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, nickname, avatar *string) (dto.ProfileDTO, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return dto.ProfileDTO{}, err
	}
	fields := map[string]any{}
	if nickname != nil {
		n := strings.TrimSpace(*nickname)
		if n == "" || utf8.RuneCountInString(n) > maxNicknameRunes {
			return dto.ProfileDTO{}, apperr.BadRequest("昵称长度不正确")
		}
		fields["nickname"] = n
		user.Nickname = n
	}
	if avatar != nil {
		fields["avatar"] = *avatar
		user.Avatar = *avatar
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			return dto.ProfileDTO{}, apperr.Internal("profile update failed", err)
		}
	}
	return s.profileOf(ctx, user)
}

// DeleteAccount 는 확인 문구, 인증 코드, 번호 일치를 모두 확인한 뒤 soft delete 한다.
func (s *UserService) DeleteAccount(ctx context.Context, userID, confirmText, phone, code string) error {
	if confirmText != deleteConfirmText {
		return apperr.BadRequest("确认文本不正确")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if secure.HashPhone(phone) != user.PhoneHash {
		return apperr.BadRequest("手机号与账号不匹配")
	}
	if err := s.verifyCode(ctx, phone, code); err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, userID); err != nil {
		return apperr.Internal("account delete failed", err)
	}
	config.InfoWithFields("account deleted", config.Fields{"user_id": userID})
	return nil
}

func (s *UserService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Unauthorized("用户不存在")
	}
	if err != nil {
		return nil, apperr.Internal("user lookup failed", err)
	}
	return user, nil
}

func (s *UserService) profileOf(ctx context.Context, user *models.User) (dto.ProfileDTO, error) {
	phone := ""
	if plain, err := s.cipher.Decrypt(user.PhoneEncrypted); err == nil {
		phone = secure.MaskPhone(plain)
	} else {
		config.Logger.Warnf("decrypt phone for %s: %v", user.ID, err)
	}
	count, err := s.diaries.CountByUser(ctx, user.ID)
	if err != nil {
		return dto.ProfileDTO{}, apperr.Internal("diary count failed", err)
	}
	used, err := s.quota.Used(ctx, user.ID)
	if err != nil {
		return dto.ProfileDTO{}, apperr.Internal("quota lookup failed", err)
	}

	status := models.MemberFree
	if user.IsPro(s.now()) {
		status = models.MemberPro
	}
	return dto.ProfileDTO{
		ID:             user.ID,
		Phone:          phone,
		Nickname:       user.Nickname,
		Avatar:         user.Avatar,
		MemberStatus:   string(status),
		MemberExpireAt: user.MemberExpireAt,
		DiaryCount:     count,
		AIQuota:        dto.QuotaDTO{Used: used, Limit: s.quota.Limit(user)},
		CreatedAt:      user.CreatedAt,
	}, nil
}

func tokenRole(u *models.User, now time.Time) string {
	if u.IsPro(now) {
		return rolePro
	}
	return roleUser
}
