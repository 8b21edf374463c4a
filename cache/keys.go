package cache

import "time"

const (
	QuotaPrefix        = "ai:quota:"
	AnalysisLockPrefix = "analysis:lock:"
	ReportRefreshLock  = "report:weekly:refresh:"
	ReportCachePrefix  = "report:weekly:"
	DiaryCreateLimit   = "diary:create:limit:"
	SMSCodePrefix      = "sms:code:"
	SMSHourCountPrefix = "sms:count:hour:"
	SMSDayCountPrefix  = "sms:count:day:"
)

// QuotaKey 는 사용자의 해당 날짜 AI 분석 사용량 키이다. 예) ai:quota:u1:2024-05-06
func QuotaKey(userID string, day time.Time) string {
	return QuotaPrefix + userID + ":" + day.Format(time.DateOnly)
}

func AnalysisLockKey(diaryID string) string { return AnalysisLockPrefix + diaryID }

func ReportRefreshLockKey(userID, weekStart string) string {
	return ReportRefreshLock + userID + ":" + weekStart
}

func ReportCacheKey(userID, weekStart string) string {
	return ReportCachePrefix + userID + ":" + weekStart
}

func DiaryCreateLimitKey(userID string) string { return DiaryCreateLimit + userID }

func SMSCodeKey(phone string) string      { return SMSCodePrefix + phone }
func SMSHourCountKey(phone string) string { return SMSHourCountPrefix + phone }
func SMSDayCountKey(phone string) string  { return SMSDayCountPrefix + phone }

// EndOfDay 는 loc 기준으로 t 가 속한 날의 다음 자정이다.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc)
}
