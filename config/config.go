package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Timezone   string           `yaml:"timezone"`
	Mongo      MongoConfig      `yaml:"mongo"`
	SQL        SQLConfig        `yaml:"sql"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Quota      QuotaConfig      `yaml:"quota"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Report     ReportConfig     `yaml:"report"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Membership MembershipConfig `yaml:"membership"`
	Order      OrderConfig      `yaml:"order"`
	SMS        SMSConfig        `yaml:"sms"`
	JWT        JWTConfig        `yaml:"jwt"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Server     ServerConfig     `yaml:"server"`
	Rules      *RuleTables      `yaml:"rules,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// SQLConfig 는 사용자/일기 메타데이터/주문을 저장하는 관계형 DB 설정이다.
// driver 는 postgres(운영) 또는 sqlite(로컬 개발) 를 사용한다.
type SQLConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// AIConfig 는 감정 분석/주간 리포트 요약에 사용하는 LLM 설정이다.
type AIConfig struct {
	// Provider 는 openai(OpenAI 호환 chat/completions) 또는 google 이다.
	Provider      string        `yaml:"provider"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts uint          `yaml:"retry_attempts"`
}

// QuotaConfig 는 사용자 등급별 일일 AI 분석 한도이다.
type QuotaConfig struct {
	FreeDailyLimit int `yaml:"free_daily_limit"`
	ProDailyLimit  int `yaml:"pro_daily_limit"`
}

type AnalysisConfig struct {
	LockTTL        time.Duration `yaml:"lock_ttl"`
	MaxPromptChars int           `yaml:"max_prompt_chars"`
	MaxKeywords    int           `yaml:"max_keywords"`
	StaleAfter     time.Duration `yaml:"stale_after"`
	ReconcileSince time.Duration `yaml:"reconcile_since"`
}

type ReportConfig struct {
	MaxCharsPerDiary int           `yaml:"max_chars_per_diary"`
	MaxTotalChars    int           `yaml:"max_total_chars"`
	KeywordSlots     int           `yaml:"keyword_slots"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	RefreshDebounce  time.Duration `yaml:"refresh_debounce"`
	BatchPageSize    int           `yaml:"batch_page_size"`
}

// EventBusConfig 는 비동기 작업 큐 설정이다.
// mode=memory 이면 API 프로세스 안에서 워커 풀로 처리하고, kafka 이면 processor 서비스가 소비한다.
type EventBusConfig struct {
	Mode          string `yaml:"mode"`
	Workers       int    `yaml:"workers"`
	QueueSize     int    `yaml:"queue_size"`
	AnalysisTopic string `yaml:"analysis_topic"`
	ReportTopic   string `yaml:"report_topic"`
	Partitions    int    `yaml:"partitions"`
}

// MembershipConfig 의 가격 단위는 위안(元)이다.
type MembershipConfig struct {
	MonthlyPrice   int `yaml:"monthly_price"`
	QuarterlyPrice int `yaml:"quarterly_price"`
	AnnualPrice    int `yaml:"annual_price"`
}

type OrderConfig struct {
	PendingTTL     time.Duration `yaml:"pending_ttl"`
	MockPayEnabled bool          `yaml:"mock_pay_enabled"`
	WechatAppID    string        `yaml:"wechat_app_id"`
}

type SMSConfig struct {
	MockEnabled bool          `yaml:"mock_enabled"`
	CodeTTL     time.Duration `yaml:"code_ttl"`
	HourlyLimit int           `yaml:"hourly_limit"`
	DailyLimit  int           `yaml:"daily_limit"`
}

type JWTConfig struct {
	TTL              time.Duration `yaml:"ttl"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
	ExpiredGrace     time.Duration `yaml:"expired_grace"`
}

// SchedulerConfig 는 robfig/cron 표현식이다. 비어 있으면 해당 작업을 등록하지 않는다.
type SchedulerConfig struct {
	WeeklyReports    string `yaml:"weekly_reports"`
	MembershipExpiry string `yaml:"membership_expiry"`
	QuotaReset       string `yaml:"quota_reset"`
	OrderExpiry      string `yaml:"order_expiry"`
	HighRiskMonitor  string `yaml:"high_risk_monitor"`
	Reconcile        string `yaml:"reconcile"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	c, err := Load(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}
	config = c
}

// Load 는 지정된 YAML 파일을 읽어 기본값을 채운 AppConfig 를 반환한다.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

// Location 은 "오늘", "이번 주" 계산에 사용하는 타임존이다.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RuleTables 는 YAML 에서 재정의하지 않았다면 기본 규칙 테이블을 반환한다.
func (c AppConfig) RuleTables() RuleTables {
	if c.Rules == nil {
		return DefaultRuleTables()
	}
	return c.Rules.withDefaults()
}

func (c *AppConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "xinji"
	}
	if c.SQL.Driver == "" {
		c.SQL.Driver = "sqlite"
	}
	if c.SQL.DSN == "" {
		c.SQL.DSN = "xinji.db"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "openai"
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "qwen-plus"
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 30 * time.Second
	}
	if c.Quota.FreeDailyLimit <= 0 {
		c.Quota.FreeDailyLimit = 5
	}
	if c.Quota.ProDailyLimit <= 0 {
		c.Quota.ProDailyLimit = 1000
	}
	if c.Analysis.LockTTL <= 0 {
		c.Analysis.LockTTL = 2 * time.Minute
	}
	if c.Analysis.MaxPromptChars <= 0 {
		c.Analysis.MaxPromptChars = 2000
	}
	if c.Analysis.MaxKeywords <= 0 {
		c.Analysis.MaxKeywords = 10
	}
	if c.Analysis.StaleAfter <= 0 {
		c.Analysis.StaleAfter = 10 * time.Minute
	}
	if c.Analysis.ReconcileSince <= 0 {
		c.Analysis.ReconcileSince = 24 * time.Hour
	}
	if c.Report.MaxCharsPerDiary <= 0 {
		c.Report.MaxCharsPerDiary = 800
	}
	if c.Report.MaxTotalChars <= 0 {
		c.Report.MaxTotalChars = 6000
	}
	if c.Report.KeywordSlots <= 0 {
		c.Report.KeywordSlots = 20
	}
	if c.Report.CacheTTL <= 0 {
		c.Report.CacheTTL = 7 * 24 * time.Hour
	}
	if c.Report.RefreshDebounce <= 0 {
		c.Report.RefreshDebounce = time.Minute
	}
	if c.Report.BatchPageSize <= 0 {
		c.Report.BatchPageSize = 100
	}
	if c.EventBus.Mode == "" {
		c.EventBus.Mode = "memory"
	}
	if c.EventBus.Workers <= 0 {
		c.EventBus.Workers = 4
	}
	if c.EventBus.QueueSize <= 0 {
		c.EventBus.QueueSize = 256
	}
	if c.EventBus.AnalysisTopic == "" {
		c.EventBus.AnalysisTopic = "xinji.analysis.tasks"
	}
	if c.EventBus.ReportTopic == "" {
		c.EventBus.ReportTopic = "xinji.report.tasks"
	}
	if c.EventBus.Partitions <= 0 {
		c.EventBus.Partitions = 3
	}
	if c.Membership.MonthlyPrice <= 0 {
		c.Membership.MonthlyPrice = 29
	}
	if c.Membership.QuarterlyPrice <= 0 {
		c.Membership.QuarterlyPrice = 78
	}
	if c.Membership.AnnualPrice <= 0 {
		c.Membership.AnnualPrice = 288
	}
	if c.Order.PendingTTL <= 0 {
		c.Order.PendingTTL = 15 * time.Minute
	}
	if c.SMS.CodeTTL <= 0 {
		c.SMS.CodeTTL = 5 * time.Minute
	}
	if c.SMS.HourlyLimit <= 0 {
		c.SMS.HourlyLimit = 5
	}
	if c.SMS.DailyLimit <= 0 {
		c.SMS.DailyLimit = 10
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 7 * 24 * time.Hour
	}
	if c.JWT.RefreshThreshold <= 0 {
		c.JWT.RefreshThreshold = 24 * time.Hour
	}
	if c.JWT.ExpiredGrace <= 0 {
		c.JWT.ExpiredGrace = time.Hour
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
