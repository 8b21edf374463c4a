// Package app 은 각 cmd 바이너리가 공유하는 의존성 그래프를 dig 컨테이너로 구성한다.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"
	"gorm.io/gorm"

	"xinji/aiclient"
	"xinji/cache"
	"xinji/cmd/api/auth"
	"xinji/config"
	"xinji/db"
	"xinji/eventbus"
	"xinji/events"
	"xinji/repositories"
	"xinji/scheduler"
	"xinji/secure"
	"xinji/services"
)

const defaultSource = "xinji"

func ProvideConfig() config.AppConfig {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)
	return cfg
}

func ProvideLocation(cfg config.AppConfig) *time.Location {
	return cfg.Location()
}

func ProvideRuleEngine(cfg config.AppConfig) *services.RuleEngine {
	return services.NewRuleEngine(cfg.RuleTables())
}

func ProvideMongo(cfg config.AppConfig) (*mongo.Database, error) {
	if err := db.Init(context.Background(), cfg.Mongo); err != nil {
		return nil, fmt.Errorf("init mongo: %w", err)
	}
	return db.Database(), nil
}

func ProvideSQL(cfg config.AppConfig) (*gorm.DB, error) {
	return db.OpenSQL(cfg.SQL)
}

func ProvideRedis(cfg config.AppConfig) (*redis.Client, error) {
	return db.OpenRedis(context.Background(), cfg.Redis)
}

func ProvideCache(rdb *redis.Client) cache.Store {
	return cache.NewRedisStore(rdb)
}

func ProvideCipher() (services.ContentCipher, error) {
	return secure.NewCipherFromEnv()
}

func ProvideTokenIssuer(cfg config.AppConfig) (*auth.JWTManager, error) {
	return auth.NewJWTManagerFromEnv(cfg.JWT.TTL)
}

// ProvideAIClient 는 ai.provider 에 맞는 클라이언트를 ai_logs 기록 래퍼로 감싼다.
func ProvideAIClient(cfg config.AppConfig, logs *repositories.AILogRepository) (aiclient.Client, error) {
	var inner aiclient.Client
	switch cfg.AI.Provider {
	case "google":
		c, err := aiclient.NewGeminiClient(context.Background(), os.Getenv("GEMINI_API_KEY"), cfg.AI.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		inner = c
	case "openai":
		key := os.Getenv("AI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("AI_API_KEY environment variable is not set")
		}
		inner = aiclient.NewOpenAIClient(cfg.AI.BaseURL, key, cfg.AI.Model, cfg.AI.RetryAttempts)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
	return aiclient.NewLoggingClient(inner, logs, cfg.AI.Provider, cfg.AI.Timeout), nil
}

func ProvideTopics(cfg config.AppConfig) eventbus.Topics {
	return eventbus.NewTopics(cfg.EventBus)
}

// ProvideEventBus 는 eventbus.mode 에 따라 프로세스 내 큐 또는 Kafka 를 고른다.
func ProvideEventBus(cfg config.AppConfig, topics eventbus.Topics) (eventbus.EventBus, error) {
	switch cfg.EventBus.Mode {
	case "memory":
		return eventbus.NewMemoryEventBus(cfg.EventBus), nil
	case "kafka":
		brokers, err := eventbus.GetBrokers()
		if err != nil {
			return nil, err
		}
		if err := eventbus.EnsureTopics(context.Background(), brokers, topics.All(), cfg.EventBus.Partitions); err != nil {
			config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
		}
		return eventbus.NewKafkaEventBus(brokers)
	default:
		return nil, fmt.Errorf("unsupported eventbus mode %q", cfg.EventBus.Mode)
	}
}

func ProvideDispatcher(bus eventbus.EventBus, topics eventbus.Topics) services.TaskDispatcher {
	source := os.Getenv("SERVICE_NAME")
	if source == "" {
		source = defaultSource
	}
	return events.NewDispatcher(bus, topics, source)
}

func ProvideQuotaService(store cache.Store, cfg config.AppConfig, loc *time.Location) *services.QuotaService {
	return services.NewQuotaService(store, cfg.Quota, loc)
}

// stores 는 저장소 구현을 서비스 인터페이스로 넘길 때 쓰는 묶음이다.
type stores struct {
	dig.In

	Users    *repositories.UserRepository
	Diaries  *repositories.DiaryRepository
	Contents *repositories.DiaryContentRepository
	Analyses *repositories.AnalysisResultRepository
	Reports  *repositories.WeeklyReportRepository
	Orders   *repositories.OrderRepository
	Payments *repositories.PaymentRecordRepository
}

type serviceParams struct {
	dig.In

	Config     config.AppConfig
	Location   *time.Location
	Store      cache.Store
	Rules      *services.RuleEngine
	AI         aiclient.Client
	Cipher     services.ContentCipher
	Dispatcher services.TaskDispatcher
	Quota      *services.QuotaService
}

func ProvideReportService(s stores, p serviceParams) *services.ReportService {
	return services.NewReportService(services.ReportDeps{
		Users:      s.Users,
		Diaries:    s.Diaries,
		Contents:   s.Contents,
		Analyses:   s.Analyses,
		Reports:    s.Reports,
		Store:      p.Store,
		Rules:      p.Rules,
		AI:         p.AI,
		Cipher:     p.Cipher,
		Dispatcher: p.Dispatcher,
		Config:     p.Config.Report,
		Model:      p.Config.AI.Model,
		Location:   p.Location,
	})
}

func ProvideAnalysisService(s stores, p serviceParams, reports *services.ReportService) *services.AnalysisService {
	return services.NewAnalysisService(services.AnalysisDeps{
		Users:      s.Users,
		Diaries:    s.Diaries,
		Contents:   s.Contents,
		Analyses:   s.Analyses,
		Store:      p.Store,
		Quota:      p.Quota,
		Rules:      p.Rules,
		AI:         p.AI,
		Cipher:     p.Cipher,
		Dispatcher: p.Dispatcher,
		Refresher:  reports,
		Config:     p.Config.Analysis,
		Model:      p.Config.AI.Model,
	})
}

func ProvideDiaryService(s stores, store cache.Store, cipher services.ContentCipher, reports *services.ReportService, loc *time.Location) *services.DiaryService {
	return services.NewDiaryService(s.Diaries, s.Contents, store, cipher, reports, loc)
}

func ProvideUserService(s stores, cfg config.AppConfig, store cache.Store, cipher services.ContentCipher, tokens *auth.JWTManager, quota *services.QuotaService, loc *time.Location) *services.UserService {
	return services.NewUserService(services.UserDeps{
		Users:    s.Users,
		Diaries:  s.Diaries,
		Store:    store,
		Cipher:   cipher,
		Tokens:   tokens,
		Quota:    quota,
		SMS:      cfg.SMS,
		JWT:      cfg.JWT,
		Location: loc,
	})
}

func ProvideOrderService(s stores, cfg config.AppConfig) *services.OrderService {
	return services.NewOrderService(s.Orders, s.Payments, s.Users, cfg.Membership, cfg.Order)
}

func ProvideMaintenanceService(s stores, cfg config.AppConfig) *services.MaintenanceService {
	return services.NewMaintenanceService(s.Users, s.Diaries, s.Contents, s.Analyses, cfg.Analysis)
}

// ProvideEventRouter 는 큐 메시지의 type 을 워커 메서드에 연결한다.
func ProvideEventRouter(analysis *services.AnalysisService, reports *services.ReportService) *events.Router {
	r := events.NewRouter()
	events.Handle(r, events.AnalysisRequested, analysis.Execute)
	events.Handle(r, events.WeeklyRefreshRequested, reports.ExecuteWeeklyRefresh)
	return r
}

func ProvideScheduler(cfg config.AppConfig, loc *time.Location, reports *services.ReportService, maintenance *services.MaintenanceService, quota *services.QuotaService, orders *services.OrderService) (*scheduler.Scheduler, error) {
	jobs := scheduler.Jobs(cfg.Scheduler, scheduler.Deps{
		Reports:     reports,
		Maintenance: maintenance,
		Quota:       quota,
		Orders:      orders,
	})
	return scheduler.New(jobs, loc)
}

// BuildContainer 는 생성자만 등록한다. 실제 연결은 Invoke 시점에 일어난다.
func BuildContainer(opts ...dig.Option) (*dig.Container, error) {
	container := dig.New(opts...)

	providers := []struct {
		name string
		fn   any
	}{
		{"config", ProvideConfig},
		{"location", ProvideLocation},
		{"rule engine", ProvideRuleEngine},
		{"mongo", ProvideMongo},
		{"sql", ProvideSQL},
		{"redis", ProvideRedis},
		{"cache", ProvideCache},
		{"cipher", ProvideCipher},
		{"token issuer", ProvideTokenIssuer},
		{"user repository", repositories.NewUserRepository},
		{"diary repository", repositories.NewDiaryRepository},
		{"diary content repository", repositories.NewDiaryContentRepository},
		{"analysis result repository", repositories.NewAnalysisResultRepository},
		{"weekly report repository", repositories.NewWeeklyReportRepository},
		{"ai log repository", repositories.NewAILogRepository},
		{"order repository", repositories.NewOrderRepository},
		{"payment record repository", repositories.NewPaymentRecordRepository},
		{"ai client", ProvideAIClient},
		{"topics", ProvideTopics},
		{"event bus", ProvideEventBus},
		{"dispatcher", ProvideDispatcher},
		{"quota service", ProvideQuotaService},
		{"report service", ProvideReportService},
		{"analysis service", ProvideAnalysisService},
		{"diary service", ProvideDiaryService},
		{"user service", ProvideUserService},
		{"order service", ProvideOrderService},
		{"maintenance service", ProvideMaintenanceService},
		{"event router", ProvideEventRouter},
		{"scheduler", ProvideScheduler},
	}
	for _, p := range providers {
		if err := container.Provide(p.fn); err != nil {
			return nil, fmt.Errorf("failed to provide %s: %w", p.name, err)
		}
	}
	return container, nil
}
