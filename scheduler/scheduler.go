// Package scheduler 는 주기 작업(주간 리포트, 멤버십 만료, 쿼터 초기화 등)을 cron 으로 실행한다.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"xinji/config"
	"xinji/services"
)

const (
	JobWeeklyReports    = "weekly_reports"
	JobMembershipExpiry = "membership_expiry"
	JobQuotaReset       = "quota_reset"
	JobOrderExpiry      = "order_expiry"
	JobHighRiskMonitor  = "high_risk_monitor"
	JobReconcile        = "reconcile"
)

const defaultJobTimeout = 30 * time.Minute

type ReportGenerator interface {
	GenerateWeeklyReports(ctx context.Context) (services.BatchResult, error)
}

type Maintainer interface {
	ExpireMemberships(ctx context.Context) (int64, error)
	MonitorHighRisk(ctx context.Context) (int, error)
	Sweep(ctx context.Context) (services.ReconcileResult, error)
}

type QuotaResetter interface {
	ResetAll(ctx context.Context) (int, error)
}

type OrderExpirer interface {
	CancelExpiredOrders(ctx context.Context) (int64, error)
}

type Deps struct {
	Reports     ReportGenerator
	Maintenance Maintainer
	Quota       QuotaResetter
	Orders      OrderExpirer
}

// Job 하나의 결과값은 로그에만 남는다.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (any, error)
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	timeout time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// Jobs 는 설정의 cron 표현식과 서비스 호출을 묶는다.
func Jobs(cfg config.SchedulerConfig, d Deps) []Job {
	return []Job{
		{Name: JobWeeklyReports, Spec: cfg.WeeklyReports, Run: func(ctx context.Context) (any, error) {
			return d.Reports.GenerateWeeklyReports(ctx)
		}},
		{Name: JobMembershipExpiry, Spec: cfg.MembershipExpiry, Run: func(ctx context.Context) (any, error) {
			return d.Maintenance.ExpireMemberships(ctx)
		}},
		{Name: JobQuotaReset, Spec: cfg.QuotaReset, Run: func(ctx context.Context) (any, error) {
			return d.Quota.ResetAll(ctx)
		}},
		{Name: JobOrderExpiry, Spec: cfg.OrderExpiry, Run: func(ctx context.Context) (any, error) {
			return d.Orders.CancelExpiredOrders(ctx)
		}},
		{Name: JobHighRiskMonitor, Spec: cfg.HighRiskMonitor, Run: func(ctx context.Context) (any, error) {
			return d.Maintenance.MonitorHighRisk(ctx)
		}},
		{Name: JobReconcile, Spec: cfg.Reconcile, Run: func(ctx context.Context) (any, error) {
			return d.Maintenance.Sweep(ctx)
		}},
	}
}

// New 는 spec 이 빈 작업을 건너뛰고 나머지를 loc 기준으로 등록한다.
func New(jobs []Job, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		jobs:    make(map[string]Job),
		timeout: defaultJobTimeout,
		running: make(map[string]bool),
	}
	for _, j := range jobs {
		if j.Spec == "" {
			config.Logger.Infof("scheduler job %s disabled", j.Name)
			continue
		}
		job := j
		if _, err := s.cron.AddFunc(job.Spec, func() { s.run(context.Background(), job) }); err != nil {
			return nil, fmt.Errorf("register job %s (%q): %w", job.Name, job.Spec, err)
		}
		s.jobs[job.Name] = job
	}
	return s, nil
}

// Names 는 등록된 작업 이름을 정렬해 돌려준다.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
	config.Logger.Infof("scheduler started with %d jobs", len(s.jobs))
}

// Stop 은 실행 중인 작업이 끝날 때까지 기다린다.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	config.Logger.Info("scheduler stopped")
}

// RunNow 는 등록된 작업을 즉시 한 번 실행한다.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.run(ctx, job)
}

// run 은 같은 작업이 겹쳐 실행되지 않게 한다.
func (s *Scheduler) run(ctx context.Context, job Job) error {
	s.mu.Lock()
	if s.running[job.Name] {
		s.mu.Unlock()
		config.WarnWithFields("scheduler job still running, skip", config.Fields{"job": job.Name})
		return nil
	}
	s.running[job.Name] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := job.Run(ctx)
	fields := config.Fields{"job": job.Name, "duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		fields["error"] = err.Error()
		config.ErrorWithFields("scheduler job failed", fields)
		return err
	}
	fields["result"] = result
	config.InfoWithFields("scheduler job finished", fields)
	return nil
}
