package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xinji/config"
	"xinji/services"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) hit(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) GenerateWeeklyReports(ctx context.Context) (services.BatchResult, error) {
	r.hit(JobWeeklyReports)
	return services.BatchResult{Users: 1, Generated: 1}, r.err
}

func (r *recorder) ExpireMemberships(ctx context.Context) (int64, error) {
	r.hit(JobMembershipExpiry)
	return 0, r.err
}

func (r *recorder) MonitorHighRisk(ctx context.Context) (int, error) {
	r.hit(JobHighRiskMonitor)
	return 0, r.err
}

func (r *recorder) Sweep(ctx context.Context) (services.ReconcileResult, error) {
	r.hit(JobReconcile)
	return services.ReconcileResult{}, r.err
}

func (r *recorder) ResetAll(ctx context.Context) (int, error) {
	r.hit(JobQuotaReset)
	return 0, r.err
}

func (r *recorder) CancelExpiredOrders(ctx context.Context) (int64, error) {
	r.hit(JobOrderExpiry)
	return 0, r.err
}

func deps(r *recorder) Deps {
	return Deps{Reports: r, Maintenance: r, Quota: r, Orders: r}
}

func TestNew_SkipsEmptySpecs(t *testing.T) {
	r := &recorder{}
	cfg := config.SchedulerConfig{
		WeeklyReports: "0 2 * * MON",
		QuotaReset:    "0 0 * * *",
		Reconcile:     "@every 10m",
	}

	s, err := New(Jobs(cfg, deps(r)), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{JobQuotaReset, JobReconcile, JobWeeklyReports}, s.Names())
	assert.Len(t, s.cron.Entries(), 3)
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(Jobs(config.SchedulerConfig{OrderExpiry: "every five minutes"}, deps(&recorder{})), time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobOrderExpiry)
}

func TestRunNow(t *testing.T) {
	all := config.SchedulerConfig{
		WeeklyReports:    "0 2 * * MON",
		MembershipExpiry: "0 1 * * *",
		QuotaReset:       "0 0 * * *",
		OrderExpiry:      "@every 5m",
		HighRiskMonitor:  "0 * * * *",
		Reconcile:        "@every 10m",
	}

	tests := []string{JobWeeklyReports, JobMembershipExpiry, JobQuotaReset, JobOrderExpiry, JobHighRiskMonitor, JobReconcile}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			r := &recorder{}
			s, err := New(Jobs(all, deps(r)), time.UTC)
			require.NoError(t, err)

			require.NoError(t, s.RunNow(context.Background(), name))
			assert.Equal(t, []string{name}, r.calls)
		})
	}
}

func TestRunNow_ErrorsAndUnknown(t *testing.T) {
	r := &recorder{err: errors.New("db down")}
	s, err := New(Jobs(config.SchedulerConfig{Reconcile: "@every 10m"}, deps(r)), time.UTC)
	require.NoError(t, err)

	assert.EqualError(t, s.RunNow(context.Background(), JobReconcile), "db down")
	assert.Error(t, s.RunNow(context.Background(), JobQuotaReset), "disabled jobs cannot be run")
}

func TestRun_SkipsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var count int
	job := Job{Name: "slow", Spec: "@every 1h", Run: func(ctx context.Context) (any, error) {
		count++
		close(started)
		<-release
		return nil, nil
	}}
	s, err := New([]Job{job}, time.UTC)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	require.NoError(t, s.RunNow(context.Background(), "slow"))
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, count)
}
