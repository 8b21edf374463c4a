package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), CONFIG_FILE)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Quota.FreeDailyLimit)
	assert.Equal(t, 1000, cfg.Quota.ProDailyLimit)
	assert.Equal(t, 2*time.Minute, cfg.Analysis.LockTTL)
	assert.Equal(t, 2000, cfg.Analysis.MaxPromptChars)
	assert.Equal(t, 800, cfg.Report.MaxCharsPerDiary)
	assert.Equal(t, 6000, cfg.Report.MaxTotalChars)
	assert.Equal(t, 20, cfg.Report.KeywordSlots)
	assert.Equal(t, time.Minute, cfg.Report.RefreshDebounce)
	assert.Equal(t, "memory", cfg.EventBus.Mode)
	assert.Equal(t, "xinji.analysis.tasks", cfg.EventBus.AnalysisTopic)
	assert.Equal(t, 15*time.Minute, cfg.Order.PendingTTL)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
}

func TestLoad_OverridesValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
quota:
  free_daily_limit: 3
analysis:
  lock_ttl: 30s
eventbus:
  mode: kafka
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Quota.FreeDailyLimit)
	assert.Equal(t, 30*time.Second, cfg.Analysis.LockTTL)
	assert.Equal(t, "kafka", cfg.EventBus.Mode)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "quota: [unterminated"))
	assert.Error(t, err)
}

func TestRuleTables_DefaultWhenAbsent(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	rules := cfg.RuleTables()
	require.Len(t, rules.Distortions, 10)
	assert.Equal(t, "CATASTROPHIZING", rules.Distortions[0].Type)
	assert.Equal(t, "DISQUALIFYING_POSITIVE", rules.Distortions[9].Type)
	assert.Contains(t, rules.HighRiskTerms, "结束生命")
}

func TestRuleTables_PartialOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
rules:
  high_risk_terms: ["不想活了"]
`))
	require.NoError(t, err)

	rules := cfg.RuleTables()
	assert.Equal(t, []string{"不想活了"}, rules.HighRiskTerms)
	assert.Len(t, rules.Distortions, 10)
	assert.Equal(t, "未检测到明显认知偏差", rules.NoDistortionText)
}

func TestLocation_FallsBackToLocal(t *testing.T) {
	cfg := AppConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "Asia/Shanghai"
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
}
