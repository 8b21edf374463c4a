package services

import (
	"strings"

	"xinji/config"
	"xinji/models"
)

// RuleEngine 은 AI 와 무관한 키워드 규칙을 적용한다. 테이블은 시작 시 주입되고 바뀌지 않는다.
type RuleEngine struct {
	rules config.RuleTables
}

func NewRuleEngine(rules config.RuleTables) *RuleEngine {
	return &RuleEngine{rules: rules}
}

// DetectDistortions 는 일기 원문을 스캔한다. 유형마다 첫 번째로 걸린 트리거 하나로 한 번만 표시하고,
// 아무것도 없으면 NONE 하나를 돌려준다.
func (r *RuleEngine) DetectDistortions(text string) []models.CognitiveDistortion {
	var out []models.CognitiveDistortion
	for _, rule := range r.rules.Distortions {
		for _, trigger := range rule.Triggers {
			if trigger != "" && strings.Contains(text, trigger) {
				out = append(out, models.CognitiveDistortion{Type: rule.Type, Description: rule.Description})
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, models.CognitiveDistortion{Type: models.DistortionNone, Description: r.rules.NoDistortionText})
	}
	return out
}

// AssessRisk 키워드 검사가 먼저이고, 고위험 키워드가 있으면 점수와 무관하게 HIGH 이다.
// 그 다음 SAD+ANXIOUS+FEAR 합이 2.0 초과면 HIGH, 1.5 초과면 MEDIUM 이다.
func (r *RuleEngine) AssessRisk(keywords []string, emotions map[string]float64) models.RiskLevel {
	for _, kw := range keywords {
		for _, term := range r.rules.HighRiskTerms {
			if term != "" && strings.Contains(kw, term) {
				return models.RiskHigh
			}
		}
	}
	sum := emotions[string(models.EmotionSad)] + emotions[string(models.EmotionAnxious)] + emotions[string(models.EmotionFear)]
	switch {
	case sum > 2.0:
		return models.RiskHigh
	case sum > 1.5:
		return models.RiskMedium
	}
	return models.RiskLow
}

// Suggestions 는 AI 제안(있으면)을 앞에 두고 주 감정별 고정 문구를 덧붙인다.
func (r *RuleEngine) Suggestions(aiSuggestion, primary string) []string {
	var out []string
	if s := strings.TrimSpace(aiSuggestion); s != "" {
		out = append(out, s)
	}
	canned, ok := r.rules.Suggestions[primary]
	if !ok {
		canned = r.rules.DefaultSuggestions
	}
	return append(out, canned...)
}

// Mindfulness 주 감정에 맞는 명상 추천
func (r *RuleEngine) Mindfulness(emotion string) config.MindfulnessExercise {
	if m, ok := r.rules.Mindfulness[emotion]; ok {
		return m
	}
	return r.rules.DefaultMindfulness
}

// DistortionName 은 인사이트 문구용 짧은 이름이다.
func (r *RuleEngine) DistortionName(typ string) string {
	for _, rule := range r.rules.Distortions {
		if rule.Type == typ {
			return rule.Name
		}
	}
	return typ
}

func (r *RuleEngine) GrowthPlan() []string {
	return append([]string(nil), r.rules.GrowthPlan...)
}

func (r *RuleEngine) ForecastTriggers() []string {
	return append([]string(nil), r.rules.DefaultForecastTrigger...)
}

func (r *RuleEngine) distortionOrder() []string {
	out := make([]string, len(r.rules.Distortions))
	for i, rule := range r.rules.Distortions {
		out[i] = rule.Type
	}
	return out
}
