package services

import (
	"strings"

	"github.com/buger/jsonparser"

	"xinji/aiclient"
	"xinji/models"
)

const fallbackSuggestion = "建议保持写日记的好习惯，记录生活中的点滴感受"

// aiAnalysis 는 AI 응답에서 뽑아낸 값이다. Usable 이 false 면 응답 전체를 쓸 수 없었다는 뜻이다.
type aiAnalysis struct {
	Emotions   map[string]float64
	Keywords   []string
	Suggestion string
	Usable     bool
}

// fallbackDistribution 은 응답을 전혀 쓸 수 없을 때의 NEUTRAL 편향 분포이다.
func fallbackDistribution() map[string]float64 {
	out := make(map[string]float64, len(models.Emotions))
	for _, e := range models.Emotions {
		out[string(e)] = 0.1
	}
	out[string(models.EmotionNeutral)] = 0.5
	return out
}

// parseAIAnalysis 는 코드펜스를 벗긴 뒤 emotions/keywords/suggestion 을 관대하게 읽는다.
// 분포는 항상 8개 키를 모두 가지며, 숫자가 아니거나 빠진 값은 0.0 이다.
func parseAIAnalysis(content string, maxKeywords int) aiAnalysis {
	data := []byte(aiclient.StripCodeFence(content))

	emotionsRaw, typ, _, err := jsonparser.Get(data, "emotions")
	if err != nil || typ != jsonparser.Object {
		return aiAnalysis{
			Emotions:   fallbackDistribution(),
			Keywords:   []string{},
			Suggestion: fallbackSuggestion,
		}
	}

	out := aiAnalysis{Emotions: make(map[string]float64, len(models.Emotions)), Usable: true}
	for _, e := range models.Emotions {
		v, err := jsonparser.GetFloat(emotionsRaw, string(e))
		if err != nil {
			v = 0
		}
		out.Emotions[string(e)] = v
	}

	out.Keywords = []string{}
	jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if len(out.Keywords) >= maxKeywords {
			return
		}
		var kw string
		switch dataType {
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return
			}
			kw = s
		case jsonparser.Number, jsonparser.Boolean:
			kw = string(value)
		default:
			return
		}
		if kw = strings.TrimSpace(kw); kw != "" {
			out.Keywords = append(out.Keywords, kw)
		}
	}, "keywords")

	if s, err := jsonparser.GetString(data, "suggestion"); err == nil {
		out.Suggestion = s
	}
	return out
}

// primaryEmotion 은 분포의 arg-max 이다. 동점이면 models.Emotions 선언 순서상 앞의 감정이 이긴다.
// 강도는 주 감정 값이며, 분포가 비어 있으면 NEUTRAL/0.5 이다.
func primaryEmotion(dist map[string]float64) (string, float64) {
	best := ""
	bestVal := 0.0
	for _, e := range models.Emotions {
		v, ok := dist[string(e)]
		if !ok {
			continue
		}
		if best == "" || v > bestVal {
			best, bestVal = string(e), v
		}
	}
	if best == "" {
		return string(models.EmotionNeutral), 0.5
	}
	return best, bestVal
}
