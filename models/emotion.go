package models

// Emotion 은 분석 결과의 8가지 기본 감정이다.
type Emotion string

const (
	EmotionHappy    Emotion = "HAPPY"
	EmotionSad      Emotion = "SAD"
	EmotionAngry    Emotion = "ANGRY"
	EmotionFear     Emotion = "FEAR"
	EmotionSurprise Emotion = "SURPRISE"
	EmotionDisgust  Emotion = "DISGUST"
	EmotionNeutral  Emotion = "NEUTRAL"
	EmotionAnxious  Emotion = "ANXIOUS"
)

// Emotions 는 선언 순서이다. arg-max 동점은 이 순서의 앞쪽이 이긴다.
var Emotions = []Emotion{
	EmotionHappy,
	EmotionSad,
	EmotionAngry,
	EmotionFear,
	EmotionSurprise,
	EmotionDisgust,
	EmotionNeutral,
	EmotionAnxious,
}

func (e Emotion) String() string { return string(e) }

// Label 은 프롬프트/리포트 문구에 쓰는 중국어 감정명이다.
func (e Emotion) Label() string {
	switch e {
	case EmotionHappy:
		return "快乐"
	case EmotionSad:
		return "悲伤"
	case EmotionAngry:
		return "愤怒"
	case EmotionFear:
		return "恐惧"
	case EmotionSurprise:
		return "惊讶"
	case EmotionDisgust:
		return "厌恶"
	case EmotionAnxious:
		return "焦虑"
	default:
		return "平静"
	}
}

// IsNegative 는 인사이트 리포트의 위험 예측에 쓰는 부정 감정 여부이다.
func (e Emotion) IsNegative() bool {
	switch e {
	case EmotionSad, EmotionAngry, EmotionFear, EmotionDisgust, EmotionAnxious:
		return true
	}
	return false
}

// EmotionIndex 는 선언 순서상의 위치를 반환한다. 알 수 없는 감정은 맨 뒤로 보낸다.
func EmotionIndex(e string) int {
	for i, v := range Emotions {
		if string(v) == e {
			return i
		}
	}
	return len(Emotions)
}
