package eventbus

import (
	"strconv"
	"strings"
	"time"

	"xinji/config"
)

// Topics 는 기능별 기본 토픽이다. 이름은 eventbus 설정에서 온다.
type Topics struct {
	Analysis Topic
	Report   Topic
}

func NewTopics(cfg config.EventBusConfig) Topics {
	return Topics{
		Analysis: NewTopic(cfg.AnalysisTopic),
		Report:   NewTopic(cfg.ReportTopic),
	}
}

func (t Topics) All() []Topic {
	return []Topic{t.Analysis, t.Report}
}

// ParseRetryDelayFromTopicName는 "<base>.retry.<n>" 형식의 토픽 이름에서 RetryDelays[n-1] 을 찾습니다.
func ParseRetryDelayFromTopicName(name string) (time.Duration, bool) {
	idx := strings.LastIndex(name, ".retry.")
	if idx == -1 || idx+7 >= len(name) {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+7:])
	if err != nil {
		return 0, false
	}
	if n <= 0 || n > len(RetryDelays) {
		return 0, false
	}
	return RetryDelays[n-1], true
}
