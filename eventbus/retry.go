package eventbus

import "errors"

// nextHop 는 핸들러 실패 후 이벤트가 갈 곳을 정한다.
// 재시도 여유가 있으면 다음 재시도 토픽과 Retry 를 증가시킨 이벤트를, 아니면 DLQ 를 돌려준다.
func nextHop(topic Topic, evt Event, handlerErr error) (string, Event, bool) {
	evt.LastError = handlerErr.Error()
	if evt.MaxRetry <= 0 || evt.MaxRetry > len(RetryDelays) {
		evt.MaxRetry = len(RetryDelays)
	}
	next := evt.Retry + 1
	if next > evt.MaxRetry {
		return topic.DLQ(), evt, true
	}
	retryTopic, err := topic.GetRetryTopic(next)
	if errors.Is(err, ErrMaxRetryExceeded) {
		return topic.DLQ(), evt, true
	}
	evt.Retry = next
	return retryTopic, evt, false
}
