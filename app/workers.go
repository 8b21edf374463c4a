package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"xinji/config"
	"xinji/eventbus"
	"xinji/events"
)

// RunWorkers 는 토픽마다 구독 고루틴을 띄우고 ctx 가 끝날 때까지 기다린다.
// 토픽별 consumer group 은 groupID 에 토픽 이름을 붙여 만든다.
func RunWorkers(ctx context.Context, bus eventbus.EventBus, topics eventbus.Topics, router *events.Router, groupID string) {
	var wg sync.WaitGroup
	for _, t := range topics.All() {
		topic := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := bus.Subscribe(ctx, TopicGroupID(groupID, topic), topic, router.Dispatch)
			if err != nil && !errors.Is(err, context.Canceled) {
				config.Logger.Errorf("eventbus subscribe error for %s: %v", topic.Base(), err)
			}
		}()
	}
	wg.Wait()
}

func TopicGroupID(groupID string, topic eventbus.Topic) string {
	return groupID + "-" + strings.ReplaceAll(topic.Base(), ".", "-")
}
