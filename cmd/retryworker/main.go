package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"xinji/app"
	"xinji/config"
	"xinji/eventbus"
)

// retryworker 는 재시도 토픽의 메시지를 지연 시간이 지난 뒤 기본 토픽으로 되돌린다.
// memory 모드에서는 버스가 직접 재시도하므로 필요 없다.
func main() {
	cfg := app.ProvideConfig()
	if cfg.EventBus.Mode != "kafka" {
		config.Logger.Errorf("retry worker requires eventbus.mode=kafka, got %s", cfg.EventBus.Mode)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topics := app.ProvideTopics(cfg)
	bus, err := app.ProvideEventBus(cfg, topics)
	if err != nil {
		config.Logger.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	groupID := eventbus.GetGroupID("xinji") + "-retry-worker"
	config.Logger.Info("starting retry worker service with eventbus...")

	var wg sync.WaitGroup
	for _, t := range topics.All() {
		topic := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := bus.StartRetryReinjector(ctx, app.TopicGroupID(groupID, topic), topic)
			if err != nil && !errors.Is(err, context.Canceled) {
				config.Logger.Errorf("eventbus retry reinjector error for %s: %v", topic.Base(), err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	config.Logger.Info("received shutdown signal, shutting down retry worker service...")

	cancel()
	wg.Wait()
	config.Logger.Info("retry worker service stopped")
}
