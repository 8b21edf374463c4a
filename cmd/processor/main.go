package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"xinji/app"
	"xinji/config"
	"xinji/db"
	"xinji/eventbus"
	"xinji/events"
)

// processor 는 eventbus.mode=kafka 일 때 분석/주간 요약 작업을 소비한다.
func main() {
	container, err := app.BuildContainer()
	if err != nil {
		config.Logger.Errorf("failed to build container: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = container.Invoke(func(cfg config.AppConfig, bus eventbus.EventBus, topics eventbus.Topics, router *events.Router) {
		defer bus.Close()
		if cfg.EventBus.Mode != "kafka" {
			config.Logger.Errorf("processor requires eventbus.mode=kafka, got %s", cfg.EventBus.Mode)
			return
		}

		groupID := eventbus.GetGroupID("xinji-processor")
		config.Logger.Info("starting processor service with eventbus...")

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.RunWorkers(ctx, bus, topics, router, groupID)
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		config.Logger.Info("received shutdown signal, shutting down processor service...")

		cancel()
		wg.Wait()
		if err := db.Disconnect(context.Background()); err != nil {
			config.Logger.Errorf("mongo disconnect: %v", err)
		}
		config.Logger.Info("processor service stopped")
	})
	if err != nil {
		config.Logger.Errorf("failed to start processor: %v", err)
		os.Exit(1)
	}
}
