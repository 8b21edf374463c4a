package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"xinji/app"
	"xinji/config"
	"xinji/db"
	"xinji/eventbus"
	"xinji/scheduler"
)

// -run 에 작업 이름을 주면 한 번만 실행하고 끝낸다. 예: -run weekly_reports
func main() {
	runOnce := flag.String("run", "", "run a single job immediately and exit")
	flag.Parse()

	container, err := app.BuildContainer()
	if err != nil {
		config.Logger.Errorf("failed to build container: %v", err)
		os.Exit(1)
	}

	err = container.Invoke(func(s *scheduler.Scheduler, bus eventbus.EventBus) error {
		defer bus.Close()
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				config.Logger.Errorf("mongo disconnect: %v", err)
			}
		}()

		if *runOnce != "" {
			return s.RunNow(context.Background(), *runOnce)
		}

		s.Start()
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		config.Logger.Info("received shutdown signal, shutting down scheduler...")
		s.Stop()
		return nil
	})
	if err != nil {
		config.Logger.Errorf("scheduler exited: %v", err)
		os.Exit(1)
	}
}
