package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"xinji/app"
	"xinji/cmd/api/auth"
	"xinji/cmd/api/router"
	"xinji/config"
	"xinji/db"
	"xinji/eventbus"
	"xinji/events"
	"xinji/services"
)

// @title           Xinji API
// @version         1.0
// @description     心迹 日记、AI 情绪分析、周报与会员订单 API
// @BasePath        /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	container, err := app.BuildContainer()
	if err != nil {
		config.Logger.Errorf("failed to build container: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = container.Invoke(func(
		cfg config.AppConfig,
		loc *time.Location,
		users *services.UserService,
		diaries *services.DiaryService,
		analyses *services.AnalysisService,
		reports *services.ReportService,
		orders *services.OrderService,
		tokens *auth.JWTManager,
		bus eventbus.EventBus,
		topics eventbus.Topics,
		eventRouter *events.Router,
	) {
		defer bus.Close()

		// memory 모드에서는 API 프로세스가 직접 워커를 돌린다.
		var wg sync.WaitGroup
		if cfg.EventBus.Mode == "memory" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				app.RunWorkers(ctx, bus, topics, eventRouter, "xinji-api")
			}()
		}

		engine := router.New(router.Deps{
			Users:    users,
			Diaries:  diaries,
			Analyses: analyses,
			Reports:  reports,
			Orders:   orders,
			Tokens:   tokens,
			Location: loc,
		})
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router.WithCORS(engine, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			config.Logger.Infof("api server listening on %s (eventbus=%s)", cfg.Server.Addr, cfg.EventBus.Mode)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				config.Logger.Errorf("api server error: %v", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigChan:
			config.Logger.Info("received shutdown signal, shutting down api server...")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			config.Logger.Errorf("api server shutdown: %v", err)
		}
		cancel()
		wg.Wait()
		if err := db.Disconnect(shutdownCtx); err != nil {
			config.Logger.Errorf("mongo disconnect: %v", err)
		}
		config.Logger.Info("api server stopped")
	})
	if err != nil {
		config.Logger.Errorf("failed to start api: %v", err)
		os.Exit(1)
	}
}
