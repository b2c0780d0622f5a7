package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/luminatrade/gateway/internal/auth"
	"github.com/luminatrade/gateway/internal/config"
	"github.com/luminatrade/gateway/internal/handler"
	"github.com/luminatrade/gateway/internal/metrics"
	"github.com/luminatrade/gateway/internal/queue"
	"github.com/luminatrade/gateway/internal/repository"
	"github.com/luminatrade/gateway/internal/risk"
	"github.com/luminatrade/gateway/internal/service"
	"github.com/luminatrade/gateway/pkg/id"
	"github.com/luminatrade/gateway/pkg/logger"
)

const queueDepthInterval = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, os.Stdout)
	log.Infof("starting", map[string]interface{}{"port": cfg.HTTPPort})

	// 连接数据库
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.WithError(err).Error("open database")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Error("ping database")
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Error("ping redis")
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// 组装服务
	metricsClient := metrics.New()
	idGen := id.Generator{}

	commandRepo := repository.NewCommandRepository(db)
	lifecycleRepo := repository.NewLifecycleRepository(db)
	commandQueue := queue.New(redisClient, cfg.CommandQueueKey)

	gate := risk.NewGate(risk.NewTenUSDTier())

	admission := service.NewAdmissionService(commandRepo, commandQueue, gate, idGen, cfg.PublishTimeout, metricsClient, log)
	reconciler := service.NewReconciler(&ledgerStore{commandRepo, lifecycleRepo}, idGen, metricsClient, log)

	authenticator := auth.NewAuthenticator(
		auth.ParseCredentials(cfg.AuthBearerTokens),
		auth.ParseCredentials(cfg.AuthAPIKeys),
	)

	h := handler.New(cfg.ServiceName, admission, reconciler, commandQueue, commandRepo, cfg.TelegramWebhookSecret, log)

	mux := http.NewServeMux()
	h.Register(mux, authenticator)
	mux.Handle("/metrics", metricsClient.Handler())

	// 队列深度采样
	go func() {
		ticker := time.NewTicker(queueDepthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := commandQueue.Depth(ctx)
				if err != nil {
					log.WithError(err).Warn("queue depth probe failed")
					continue
				}
				metricsClient.SetQueueDepth(depth)
			}
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: mux,
	}

	go func() {
		log.Infof("HTTP server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
			os.Exit(1)
		}
	}()

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
	server.Shutdown(context.Background())
	log.Info("shutdown complete")
}

// ledgerStore 把命令仓储与生命周期仓储拼成对账器需要的账本接口
type ledgerStore struct {
	*repository.CommandRepository
	*repository.LifecycleRepository
}
