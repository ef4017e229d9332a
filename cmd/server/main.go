package main

import (
	"accounts/internal/api"
	"accounts/internal/config"
	"accounts/internal/email"
	"accounts/internal/model"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		os.Exit(1)
	}

	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := model.InitRepository(ctx, &cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			logrus.WithError(err).Warn("failed to close repository")
		}
	}()

	mailer, err := email.NewMailer(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise mailer")
		return
	}
	if queue, ok := mailer.(*email.QueueMailer); ok {
		defer queue.Close()
	}

	limiter, closeLimiter := newRateLimiter(ctx, cfg)
	defer closeLimiter()

	httpHandler, err := api.NewHTTPHandler(cfg, repo, mailer, limiter)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	// 设置Gin模式
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:              serverHost,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{"host": serverHost, "env": cfg.AppEnv}).Info("服务器启动")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("服务器启动失败")
		}
		return
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}

// newRateLimiter 配置了 REDIS_ADDR 时使用共享计数，否则退回进程内限流
func newRateLimiter(ctx context.Context, cfg config.Config) (api.RateLimiter, func()) {
	if cfg.RedisAddr == "" {
		return api.NewMemoryRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unavailable, using in-process rate limiter")
		_ = client.Close()
		return api.NewMemoryRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow), func() {}
	}
	logrus.WithField("addr", cfg.RedisAddr).Info("rate limiting via redis")
	return api.NewRedisRateLimiter(client, cfg.RateLimitMax, cfg.RateLimitWindow), func() { _ = client.Close() }
}
