package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nbarsukov/shop-backend/internal/cache"
	"github.com/nbarsukov/shop-backend/internal/config"
	"github.com/nbarsukov/shop-backend/internal/httpserver"
	"github.com/nbarsukov/shop-backend/internal/logging"
	authmw "github.com/nbarsukov/shop-backend/internal/middleware/auth"
	loggingmw "github.com/nbarsukov/shop-backend/internal/middleware/logging"
	"github.com/nbarsukov/shop-backend/internal/repo"
	"github.com/nbarsukov/shop-backend/internal/search"
	"github.com/nbarsukov/shop-backend/internal/service"
	"github.com/nbarsukov/shop-backend/internal/tokens"
	"github.com/nbarsukov/shop-backend/pkg/db"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	var index service.Indexer
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		index = &search.Index{ES: esClient, Name: cfg.ESIndex}
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	tokenManager := &tokens.Manager{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}

	r := &repo.GormRepo{DB: gdb}
	authSvc := &service.AuthService{Repo: r, Tokens: tokenManager}
	userSvc := &service.UserService{DB: gdb, Repo: r}
	productSvc := &service.ProductService{DB: gdb, Repo: r, Cache: redisCache, CacheTTL: cfg.ProductCacheTTL, Index: index}
	orderSvc := &service.OrderService{DB: gdb, Repo: r}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		UserHandler:    &httpserver.UserHTTP{Svc: userSvc},
		ProductHandler: &httpserver.ProductHTTP{Svc: productSvc},
		OrderHandler:   &httpserver.OrderHTTP{Orders: orderSvc, Auth: authSvc},
		AuthMW:         &authmw.Middleware{Tokens: tokenManager},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := redisCache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	logger.Info("shutdown complete")
}
