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

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"gin-gorm-employees/internal/core/cache"
	"gin-gorm-employees/internal/core/config"
	"gin-gorm-employees/internal/core/database"
	"gin-gorm-employees/internal/core/logger"
	"gin-gorm-employees/internal/core/server"
	"gin-gorm-employees/internal/domain"
	"gin-gorm-employees/internal/repo"
	"gin-gorm-employees/internal/transport/http/handler"
	"gin-gorm-employees/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, cleanup := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.App.IsDevelopment(),
		Rotate:      logger.FileRotate(cfg.Log.Rotate),
	})
	defer cleanup()
	defer logger.RedirectStdLog(l, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(l.Named("gin"), zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(l.Named("gin"), zapcore.ErrorLevel)

	// 数据库（重试后仍失败直接 Fatal）
	db := mustOpenDB(cfg, l)
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			l.Fatal("automigrate failed", zap.Error(err))
		}
		l.Info("automigrate done")
	}
	sqlDB, err := db.DB()
	if err != nil {
		l.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()

	var employees domain.EmployeeRepository = repo.NewEmployeeRepo(db)
	if cfg.Cache.Enabled {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Cache.Prefix)
		defer c.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := c.Ping(pingCtx); err != nil {
			l.Warn("redis unreachable, reads fall back to the database", zap.Error(err))
		}
		cancel()
		employees = repo.NewCachedEmployeeRepo(employees, c, time.Duration(cfg.Cache.TTLSec)*time.Second, l.Named("cache"))
		l.Info("employee cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	r, err := router.NewWebEngine(l, router.Options{
		Development:    cfg.App.IsDevelopment(),
		CORSEnabled:    cfg.App.CORS.Enabled,
		AllowedOrigins: cfg.App.CORS.AllowedOrigins,
		RPS:            cfg.Limits.RPS,
		Burst:          cfg.Limits.Burst,
		MaxInFlight:    cfg.Limits.MaxInFlight,
		MaxBodyBytes:   cfg.Limits.MaxBodyBytes,
		RequestTimeout: time.Duration(cfg.Limits.RequestTimeoutSec) * time.Second,
		Ping:           sqlDB.PingContext,
	}, handler.NewEmployeeHandler(employees, l.Named("employee")))
	if err != nil {
		l.Fatal("build router", zap.Error(err))
	}

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	l.Info("employees web starting",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Env),
		zap.String("open", baseURL+handler.RouteList),
		zap.String("health", baseURL+"/health"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("employees web start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Info("employees web stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	db, err := database.Connect(ctx, dbOpts(cfg, l), cfg.DB.ConnectRetries)
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

func dbOpts(cfg *config.Config, l *zap.Logger) database.Opts {
	return database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	}
}
