package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gin-gorm-employees/internal/core/config"
	"gin-gorm-employees/internal/core/database"
	"gin-gorm-employees/internal/core/logger"
)

// migrate 只负责建表，和 web 进程共用同一份配置
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := database.Connect(ctx, database.Opts{
		Driver:   cfg.DB.Driver,
		DSN:      cfg.DB.DSN,
		Username: cfg.DB.Username,
		Password: cfg.DB.Password,
		LogLevel: cfg.DB.LogLevel,
		Logger:   l,
	}, cfg.DB.ConnectRetries)
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		l.Fatal("migrate failed", zap.Error(err))
	}
	l.Info("migrate done", zap.String("driver", cfg.DB.Driver))
}
