package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/oporhq/opor-admin-api/internal/config"
	"github.com/oporhq/opor-admin-api/internal/database"
	"github.com/oporhq/opor-admin-api/internal/handler"
	"github.com/oporhq/opor-admin-api/internal/logger"
	"github.com/oporhq/opor-admin-api/internal/queue"
	"github.com/oporhq/opor-admin-api/internal/repository"
	"github.com/oporhq/opor-admin-api/internal/router"
	"github.com/oporhq/opor-admin-api/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(cfg.Env, ""); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zap.L().Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	tenants := repository.NewTenantRepo(db)
	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	checkins := repository.NewCheckinRepo(db)

	checkinHandler := handler.NewCheckinHandler(events, checkins)
	h := router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tenants),
		Tenant:  handler.NewTenantHandler(cfg, tenants, users),
		User:    handler.NewUserHandler(cfg, users),
		Event:   handler.NewEventHandler(events, cfg.AMQPURL),
		Checkin: checkinHandler,
		QR:      handler.NewQRHandler(cfg, service.NewQRService(events), events, checkinHandler, users),
	}

	if cfg.AMQPURL != "" {
		go queue.StartNotificationConsumer(cfg.AMQPURL)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, h, users, tenants, rdb)

	addr := ":" + cfg.Port
	zap.L().Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}
