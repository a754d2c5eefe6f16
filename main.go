package main

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/surgefund/backend/internal/api"
	"github.com/surgefund/backend/internal/config"
	"github.com/surgefund/backend/internal/exchange"
	"github.com/surgefund/backend/internal/models"
	"github.com/surgefund/backend/internal/service"
	"github.com/surgefund/backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	gin.SetMode(cfg.GinMode)

	db, err := openDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open database")
	}

	if err := db.AutoMigrate(
		&models.PoolCounter{},
		&models.Pool{},
		&models.Receipt{},
		&models.Balance{},
	); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate schema")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	venue := exchange.NewStatic(cfg.VenuePrice)
	pools := service.NewPoolService(db, venue, cfg.CounterScope, cfg.DeployFeeBps, hub)

	router := api.NewRouter(cfg, pools, rdb, hub)

	logrus.WithFields(logrus.Fields{
		"addr":          cfg.ListenAddr,
		"counter_scope": cfg.CounterScope,
		"fee_bps":       cfg.DeployFeeBps,
	}).Info("Starting surgefund API")

	if err := router.Run(cfg.ListenAddr); err != nil {
		logrus.WithError(err).Fatal("Server exited")
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
	}
}
