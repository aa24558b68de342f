package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/config"
	"github.com/uniresearch/research-portal-backend/database"
	"github.com/uniresearch/research-portal-backend/internal/auth"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/charts"
	"github.com/uniresearch/research-portal-backend/internal/storage"
	"github.com/uniresearch/research-portal-backend/routes"
	"github.com/uniresearch/research-portal-backend/utils"
)

// @title University Research Portal API
// @version 1.0
// @description Public research listings, admin management, charts, imports and exports.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	db := database.Connect(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init Redis (optional)
	if err := utils.InitRedis(cfg); err != nil {
		log.Printf("⚠️ Redis unavailable, continuing without it: %v", err)
	}
	defer utils.CloseRedis()

	// Change feed: Kafka when brokers are configured
	var feed changefeed.Feed
	if len(cfg.KafkaBrokers) > 0 {
		kf := changefeed.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		kf.Start(ctx)
		feed = kf
		log.Printf("✅ Change feed on Kafka topic %s", cfg.KafkaTopic)
	} else {
		feed = changefeed.NewLocal()
		log.Println("ℹ️ KAFKA_BROKERS not set, change feed is in-process")
	}
	defer feed.Close()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Object storage init failed: %v", err)
	}

	// Auto-migrate models
	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(routes.Models()...); err != nil {
		panic(fmt.Sprintf("❌ DB AutoMigrate failed: %v", err))
	}
	log.Println("✅ Database migrations completed")

	tokens := auth.NewTokenStore()
	authSvc := auth.NewService(auth.NewRepository(db), cfg, tokens)
	if err := authSvc.SeedAdmin(cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		panic(fmt.Sprintf("❌ Failed to seed admin: %v", err))
	}

	var chartCache charts.Cache
	if utils.RedisClient != nil {
		chartCache = charts.NewRedisCache(utils.RedisClient)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	routes.Setup(router, cfg, routes.Deps{
		DB:      db,
		Storage: store,
		Feed:    feed,
		Tokens:  tokens,
		Charts:  chartCache,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Graceful shutdown failed: %v", err)
	}
}
