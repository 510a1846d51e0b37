package main

import (
	"context"
	"log"
	"net/http"

	"fanlink/backend/internal/api/handler"
	"fanlink/backend/internal/auth"
	"fanlink/backend/internal/config"
	"fanlink/backend/internal/models"
	"fanlink/backend/internal/moderation"
	"fanlink/backend/internal/realtime"
	"fanlink/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Report{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Fanlink Realtime Backend...")

	cfg := config.Load()
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	authSvc := auth.NewService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	hub := realtime.NewHub(s)
	presence := realtime.NewPresenceRegistry()
	router := realtime.NewRouter(hub)
	typing := realtime.NewTypingTracker(hub, config.TypingSweepInterval, config.TypingTimeout)
	relay := realtime.NewStreamRelay(hub)
	pipeline := realtime.NewPipeline(s, presence)
	reporter := moderation.NewService(s)

	gateway := realtime.NewGateway(hub, presence, router, typing, pipeline, relay, s, authSvc, reporter)

	go hub.Run()
	go typing.Run()

	r := gin.Default()
	h := handler.NewHandler(gateway, presence, authSvc, s)

	r.POST("/auth/token", h.IssueToken)
	r.GET("/presence", h.ListPresence)
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
