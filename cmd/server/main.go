package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shoplane/api/internal/config"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/mail"
	"github.com/shoplane/api/internal/otp"
	"github.com/shoplane/api/internal/router"
	"github.com/shoplane/api/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Unable to ping redis: %v", err)
	}
	log.Println("Connected to redis")

	queries := database.New(pool)
	otpStore := otp.NewStore(rdb)
	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, hub, sender, otpStore)

	log.Printf("Starting server on :%s (stock policy: %s)", cfg.Port, cfg.StockPolicy)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
