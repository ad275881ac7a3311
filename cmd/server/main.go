package main

import (
	"context"
	"log"
	"time"

	"talkify-backend/internal/auth"
	"talkify-backend/internal/billing"
	"talkify-backend/internal/media"
	"talkify-backend/internal/realtime"
	"talkify-backend/internal/server"
	"talkify-backend/internal/storage"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional, real deployments configure the environment directly
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	var serverCfg server.Config
	var storageCfg storage.Config
	var authCfg auth.Config
	var billingCfg billing.Config
	var mediaCfg media.Config
	for _, cfg := range []interface{}{&serverCfg, &storageCfg, &authCfg, &billingCfg, &mediaCfg} {
		if err := env.Parse(cfg); err != nil {
			sugar.Fatalf("Cannot parse env config: %v", err)
		}
	}

	store, err := storage.New(context.Background(), sugar, storageCfg,
		storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		sugar.Fatalf("Cannot run migrations: %v", err)
	}

	hub := realtime.NewHub(sugar, store)
	signer := auth.NewSigner(authCfg)

	var billingClient billing.Client
	if billingCfg.SecretKey != "" {
		billingClient = billing.NewHTTPClient(billingCfg)
	}
	billingSync := billing.NewSync(sugar, store)

	var mediaDeleter media.Deleter = media.Nop{}
	if mediaCfg.BaseURL != "" {
		mediaDeleter = media.NewHTTPDeleter(mediaCfg)
	}

	srv, err := server.NewServer(sugar, serverCfg, store, hub, signer, billingClient, billingSync, mediaDeleter)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
