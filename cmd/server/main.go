package main

import (
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bala007/stripe-connect-rocketrides/internal/api"
	"github.com/bala007/stripe-connect-rocketrides/internal/config"
	"github.com/bala007/stripe-connect-rocketrides/internal/logging"
	"github.com/bala007/stripe-connect-rocketrides/internal/onboarding"
	"github.com/bala007/stripe-connect-rocketrides/internal/platform"
	"github.com/bala007/stripe-connect-rocketrides/internal/repository"
	"github.com/bala007/stripe-connect-rocketrides/internal/session"
	"github.com/bala007/stripe-connect-rocketrides/internal/settlement"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("initializing database", zap.String("path", cfg.DBPath))
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to init DB", zap.Error(err))
	}
	defer db.Close()

	// Create repositories.
	providerRepo := repository.NewProviderRepo(db)
	txnRepo := repository.NewTransactionRepo(db)
	payoutRepo := repository.NewPayoutRepo(db)

	// Session store: shared Redis when configured, in-process otherwise.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sessions = session.NewRedisStore(client, cfg.SessionTTL)
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		logger.Info("using in-memory session store")
	}

	platformClient := platform.NewClient(platform.Config{
		SecretKey:    cfg.PlatformSecretKey,
		ClientID:     cfg.PlatformClientID,
		AuthorizeURI: cfg.PlatformAuthorizeURI,
		TokenURI:     cfg.PlatformTokenURI,
		APIBase:      cfg.PlatformAPIBase,
		Timeout:      cfg.HTTPTimeout,
	}, logger)

	orch := onboarding.NewOrchestrator(
		onboarding.Config{PublicDomain: cfg.PublicDomain, AppName: cfg.AppName},
		providerRepo,
		sessions,
		platformClient,
		logger,
	)

	engine := settlement.NewEngine()

	router := api.NewRouter(providerRepo, txnRepo, payoutRepo, orch, engine, logger)

	logger.Info("starting server",
		zap.String("app", cfg.AppName),
		zap.String("port", cfg.Port),
		zap.String("public_domain", cfg.PublicDomain))

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
