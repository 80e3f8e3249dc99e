package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/farmashop/gateway"
	"github.com/example/farmashop/pkg/config"
	"github.com/example/farmashop/pkg/notify"
	"github.com/example/farmashop/pkg/orderflow"
	"github.com/example/farmashop/pkg/pricing"
	"github.com/example/farmashop/pkg/repository"
)

func main() {
	// Load config
	cfg, err := config.Load("config/server-config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting back office",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	db, err := repository.OpenMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	cache := repository.NewRedisRepository(&cfg.Redis)
	defer cache.Close()

	mongo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongo.Close(context.Background())

	var notifier orderflow.Notifier
	rabbit, err := notify.NewRabbitNotifier(&cfg.Rabbit, logger)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, notifications degrade to log-only", zap.Error(err))
		notifier = notify.NewLogNotifier(logger)
	} else {
		defer rabbit.Close()
		notifier = rabbit
	}

	// Ping dependencies
	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}
	if err := mongo.Ping(ctx); err != nil {
		logger.Warn("MongoDB connection failed", zap.Error(err))
	}

	statuses := repository.NewStatusRepository(db, cache, logger)
	orders := repository.NewOrderRepository(db)
	prices := repository.NewPricingRepository(db)
	settings := repository.NewSettingsRepository(db, cache, logger)
	shipping := repository.NewShippingRepository(db)

	flow := orderflow.NewEngine(statuses, orders, settings, notifier, mongo, logger)
	resolver := pricing.NewResolver(prices, settings, mongo, logger)

	gw := gateway.NewGateway(cfg, logger, gateway.Deps{
		Flow:     flow,
		Resolver: resolver,
		Prices:   prices,
		Statuses: statuses,
		Orders:   orders,
		Settings: settings,
		Shipping: shipping,
	})
	gw.SetupRoutes()

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Service stopped")
}
