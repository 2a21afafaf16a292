package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/logging"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/store/gormstore"
	"github.com/example/storefront/internal/store/memory"
)

const (
	botTimeout      = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, closer, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up logging")
	}
	defer closer.Close()

	st, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}

	if cfg.SeedCatalog {
		n, err := database.SeedCatalog(context.Background(), st)
		if err != nil {
			log.WithError(err).Fatal("failed to seed catalog")
		}
		if n > 0 {
			log.WithField("products", n).Info("seeded empty catalog")
		}
	}

	gateway := services.NewBotGateway(cfg.TelegramBotToken, cfg.TelegramAPIURL, botTimeout)

	app := routes.NewApp(cfg, log)
	routes.Register(app, routes.Dependencies{
		Config:  cfg,
		Store:   st,
		Gateway: gateway,
		Log:     log,
	})

	if cfg.TelegramWebhookURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), botTimeout)
		if err := gateway.RegisterWebhook(ctx, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			log.WithError(err).Warn("webhook registration failed")
		} else {
			log.WithField("url", cfg.TelegramWebhookURL).Info("webhook registered")
		}
		cancel()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":   cfg.AppPort,
		"store":  cfg.StoreDriver,
		"policy": cfg.OrderTerminalPolicy,
	}).Info("starting server")

	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.WithError(err).Fatal("fiber.Listen error")
	}
}

func openStore(cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBLogLevel, log)
	if err != nil {
		return nil, err
	}
	return gormstore.New(db), nil
}
