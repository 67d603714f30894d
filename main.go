package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"demand-forecast-engine/api"
	"demand-forecast-engine/config"
	"demand-forecast-engine/storage"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("component", "server")

	configFile := "config.json"
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	var store storage.TableStore
	switch cfg.Storage.Provider {
	case "redis":
		redisStore, err := storage.NewRedisStore(
			cfg.Storage.Redis.Addr,
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			cfg.Storage.Redis.DialTimeout.Duration,
		)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize redis store")
		}
		defer redisStore.Close()
		store = redisStore
	default:
		fsStore, err := storage.NewFilesystemStore(cfg.Storage.DataPath)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize filesystem store")
		}
		store = fsStore
	}
	log.WithField("provider", cfg.Storage.Provider).Info("table store initialized")

	apiServer := api.NewServer(store, cfg.Server.RateLimit, cfg.Server.RateBurst)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		log.WithField("addr", cfg.Server.Port).Info("starting forecast query server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}

	log.Info("server stopped")
}
