package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	consumerconfig "gumdrop/internal/app/consumer/config"
	"gumdrop/internal/db"
	"gumdrop/internal/domain/campaign"
	"gumdrop/internal/messaging/batch"
	"gumdrop/internal/notify"
	redispkg "gumdrop/internal/redis"
)

// Server hosts the Kafka consumer workflow.
type Server struct {
	cfg      consumerconfig.Config
	store    *db.Store
	redis    *redispkg.Client
	consumer *batch.Consumer
	metrics  *http.Server
}

// New builds the consumer server and supporting dependencies.
func New(ctx context.Context, cfg consumerconfig.Config) (*Server, error) {
	auth, err := authKeys(cfg)
	if err != nil {
		return nil, err
	}

	store, err := db.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	redisClient, err := redispkg.New(cfg.RedisAddr)
	if err != nil {
		store.Close()
		return nil, err
	}

	runner := campaign.NewBatchRunner(campaign.BatchRunnerDeps{
		Store:      store,
		Wallets:    redisClient,
		Dispatcher: notify.NewDispatcher(cfg.NotifyCallTimeout, cfg.NotifyWorkers, nil),
		Auth:       auth,
		WalletTTL:  cfg.WalletListTTL,
	})
	batchConsumer, err := batch.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, runner)
	if err != nil {
		redisClient.Close()
		store.Close()
		return nil, err
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	return &Server{
		cfg:      cfg,
		store:    store,
		redis:    redisClient,
		consumer: batchConsumer,
		metrics:  metricsSrv,
	}, nil
}

// authKeys prefers the credentials file and falls back to the standard AWS variables.
func authKeys(cfg consumerconfig.Config) (notify.AuthKeys, error) {
	if cfg.NotifyAuthFile != "" {
		keys, err := notify.LoadAuthKeys(cfg.NotifyAuthFile)
		if err != nil {
			return nil, err
		}
		if keys["region"] == "" && cfg.AWSRegion != "" {
			keys["region"] = cfg.AWSRegion
		}
		return keys, nil
	}
	keys := notify.AuthKeys{}
	if cfg.AWSAccessKeyID != "" {
		keys["accessKeyId"] = cfg.AWSAccessKeyID
	}
	if cfg.AWSSecretKey != "" {
		keys["secretAccessKey"] = cfg.AWSSecretKey
	}
	if cfg.AWSRegion != "" {
		keys["region"] = cfg.AWSRegion
	}
	return keys, nil
}

// Run starts consuming notify batches until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.metrics != nil {
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("consumer metrics server stopped: %v", err)
			}
		}()
		log.Printf("consumer metrics listening on %s", s.cfg.MetricsAddr)
	}
	return s.consumer.Start(ctx)
}

// Close releases resources.
func (s *Server) Close() {
	if s.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.Shutdown(shutdownCtx)
	}
	if s.consumer != nil {
		_ = s.consumer.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
