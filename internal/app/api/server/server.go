package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"gumdrop/internal/app/api/config"
	"gumdrop/internal/app/api/router"
	"gumdrop/internal/db"
	"gumdrop/internal/domain/campaign"
	"gumdrop/internal/kafka"
	"gumdrop/internal/ledger"
	"gumdrop/internal/messaging/batch"
	redispkg "gumdrop/internal/redis"
)

// Server wires infrastructure dependencies for the API service.
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	store      *db.Store
	redis      *redispkg.Client
	producer   *kafka.Producer
	rpc        *rpc.Client
}

// New constructs the server and underlying dependencies.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	actor, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.OperatorKeypair)
	if err != nil {
		return nil, fmt.Errorf("load operator keypair: %w", err)
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

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		redisClient.Close()
		store.Close()
		return nil, err
	}

	rpcClient := rpc.New(cfg.SolanaRPCURL)
	submitter := ledger.NewSubmitter(rpcClient, ledger.Config{
		Commitment:     rpc.CommitmentType(cfg.Commitment),
		MaxAttempts:    cfg.SubmitMaxAttempts,
		BaseDelay:      cfg.SubmitBaseDelay,
		MaxDelay:       cfg.SubmitMaxDelay,
		AttemptTimeout: cfg.SubmitAttemptTimeout,
		PollInterval:   cfg.SubmitPollInterval,
		SkipPreflight:  cfg.SkipPreflight,
	}, nil)

	svc := campaign.NewService(campaign.ServiceDeps{
		Store:     store,
		Locks:     redisClient,
		Prober:    ledger.NewProber(rpcClient, nil),
		Submitter: submitter,
		Actor:     actor,
		LockTTL:   cfg.CloseLockTTL,
	})
	batches := campaign.NewBatchService(batch.NewPublisher(producer), redisClient)
	ginRouter := router.New(router.Dependencies{
		Closer:  svc,
		Batches: batches,
		Cluster: cfg.SolanaCluster,
	})
	log.Printf("api: operator=%s rpc=%s cluster=%s", actor.PublicKey(), cfg.SolanaRPCURL, cfg.SolanaCluster)

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: ginRouter}
	return &Server{
		cfg:        cfg,
		httpServer: httpSrv,
		store:      store,
		redis:      redisClient,
		producer:   producer,
		rpc:        rpcClient,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		// closes in flight may still be retrying or polling for confirmation
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.SubmitBudget()+10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Close releases infrastructure resources.
func (s *Server) Close() {
	_ = s.httpServer.Close()
	if s.rpc != nil {
		_ = s.rpc.Close()
	}
	if s.producer != nil {
		_ = s.producer.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
