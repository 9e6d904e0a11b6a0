package campaign

import (
	"context"
	"log"
	"time"

	"gumdrop/internal/db"
	"gumdrop/internal/notify"
	"gumdrop/internal/observability/metrics"
)

// NotificationStore persists per-claimant delivery results.
type NotificationStore interface {
	RecordNotifications(ctx context.Context, entries []db.NotificationLog) error
}

// BatchRunner delivers notify batches consumed from Kafka.
type BatchRunner struct {
	store      NotificationStore
	wallets    WalletStore
	dispatcher *notify.Dispatcher
	auth       notify.AuthKeys
	opts       []notify.Option
	walletTTL  time.Duration
	logger     *log.Logger
}

// BatchRunnerDeps lists what NewBatchRunner wires together.
type BatchRunnerDeps struct {
	Store      NotificationStore
	Wallets    WalletStore
	Dispatcher *notify.Dispatcher
	Auth       notify.AuthKeys
	Options    []notify.Option
	WalletTTL  time.Duration
	Logger     *log.Logger
}

// NewBatchRunner builds a runner.
func NewBatchRunner(deps BatchRunnerDeps) *BatchRunner {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = notify.NewDispatcher(0, 1, deps.Logger)
	}
	return &BatchRunner{
		store:      deps.Store,
		wallets:    deps.Wallets,
		dispatcher: deps.Dispatcher,
		auth:       deps.Auth,
		opts:       deps.Options,
		walletTTL:  deps.WalletTTL,
		logger:     deps.Logger,
	}
}

// HandleBatch builds the batch's notifier once, notifies every claimant and records the results.
func (r *BatchRunner) HandleBatch(ctx context.Context, b NotifyBatch) error {
	start := time.Now()
	defer func() { metrics.ObserveConsumerProcessing("handle_batch", time.Since(start)) }()

	n, err := notify.New(b.Channel, r.auth, b.Source, append([]notify.Option{notify.WithLogger(r.logger)}, r.opts...)...)
	if err != nil {
		r.logger.Printf("batch runner: setup failed batch=%s channel=%s: %v", b.BatchID, b.Channel, err)
		return err
	}
	report, runErr := r.dispatcher.Run(ctx, n, b.Claimants, b.Drop)
	if runErr != nil {
		r.logger.Printf("batch runner: batch=%s stopped after %d of %d: %v", b.BatchID, report.Attempted, len(b.Claimants), runErr)
	}

	if wl, ok := n.(*notify.WalletList); ok && r.wallets != nil {
		if err := r.wallets.SaveWalletList(ctx, b.BatchID, wl.Export(), r.walletTTL); err != nil {
			r.logger.Printf("batch runner: failed to export wallet list batch=%s: %v", b.BatchID, err)
			return err
		}
	}

	entries := make([]db.NotificationLog, 0, len(report.Results))
	for _, res := range report.Results {
		entries = append(entries, db.NotificationLog{
			BatchID:   b.BatchID,
			Position:  res.Index,
			Channel:   string(b.Channel),
			Handle:    res.Handle,
			Delivered: res.Delivered,
			Reason:    res.Reason,
		})
	}
	if err := r.store.RecordNotifications(ctx, entries); err != nil {
		r.logger.Printf("batch runner: failed to record notifications batch=%s: %v", b.BatchID, err)
		return err
	}
	r.logger.Printf("batch runner: batch=%s delivered=%d failed=%d", b.BatchID, report.Delivered, len(report.Failures))
	return runErr
}
