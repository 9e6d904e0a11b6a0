package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gumdrop/internal/domain/drop"
	"gumdrop/internal/notify"
)

var (
	ErrNoClaimants    = errors.New("claimants required")
	ErrInvalidBatchID = errors.New("invalid batch id")
)

// BatchPublisher hands a batch to the delivery pipeline.
type BatchPublisher interface {
	Publish(ctx context.Context, b NotifyBatch) error
}

// WalletStore keeps exported wallet lists by batch id.
type WalletStore interface {
	SaveWalletList(ctx context.Context, batchID string, entries []notify.WalletEntry, ttl time.Duration) error
	WalletList(ctx context.Context, batchID string) ([]notify.WalletEntry, error)
}

// NotifyRequest is a validated-on-enqueue request to announce a drop. Method is optional.
type NotifyRequest struct {
	Channel   notify.ChannelKind
	Source    string
	Drop      notify.DropInfo
	Method    drop.ClaimMethod
	Claimants []notify.ClaimantInfo
}

// BatchService accepts notify requests and serves exported wallet lists.
type BatchService struct {
	publisher BatchPublisher
	wallets   WalletStore
}

// NewBatchService wires the batch publisher and the wallet list store.
func NewBatchService(publisher BatchPublisher, wallets WalletStore) *BatchService {
	return &BatchService{publisher: publisher, wallets: wallets}
}

// Enqueue validates req and publishes it as a new batch, returning the batch id.
func (s *BatchService) Enqueue(ctx context.Context, req NotifyRequest) (string, error) {
	if !req.Channel.Valid() {
		return "", fmt.Errorf("%w %q", notify.ErrUnknownChannel, req.Channel)
	}
	if !req.Drop.Type.Valid() {
		return "", fmt.Errorf("%w %q", notify.ErrUnknownDropType, req.Drop.Type)
	}
	if req.Method != nil {
		if err := notify.CheckDropType(req.Method, req.Drop.Type); err != nil {
			return "", err
		}
	}
	if len(req.Claimants) == 0 {
		return "", ErrNoClaimants
	}
	b := NotifyBatch{
		BatchID:   uuid.NewString(),
		Channel:   req.Channel,
		Source:    req.Source,
		Drop:      req.Drop,
		Claimants: req.Claimants,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, b); err != nil {
		return "", fmt.Errorf("publish batch: %w", err)
	}
	return b.BatchID, nil
}

// WalletList returns the wallet list collected for a batch.
func (s *BatchService) WalletList(ctx context.Context, batchID string) ([]notify.WalletEntry, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBatchID, err)
	}
	return s.wallets.WalletList(ctx, batchID)
}
