package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"

	"gumdrop/internal/db"
	"gumdrop/internal/domain/drop"
	"gumdrop/internal/ledger"
	"gumdrop/internal/observability/metrics"
)

const (
	StatusSucceeded     = "succeeded"
	StatusFailed        = "failed"
	StatusAlreadyClosed = "already_closed"
)

// ErrCloseInProgress indicates another close of the same drop holds the lock.
var ErrCloseInProgress = errors.New("close already in progress")

// ErrInvalidBase indicates a drop base that is not a valid public key.
var ErrInvalidBase = errors.New("invalid drop base")

// Locker serialises closes of the same drop.
type Locker interface {
	AcquireCloseLock(ctx context.Context, base string, ttl time.Duration) (string, bool, error)
	ReleaseCloseLock(ctx context.Context, base, token string) error
}

// CloseStore keeps the close history.
type CloseStore interface {
	InsertCloseAttempt(ctx context.Context, a db.CloseAttempt) (int64, error)
	ListCloseAttempts(ctx context.Context, base string, limit int) ([]db.CloseAttempt, error)
}

// Prober reads which parts of a drop are already closed.
type Prober interface {
	Snapshot(ctx context.Context, base solana.PublicKey, method drop.ClaimMethod) (drop.Snapshot, error)
}

// Submitter lands an instruction set on chain.
type Submitter interface {
	Submit(ctx context.Context, instructions drop.InstructionSet, signers []ledger.Signer, feePayer ledger.Signer) ledger.Outcome
}

// Service coordinates lock, chain and history for closing drops.
type Service struct {
	store     CloseStore
	locks     Locker
	prober    Prober
	submitter Submitter
	actor     ledger.Signer
	lockTTL   time.Duration
	logger    *log.Logger
}

// ServiceDeps lists what NewService wires together. Actor pays fees and receives reclaimed funds.
type ServiceDeps struct {
	Store     CloseStore
	Locks     Locker
	Prober    Prober
	Submitter Submitter
	Actor     ledger.Signer
	LockTTL   time.Duration
	Logger    *log.Logger
}

// CloseInput captures a close request. Base is the drop's base keypair.
type CloseInput struct {
	Base   solana.PrivateKey
	Method drop.ClaimMethod
}

// CloseResult represents the outcome of closing a drop.
type CloseResult struct {
	Status   string
	TxID     string
	Reason   string
	Attempts int
}

// NewService wires dependencies.
func NewService(deps ServiceDeps) *Service {
	if deps.LockTTL <= 0 {
		deps.LockTTL = 2 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Service{
		store:     deps.Store,
		locks:     deps.Locks,
		prober:    deps.Prober,
		submitter: deps.Submitter,
		actor:     deps.Actor,
		lockTTL:   deps.LockTTL,
		logger:    deps.Logger,
	}
}

// Actor returns the public key that pays for and receives the proceeds of every close.
func (s *Service) Actor() solana.PublicKey {
	return s.actor.PublicKey()
}

// CloseDrop builds and submits the closing transaction for a drop. Malformed requests return a
// *drop.BuildError before any network call; chain failures come back as a failed CloseResult.
func (s *Service) CloseDrop(ctx context.Context, in CloseInput) (*CloseResult, error) {
	if len(in.Base) != 64 {
		return nil, fmt.Errorf("%w: base secret must be 64 bytes", ErrInvalidBase)
	}
	base := in.Base.PublicKey()
	req := drop.ClosingRequest{Base: base, Actor: s.actor.PublicKey(), Method: in.Method}
	if _, err := drop.Build(req); err != nil {
		return nil, err
	}

	token, ok, err := s.locks.AcquireCloseLock(ctx, base.String(), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire close lock: %w", err)
	}
	if !ok {
		return nil, ErrCloseInProgress
	}
	defer s.release(ctx, base.String(), token)

	snap, err := s.prober.Snapshot(ctx, base, in.Method)
	if err != nil {
		s.logger.Printf("campaign service: snapshot failed for base=%s, closing everything: %v", base, err)
		snap = drop.Snapshot{}
	}
	req.Snapshot = snap
	set, err := drop.Build(req)
	if errors.Is(err, drop.ErrAlreadyClosed) {
		result := &CloseResult{Status: StatusAlreadyClosed, Reason: "distributor account no longer exists"}
		s.logger.Printf("campaign service: nothing to close base=%s method=%s", base, in.Method.Tag())
		metrics.CountCloseOutcome(in.Method.Tag(), result.Status)
		s.record(ctx, base, in.Method, result)
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result := toResult(s.submitter.Submit(ctx, set, []ledger.Signer{in.Base}, s.actor))
	if result.Status == StatusSucceeded {
		s.logger.Printf("campaign service: Close succeeded base=%s method=%s tx=%s attempts=%d", base, in.Method.Tag(), result.TxID, result.Attempts)
	} else {
		s.logger.Printf("campaign service: Close failed base=%s method=%s attempts=%d reason=%s", base, in.Method.Tag(), result.Attempts, result.Reason)
	}
	metrics.CountCloseOutcome(in.Method.Tag(), result.Status)
	s.record(ctx, base, in.Method, result)
	return result, nil
}

// CloseHistory lists recent close attempts for a drop base.
func (s *Service) CloseHistory(ctx context.Context, base string, limit int) ([]db.CloseAttempt, error) {
	if _, err := solana.PublicKeyFromBase58(base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	return s.store.ListCloseAttempts(ctx, base, limit)
}

func (s *Service) release(ctx context.Context, base, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.locks.ReleaseCloseLock(ctx, base, token); err != nil {
		s.logger.Printf("campaign service: release close lock base=%s: %v", base, err)
	}
}

func (s *Service) record(ctx context.Context, base solana.PublicKey, method drop.ClaimMethod, r *CloseResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.store.InsertCloseAttempt(ctx, db.CloseAttempt{
		Base:     base.String(),
		Method:   method.Tag(),
		Outcome:  r.Status,
		TxID:     r.TxID,
		Reason:   r.Reason,
		Attempts: r.Attempts,
	}); err != nil {
		s.logger.Printf("campaign service: failed to record close attempt base=%s: %v", base, err)
	}
}

func toResult(outcome ledger.Outcome) *CloseResult {
	switch o := outcome.(type) {
	case ledger.Confirmed:
		return &CloseResult{Status: StatusSucceeded, TxID: o.TxID, Attempts: o.Attempts}
	case ledger.Failed:
		return &CloseResult{Status: StatusFailed, Reason: o.Reason, Attempts: o.Attempts}
	}
	return &CloseResult{Status: StatusFailed, Reason: "no outcome"}
}
