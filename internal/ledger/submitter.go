package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"gumdrop/internal/domain/drop"
	"gumdrop/internal/observability/metrics"
)

// RPC is the subset of the Solana JSON-RPC client the submitter needs. *rpc.Client satisfies it.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// Config bounds the retry loop.
type Config struct {
	Commitment     rpc.CommitmentType
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	PollInterval   time.Duration
	SkipPreflight  bool
}

// DefaultConfig mirrors the values the API ships with.
func DefaultConfig() Config {
	return Config{
		Commitment:     rpc.CommitmentConfirmed,
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		AttemptTimeout: 30 * time.Second,
		PollInterval:   500 * time.Millisecond,
	}
}

// Outcome is the terminal result of Submit: either Confirmed or Failed.
type Outcome interface {
	isOutcome()
}

// Confirmed means the network confirmed the transaction at the configured commitment.
type Confirmed struct {
	TxID     string
	Attempts int
}

// Failed carries a human readable reason. Submit never retries past it.
type Failed struct {
	Reason   string
	Attempts int
}

func (Confirmed) isOutcome() {}
func (Failed) isOutcome()    {}

// Submitter signs, sends and confirms instruction sets with bounded retry.
type Submitter struct {
	rpc    RPC
	cfg    Config
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSubmitter wires a submitter. A nil logger falls back to log.Default().
func NewSubmitter(client RPC, cfg Config, logger *log.Logger) *Submitter {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Submitter{rpc: client, cfg: cfg, logger: logger, sleep: sleepCtx}
}

type phase int

const (
	phaseAttempting phase = iota
	phaseBackoff
	phaseConfirmed
	phaseFailed
)

// Submit runs Attempting(n) -> Confirmed | Transient -> Attempting(n+1) | Terminal, bounded by
// cfg.MaxAttempts. Every path ends in an Outcome.
func (s *Submitter) Submit(ctx context.Context, instructions drop.InstructionSet, signers []Signer, feePayer Signer) Outcome {
	if len(instructions) == 0 {
		return Failed{Reason: "no instructions to submit"}
	}
	if feePayer == nil {
		return Failed{Reason: "fee payer required"}
	}

	delays := retrier.ExponentialBackoff(s.cfg.MaxAttempts, s.cfg.BaseDelay)
	all := append([]Signer{feePayer}, signers...)

	var (
		state   = phaseAttempting
		attempt = 1
		sent    []solana.Signature
		txID    string
		lastErr error
	)
	for {
		switch state {
		case phaseAttempting:
			if landed, ok := s.landed(ctx, sent); ok {
				txID, state = landed.String(), phaseConfirmed
				continue
			}
			sig, err := s.attempt(ctx, instructions, all)
			if sig != (solana.Signature{}) {
				sent = append(sent, sig)
			}
			if err == nil {
				metrics.CountSubmitAttempt("confirmed")
				txID, state = sig.String(), phaseConfirmed
				continue
			}
			lastErr = err
			class := Classify(err)
			metrics.CountSubmitAttempt(class.String())
			s.logger.Printf("ledger submitter: attempt %d/%d failed (%s): %v", attempt, s.cfg.MaxAttempts, class, err)
			switch {
			case class == Terminal:
				state = phaseFailed
			case attempt >= s.cfg.MaxAttempts:
				if landed, ok := s.landed(ctx, sent); ok {
					txID, state = landed.String(), phaseConfirmed
					continue
				}
				lastErr = fmt.Errorf("giving up after %d attempts: %w", attempt, err)
				state = phaseFailed
			default:
				state = phaseBackoff
			}
		case phaseBackoff:
			// Doubling overflows to non-positive durations after enough attempts.
			wait := delays[attempt-1]
			if wait <= 0 || wait > s.cfg.MaxDelay {
				wait = s.cfg.MaxDelay
			}
			if err := s.sleep(ctx, wait); err != nil {
				lastErr = fmt.Errorf("abandoned after %d attempts: %w", attempt, err)
				state = phaseFailed
				continue
			}
			attempt++
			state = phaseAttempting
		case phaseConfirmed:
			return Confirmed{TxID: txID, Attempts: attempt}
		case phaseFailed:
			return Failed{Reason: lastErr.Error(), Attempts: attempt}
		}
	}
}

// attempt performs one blockhash -> sign -> send -> confirm round under the per-attempt timeout.
func (s *Submitter) attempt(ctx context.Context, instructions drop.InstructionSet, signers []Signer) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	latest, err := s.rpc.GetLatestBlockhash(ctx, s.cfg.Commitment)
	metrics.ObserveRPCOperation("get_latest_blockhash", time.Since(start))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("fetch blockhash: %w", err)
	}
	if latest == nil || latest.Value == nil {
		return solana.Signature{}, errors.New("fetch blockhash: empty response")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction(instructions),
		latest.Value.Blockhash,
		solana.TransactionPayer(signers[0].PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, terminal(fmt.Errorf("assemble transaction: %w", err))
	}
	if err := signTransaction(tx, signers); err != nil {
		return solana.Signature{}, terminal(err)
	}

	start = time.Now()
	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.cfg.SkipPreflight,
		PreflightCommitment: s.cfg.Commitment,
	})
	metrics.ObserveRPCOperation("send_transaction", time.Since(start))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, s.awaitConfirmation(ctx, sig, latest.Value.LastValidBlockHeight)
}

func (s *Submitter) awaitConfirmation(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		status, err := s.status(ctx, sig)
		if err == nil && status != nil {
			if status.Err != nil {
				return terminal(fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err))
			}
			if reached(status.ConfirmationStatus, s.cfg.Commitment) {
				return nil
			}
		}
		if height, err := s.rpc.GetBlockHeight(ctx, s.cfg.Commitment); err == nil && lastValid > 0 && height > lastValid {
			return fmt.Errorf("transaction %s: %w", sig, ErrBlockhashExpired)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("await confirmation of %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// landed reports whether a signature sent in an earlier attempt reached the commitment level
// after all, so a retry does not resubmit a closing that already went through.
func (s *Submitter) landed(ctx context.Context, sent []solana.Signature) (solana.Signature, bool) {
	if len(sent) == 0 {
		return solana.Signature{}, false
	}
	start := time.Now()
	out, err := s.rpc.GetSignatureStatuses(ctx, true, sent...)
	metrics.ObserveRPCOperation("get_signature_statuses", time.Since(start))
	if err != nil || out == nil {
		return solana.Signature{}, false
	}
	for i, status := range out.Value {
		if i < len(sent) && status != nil && status.Err == nil && reached(status.ConfirmationStatus, s.cfg.Commitment) {
			return sent[i], true
		}
	}
	return solana.Signature{}, false
}

func (s *Submitter) status(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	start := time.Now()
	out, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
	metrics.ObserveRPCOperation("get_signature_statuses", time.Since(start))
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

func reached(got rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{
		string(rpc.ConfirmationStatusProcessed): 1,
		string(rpc.ConfirmationStatusConfirmed): 2,
		string(rpc.ConfirmationStatusFinalized): 3,
	}
	need, ok := rank[string(want)]
	if !ok {
		need = rank[string(rpc.ConfirmationStatusConfirmed)]
	}
	return rank[string(got)] >= need
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
