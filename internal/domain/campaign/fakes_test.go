package campaign

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"gumdrop/internal/db"
	"gumdrop/internal/domain/drop"
	"gumdrop/internal/ledger"
	"gumdrop/internal/notify"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
}

func (f *fakeLocks) AcquireCloseLock(_ context.Context, base string, _ time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]string{}
	}
	if _, ok := f.held[base]; ok {
		return "", false, nil
	}
	f.held[base] = "token-" + base
	return f.held[base], true, nil
}

func (f *fakeLocks) ReleaseCloseLock(_ context.Context, base, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[base] != token {
		return errors.New("not held")
	}
	delete(f.held, base)
	f.released = append(f.released, base)
	return nil
}

type fakeCloseStore struct {
	attempts []db.CloseAttempt
}

func (f *fakeCloseStore) InsertCloseAttempt(_ context.Context, a db.CloseAttempt) (int64, error) {
	f.attempts = append(f.attempts, a)
	return int64(len(f.attempts)), nil
}

func (f *fakeCloseStore) ListCloseAttempts(_ context.Context, base string, _ int) ([]db.CloseAttempt, error) {
	var out []db.CloseAttempt
	for _, a := range f.attempts {
		if a.Base == base {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeProber struct {
	snap drop.Snapshot
	err  error
}

func (f *fakeProber) Snapshot(context.Context, solana.PublicKey, drop.ClaimMethod) (drop.Snapshot, error) {
	return f.snap, f.err
}

type fakeSubmitter struct {
	outcome ledger.Outcome
	sets    []drop.InstructionSet
	signers [][]ledger.Signer
}

func (f *fakeSubmitter) Submit(_ context.Context, set drop.InstructionSet, signers []ledger.Signer, _ ledger.Signer) ledger.Outcome {
	f.sets = append(f.sets, set)
	f.signers = append(f.signers, signers)
	return f.outcome
}

type fakePublisher struct {
	batches []NotifyBatch
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, b NotifyBatch) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, b)
	return nil
}

type fakeWallets struct {
	lists map[string][]notify.WalletEntry
}

func (f *fakeWallets) SaveWalletList(_ context.Context, batchID string, entries []notify.WalletEntry, _ time.Duration) error {
	if f.lists == nil {
		f.lists = map[string][]notify.WalletEntry{}
	}
	f.lists[batchID] = entries
	return nil
}

func (f *fakeWallets) WalletList(_ context.Context, batchID string) ([]notify.WalletEntry, error) {
	return f.lists[batchID], nil
}

type fakeNotificationStore struct {
	entries []db.NotificationLog
}

func (f *fakeNotificationStore) RecordNotifications(_ context.Context, entries []db.NotificationLog) error {
	f.entries = append(f.entries, entries...)
	return nil
}
