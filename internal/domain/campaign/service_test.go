package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"gumdrop/internal/domain/drop"
	"gumdrop/internal/ledger"
)

type closeFixture struct {
	svc       *Service
	locks     *fakeLocks
	store     *fakeCloseStore
	submitter *fakeSubmitter
	prober    *fakeProber
	base      solana.PrivateKey
}

func newCloseFixture(outcome ledger.Outcome) closeFixture {
	f := closeFixture{
		locks:     &fakeLocks{},
		store:     &fakeCloseStore{},
		submitter: &fakeSubmitter{outcome: outcome},
		prober:    &fakeProber{},
		base:      solana.NewWallet().PrivateKey,
	}
	f.svc = NewService(ServiceDeps{
		Store:     f.store,
		Locks:     f.locks,
		Prober:    f.prober,
		Submitter: f.submitter,
		Actor:     solana.NewWallet().PrivateKey,
		Logger:    quietLogger(),
	})
	return f
}

func TestCloseDropSucceeds(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "sig1", Attempts: 1})
	res, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: drop.Transfer{}})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.Status != StatusSucceeded || res.TxID != "sig1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.store.attempts) != 1 || f.store.attempts[0].Outcome != StatusSucceeded || f.store.attempts[0].Method != drop.TagTransfer {
		t.Fatalf("expected one recorded success, got %+v", f.store.attempts)
	}
	if len(f.locks.released) != 1 {
		t.Fatalf("expected lock release, got %v", f.locks.released)
	}
	set := f.submitter.sets[0]
	if got := drop.InstructionName(set[len(set)-1]); got != drop.InstrCloseDistributor {
		t.Fatalf("last instruction = %s", got)
	}
	if !f.submitter.signers[0][0].PublicKey().Equals(f.base.PublicKey()) {
		t.Fatalf("expected base keypair to sign")
	}
}

func TestCloseDropReportsFailure(t *testing.T) {
	f := newCloseFixture(ledger.Failed{Reason: "custom program error: 0x1", Attempts: 1})
	res, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: drop.Transfer{}})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.Status != StatusFailed || res.Reason == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.store.attempts[0].Reason != res.Reason {
		t.Fatalf("expected failure reason recorded")
	}
}

func TestCloseDropReportsAlreadyClosedDrop(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "unused", Attempts: 1})
	accts, err := drop.DeriveAccounts(f.base.PublicKey())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	f.prober.snap = drop.Snapshot{Settled: map[solana.PublicKey]bool{accts.Distributor: true}}

	res, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: drop.Transfer{}})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.Status != StatusAlreadyClosed || res.TxID != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.submitter.sets) != 0 {
		t.Fatalf("expected nothing submitted, got %d sets", len(f.submitter.sets))
	}
	if len(f.store.attempts) != 1 || f.store.attempts[0].Outcome != StatusAlreadyClosed {
		t.Fatalf("expected already-closed attempt recorded, got %+v", f.store.attempts)
	}
	if len(f.locks.released) != 1 {
		t.Fatalf("expected lock release, got %v", f.locks.released)
	}
}

func TestCloseDropRejectsBadMethodBeforeNetwork(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "sig"})
	_, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: drop.LimitedEdition{}})
	var be *drop.BuildError
	if !errors.As(err, &be) || !errors.Is(err, drop.ErrMissingField) {
		t.Fatalf("expected missing field build error, got %v", err)
	}
	if len(f.submitter.sets) != 0 || len(f.locks.released) != 0 {
		t.Fatalf("expected no lock or submission")
	}
}

func TestCloseDropLockedElsewhere(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "sig"})
	if _, ok, _ := f.locks.AcquireCloseLock(context.Background(), f.base.PublicKey().String(), 0); !ok {
		t.Fatalf("pre-lock failed")
	}
	_, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: drop.Transfer{}})
	if !errors.Is(err, ErrCloseInProgress) {
		t.Fatalf("expected ErrCloseInProgress, got %v", err)
	}
}

func TestCloseDropSkipsSettledAuxiliaries(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "sig"})
	method := drop.CandyMachine{Config: solana.NewWallet().PublicKey(), UUID: "abc123"}
	candyMachine, err := drop.CandyMachineAddress(method.Config, method.UUID)
	if err != nil {
		t.Fatalf("candy address: %v", err)
	}
	f.prober.snap = drop.Snapshot{Settled: map[solana.PublicKey]bool{candyMachine: true}}

	if _, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: method}); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, ix := range f.submitter.sets[0] {
		if drop.InstructionName(ix) == drop.InstrRecoverCandyAuthority {
			t.Fatalf("settled candy authority recovery should be skipped")
		}
	}
}

func TestCloseDropProbeFailureClosesEverything(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "sig"})
	f.prober.err = errors.New("rpc down")
	method := drop.CandyMachine{Config: solana.NewWallet().PublicKey(), UUID: "abc123"}
	if _, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: method}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := drop.InstructionName(f.submitter.sets[0][0]); got != drop.InstrRecoverCandyAuthority {
		t.Fatalf("first instruction = %s, want candy recovery", got)
	}
}

func TestCloseHistoryValidatesBase(t *testing.T) {
	f := newCloseFixture(ledger.Confirmed{TxID: "sig"})
	if _, err := f.svc.CloseHistory(context.Background(), "not-base58!", 10); !errors.Is(err, ErrInvalidBase) {
		t.Fatalf("expected ErrInvalidBase, got %v", err)
	}
	if _, err := f.svc.CloseDrop(context.Background(), CloseInput{Base: f.base, Method: drop.Transfer{}}); err != nil {
		t.Fatalf("close: %v", err)
	}
	history, err := f.svc.CloseHistory(context.Background(), f.base.PublicKey().String(), 10)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one history row, got %v err=%v", history, err)
	}
}
