package ledger

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/google/go-cmp/cmp"

	"gumdrop/internal/domain/drop"
)

type fakeRPC struct {
	mu sync.Mutex

	sendErrs  []error
	onChain   interface{}
	height    uint64
	neverSeen bool
	lateLand  bool

	sends      int
	blockhashs int
	sent       []solana.Signature
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockhashs++
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{
		Blockhash:            solana.Hash{byte(f.blockhashs)},
		LastValidBlockHeight: 100,
	}}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.sends
	f.sends++
	if call < len(f.sendErrs) && f.sendErrs[call] != nil {
		return solana.Signature{}, f.sendErrs[call]
	}
	f.sent = append(f.sent, tx.Signatures[0])
	return tx.Signatures[0], nil
}

func (f *fakeRPC) GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &rpc.GetSignatureStatusesResult{}
	for range sigs {
		switch {
		case f.neverSeen && !(searchHistory && f.lateLand):
			out.Value = append(out.Value, nil)
		case f.onChain != nil:
			out.Value = append(out.Value, &rpc.SignatureStatusesResult{Err: f.onChain, ConfirmationStatus: rpc.ConfirmationStatusProcessed})
		default:
			out.Value = append(out.Value, &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed})
		}
	}
	return out, nil
}

func (f *fakeRPC) GetBlockHeight(ctx context.Context, _ rpc.CommitmentType) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

type fixture struct {
	base         solana.PrivateKey
	payer        solana.PrivateKey
	instructions drop.InstructionSet
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := solana.NewWallet().PrivateKey
	payer := solana.NewWallet().PrivateKey
	set, err := drop.Build(drop.ClosingRequest{Base: base.PublicKey(), Actor: payer.PublicKey(), Method: drop.Transfer{}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return fixture{base: base, payer: payer, instructions: set}
}

func newTestSubmitter(client RPC, waits *[]time.Duration) *Submitter {
	return newTestSubmitterWith(client, waits, Config{
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       150 * time.Millisecond,
		AttemptTimeout: time.Second,
		PollInterval:   time.Millisecond,
	})
}

func newTestSubmitterWith(client RPC, waits *[]time.Duration, cfg Config) *Submitter {
	s := NewSubmitter(client, cfg, log.New(io.Discard, "", 0))
	s.sleep = func(ctx context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return ctx.Err()
	}
	return s
}

func unhealthy() error {
	return &jsonrpc.RPCError{Code: codeNodeUnhealthy, Message: "Node is unhealthy"}
}

func TestSubmitConfirmsWithoutRetry(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{}
	outcome := newTestSubmitter(client, nil).Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	confirmed, ok := outcome.(Confirmed)
	if !ok {
		t.Fatalf("expected Confirmed, got %#v", outcome)
	}
	if confirmed.Attempts != 1 || client.sends != 1 {
		t.Fatalf("expected one attempt and one send, got attempts=%d sends=%d", confirmed.Attempts, client.sends)
	}
	if confirmed.TxID != client.sent[0].String() {
		t.Fatalf("expected tx id %s, got %s", client.sent[0], confirmed.TxID)
	}
}

func TestSubmitRetriesUpToBoundOnTransientFailure(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{sendErrs: []error{unhealthy(), unhealthy(), unhealthy(), unhealthy()}}
	var waits []time.Duration
	outcome := newTestSubmitter(client, &waits).Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	failed, ok := outcome.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", outcome)
	}
	if failed.Attempts != 3 || client.sends != 3 {
		t.Fatalf("expected exactly 3 attempts, got attempts=%d sends=%d", failed.Attempts, client.sends)
	}
	if client.blockhashs != 3 {
		t.Fatalf("expected a fresh blockhash per attempt, got %d fetches", client.blockhashs)
	}
	if !strings.Contains(failed.Reason, "giving up after 3 attempts") {
		t.Fatalf("unexpected reason %q", failed.Reason)
	}
	if diff := cmp.Diff([]time.Duration{100 * time.Millisecond, 150 * time.Millisecond}, waits); diff != "" {
		t.Fatalf("backoff schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitRecoversAfterTransientFailure(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{sendErrs: []error{unhealthy()}}
	outcome := newTestSubmitter(client, nil).Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	confirmed, ok := outcome.(Confirmed)
	if !ok {
		t.Fatalf("expected Confirmed, got %#v", outcome)
	}
	if confirmed.Attempts != 2 {
		t.Fatalf("expected confirmation on attempt 2, got %d", confirmed.Attempts)
	}
}

func TestSubmitStopsOnTerminalFailure(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{sendErrs: []error{&jsonrpc.RPCError{
		Code:    codeSendTransactionPreflight,
		Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1",
	}}}
	outcome := newTestSubmitter(client, nil).Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	failed, ok := outcome.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", outcome)
	}
	if failed.Attempts != 1 || client.sends != 1 {
		t.Fatalf("expected a single attempt, got attempts=%d sends=%d", failed.Attempts, client.sends)
	}
	if !strings.Contains(failed.Reason, "custom program error") {
		t.Fatalf("expected program error in reason, got %q", failed.Reason)
	}
}

func TestSubmitFailsOnChainError(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{onChain: map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}}}
	outcome := newTestSubmitter(client, nil).Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	failed, ok := outcome.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", outcome)
	}
	if failed.Attempts != 1 {
		t.Fatalf("expected on-chain failure to be terminal, got %d attempts", failed.Attempts)
	}
}

func TestSubmitMissingSignerIsTerminal(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{}
	outcome := newTestSubmitter(client, nil).Submit(context.Background(), fx.instructions, nil, fx.payer)

	failed, ok := outcome.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", outcome)
	}
	if client.sends != 0 || !strings.Contains(failed.Reason, fx.base.PublicKey().String()) {
		t.Fatalf("expected no send and the base key named, got sends=%d reason=%q", client.sends, failed.Reason)
	}
}

func TestSubmitDetectsEarlierAttemptThatLanded(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{neverSeen: true, lateLand: true, height: 1000}
	outcome := newTestSubmitter(client, nil).Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	confirmed, ok := outcome.(Confirmed)
	if !ok {
		t.Fatalf("expected Confirmed, got %#v", outcome)
	}
	if client.sends != 1 {
		t.Fatalf("expected no resubmission once the first attempt landed, got %d sends", client.sends)
	}
	if confirmed.TxID != client.sent[0].String() {
		t.Fatalf("expected first signature %s, got %s", client.sent[0], confirmed.TxID)
	}
}

func TestSubmitFinalAttemptThatLandsIsConfirmed(t *testing.T) {
	fx := newFixture(t)
	client := &fakeRPC{neverSeen: true, lateLand: true, height: 1000}
	s := newTestSubmitterWith(client, nil, Config{
		MaxAttempts:    1,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       150 * time.Millisecond,
		AttemptTimeout: time.Second,
		PollInterval:   time.Millisecond,
	})
	outcome := s.Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	confirmed, ok := outcome.(Confirmed)
	if !ok {
		t.Fatalf("expected Confirmed, got %#v", outcome)
	}
	if client.sends != 1 || confirmed.Attempts != 1 {
		t.Fatalf("expected a single attempt, got attempts=%d sends=%d", confirmed.Attempts, client.sends)
	}
	if confirmed.TxID != client.sent[0].String() {
		t.Fatalf("expected signature %s, got %s", client.sent[0], confirmed.TxID)
	}
}

func TestSubmitBackoffStaysPositiveAndCapped(t *testing.T) {
	fx := newFixture(t)
	errs := make([]error, 40)
	for i := range errs {
		errs[i] = unhealthy()
	}
	client := &fakeRPC{sendErrs: errs}
	var waits []time.Duration
	s := newTestSubmitterWith(client, &waits, Config{
		MaxAttempts:    40,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		AttemptTimeout: time.Second,
		PollInterval:   time.Millisecond,
	})
	outcome := s.Submit(context.Background(), fx.instructions, []Signer{fx.base}, fx.payer)

	if failed, ok := outcome.(Failed); !ok || failed.Attempts != 40 {
		t.Fatalf("expected Failed after 40 attempts, got %#v", outcome)
	}
	if len(waits) != 39 {
		t.Fatalf("expected 39 waits, got %d", len(waits))
	}
	for i, w := range waits {
		if w <= 0 || w > 5*time.Second {
			t.Fatalf("wait %d = %v, want within (0, 5s]", i, w)
		}
	}
	if waits[len(waits)-1] != 5*time.Second {
		t.Fatalf("expected late waits to sit at the cap, got %v", waits[len(waits)-1])
	}
}

func TestSubmitHonorsCancellation(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := newTestSubmitter(&fakeRPC{sendErrs: []error{unhealthy()}}, nil).Submit(ctx, fx.instructions, []Signer{fx.base}, fx.payer)
	if _, ok := outcome.(Failed); !ok {
		t.Fatalf("expected Failed after cancellation, got %#v", outcome)
	}
}

func TestSubmitRejectsEmptyInstructionSet(t *testing.T) {
	fx := newFixture(t)
	outcome := newTestSubmitter(&fakeRPC{}, nil).Submit(context.Background(), nil, nil, fx.payer)
	if failed, ok := outcome.(Failed); !ok || failed.Attempts != 0 {
		t.Fatalf("expected immediate Failed, got %#v", outcome)
	}
}
