package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"gumdrop/internal/domain/drop"
	"gumdrop/internal/observability/metrics"
)

// AccountReader is the read side of the RPC client used to observe a drop before closing it.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
}

// Prober builds a drop.Snapshot from chain state.
type Prober struct {
	rpc    AccountReader
	logger *log.Logger
}

// NewProber wires a prober. A nil logger falls back to log.Default().
func NewProber(client AccountReader, logger *log.Logger) *Prober {
	if logger == nil {
		logger = log.Default()
	}
	return &Prober{rpc: client, logger: logger}
}

// candyMachineHeader is the prefix of a candy machine account: anchor discriminator then authority.
type candyMachineHeader struct {
	Discriminator [8]byte
	Authority     solana.PublicKey
}

// Snapshot lists the vault's token accounts and marks auxiliaries that are already released.
// The escrow listing is required; auxiliary lookups that fail are logged and treated as pending.
func (p *Prober) Snapshot(ctx context.Context, base solana.PublicKey, method drop.ClaimMethod) (drop.Snapshot, error) {
	accts, err := drop.DeriveAccounts(base)
	if err != nil {
		return drop.Snapshot{}, err
	}
	snap := drop.Snapshot{Settled: make(map[solana.PublicKey]bool)}

	gone, err := p.accountGone(ctx, accts.Distributor)
	if err != nil {
		p.logger.Printf("ledger prober: distributor %s lookup failed, assuming it still exists: %v", accts.Distributor, err)
	} else if gone {
		snap.Settled[accts.Distributor] = true
		return snap, nil
	}

	start := time.Now()
	out, err := p.rpc.GetTokenAccountsByOwner(ctx, accts.Vault,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	metrics.ObserveRPCOperation("get_token_accounts_by_owner", time.Since(start))
	if err != nil {
		return drop.Snapshot{}, fmt.Errorf("list vault token accounts: %w", err)
	}
	if out != nil {
		for _, acc := range out.Value {
			if acc == nil || acc.Account.Data == nil {
				continue
			}
			data := acc.Account.Data.GetBinary()
			if len(data) < solana.PublicKeyLength {
				continue
			}
			snap.Escrow = append(snap.Escrow, drop.EscrowAccount{
				Address: acc.Pubkey,
				Mint:    solana.PublicKeyFromBytes(data[:solana.PublicKeyLength]),
			})
		}
	}

	switch m := method.(type) {
	case drop.CandyMachine:
		candyMachine, err := drop.CandyMachineAddress(m.Config, m.UUID)
		if err != nil {
			return drop.Snapshot{}, err
		}
		released, err := p.candyAuthorityReleased(ctx, candyMachine, accts.Vault)
		if err != nil {
			p.logger.Printf("ledger prober: candy machine %s lookup failed, assuming authority still held: %v", candyMachine, err)
		} else if released {
			snap.Settled[candyMachine] = true
		}
	case drop.LimitedEdition:
		vaultToken, err := drop.AssociatedTokenAddress(accts.Vault, m.MasterMint)
		if err != nil {
			return drop.Snapshot{}, err
		}
		held := false
		for _, e := range snap.Escrow {
			if e.Address.Equals(vaultToken) {
				held = true
				break
			}
		}
		if !held {
			snap.Settled[vaultToken] = true
		}
	}
	return snap, nil
}

// accountGone reports whether addr no longer exists on chain.
func (p *Prober) accountGone(ctx context.Context, addr solana.PublicKey) (bool, error) {
	start := time.Now()
	info, err := p.rpc.GetAccountInfo(ctx, addr)
	metrics.ObserveRPCOperation("get_account_info", time.Since(start))
	if errors.Is(err, rpc.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return info == nil || info.Value == nil, nil
}

func (p *Prober) candyAuthorityReleased(ctx context.Context, candyMachine, vault solana.PublicKey) (bool, error) {
	start := time.Now()
	info, err := p.rpc.GetAccountInfo(ctx, candyMachine)
	metrics.ObserveRPCOperation("get_account_info", time.Since(start))
	if errors.Is(err, rpc.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return true, nil
	}
	var header candyMachineHeader
	if err := bin.NewBorshDecoder(info.Value.Data.GetBinary()).Decode(&header); err != nil {
		return false, fmt.Errorf("decode candy machine: %w", err)
	}
	return !header.Authority.Equals(vault), nil
}
