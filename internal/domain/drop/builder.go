package drop

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction names of the distributor program used while closing.
const (
	InstrCloseDistributor      = "close_distributor"
	InstrCloseTokenAccount     = "close_distributor_token_account"
	InstrRecoverCandyAuthority = "recover_candy_authority"
	InstrCreateTokenAccount    = "create_associated_token_account_idempotent"
)

// createIdempotent is the associated token account program's CreateIdempotent variant.
const createIdempotent = 1

// EscrowAccount is a token account owned by the drop's vault.
type EscrowAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
}

// Snapshot is what was observed on chain before building. The zero value means nothing was
// observed; Build still produces a valid closing sequence from it.
type Snapshot struct {
	Escrow  []EscrowAccount
	Settled map[solana.PublicKey]bool
}

// IsSettled reports whether addr was already closed or released.
func (s Snapshot) IsSettled(addr solana.PublicKey) bool {
	return s.Settled[addr]
}

// ClosingRequest describes one closing of a drop.
type ClosingRequest struct {
	Base     solana.PublicKey
	Actor    solana.PublicKey
	Method   ClaimMethod
	Snapshot Snapshot
}

// InstructionSet is an ordered closing sequence. The last entry always closes the distributor.
type InstructionSet []solana.Instruction

// Build assembles the closing instructions for req. Auxiliary accounts are released first and
// the distributor with its vault is closed last. Auxiliaries listed in the snapshot as settled
// are left out so a partially closed drop can be closed again.
func Build(req ClosingRequest) (InstructionSet, error) {
	if err := validate(req.Method); err != nil {
		return nil, err
	}
	if req.Base.IsZero() {
		return nil, missingField("base")
	}
	if req.Actor.IsZero() {
		return nil, missingField("actor")
	}
	accts, err := DeriveAccounts(req.Base)
	if err != nil {
		return nil, err
	}
	if req.Snapshot.IsSettled(accts.Distributor) {
		return nil, ErrAlreadyClosed
	}

	var (
		out       InstructionSet
		remaining []*solana.AccountMeta
		swept     = make(map[solana.PublicKey]bool)
	)

	switch m := req.Method.(type) {
	case Transfer:
	case CandyMachine:
		candyMachine, err := CandyMachineAddress(m.Config, m.UUID)
		if err != nil {
			return nil, err
		}
		if !req.Snapshot.IsSettled(candyMachine) {
			ix, err := recoverCandyAuthority(req.Base, req.Actor, accts, candyMachine)
			if err != nil {
				return nil, err
			}
			out = append(out, ix)
		}
		remaining = append(remaining,
			solana.NewAccountMeta(candyMachine, true, false),
			solana.NewAccountMeta(CandyMachineProgramID, false, false),
		)
	case LimitedEdition:
		vaultToken, err := AssociatedTokenAddress(accts.Vault, m.MasterMint)
		if err != nil {
			return nil, err
		}
		swept[vaultToken] = true
		if !req.Snapshot.IsSettled(vaultToken) {
			ixs, err := sweepTokenAccount(req.Base, req.Actor, accts, vaultToken, m.MasterMint)
			if err != nil {
				return nil, err
			}
			out = append(out, ixs...)
		}
	default:
		return nil, unknownMethod(req.Method.Tag())
	}

	for _, escrow := range req.Snapshot.Escrow {
		if swept[escrow.Address] || req.Snapshot.IsSettled(escrow.Address) {
			continue
		}
		swept[escrow.Address] = true
		ixs, err := sweepTokenAccount(req.Base, req.Actor, accts, escrow.Address, escrow.Mint)
		if err != nil {
			return nil, err
		}
		out = append(out, ixs...)
	}

	closing, err := closeDistributor(req.Base, req.Actor, accts, remaining)
	if err != nil {
		return nil, err
	}
	return append(out, closing), nil
}

// InstructionName names a closing instruction for logs and tests. Unknown instructions yield "".
func InstructionName(ix solana.Instruction) string {
	data, err := ix.Data()
	if err != nil {
		return ""
	}
	switch ix.ProgramID() {
	case solana.SPLAssociatedTokenAccountProgramID:
		if len(data) == 1 && data[0] == createIdempotent {
			return InstrCreateTokenAccount
		}
	case DistributorProgramID:
		if len(data) < 8 {
			return ""
		}
		for _, name := range []string{InstrCloseDistributor, InstrCloseTokenAccount, InstrRecoverCandyAuthority} {
			d := discriminator(name)
			if bytes.Equal(data[:8], d[:]) {
				return name
			}
		}
	}
	return ""
}

type walletBumpArgs struct {
	Discriminator [8]byte
	WalletBump    uint8
}

type closeDistributorArgs struct {
	Discriminator [8]byte
	Bump          uint8
	WalletBump    uint8
}

func closeDistributor(base, actor solana.PublicKey, accts Accounts, remaining []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := bin.MarshalBorsh(&closeDistributorArgs{
		Discriminator: discriminator(InstrCloseDistributor),
		Bump:          accts.DistributorBump,
		WalletBump:    accts.VaultBump,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", InstrCloseDistributor, err)
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(base, false, true),
		solana.NewAccountMeta(accts.Distributor, true, false),
		solana.NewAccountMeta(accts.Vault, true, false),
		solana.NewAccountMeta(actor, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	metas = append(metas, remaining...)
	return solana.NewInstruction(DistributorProgramID, metas, data), nil
}

func recoverCandyAuthority(base, actor solana.PublicKey, accts Accounts, candyMachine solana.PublicKey) (solana.Instruction, error) {
	data, err := bin.MarshalBorsh(&walletBumpArgs{
		Discriminator: discriminator(InstrRecoverCandyAuthority),
		WalletBump:    accts.VaultBump,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", InstrRecoverCandyAuthority, err)
	}
	return solana.NewInstruction(DistributorProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(base, false, true),
		solana.NewAccountMeta(accts.Distributor, false, false),
		solana.NewAccountMeta(accts.Vault, true, false),
		solana.NewAccountMeta(actor, false, false),
		solana.NewAccountMeta(candyMachine, true, false),
		solana.NewAccountMeta(CandyMachineProgramID, false, false),
	}, data), nil
}

// sweepTokenAccount moves the balance of a vault token account to the actor and closes it.
func sweepTokenAccount(base, actor solana.PublicKey, accts Accounts, from, mint solana.PublicKey) ([]solana.Instruction, error) {
	to, err := AssociatedTokenAddress(actor, mint)
	if err != nil {
		return nil, err
	}
	data, err := bin.MarshalBorsh(&walletBumpArgs{
		Discriminator: discriminator(InstrCloseTokenAccount),
		WalletBump:    accts.VaultBump,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", InstrCloseTokenAccount, err)
	}
	closeIx := solana.NewInstruction(DistributorProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(base, false, true),
		solana.NewAccountMeta(accts.Distributor, false, false),
		solana.NewAccountMeta(accts.Vault, true, false),
		solana.NewAccountMeta(from, true, false),
		solana.NewAccountMeta(to, true, false),
		solana.NewAccountMeta(actor, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}, data)
	return []solana.Instruction{createTokenAccountIdempotent(actor, to, mint), closeIx}, nil
}

func createTokenAccountIdempotent(owner, account, mint solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}, []byte{createIdempotent})
}

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
