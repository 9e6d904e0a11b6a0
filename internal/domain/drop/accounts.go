package drop

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Program addresses the closing instructions talk to.
var (
	DistributorProgramID  = solana.MustPublicKeyFromBase58("gdrpGjVffourzkdDRrQmySw4aTHr8a3xmQzzxSwFD1a")
	CandyMachineProgramID = solana.MustPublicKeyFromBase58("cndyAnrLdpjq1Ssp1z8xxDsB8dxe7u4HL5Nxi2K5WXZ")
)

var (
	seedDistributor  = []byte("MerkleDistributor")
	seedWallet       = []byte("Wallet")
	seedCandyMachine = []byte("candy_machine")
)

// Accounts are the derived addresses of one drop.
type Accounts struct {
	Distributor     solana.PublicKey
	DistributorBump uint8
	Vault           solana.PublicKey
	VaultBump       uint8
}

// DeriveAccounts derives the distributor and its vault (the distributor wallet) from the base key.
func DeriveAccounts(base solana.PublicKey) (Accounts, error) {
	distributor, dbump, err := solana.FindProgramAddress(
		[][]byte{seedDistributor, base.Bytes()},
		DistributorProgramID,
	)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive distributor: %w", err)
	}
	vault, wbump, err := solana.FindProgramAddress(
		[][]byte{seedWallet, distributor.Bytes()},
		DistributorProgramID,
	)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive distributor wallet: %w", err)
	}
	return Accounts{
		Distributor:     distributor,
		DistributorBump: dbump,
		Vault:           vault,
		VaultBump:       wbump,
	}, nil
}

// CandyMachineAddress derives the candy machine for a config/uuid pair.
func CandyMachineAddress(config solana.PublicKey, uuid string) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{seedCandyMachine, config.Bytes(), []byte(uuid)},
		CandyMachineProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive candy machine: %w", err)
	}
	return addr, nil
}

// AssociatedTokenAddress returns the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account for mint %s: %w", mint, err)
	}
	return addr, nil
}
