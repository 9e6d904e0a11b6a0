package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrMissingSigner indicates the transaction requires a signature nobody in the signer set can provide.
var ErrMissingSigner = errors.New("missing signer")

// Signer is anything able to sign a transaction message for one public key.
// solana.PrivateKey satisfies it; hardware or remote wallets can too.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(payload []byte) (solana.Signature, error)
}

// signTransaction fills tx.Signatures in the order the message expects them.
func signTransaction(tx *solana.Transaction, signers []Signer) error {
	payload, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("message requires %d signatures but lists %d keys", required, len(tx.Message.AccountKeys))
	}
	signatures := make([]solana.Signature, 0, required)
	for _, key := range tx.Message.AccountKeys[:required] {
		signer := findSigner(signers, key)
		if signer == nil {
			return fmt.Errorf("%w: %s", ErrMissingSigner, key)
		}
		sig, err := signer.Sign(payload)
		if err != nil {
			return fmt.Errorf("sign for %s: %w", key, err)
		}
		signatures = append(signatures, sig)
	}
	tx.Signatures = signatures
	return nil
}

func findSigner(signers []Signer, key solana.PublicKey) Signer {
	for _, s := range signers {
		if s != nil && s.PublicKey().Equals(key) {
			return s
		}
	}
	return nil
}
