package drop

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Claim method tags accepted from the form/API layer.
const (
	TagTransfer = "transfer"
	TagCandy    = "candy"
	TagEdition  = "edition"
)

// maxSeedLen is the longest seed the runtime accepts when deriving program addresses.
const maxSeedLen = 32

// ClaimMethod is the mechanism recipients used to redeem a drop. The set is closed:
// only Transfer, CandyMachine and LimitedEdition implement it.
type ClaimMethod interface {
	Tag() string
	isClaimMethod()
}

// Transfer drops hand out tokens directly from the vault.
type Transfer struct{}

// CandyMachine drops whitelist claimants on a candy machine pre-sale.
type CandyMachine struct {
	Config solana.PublicKey
	UUID   string
}

// LimitedEdition drops print editions from a master mint held by the vault.
type LimitedEdition struct {
	MasterMint solana.PublicKey
}

func (Transfer) Tag() string       { return TagTransfer }
func (CandyMachine) Tag() string   { return TagCandy }
func (LimitedEdition) Tag() string { return TagEdition }

func (Transfer) isClaimMethod()       {}
func (CandyMachine) isClaimMethod()   {}
func (LimitedEdition) isClaimMethod() {}

// MethodParams carries the raw, per-method form fields.
type MethodParams struct {
	CandyConfig string
	CandyUUID   string
	MasterMint  string
}

// ParseClaimMethod turns a loosely typed selector plus its form fields into a ClaimMethod.
// Fields that belong to other methods are ignored.
func ParseClaimMethod(tag string, params MethodParams) (ClaimMethod, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case TagTransfer:
		return Transfer{}, nil
	case TagCandy:
		config, err := parseAddress("config", params.CandyConfig)
		if err != nil {
			return nil, err
		}
		uuid := strings.TrimSpace(params.CandyUUID)
		if uuid == "" {
			return nil, missingField("uuid")
		}
		if len(uuid) > maxSeedLen {
			return nil, invalidField("uuid", "longer than 32 bytes")
		}
		return CandyMachine{Config: config, UUID: uuid}, nil
	case TagEdition:
		mint, err := parseAddress("masterMint", params.MasterMint)
		if err != nil {
			return nil, err
		}
		return LimitedEdition{MasterMint: mint}, nil
	default:
		return nil, unknownMethod(tag)
	}
}

// MethodKind returns the variant named by tag with its fields left empty. It is for callers that
// only need to know which kind of drop they are dealing with.
func MethodKind(tag string) (ClaimMethod, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case TagTransfer:
		return Transfer{}, nil
	case TagCandy:
		return CandyMachine{}, nil
	case TagEdition:
		return LimitedEdition{}, nil
	}
	return nil, unknownMethod(tag)
}

func parseAddress(field, raw string) (solana.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return solana.PublicKey{}, missingField(field)
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, invalidField(field, err.Error())
	}
	return key, nil
}

// validate checks the variant-specific fields of m.
func validate(m ClaimMethod) error {
	switch v := m.(type) {
	case Transfer:
		return nil
	case CandyMachine:
		if v.Config.IsZero() {
			return missingField("config")
		}
		if v.UUID == "" {
			return missingField("uuid")
		}
		if len(v.UUID) > maxSeedLen {
			return invalidField("uuid", "longer than 32 bytes")
		}
		return nil
	case LimitedEdition:
		if v.MasterMint.IsZero() {
			return missingField("masterMint")
		}
		return nil
	case nil:
		return unknownMethod("")
	default:
		return unknownMethod(m.Tag())
	}
}
