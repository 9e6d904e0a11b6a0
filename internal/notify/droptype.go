package notify

import (
	"fmt"

	"gumdrop/internal/domain/drop"
)

// DropTypeFor maps a claim method to the drop type its claimants are told about.
func DropTypeFor(method drop.ClaimMethod) (DropType, bool) {
	switch method.(type) {
	case drop.Transfer:
		return DropToken, true
	case drop.CandyMachine:
		return DropCandy, true
	case drop.LimitedEdition:
		return DropEdition, true
	}
	return "", false
}

// CheckDropType rejects announcing a drop under a template that does not match how it is claimed.
func CheckDropType(method drop.ClaimMethod, t DropType) error {
	want, ok := DropTypeFor(method)
	if !ok {
		return fmt.Errorf("%w: unsupported claim method", ErrDropTypeMismatch)
	}
	if want != t {
		return fmt.Errorf("%w: %s drop announced as %s", ErrDropTypeMismatch, method.Tag(), t)
	}
	return nil
}
