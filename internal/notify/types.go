package notify

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned while building notifiers and validating batches.
var (
	ErrUnknownDropType   = errors.New("unknown drop type")
	ErrUnknownChannel    = errors.New("unknown notification channel")
	ErrMissingCredential = errors.New("missing credential")
	ErrDropTypeMismatch  = errors.New("drop type does not match claim method")
)

// DropType selects the message template and the SES list topic.
type DropType string

const (
	DropToken   DropType = "Token"
	DropCandy   DropType = "Candy"
	DropEdition DropType = "Edition"
)

// Valid reports whether t is one of the known drop types.
func (t DropType) Valid() bool {
	switch t {
	case DropToken, DropCandy, DropEdition:
		return true
	}
	return false
}

// ChannelKind names a notification backend.
type ChannelKind string

const (
	ChannelEmail   ChannelKind = "aws-sesv2"
	ChannelManual  ChannelKind = "manual"
	ChannelWallets ChannelKind = "wallets"
)

// ClaimantInfo is one recipient of a drop.
type ClaimantInfo struct {
	Handle string `json:"handle"`
	URL    string `json:"url"`
	Amount uint64 `json:"amount"`
}

// DropInfo describes the drop being announced. Meta is an explorer URL for the mint, config or master.
type DropInfo struct {
	Type DropType `json:"type"`
	Meta string   `json:"meta"`
}

// AuthKeys maps credential names (accessKeyId, secretAccessKey, region) to values.
type AuthKeys map[string]string

// Notifier delivers one message to one claimant. Implementations are built once per batch.
type Notifier interface {
	Kind() ChannelKind
	Notify(ctx context.Context, info ClaimantInfo, drop DropInfo) error
}

// DeliveryError reports a failed delivery to a single recipient.
type DeliveryError struct {
	Channel ChannelKind
	Handle  string
	Status  int
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s delivery to %s failed with status %d", e.Channel, e.Handle, e.Status)
	}
	return fmt.Sprintf("%s delivery to %s failed: %v", e.Channel, e.Handle, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Valid reports whether k names a supported channel.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelEmail, ChannelManual, ChannelWallets:
		return true
	}
	return false
}
