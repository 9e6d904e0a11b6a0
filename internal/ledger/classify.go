package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Class tells the submitter whether a failed attempt may be retried.
type Class int

const (
	Transient Class = iota
	Terminal
)

func (c Class) String() string {
	if c == Terminal {
		return "terminal"
	}
	return "transient"
}

// JSON-RPC error codes returned by Solana nodes.
const (
	codeBlockCleanedUp           = -32001
	codeSendTransactionPreflight = -32002
	codeSignatureVerification    = -32003
	codeBlockNotAvailable        = -32004
	codeNodeUnhealthy            = -32005
	codeTransactionPrecompile    = -32006
	codeSlotSkipped              = -32007
	codeMinContextSlotNotReached = -32016
	codeInvalidParams            = -32602
)

// ErrBlockhashExpired is returned when the attempt's blockhash is no longer valid and the
// transaction was not confirmed in time.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

// terminalError marks failures that no amount of retrying can fix.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

func terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// Classify decides whether err is worth another attempt with a fresh blockhash.
func Classify(err error) Class {
	if err == nil {
		return Transient
	}
	var te *terminalError
	if errors.As(err, &te) {
		return Terminal
	}
	if errors.Is(err, ErrMissingSigner) || errors.Is(err, context.Canceled) {
		return Terminal
	}
	if errors.Is(err, ErrBlockhashExpired) || errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return classifyRPC(rpcErr)
	}
	return Transient
}

func classifyRPC(e *jsonrpc.RPCError) Class {
	msg := strings.ToLower(e.Message)
	switch e.Code {
	case codeSendTransactionPreflight:
		if isBlockhashMessage(msg) {
			return Transient
		}
		return Terminal
	case codeSignatureVerification, codeTransactionPrecompile, codeInvalidParams:
		return Terminal
	case codeBlockCleanedUp, codeBlockNotAvailable, codeNodeUnhealthy, codeSlotSkipped, codeMinContextSlotNotReached:
		return Transient
	}
	return Transient
}

func isBlockhashMessage(msg string) bool {
	return strings.Contains(msg, "blockhash not found") || strings.Contains(msg, "block height exceeded")
}
