package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// scriptedNotifier fails for the handles listed in failFor and records every call in order.
type scriptedNotifier struct {
	mu      sync.Mutex
	failFor map[string]bool
	panicOn string
	calls   []string
}

func (s *scriptedNotifier) Kind() ChannelKind { return ChannelManual }

func (s *scriptedNotifier) Notify(_ context.Context, info ClaimantInfo, _ DropInfo) error {
	s.mu.Lock()
	s.calls = append(s.calls, info.Handle)
	s.mu.Unlock()
	if info.Handle == s.panicOn {
		panic("backend exploded")
	}
	if s.failFor[info.Handle] {
		return &DeliveryError{Channel: ChannelManual, Handle: info.Handle, Err: errors.New("rejected")}
	}
	return nil
}
