package notify

import (
	"context"
	"log"
)

// Manual only logs the claim link; distribution happens out of band.
type Manual struct {
	logger *log.Logger
}

// Kind returns ChannelManual.
func (m *Manual) Kind() ChannelKind { return ChannelManual }

// Notify logs the claimant's handle and claim URL. It never fails.
func (m *Manual) Notify(_ context.Context, info ClaimantInfo, _ DropInfo) error {
	m.logger.Printf("notify manual: handle=%s url=%s", info.Handle, info.URL)
	return nil
}
