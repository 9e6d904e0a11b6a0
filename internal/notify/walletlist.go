package notify

import (
	"context"
	"sync"
)

// WalletEntry is one collected claim link.
type WalletEntry struct {
	Handle string `json:"handle"`
	URL    string `json:"url"`
}

// WalletList collects claim links in arrival order for a later upload.
type WalletList struct {
	mu      sync.Mutex
	entries []WalletEntry
}

// Kind returns ChannelWallets.
func (w *WalletList) Kind() ChannelKind { return ChannelWallets }

// Notify appends the claimant to the list. It is safe for concurrent use.
func (w *WalletList) Notify(_ context.Context, info ClaimantInfo, _ DropInfo) error {
	w.mu.Lock()
	w.entries = append(w.entries, WalletEntry{Handle: info.Handle, URL: info.URL})
	w.mu.Unlock()
	return nil
}

// Export returns a copy of everything collected so far.
func (w *WalletList) Export() []WalletEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WalletEntry, len(w.entries))
	copy(out, w.entries)
	return out
}
