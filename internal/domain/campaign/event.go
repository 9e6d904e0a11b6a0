package campaign

import (
	"time"

	"gumdrop/internal/notify"
)

// NotifyBatch is what the API publishes for the consumer to deliver.
type NotifyBatch struct {
	BatchID   string                `json:"batch_id"`
	Channel   notify.ChannelKind    `json:"channel"`
	Source    string                `json:"source"`
	Drop      notify.DropInfo       `json:"drop"`
	Claimants []notify.ClaimantInfo `json:"claimants"`
	Timestamp time.Time             `json:"ts"`
}
