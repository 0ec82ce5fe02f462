package ledger

import (
	"time"

	"donationhub/services/campaign"
)

// LedgerEntry is the journal row written alongside every aggregate mutation.
// BalanceAfter and StatusAfter snapshot the campaign as the same transaction
// left it, which is what the audit task replays against.
type LedgerEntry struct {
	ID           string          `gorm:"column:id;primaryKey"`
	CampaignID   string          `gorm:"column:campaign_id;index"`
	DonationID   string          `gorm:"column:donation_id"`
	Delta        int64           `gorm:"column:delta"`
	BalanceAfter int64           `gorm:"column:balance_after"`
	StatusAfter  campaign.Status `gorm:"column:status_after"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
