package campaign

import (
	"time"
)

// Status is the campaign lifecycle state. It is always derived from the
// funding aggregate; no writer sets it directly.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Campaign is a funding goal owned by an orphanage principal. CurrentAmount
// holds minor currency units and equals the sum of completed donation amounts
// referencing this campaign.
type Campaign struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	Code          string    `gorm:"column:code" json:"code"`
	Slug          string    `gorm:"column:slug" json:"slug"`
	OrphanageID   string    `gorm:"column:orphanage_id;index" json:"orphanage_id"`
	Name          string    `gorm:"column:name" json:"name"`
	Description   string    `gorm:"column:description" json:"description"`
	Category      string    `gorm:"column:category" json:"category"`
	Location      string    `gorm:"column:location" json:"location"`
	TargetAmount  int64     `gorm:"column:target_amount" json:"target_amount"`
	CurrentAmount int64     `gorm:"column:current_amount" json:"current_amount"`
	Status        Status    `gorm:"column:status" json:"status"`
	StartDate     time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate       time.Time `gorm:"column:end_date" json:"end_date"`
	ImageRef      string    `gorm:"column:image_ref" json:"image_ref"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// OwnerID identifies the orphanage principal allowed to mutate the campaign.
func (c *Campaign) OwnerID() string {
	return c.OrphanageID
}

// NextStatus derives the lifecycle state from the funding aggregate.
//
// Rules, in order: failed is terminal; reaching the target completes the
// campaign; a completed campaign dropping back below target reopens only when
// allowReopen is set, and always lands on active since completed and failed
// never transition into each other directly; an underfunded active campaign
// past its end date fails. The end-date check runs at write time, so an
// expired campaign stays active in storage until its aggregate is next
// touched or the expiry sweep visits it.
func NextStatus(current Status, amount, target int64, endDate, now time.Time, allowReopen bool) Status {
	if current == StatusFailed {
		return StatusFailed
	}

	if amount >= target {
		return StatusCompleted
	}

	if current == StatusCompleted {
		if allowReopen {
			return StatusActive
		}
		return StatusCompleted
	}

	if now.After(endDate) {
		return StatusFailed
	}

	return StatusActive
}
