package donation

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the donation lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
	StatusCanceled  Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRefunded, StatusCanceled:
		return true
	}
	return false
}

// transitions is the closed set of legal status changes. Anything absent is
// rejected as a conflict.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusCompleted: true,
		StatusCanceled:  true,
	},
	StatusCompleted: {
		StatusRefunded: true,
		StatusCanceled: true,
	},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// PaymentMethod is the closed set of accepted payment channels.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodPaypal       PaymentMethod = "paypal"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodDebitCard, MethodPaypal, MethodBankTransfer:
		return true
	}
	return false
}

// Donation is a single contribution from a donor toward one campaign. Amount
// holds minor currency units and is immutable after creation; only Status,
// TransactionID and Notes may change.
type Donation struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	ReceiptNo     string         `gorm:"column:receipt_no" json:"receipt_no"`
	DonorID       string         `gorm:"column:donor_id;index" json:"donor_id"`
	CampaignID    string         `gorm:"column:campaign_id;index" json:"campaign_id"`
	Amount        int64          `gorm:"column:amount" json:"amount"`
	PaymentMethod PaymentMethod  `gorm:"column:payment_method" json:"payment_method"`
	Status        Status         `gorm:"column:status" json:"status"`
	TransactionID string         `gorm:"column:transaction_id" json:"transaction_id,omitempty"`
	Notes         string         `gorm:"column:notes" json:"notes,omitempty"`
	// Metadata carries the raw payment-gateway payload, if the client
	// forwarded one. Opaque to the ledger.
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Donation) TableName() string {
	return "donations"
}

// OwnerID identifies the donor principal allowed to mutate the donation.
func (d *Donation) OwnerID() string {
	return d.DonorID
}
