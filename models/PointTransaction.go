package models

import "time"

// Point transaction types.
const (
	TxDailyBonus       = "daily_bonus"
	TxInitialBonus     = "initial_bonus"
	TxSpendIndividual  = "booking_spend_individual"
	TxRefundIndividual = "booking_refund_individual"
	TxGroupDeposit     = "group_deposit"
	TxGroupWithdrawal  = "group_withdrawal"
	TxManualAdjustment = "manual_adjustment"
)

// PointTransaction is one append-only ledger row for a user's personal
// balance. Rows are never updated or deleted, so the model carries no
// UpdatedAt/DeletedAt.
type PointTransaction struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	// Signed amount: positive credits, negative debits.
	Amount int    `json:"amount" gorm:"not null"`
	Type   string `json:"type" gorm:"size:30;not null;index"`

	RelatedAttemptID *uint `json:"relatedAttemptID" gorm:"index"`
	RelatedGroupID   *uint `json:"relatedGroupID" gorm:"index"`

	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}
