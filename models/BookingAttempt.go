package models

import (
	"time"

	"gorm.io/gorm"
)

// Attempt statuses.
const (
	AttemptBidding       = "bidding"
	AttemptWon           = "won"
	AttemptLost          = "lost"
	AttemptCancelled     = "cancelled"
	AttemptInstantBooked = "instant_booked"
)

// BookingAttempt is one bid covering an inclusive slot range of one room on
// one date, funded either by the initiator's personal points or by a group's
// pooled bank. UpdatedAt doubles as the time of the last bid action and
// feeds the overtime calculation.
type BookingAttempt struct {
	gorm.Model
	InitiatorID uint `json:"initiatorID" gorm:"not null;index"`
	Initiator   User `json:"-" gorm:"foreignKey:InitiatorID"`

	RoomID uint      `json:"roomID" gorm:"not null;index"`
	Room   Room      `json:"-" gorm:"foreignKey:RoomID"`
	Date   time.Time `json:"date" gorm:"type:date;not null;index"`

	StartSlot int `json:"startSlot" gorm:"not null"`
	EndSlot   int `json:"endSlot" gorm:"not null"`

	// Total bid for the whole range, minimum one point per slot. For a
	// group-funded attempt this is the pool balance captured at bid time.
	TotalBid int `json:"totalBid" gorm:"not null"`

	FundingGroupID *uint         `json:"fundingGroupID" gorm:"index"`
	FundingGroup   *BookingGroup `json:"-" gorm:"foreignKey:FundingGroupID"`

	Status string `json:"status" gorm:"size:20;default:bidding;index"`
}

// NumberOfSlots is the size of the inclusive slot range.
func (a *BookingAttempt) NumberOfSlots() int {
	return a.EndSlot - a.StartSlot + 1
}

// GroupFunded reports whether the attempt draws on a group bank rather than
// the initiator's personal balance.
func (a *BookingAttempt) GroupFunded() bool {
	return a.FundingGroupID != nil
}

func (a *BookingAttempt) FirstSlotStart() time.Time {
	return SlotStartTime(a.Date, a.StartSlot)
}
