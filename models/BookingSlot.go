package models

import (
	"time"

	"gorm.io/gorm"
)

// Slot statuses.
const (
	SlotAvailable   = "available"
	SlotInAuction   = "in_auction"
	SlotBooked      = "booked"
	SlotUnavailable = "unavailable"
)

// Aggregate status of a slot range, for availability search.
const (
	RangeAvailable       = "available"
	RangeInAuction       = "in_auction"
	RangeBooked          = "booked"
	RangeUnavailableSlot = "unavailable_slot"
)

const (
	MinSlotNumber = 1
	MaxSlotNumber = 14
)

// BookingSlot is one 45-minute unit of one room on one date. Rows are
// created lazily on first reference and never deleted; only the status
// and the auction references change.
type BookingSlot struct {
	gorm.Model
	RoomID     uint      `json:"roomID" gorm:"not null;index:idx_room_date_slot,unique,priority:1"`
	Room       Room      `json:"-" gorm:"foreignKey:RoomID"`
	Date       time.Time `json:"date" gorm:"type:date;not null;index:idx_room_date_slot,unique,priority:2;index"`
	SlotNumber int       `json:"slotNumber" gorm:"not null;index:idx_room_date_slot,unique,priority:3"`

	Status string `json:"status" gorm:"size:20;default:available;index"`

	// Auction state. Both references are weak: the attempt's lifecycle is
	// owned by the attempt registry, the slot only points at it.
	AuctionCloseTime *time.Time `json:"auctionCloseTime" gorm:"index"`
	CurrentAttemptID *uint      `json:"currentAttemptID" gorm:"index"`
	FinalAttemptID   *uint      `json:"finalAttemptID" gorm:"index"`
}

// SlotClock is the fixed wall-clock window of a slot number.
type SlotClock struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

// SlotClocks maps slot numbers 1..14 to their wall-clock windows.
var SlotClocks = map[int]SlotClock{
	1:  {9, 0, 9, 45},
	2:  {9, 50, 10, 35},
	3:  {10, 50, 11, 35},
	4:  {11, 40, 12, 25},
	5:  {13, 30, 14, 15},
	6:  {14, 20, 15, 5},
	7:  {15, 20, 16, 5},
	8:  {16, 10, 16, 55},
	9:  {17, 5, 17, 50},
	10: {17, 55, 18, 40},
	11: {18, 55, 19, 40},
	12: {19, 45, 20, 30},
	13: {20, 45, 21, 30},
	14: {21, 35, 22, 0},
}

// ValidSlotNumber reports whether n is one of the 14 defined slots.
func ValidSlotNumber(n int) bool {
	_, ok := SlotClocks[n]
	return ok
}

// SlotStartTime returns the wall-clock start of the given slot number on
// the given date, in the date's location.
func SlotStartTime(date time.Time, slotNumber int) time.Time {
	c := SlotClocks[slotNumber]
	return time.Date(date.Year(), date.Month(), date.Day(), c.StartHour, c.StartMin, 0, 0, date.Location())
}

// SlotEndTime returns the wall-clock end of the given slot number on the
// given date.
func SlotEndTime(date time.Time, slotNumber int) time.Time {
	c := SlotClocks[slotNumber]
	return time.Date(date.Year(), date.Month(), date.Day(), c.EndHour, c.EndMin, 0, 0, date.Location())
}

func (s *BookingSlot) StartDateTime() time.Time {
	return SlotStartTime(s.Date, s.SlotNumber)
}

func (s *BookingSlot) EndDateTime() time.Time {
	return SlotEndTime(s.Date, s.SlotNumber)
}
