package models

import (
	"time"

	"gorm.io/gorm"
)

// Event is what a booking is for: a subject scheduled into a won slot
// range. Pure bookkeeping around the core.
type Event struct {
	gorm.Model
	Date      time.Time `json:"date" gorm:"type:date;index"`
	StartSlot int       `json:"startSlot" gorm:"index"`
	EndSlot   int       `json:"endSlot" gorm:"index"`

	InitiatorID uint  `json:"initiatorID" gorm:"not null;index"`
	AttemptID   *uint `json:"attemptID" gorm:"index"`
	GroupID     *uint `json:"groupID" gorm:"index"`
	RoomID      uint  `json:"roomID" gorm:"index"`

	Subject     string `json:"subject" gorm:"size:255"`
	Description string `json:"description"`
}
