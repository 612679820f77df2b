package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// MaxBookingPoints is the starting balance and the cap applied to the
	// daily replenishment and to cancellation refunds.
	MaxBookingPoints = 28
	// DailyBonusPoints is credited to every user once per day, up to the cap.
	DailyBonusPoints = 4
)

type User struct {
	gorm.Model
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	Password    string `json:"-"`
	SocialLogin bool   `json:"socialLogin"`
	Role        string `json:"role" gorm:"type:varchar(20);default:student;index"` // student, teacher, employee, admin

	BookingPoints    int        `json:"bookingPoints" gorm:"default:28"`
	LastDailyBonusAt *time.Time `json:"lastDailyBonusAt"`
}
