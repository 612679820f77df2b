package models

import (
	"gorm.io/gorm"
)

// BookingGroup is an ad-hoc funding pool. The initiator is the sole
// administrator and is always a member. The group holds no balance of its
// own; its bank is the live sum of its contributions.
type BookingGroup struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:100"`
	InitiatorID uint   `json:"initiatorID" gorm:"not null;index"`
	Initiator   User   `json:"-" gorm:"foreignKey:InitiatorID"`

	Members       []BookingGroupMember `json:"members" gorm:"foreignKey:GroupID"`
	Contributions []GroupContribution  `json:"contributions" gorm:"foreignKey:GroupID"`
}

// BookingGroupMember links a user into a group.
type BookingGroupMember struct {
	gorm.Model
	GroupID uint `json:"groupID" gorm:"not null;index:idx_group_member,unique,priority:1"`
	UserID  uint `json:"userID" gorm:"not null;index:idx_group_member,unique,priority:2"`
	User    User `json:"user" gorm:"foreignKey:UserID"`
}

// GroupContribution tracks how many points a member currently has in a
// group's bank. Rows are deleted when they reach zero or when the bank is
// emptied by a win.
type GroupContribution struct {
	gorm.Model
	GroupID uint `json:"groupID" gorm:"not null;index:idx_group_user,unique,priority:1"`
	UserID  uint `json:"userID" gorm:"not null;index:idx_group_user,unique,priority:2"`
	User    User `json:"user" gorm:"foreignKey:UserID"`
	Amount  int  `json:"amount" gorm:"not null;default:0"`
}
