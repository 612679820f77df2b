package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Room is a static resource maintained by the timetable importer.
// The booking core only reads it.
type Room struct {
	gorm.Model
	Name     string `json:"name" gorm:"size:10;uniqueIndex"`
	Capacity int    `json:"capacity"`
	IsActive *bool  `json:"isActive" gorm:"default:true;index"`

	Building string `json:"building" gorm:"size:10;index"` // GAIF, PHYS
	Floor    int    `json:"floor" gorm:"index"`            // 0 = basement
	RoomType string `json:"roomType" gorm:"size:30;index"` // seminar, large_lecture, small_lecture, laboratory, computer_lab, group_study

	// Free-form feature tags (projector, whiteboard, ...).
	Features datatypes.JSON `json:"features"`
}

func (r *Room) Active() bool {
	return r.IsActive == nil || *r.IsActive
}
