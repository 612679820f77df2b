package main

import (
	"fmt"
	"log"

	"room-auction-server/models"
	"room-auction-server/storage"

	"gorm.io/datatypes"
)

// One-shot room importer: loads the static room inventory so slots can be
// created against it. Safe to re-run, existing rooms are skipped.
func main() {
	db := storage.InitializeDB()

	active := true
	rooms := []models.Room{
		{Name: "5-19", Capacity: 30, IsActive: &active, Building: "GAIF", Floor: 5, RoomType: "seminar", Features: datatypes.JSON([]byte(`["whiteboard"]`))},
		{Name: "5-42", Capacity: 25, IsActive: &active, Building: "GAIF", Floor: 5, RoomType: "seminar", Features: datatypes.JSON([]byte(`["projector","whiteboard"]`))},
		{Name: "4-10", Capacity: 120, IsActive: &active, Building: "GAIF", Floor: 4, RoomType: "large_lecture", Features: datatypes.JSON([]byte(`["projector","audio"]`))},
		{Name: "2-05", Capacity: 16, IsActive: &active, Building: "PHYS", Floor: 2, RoomType: "computer_lab", Features: datatypes.JSON([]byte(`["computers","projector"]`))},
		{Name: "3-33", Capacity: 40, IsActive: &active, Building: "PHYS", Floor: 3, RoomType: "small_lecture", Features: datatypes.JSON([]byte(`["whiteboard"]`))},
	}

	created := 0
	for _, room := range rooms {
		var existing models.Room
		if err := db.Where("name = ?", room.Name).Limit(1).Find(&existing).Error; err != nil {
			log.Fatalf("looking up room %s: %v", room.Name, err)
		}
		if existing.ID != 0 {
			continue
		}
		if err := db.Create(&room).Error; err != nil {
			log.Fatalf("creating room %s: %v", room.Name, err)
		}
		created++
	}

	fmt.Printf("Room import finished, %d rooms created\n", created)
}
