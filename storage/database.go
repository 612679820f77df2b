package storage

import (
	"log"
	"os"

	"room-auction-server/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func connectToDB() *gorm.DB {
	// Only load .env in development (when RENDER env var is not set)
	if os.Getenv("RENDER") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}

	db, dbError := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if dbError != nil {
		log.Panic("error connection to db: " + dbError.Error())
	}

	DB = db
	return db
}

func performMigrations(db *gorm.DB) {
	db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.BookingGroup{},
		&models.BookingGroupMember{},
		&models.GroupContribution{},
		&models.BookingAttempt{},
		&models.BookingSlot{},
		&models.PointTransaction{},
		&models.Event{},
	)
}

func InitializeDB() *gorm.DB {
	db := connectToDB()
	performMigrations(db)
	return db
}

// SetTestDB installs an already-open database (tests use in-memory sqlite)
// and runs the same migrations production gets.
func SetTestDB(db *gorm.DB) {
	DB = db
	performMigrations(db)
}
