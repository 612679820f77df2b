package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"room-auction-server/logger"
	"room-auction-server/models"
	"room-auction-server/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTestDB gives each test its own in-memory database with the
// production schema.
func setupTestDB(t *testing.T) {
	t.Helper()
	logger.SetForTesting(zap.NewNop())

	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	storage.SetTestDB(db)
}

func createTestUser(t *testing.T, email string, points int) models.User {
	t.Helper()
	user := models.User{FirstName: "Test", LastName: "User", Email: email, BookingPoints: points}
	require.NoError(t, storage.DB.Create(&user).Error)
	return user
}

func createTestRoom(t *testing.T, name string) models.Room {
	t.Helper()
	active := true
	room := models.Room{Name: name, Capacity: 20, IsActive: &active, Building: "GAIF", Floor: 5, RoomType: "seminar"}
	require.NoError(t, storage.DB.Create(&room).Error)
	return room
}

func createTestGroup(t *testing.T, initiatorID uint, memberIDs ...uint) models.BookingGroup {
	t.Helper()
	group, err := CreateGroup(initiatorID, "study group")
	require.NoError(t, err)
	for _, id := range memberIDs {
		require.NoError(t, AddMember(group.ID, initiatorID, id))
	}
	return *group
}

// auctionDate is far enough out that every bid lands in the auction
// window regardless of when the tests run.
func auctionDate() time.Time {
	return DateOnly(time.Now().AddDate(0, 0, 30))
}

func intPtr(v int) *int {
	return &v
}

func loadSlot(t *testing.T, roomID uint, date time.Time, slotNumber int) models.BookingSlot {
	t.Helper()
	var slot models.BookingSlot
	err := storage.DB.Where("room_id = ? AND date = ? AND slot_number = ?", roomID, date, slotNumber).
		First(&slot).Error
	require.NoError(t, err)
	return slot
}

func reloadUser(t *testing.T, id uint) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, storage.DB.First(&user, id).Error)
	return user
}

func reloadAttempt(t *testing.T, id uint) models.BookingAttempt {
	t.Helper()
	var attempt models.BookingAttempt
	require.NoError(t, storage.DB.First(&attempt, id).Error)
	return attempt
}

func countTransactions(t *testing.T, userID uint, txType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, storage.DB.Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Count(&count).Error)
	return count
}

// forceAuctionDue rewinds an attempt's last bid action and its slots'
// close times so the next sweep pass treats the auction as expired.
func forceAuctionDue(t *testing.T, attemptID uint, lastAction, closeTime time.Time) {
	t.Helper()
	require.NoError(t, storage.DB.Model(&models.BookingAttempt{}).
		Where("id = ?", attemptID).
		Update("updated_at", lastAction).Error)
	require.NoError(t, storage.DB.Model(&models.BookingSlot{}).
		Where("current_attempt_id = ?", attemptID).
		Update("auction_close_time", closeTime).Error)
}
