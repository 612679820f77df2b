package services

import (
	"errors"
	"time"

	"room-auction-server/models"
	"room-auction-server/storage"

	"gorm.io/gorm"
)

// lockSlotRange loads every slot of the room/date/range with an exclusive
// row lock, lazily creating missing ones as AVAILABLE. Slots come back
// ordered by slot number, which fixes the lock acquisition order for
// concurrent bids on overlapping ranges.
func lockSlotRange(tx *gorm.DB, roomID uint, date time.Time, startSlot, endSlot int) ([]models.BookingSlot, error) {
	var slots []models.BookingSlot
	if err := storage.ForUpdate(tx).
		Where("room_id = ? AND date = ? AND slot_number BETWEEN ? AND ?", roomID, date, startSlot, endSlot).
		Order("slot_number").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	if len(slots) == int(endSlot-startSlot+1) {
		return slots, nil
	}

	present := make(map[int]bool, len(slots))
	for _, s := range slots {
		present[s.SlotNumber] = true
	}
	for n := startSlot; n <= endSlot; n++ {
		if present[n] {
			continue
		}
		slot := models.BookingSlot{
			RoomID:     roomID,
			Date:       date,
			SlotNumber: n,
			Status:     models.SlotAvailable,
		}
		if err := tx.Create(&slot).Error; err != nil {
			// Unique index hit: someone else created the row between our
			// select and insert. The caller resubmits.
			return nil, retryableError("slot row was created concurrently, retry the request")
		}
	}

	slots = slots[:0]
	if err := storage.ForUpdate(tx).
		Where("room_id = ? AND date = ? AND slot_number BETWEEN ? AND ?", roomID, date, startSlot, endSlot).
		Order("slot_number").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// uniqueLeader returns the single attempt currently leading the IN_AUCTION
// slots of the range, or nil when no auction is running. Two distinct
// leaders on one range means the engine corrupted its own state.
func uniqueLeader(slots []models.BookingSlot) (*uint, error) {
	var leader *uint
	for _, s := range slots {
		if s.Status != models.SlotInAuction || s.CurrentAttemptID == nil {
			continue
		}
		if leader == nil {
			id := *s.CurrentAttemptID
			leader = &id
			continue
		}
		if *leader != *s.CurrentAttemptID {
			return nil, inconsistencyError("multiple distinct auction leaders on one slot range")
		}
	}
	return leader, nil
}

// classifyRange aggregates per-slot statuses for display: any BOOKED wins,
// then UNAVAILABLE, then IN_AUCTION, else AVAILABLE.
func classifyRange(slots []models.BookingSlot) string {
	status := models.RangeAvailable
	inAuction := false
	for _, s := range slots {
		switch s.Status {
		case models.SlotBooked:
			return models.RangeBooked
		case models.SlotUnavailable:
			status = models.RangeUnavailableSlot
		case models.SlotInAuction:
			inAuction = true
		}
	}
	if status == models.RangeUnavailableSlot {
		return status
	}
	if inAuction {
		return models.RangeInAuction
	}
	return models.RangeAvailable
}

// RoomRangeStatus is one row of a range-availability query.
type RoomRangeStatus struct {
	RoomID uint   `json:"roomID"`
	Status string `json:"status"`
}

// QueryRangeStatus classifies the requested slot range for each room. This
// is the display path; it reads without locks and takes no part in the
// allocation protocol.
func QueryRangeStatus(roomIDs []uint, date time.Time, startSlot, endSlot int) ([]RoomRangeStatus, error) {
	if startSlot > endSlot || !models.ValidSlotNumber(startSlot) || !models.ValidSlotNumber(endSlot) {
		return nil, validationError("invalid_slot_range", "slot range must be within 1..14 and start before end")
	}

	results := make([]RoomRangeStatus, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		var slots []models.BookingSlot
		err := storage.DB.
			Where("room_id = ? AND date = ? AND slot_number BETWEEN ? AND ?", roomID, date, startSlot, endSlot).
			Find(&slots).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		results = append(results, RoomRangeStatus{RoomID: roomID, Status: classifyRange(slots)})
	}
	return results, nil
}
