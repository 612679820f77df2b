package services

import (
	"errors"
	"fmt"
	"time"

	"room-auction-server/logger"
	"room-auction-server/models"
	"room-auction-server/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MarkSlotsUnavailable pre-marks a slot range UNAVAILABLE on behalf of the
// timetable importer. Slots already claimed by the booking protocol are a
// conflict; the importer runs before rooms open for bidding.
func MarkSlotsUnavailable(roomID uint, date time.Time, startSlot, endSlot int) error {
	if !models.ValidSlotNumber(startSlot) || !models.ValidSlotNumber(endSlot) || startSlot > endSlot {
		return validationError("invalid_slot_range", "slot range must be within 1..14")
	}
	return storage.BookingTransaction(func(tx *gorm.DB) error {
		slots, err := lockSlotRange(tx, roomID, DateOnly(date), startSlot, endSlot)
		if err != nil {
			return err
		}
		for _, s := range slots {
			if s.Status == models.SlotBooked || s.Status == models.SlotInAuction {
				return conflictError("slot_claimed",
					fmt.Sprintf("slot %d is already %s", s.SlotNumber, s.Status))
			}
		}
		slotIDs := make([]uint, 0, len(slots))
		for _, s := range slots {
			slotIDs = append(slotIDs, s.ID)
		}
		return tx.Model(&models.BookingSlot{}).Where("id IN ?", slotIDs).
			Update("status", models.SlotUnavailable).Error
	})
}

// AdjustBalance applies a signed manual correction to a user's balance and
// records it in the ledger. The balance may not go negative.
func AdjustBalance(userID uint, amount int, note string) error {
	if amount == 0 {
		return validationError("invalid_amount", "amount must be non-zero")
	}
	return storage.BookingTransaction(func(tx *gorm.DB) error {
		var user models.User
		if err := storage.ForUpdate(tx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("user_not_found", "user does not exist")
			}
			return err
		}
		if user.BookingPoints+amount < 0 {
			return validationError("balance_negative",
				fmt.Sprintf("adjustment of %d would push balance %d below zero", amount, user.BookingPoints))
		}
		if err := tx.Model(&user).
			Update("booking_points", gorm.Expr("booking_points + ?", amount)).Error; err != nil {
			return err
		}
		entry := models.PointTransaction{
			UserID:      userID,
			Amount:      amount,
			Type:        models.TxManualAdjustment,
			Description: note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		logger.L().Info("manual balance adjustment",
			zap.Uint("user", userID), zap.Int("amount", amount))
		return nil
	})
}
