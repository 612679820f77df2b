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

// CancelAttempt cancels a booking attempt on behalf of its initiator.
//
// A WON or INSTANT_BOOKED attempt can be cancelled strictly before the
// booking starts; its slots go back to AVAILABLE and the spent points are
// not refunded. A BIDDING attempt releases only the slots it still leads
// and, when personally funded, refunds half the bid rounded down, capped so
// the balance never exceeds the maximum. Group banks are untouched by
// cancellation.
func CancelAttempt(attemptID, requesterID uint, now time.Time) error {
	return storage.BookingTransaction(func(tx *gorm.DB) error {
		var slots []models.BookingSlot
		if err := storage.ForUpdate(tx).
			Where("current_attempt_id = ? OR final_attempt_id = ?", attemptID, attemptID).
			Order("slot_number").
			Find(&slots).Error; err != nil {
			return err
		}

		var attempt models.BookingAttempt
		if err := storage.ForUpdate(tx).First(&attempt, attemptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("attempt_not_found", "booking attempt does not exist")
			}
			return err
		}
		if attempt.InitiatorID != requesterID {
			return permissionError("not_initiator", "only the initiator can cancel an attempt")
		}

		switch attempt.Status {
		case models.AttemptWon, models.AttemptInstantBooked:
			if !now.Before(attempt.FirstSlotStart()) {
				return conflictError("booking_started", "a booking cannot be cancelled after it starts")
			}
			if err := tx.Model(&models.BookingSlot{}).
				Where("final_attempt_id = ?", attempt.ID).
				Updates(map[string]interface{}{
					"status":           models.SlotAvailable,
					"final_attempt_id": nil,
				}).Error; err != nil {
				return err
			}
			if err := tx.Model(&attempt).Update("status", models.AttemptCancelled).Error; err != nil {
				return err
			}
			logger.L().Info("won booking cancelled, no refund",
				zap.Uint("attempt", attempt.ID), zap.Uint("user", requesterID))
			return nil

		case models.AttemptBidding:
			// Slots where the attempt was already superseded stay untouched.
			if err := tx.Model(&models.BookingSlot{}).
				Where("current_attempt_id = ? AND status = ?", attempt.ID, models.SlotInAuction).
				Updates(map[string]interface{}{
					"status":             models.SlotAvailable,
					"current_attempt_id": nil,
					"auction_close_time": nil,
				}).Error; err != nil {
				return err
			}
			if err := tx.Model(&attempt).Update("status", models.AttemptCancelled).Error; err != nil {
				return err
			}
			if attempt.GroupFunded() {
				return nil
			}
			return refundHalf(tx, &attempt)

		default:
			return conflictError("not_cancellable",
				fmt.Sprintf("attempt in status %q cannot be cancelled", attempt.Status))
		}
	})
}

func refundHalf(tx *gorm.DB, attempt *models.BookingAttempt) error {
	var user models.User
	if err := storage.ForUpdate(tx).First(&user, attempt.InitiatorID).Error; err != nil {
		return err
	}

	refund := attempt.TotalBid / 2
	if user.BookingPoints+refund > models.MaxBookingPoints {
		refund = models.MaxBookingPoints - user.BookingPoints
	}
	if refund <= 0 {
		return nil
	}

	if err := tx.Model(&user).
		Update("booking_points", gorm.Expr("booking_points + ?", refund)).Error; err != nil {
		return err
	}

	attemptID := attempt.ID
	entry := models.PointTransaction{
		UserID:           user.ID,
		Amount:           refund,
		Type:             models.TxRefundIndividual,
		RelatedAttemptID: &attemptID,
		Description:      fmt.Sprintf("Refund for cancelled attempt %d", attempt.ID),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	logger.L().Info("cancellation refund issued",
		zap.Uint("attempt", attempt.ID),
		zap.Uint("user", user.ID),
		zap.Int("refund", refund))
	return nil
}
