package services

import (
	"time"

	"room-auction-server/logger"
	"room-auction-server/models"
	"room-auction-server/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunCloseSweep finalizes every auction whose close time has elapsed. Each
// leading attempt is processed once per pass in its own transaction, so a
// failure on one cannot abort the others; failed attempts are picked up by
// the next pass. The sweep is idempotent and safe to overlap with live bids
// and with itself.
func RunCloseSweep(now time.Time) {
	var attemptIDs []uint
	err := storage.DB.Model(&models.BookingSlot{}).
		Distinct("current_attempt_id").
		Where("status = ? AND auction_close_time <= ? AND current_attempt_id IS NOT NULL",
			models.SlotInAuction, now).
		Pluck("current_attempt_id", &attemptIDs).Error
	if err != nil {
		logger.L().Error("close sweep: listing due attempts failed", zap.Error(err))
		return
	}
	if len(attemptIDs) == 0 {
		return
	}

	processed := make(map[uint]bool, len(attemptIDs))
	for _, id := range attemptIDs {
		if processed[id] {
			continue
		}
		processed[id] = true
		if err := closeOneAuction(id, now); err != nil {
			// Logged and left for the next pass.
			logger.L().Error("close sweep: attempt failed, will retry next pass",
				zap.Uint("attempt", id), zap.Error(err))
		}
	}
}

// closeOneAuction either extends the auction (a bid landed within the
// overtime window) or declares the leader the winner and settles. Locks are
// taken slots first, then the attempt, then the user/contribution rows
// inside settleWin, matching the bid path.
func closeOneAuction(attemptID uint, now time.Time) error {
	return storage.BookingTransaction(func(tx *gorm.DB) error {
		var slots []models.BookingSlot
		if err := storage.ForUpdate(tx).
			Where("current_attempt_id = ? AND status = ?", attemptID, models.SlotInAuction).
			Order("slot_number").
			Find(&slots).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			// Superseded or already closed between the listing query and now.
			return nil
		}

		var attempt models.BookingAttempt
		if err := storage.ForUpdate(tx).First(&attempt, attemptID).Error; err != nil {
			return err
		}
		if attempt.Status != models.AttemptBidding {
			logger.L().Warn("close sweep: attempt no longer bidding, skipping",
				zap.Uint("attempt", attemptID), zap.String("status", attempt.Status))
			return nil
		}

		overtimeEnd := attempt.UpdatedAt.Add(OvertimeWindow)
		if now.Before(overtimeEnd) {
			// Recent bid action: stretch the close time instead of closing.
			res := tx.Model(&models.BookingSlot{}).
				Where("current_attempt_id = ? AND status = ? AND auction_close_time < ?",
					attemptID, models.SlotInAuction, overtimeEnd).
				Update("auction_close_time", overtimeEnd)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				logger.L().Info("auction extended for overtime",
					zap.Uint("attempt", attemptID),
					zap.Time("closeTime", overtimeEnd),
					zap.Int64("slots", res.RowsAffected))
			}
			return nil
		}

		if err := tx.Model(&attempt).Update("status", models.AttemptWon).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.BookingSlot{}).
			Where("current_attempt_id = ? AND status = ?", attemptID, models.SlotInAuction).
			Updates(map[string]interface{}{
				"status":             models.SlotBooked,
				"final_attempt_id":   attempt.ID,
				"current_attempt_id": nil,
				"auction_close_time": nil,
			}).Error; err != nil {
			return err
		}

		if err := settleWin(tx, &attempt); err != nil {
			return err
		}

		logger.L().Info("auction closed",
			zap.Uint("attempt", attempt.ID),
			zap.Int("bid", attempt.TotalBid),
			zap.Int("slots", len(slots)))
		return nil
	})
}
