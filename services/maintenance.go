package services

import (
	"fmt"
	"time"

	"room-auction-server/logger"
	"room-auction-server/models"
	"room-auction-server/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunDailyMaintenance replenishes every user's balance by the daily bonus
// capped at the maximum, returns contributions stranded in groups whose
// attempts were LOST, and purges the LOST attempts. Invoked once a day by
// the external scheduler; safe to re-run (a user already at the cap gets
// nothing, already-returned contributions are gone).
func RunDailyMaintenance(now time.Time) {
	var userIDs []uint
	if err := storage.DB.Model(&models.User{}).Order("id").Pluck("id", &userIDs).Error; err != nil {
		logger.L().Error("daily maintenance: listing users failed", zap.Error(err))
		return
	}

	for _, id := range userIDs {
		if err := replenishUser(id, now); err != nil {
			logger.L().Error("daily maintenance: user skipped",
				zap.Uint("user", id), zap.Error(err))
		}
	}

	res := storage.DB.Where("status = ?", models.AttemptLost).Delete(&models.BookingAttempt{})
	if res.Error != nil {
		logger.L().Error("daily maintenance: purging lost attempts failed", zap.Error(res.Error))
		return
	}
	logger.L().Info("daily maintenance finished",
		zap.Int("users", len(userIDs)),
		zap.Int64("purgedAttempts", res.RowsAffected))
}

func replenishUser(userID uint, now time.Time) error {
	return storage.BookingTransaction(func(tx *gorm.DB) error {
		var user models.User
		if err := storage.ForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		balance := user.BookingPoints

		// Contributions locked into a group whose bid was lost come back to
		// the member's personal balance before the bonus is applied.
		var contributions []models.GroupContribution
		if err := storage.ForUpdate(tx).
			Where("user_id = ? AND amount > 0", userID).
			Order("group_id").
			Find(&contributions).Error; err != nil {
			return err
		}
		for _, c := range contributions {
			var lost int64
			if err := tx.Model(&models.BookingAttempt{}).
				Where("funding_group_id = ? AND status = ?", c.GroupID, models.AttemptLost).
				Count(&lost).Error; err != nil {
				return err
			}
			if lost == 0 {
				continue
			}
			balance += c.Amount
			if err := tx.Unscoped().Delete(&models.GroupContribution{}, c.ID).Error; err != nil {
				return err
			}
			groupID := c.GroupID
			entry := models.PointTransaction{
				UserID:         userID,
				Amount:         c.Amount,
				Type:           models.TxGroupWithdrawal,
				RelatedGroupID: &groupID,
				Description:    fmt.Sprintf("Return of %d points from group %d after a lost bid", c.Amount, c.GroupID),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		// Re-running within the same day must not double the bonus.
		alreadyReplenished := user.LastDailyBonusAt != nil && sameDay(*user.LastDailyBonusAt, now)

		bonus := 0
		if !alreadyReplenished && balance < models.MaxBookingPoints {
			bonus = models.DailyBonusPoints
			if balance+bonus > models.MaxBookingPoints {
				bonus = models.MaxBookingPoints - balance
			}
		}
		if bonus > 0 {
			entry := models.PointTransaction{
				UserID:      userID,
				Amount:      bonus,
				Type:        models.TxDailyBonus,
				Description: "Daily booking points replenishment",
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		return tx.Model(&user).Updates(map[string]interface{}{
			"booking_points":      balance + bonus,
			"last_daily_bonus_at": now,
		}).Error
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
