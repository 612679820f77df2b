package services

import (
	"fmt"

	"room-auction-server/logger"
	"room-auction-server/models"
	"room-auction-server/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// settleWin charges the winning attempt. Group wins empty the group's bank
// by deleting its contribution rows; no per-member ledger entries are
// written (members were logged when they deposited). Personal wins debit
// the initiator and append one spend transaction.
//
// An insufficient personal balance at this point means an earlier check was
// bypassed; the win is left unsettled on purpose: logged, not deducted,
// not rolled back.
func settleWin(tx *gorm.DB, attempt *models.BookingAttempt) error {
	if attempt.GroupFunded() {
		res := tx.Unscoped().
			Where("group_id = ?", *attempt.FundingGroupID).
			Delete(&models.GroupContribution{})
		if res.Error != nil {
			return res.Error
		}
		logger.L().Info("group bank emptied for win",
			zap.Uint("attempt", attempt.ID),
			zap.Uint("group", *attempt.FundingGroupID),
			zap.Int64("contributions", res.RowsAffected))
		return nil
	}

	var user models.User
	if err := storage.ForUpdate(tx).First(&user, attempt.InitiatorID).Error; err != nil {
		return err
	}

	if user.BookingPoints < attempt.TotalBid {
		logger.L().Error("winner balance below bid at settlement, win left unsettled",
			zap.Uint("attempt", attempt.ID),
			zap.Uint("user", user.ID),
			zap.Int("balance", user.BookingPoints),
			zap.Int("bid", attempt.TotalBid))
		return nil
	}

	if err := tx.Model(&user).
		Update("booking_points", gorm.Expr("booking_points - ?", attempt.TotalBid)).Error; err != nil {
		return err
	}

	attemptID := attempt.ID
	entry := models.PointTransaction{
		UserID:           user.ID,
		Amount:           -attempt.TotalBid,
		Type:             models.TxSpendIndividual,
		RelatedAttemptID: &attemptID,
		Description:      fmt.Sprintf("Charge for winning attempt %d", attempt.ID),
	}
	return tx.Create(&entry).Error
}
