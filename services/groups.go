package services

import (
	"errors"
	"fmt"

	"room-auction-server/logger"
	"room-auction-server/models"
	"room-auction-server/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateGroup creates a funding group; the initiator becomes its sole
// administrator and first member.
func CreateGroup(initiatorID uint, name string) (*models.BookingGroup, error) {
	group := models.BookingGroup{Name: name, InitiatorID: initiatorID}
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.BookingGroupMember{GroupID: group.ID, UserID: initiatorID}).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember adds a user to the group. Initiator only.
func AddMember(groupID, actorID, userID uint) error {
	group, err := loadGroup(groupID)
	if err != nil {
		return err
	}
	if group.InitiatorID != actorID {
		return permissionError("not_group_admin", "only the group administrator can add members")
	}
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("user_not_found", "user does not exist")
		}
		return err
	}
	member, err := findMember(storage.DB, groupID, userID)
	if err != nil {
		return err
	}
	if member != nil {
		return conflictError("already_member", "user is already a member of the group")
	}
	return storage.DB.Create(&models.BookingGroupMember{GroupID: groupID, UserID: userID}).Error
}

// RemoveMember expels a member (initiator only, and never the initiator
// themselves) and returns their contribution to their personal balance.
func RemoveMember(groupID, actorID, userID uint) error {
	group, err := loadGroup(groupID)
	if err != nil {
		return err
	}
	if group.InitiatorID != actorID {
		return permissionError("not_group_admin", "only the group administrator can remove members")
	}
	if userID == group.InitiatorID {
		return validationError("initiator_cannot_leave", "the initiator cannot be removed from their own group")
	}
	return releaseMember(group, userID, "removal by the group administrator")
}

// LeaveGroup lets a non-initiator member walk out, taking their
// contribution with them.
func LeaveGroup(groupID, userID uint) error {
	group, err := loadGroup(groupID)
	if err != nil {
		return err
	}
	if userID == group.InitiatorID {
		return validationError("initiator_cannot_leave", "the initiator cannot leave; the group can only be deleted")
	}
	return releaseMember(group, userID, "leaving the group")
}

// Deposit moves points from a member's personal balance into the group
// bank. Blocked while the group has an active bid, since the bid amount is
// the live pool.
func Deposit(groupID, userID uint, amount int) error {
	if amount <= 0 {
		return validationError("invalid_amount", "amount must be positive")
	}
	group, err := loadGroup(groupID)
	if err != nil {
		return err
	}
	if err := requireMember(groupID, userID); err != nil {
		return err
	}

	return storage.BookingTransaction(func(tx *gorm.DB) error {
		if err := requireNoActiveBid(tx, group.ID); err != nil {
			return err
		}

		var user models.User
		if err := storage.ForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}
		if user.BookingPoints < amount {
			return insufficientFundsError(
				fmt.Sprintf("balance is %d, cannot deposit %d", user.BookingPoints, amount))
		}
		if err := tx.Model(&user).
			Update("booking_points", gorm.Expr("booking_points - ?", amount)).Error; err != nil {
			return err
		}

		var contribution models.GroupContribution
		err := storage.ForUpdate(tx).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			First(&contribution).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			contribution = models.GroupContribution{GroupID: groupID, UserID: userID, Amount: amount}
			if err := tx.Create(&contribution).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&contribution).
				Update("amount", gorm.Expr("amount + ?", amount)).Error; err != nil {
				return err
			}
		}

		entry := models.PointTransaction{
			UserID:         userID,
			Amount:         -amount,
			Type:           models.TxGroupDeposit,
			RelatedGroupID: &group.ID,
			Description:    fmt.Sprintf("Deposit of %d points into group %d", amount, group.ID),
		}
		return tx.Create(&entry).Error
	})
}

// Withdraw moves points from the member's contribution back to their
// personal balance. Blocked while the group has an active bid.
func Withdraw(groupID, userID uint, amount int) error {
	if amount <= 0 {
		return validationError("invalid_amount", "amount must be positive")
	}
	group, err := loadGroup(groupID)
	if err != nil {
		return err
	}
	if err := requireMember(groupID, userID); err != nil {
		return err
	}

	return storage.BookingTransaction(func(tx *gorm.DB) error {
		if err := requireNoActiveBid(tx, group.ID); err != nil {
			return err
		}

		var contribution models.GroupContribution
		err := storage.ForUpdate(tx).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			First(&contribution).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("no_contribution", "you have no points in this group")
		}
		if err != nil {
			return err
		}
		if contribution.Amount < amount {
			return insufficientFundsError(
				fmt.Sprintf("contribution is %d, cannot withdraw %d", contribution.Amount, amount))
		}

		var user models.User
		if err := storage.ForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}
		if err := tx.Model(&contribution).
			Update("amount", gorm.Expr("amount - ?", amount)).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).
			Update("booking_points", gorm.Expr("booking_points + ?", amount)).Error; err != nil {
			return err
		}
		if contribution.Amount == amount {
			if err := tx.Unscoped().Delete(&models.GroupContribution{}, contribution.ID).Error; err != nil {
				return err
			}
		}

		entry := models.PointTransaction{
			UserID:         userID,
			Amount:         amount,
			Type:           models.TxGroupWithdrawal,
			RelatedGroupID: &group.ID,
			Description:    fmt.Sprintf("Withdrawal of %d points from group %d", amount, group.ID),
		}
		return tx.Create(&entry).Error
	})
}

// GroupBalance returns the live pooled balance of the group.
func GroupBalance(groupID uint) (int, error) {
	var total *int
	err := storage.DB.Model(&models.GroupContribution{}).
		Where("group_id = ?", groupID).
		Select("SUM(amount)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func loadGroup(groupID uint) (*models.BookingGroup, error) {
	var group models.BookingGroup
	if err := storage.DB.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("group_not_found", "group does not exist")
		}
		return nil, err
	}
	return &group, nil
}

func findMember(tx *gorm.DB, groupID, userID uint) (*models.BookingGroupMember, error) {
	var member models.BookingGroupMember
	err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func requireMember(groupID, userID uint) error {
	member, err := findMember(storage.DB, groupID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return permissionError("not_member", "you are not a member of this group")
	}
	return nil
}

func requireNoActiveBid(tx *gorm.DB, groupID uint) error {
	var active int64
	if err := tx.Model(&models.BookingAttempt{}).
		Where("funding_group_id = ? AND status = ?", groupID, models.AttemptBidding).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return conflictError("group_bidding", "the group bank is frozen while it has an active bid")
	}
	return nil
}

// releaseMember removes the membership row and returns any contribution to
// the member's personal balance, logging a withdrawal transaction.
func releaseMember(group *models.BookingGroup, userID uint, reason string) error {
	member, err := findMember(storage.DB, group.ID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return validationError("not_member", "the user is not a member of this group")
	}

	return storage.BookingTransaction(func(tx *gorm.DB) error {
		var user models.User
		if err := storage.ForUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		var contribution models.GroupContribution
		err := storage.ForUpdate(tx).
			Where("group_id = ? AND user_id = ?", group.ID, userID).
			First(&contribution).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Unscoped().Delete(&models.BookingGroupMember{}, member.ID).Error; err != nil {
			return err
		}

		if contribution.ID != 0 && contribution.Amount > 0 {
			if err := tx.Model(&user).
				Update("booking_points", gorm.Expr("booking_points + ?", contribution.Amount)).Error; err != nil {
				return err
			}
			entry := models.PointTransaction{
				UserID:         userID,
				Amount:         contribution.Amount,
				Type:           models.TxGroupWithdrawal,
				RelatedGroupID: &group.ID,
				Description:    fmt.Sprintf("Return of %d points on %s", contribution.Amount, reason),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		if contribution.ID != 0 {
			if err := tx.Unscoped().Delete(&models.GroupContribution{}, contribution.ID).Error; err != nil {
				return err
			}
		}

		logger.L().Info("group member released",
			zap.Uint("group", group.ID),
			zap.Uint("user", userID),
			zap.Int("returned", contribution.Amount))
		return nil
	})
}
