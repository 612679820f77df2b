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

const (
	// InstantWindow is the lead time under which bidding is bypassed and
	// the slot is settled immediately at minimum price.
	InstantWindow = time.Hour
	// OvertimeWindow is the anti-snipe extension after the last bid action.
	OvertimeWindow = 3 * time.Minute
)

// BidRequest is one booking request, personal (TotalBid set) or
// group-funded (FundingGroupID set). Exactly one of the two must be given.
type BidRequest struct {
	InitiatorID    uint
	RoomID         uint
	Date           time.Time
	StartSlot      int
	EndSlot        int
	TotalBid       *int
	FundingGroupID *uint
}

func (r BidRequest) numberOfSlots() int {
	return r.EndSlot - r.StartSlot + 1
}

// PlaceBid runs the whole bid protocol as one atomic unit: lock the slot
// range, reject occupied slots, then either settle instantly (inside the
// instant window) or open/continue an auction. Lock order is slots, then
// the superseded attempt, then user/contribution rows.
func PlaceBid(req BidRequest, now time.Time) (*models.BookingAttempt, error) {
	if err := validateBidRequest(req, now); err != nil {
		return nil, err
	}

	var room models.Room
	if err := storage.DB.First(&room, req.RoomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("room_not_found", "room does not exist")
		}
		return nil, err
	}
	if !room.Active() {
		return nil, conflictError("room_inactive", "room is not bookable")
	}

	var group *models.BookingGroup
	if req.FundingGroupID != nil {
		group = &models.BookingGroup{}
		if err := storage.DB.First(group, *req.FundingGroupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFoundError("group_not_found", "funding group does not exist")
			}
			return nil, err
		}
		if group.InitiatorID != req.InitiatorID {
			return nil, permissionError("not_group_admin", "only the group administrator can bid for the group")
		}
	}

	date := DateOnly(req.Date)
	firstSlotStart := models.SlotStartTime(date, req.StartSlot)
	if !now.Before(firstSlotStart) {
		return nil, validationError("slot_started", "the first slot of the range has already started")
	}

	var attempt *models.BookingAttempt
	err := storage.BookingTransaction(func(tx *gorm.DB) error {
		slots, err := lockSlotRange(tx, req.RoomID, date, req.StartSlot, req.EndSlot)
		if err != nil {
			return err
		}

		for _, s := range slots {
			if s.Status == models.SlotBooked || s.Status == models.SlotUnavailable {
				return conflictError("slot_occupied", fmt.Sprintf("slot %d is %s", s.SlotNumber, s.Status))
			}
		}

		leaderID, err := uniqueLeader(slots)
		if err != nil {
			return err
		}

		if firstSlotStart.Sub(now) < InstantWindow {
			attempt, err = instantBook(tx, req, group, slots, leaderID, now)
			return err
		}
		attempt, err = openOrRaiseAuction(tx, req, group, slots, leaderID, firstSlotStart, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func validateBidRequest(req BidRequest, now time.Time) error {
	if !models.ValidSlotNumber(req.StartSlot) || !models.ValidSlotNumber(req.EndSlot) {
		return validationError("invalid_slot_number", "slot numbers must be within 1..14")
	}
	if req.StartSlot > req.EndSlot {
		return validationError("invalid_slot_range", "start slot must not be after end slot")
	}
	if (req.TotalBid == nil) == (req.FundingGroupID == nil) {
		return validationError("invalid_funding", "set exactly one of totalBid or fundingGroupID")
	}
	if req.TotalBid != nil && *req.TotalBid < req.numberOfSlots() {
		return validationError("bid_below_minimum",
			fmt.Sprintf("minimum bid is %d points (1 per slot)", req.numberOfSlots()))
	}
	if DateOnly(req.Date).Before(DateOnly(now)) {
		return validationError("date_in_past", "cannot book a past date")
	}
	return nil
}

// instantBook settles the range immediately at minimum price. An active
// auction cannot be contested through the instant path.
func instantBook(tx *gorm.DB, req BidRequest, group *models.BookingGroup, slots []models.BookingSlot, leaderID *uint, now time.Time) (*models.BookingAttempt, error) {
	if leaderID != nil {
		return nil, conflictError("auction_in_progress", "an active auction blocks instant booking")
	}

	required := req.numberOfSlots()
	totalBid := required

	if group == nil {
		var user models.User
		if err := storage.ForUpdate(tx).First(&user, req.InitiatorID).Error; err != nil {
			return nil, err
		}
		if user.BookingPoints < required {
			return nil, insufficientFundsError(
				fmt.Sprintf("instant booking needs %d points, balance is %d", required, user.BookingPoints))
		}
	} else {
		balance, _, err := lockGroupBank(tx, group.ID)
		if err != nil {
			return nil, err
		}
		if balance < required {
			return nil, insufficientFundsError(
				fmt.Sprintf("instant booking needs %d points, group bank holds %d", required, balance))
		}
		// The win settlement empties the whole bank, so that is the price.
		totalBid = balance
	}

	attempt := models.BookingAttempt{
		InitiatorID:    req.InitiatorID,
		RoomID:         req.RoomID,
		Date:           DateOnly(req.Date),
		StartSlot:      req.StartSlot,
		EndSlot:        req.EndSlot,
		TotalBid:       totalBid,
		FundingGroupID: req.FundingGroupID,
		Status:         models.AttemptInstantBooked,
	}
	if err := tx.Create(&attempt).Error; err != nil {
		return nil, err
	}

	slotIDs := make([]uint, 0, len(slots))
	for _, s := range slots {
		slotIDs = append(slotIDs, s.ID)
	}
	if err := tx.Model(&models.BookingSlot{}).Where("id IN ?", slotIDs).
		Updates(map[string]interface{}{
			"status":             models.SlotBooked,
			"final_attempt_id":   attempt.ID,
			"current_attempt_id": nil,
			"auction_close_time": nil,
		}).Error; err != nil {
		return nil, err
	}

	if err := settleWin(tx, &attempt); err != nil {
		return nil, err
	}

	logger.L().Info("instant booking settled",
		zap.Uint("attempt", attempt.ID),
		zap.Uint("room", req.RoomID),
		zap.Int("slots", required),
		zap.Int("price", totalBid))
	return &attempt, nil
}

// openOrRaiseAuction creates a BIDDING attempt, takes slot leadership and
// stretches each slot's close time to at least one hour before the range
// starts. A superseded leader is demoted to LOST without a refund.
func openOrRaiseAuction(tx *gorm.DB, req BidRequest, group *models.BookingGroup, slots []models.BookingSlot, leaderID *uint, firstSlotStart time.Time, now time.Time) (*models.BookingAttempt, error) {
	var effectiveBid int
	if group == nil {
		effectiveBid = *req.TotalBid
		var user models.User
		if err := storage.ForUpdate(tx).First(&user, req.InitiatorID).Error; err != nil {
			return nil, err
		}
		if user.BookingPoints < effectiveBid {
			return nil, insufficientFundsError(
				fmt.Sprintf("bid of %d exceeds balance of %d", effectiveBid, user.BookingPoints))
		}
	} else {
		var active int64
		if err := tx.Model(&models.BookingAttempt{}).
			Where("funding_group_id = ? AND status = ?", group.ID, models.AttemptBidding).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, conflictError("group_already_bidding", "the group already has an active bid")
		}
		balance, _, err := lockGroupBank(tx, group.ID)
		if err != nil {
			return nil, err
		}
		if balance < req.numberOfSlots() {
			return nil, insufficientFundsError(
				fmt.Sprintf("group bank holds %d points, minimum bid is %d", balance, req.numberOfSlots()))
		}
		effectiveBid = balance
	}

	if leaderID != nil {
		var leader models.BookingAttempt
		if err := storage.ForUpdate(tx).First(&leader, *leaderID).Error; err != nil {
			return nil, err
		}
		if effectiveBid <= leader.TotalBid {
			return nil, validationError("bid_too_low",
				fmt.Sprintf("bid must exceed the current leading bid of %d", leader.TotalBid))
		}
		// No refund on demotion; refunds only happen on explicit cancellation.
		if leader.Status == models.AttemptBidding {
			if err := tx.Model(&leader).Update("status", models.AttemptLost).Error; err != nil {
				return nil, err
			}
			// A partially overlapping bid must not leave the demoted
			// leader's remaining slots pointing at a LOST attempt; those
			// slots go back to AVAILABLE.
			rangeIDs := make([]uint, 0, len(slots))
			for _, s := range slots {
				rangeIDs = append(rangeIDs, s.ID)
			}
			if err := tx.Model(&models.BookingSlot{}).
				Where("current_attempt_id = ? AND status = ? AND id NOT IN ?",
					leader.ID, models.SlotInAuction, rangeIDs).
				Updates(map[string]interface{}{
					"status":             models.SlotAvailable,
					"current_attempt_id": nil,
					"auction_close_time": nil,
				}).Error; err != nil {
				return nil, err
			}
		}
	}

	attempt := models.BookingAttempt{
		InitiatorID:    req.InitiatorID,
		RoomID:         req.RoomID,
		Date:           DateOnly(req.Date),
		StartSlot:      req.StartSlot,
		EndSlot:        req.EndSlot,
		TotalBid:       effectiveBid,
		FundingGroupID: req.FundingGroupID,
		Status:         models.AttemptBidding,
	}
	if err := tx.Create(&attempt).Error; err != nil {
		return nil, err
	}

	baseClose := firstSlotStart.Add(-InstantWindow)
	for i := range slots {
		closeTime := baseClose
		if slots[i].AuctionCloseTime != nil && slots[i].AuctionCloseTime.After(closeTime) {
			// Never shorten a close time another bid already stretched.
			closeTime = *slots[i].AuctionCloseTime
		}
		if err := tx.Model(&models.BookingSlot{}).Where("id = ?", slots[i].ID).
			Updates(map[string]interface{}{
				"status":             models.SlotInAuction,
				"current_attempt_id": attempt.ID,
				"final_attempt_id":   nil,
				"auction_close_time": closeTime,
			}).Error; err != nil {
			return nil, err
		}
	}

	logger.L().Info("bid accepted",
		zap.Uint("attempt", attempt.ID),
		zap.Uint("room", req.RoomID),
		zap.Int("bid", effectiveBid),
		zap.Bool("group", group != nil))
	return &attempt, nil
}

// lockGroupBank locks every contribution row of the group and returns the
// pooled balance.
func lockGroupBank(tx *gorm.DB, groupID uint) (int, []models.GroupContribution, error) {
	var contributions []models.GroupContribution
	if err := storage.ForUpdate(tx).
		Where("group_id = ?", groupID).
		Order("user_id").
		Find(&contributions).Error; err != nil {
		return 0, nil, err
	}
	total := 0
	for _, c := range contributions {
		total += c.Amount
	}
	return total, contributions, nil
}

// DateOnly strips the clock from t, keeping the location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
