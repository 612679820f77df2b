package routes

import (
	"time"

	"room-auction-server/models"
	"room-auction-server/services"
	"room-auction-server/storage"
	"room-auction-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateAttemptInput struct {
	RoomID         uint   `json:"roomID" validate:"required"`
	Date           string `json:"date" validate:"required"`
	StartSlot      int    `json:"startSlot" validate:"required,min=1,max=14"`
	EndSlot        int    `json:"endSlot" validate:"required,min=1,max=14"`
	TotalBid       *int   `json:"totalBid"`
	FundingGroupID *uint  `json:"fundingGroupID"`
}

// CreateBookingAttempt submits a bid or an instant booking for a slot
// range. The engine decides which path applies from the time to start.
func CreateBookingAttempt(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input CreateAttemptInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	date, dateErr := time.ParseInLocation("2006-01-02", input.Date, time.Local)
	if dateErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", ctx)
		return
	}

	attempt, err := services.PlaceBid(services.BidRequest{
		InitiatorID:    userID,
		RoomID:         input.RoomID,
		Date:           date,
		StartSlot:      input.StartSlot,
		EndSlot:        input.EndSlot,
		TotalBid:       input.TotalBid,
		FundingGroupID: input.FundingGroupID,
	}, time.Now())
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"attempt": attempt})
}

// CancelBookingAttempt cancels one of the caller's attempts.
func CancelBookingAttempt(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	attemptID, paramErr := ctx.Params().GetUint("id")
	if paramErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_id", "attempt id must be numeric", ctx)
		return
	}

	if err := services.CancelAttempt(attemptID, userID, time.Now()); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "cancelled"})
}

// GetMyAttempts lists the caller's booking attempts, newest first.
func GetMyAttempts(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var attempts []models.BookingAttempt
	storage.DB.Where("initiator_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&attempts)

	ctx.JSON(iris.Map{"attempts": attempts})
}
