package routes

import (
	"time"

	"room-auction-server/models"
	"room-auction-server/storage"
	"room-auction-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateEventInput struct {
	AttemptID   uint   `json:"attemptID" validate:"required"`
	Subject     string `json:"subject" validate:"required,max=255"`
	Description string `json:"description"`
}

// CreateEvent attaches a subject to a booking the caller won.
func CreateEvent(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input CreateEventInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var attempt models.BookingAttempt
	if err := storage.DB.First(&attempt, input.AttemptID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if attempt.InitiatorID != userID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}
	if attempt.Status != models.AttemptWon && attempt.Status != models.AttemptInstantBooked {
		utils.CreateError(iris.StatusConflict, "attempt_not_booked", "events can only be attached to booked attempts", ctx)
		return
	}

	attemptID := attempt.ID
	event := models.Event{
		Date:        attempt.Date,
		StartSlot:   attempt.StartSlot,
		EndSlot:     attempt.EndSlot,
		InitiatorID: userID,
		AttemptID:   &attemptID,
		GroupID:     attempt.FundingGroupID,
		RoomID:      attempt.RoomID,
		Subject:     input.Subject,
		Description: input.Description,
	}
	if err := storage.DB.Create(&event).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"event": event})
}

// GetRoomEvents lists events of one room on one date.
func GetRoomEvents(ctx iris.Context) {
	roomID, paramErr := ctx.Params().GetUint("id")
	if paramErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_id", "room id must be numeric", ctx)
		return
	}
	date, dateErr := time.ParseInLocation("2006-01-02", ctx.URLParam("date"), time.Local)
	if dateErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", ctx)
		return
	}

	var events []models.Event
	storage.DB.Where("room_id = ? AND date = ?", roomID, date).
		Order("start_slot").
		Find(&events)
	ctx.JSON(iris.Map{"events": events})
}
