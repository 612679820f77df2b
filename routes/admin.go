package routes

import (
	"time"

	"room-auction-server/models"
	"room-auction-server/services"
	"room-auction-server/storage"
	"room-auction-server/utils"

	"github.com/kataras/iris/v12"
)

type AdjustBalanceInput struct {
	UserID uint   `json:"userID" validate:"required"`
	Amount int    `json:"amount" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

type ImportTimetableInput struct {
	RoomID    uint   `json:"roomID" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartSlot int    `json:"startSlot" validate:"required,min=1,max=14"`
	EndSlot   int    `json:"endSlot" validate:"required,min=1,max=14"`
}

// AdminListUsers pages through all users.
func AdminListUsers(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var total int64
	storage.DB.Model(&models.User{}).Count(&total)

	var users []models.User
	storage.DB.Order("id").Offset((page - 1) * perPage).Limit(perPage).Find(&users)

	utils.JSONPage(ctx, users, page, perPage, total)
}

// AdminAdjustBalance applies a manual point correction.
func AdminAdjustBalance(ctx iris.Context) {
	var input AdjustBalanceInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if err := services.AdjustBalance(input.UserID, input.Amount, input.Note); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "adjusted"})
}

// AdminImportTimetable marks a slot range UNAVAILABLE for an externally
// scheduled class, on behalf of the timetable importer.
func AdminImportTimetable(ctx iris.Context) {
	var input ImportTimetableInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	date, dateErr := time.ParseInLocation("2006-01-02", input.Date, time.Local)
	if dateErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", ctx)
		return
	}
	if err := services.MarkSlotsUnavailable(input.RoomID, date, input.StartSlot, input.EndSlot); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "slots marked unavailable"})
}
