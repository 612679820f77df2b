package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"room-auction-server/models"
	"room-auction-server/services"
	"room-auction-server/storage"
	"room-auction-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
)

type RoomWithRangeStatus struct {
	models.Room
	RangeStatus string `json:"rangeStatus"`
}

// GetRooms lists every active room.
func GetRooms(ctx iris.Context) {
	var rooms []models.Room
	storage.DB.Where("is_active = ?", true).Order("building, name").Find(&rooms)
	ctx.JSON(iris.Map{"rooms": rooms})
}

// FindRooms returns every active room (optionally filtered by floor) with
// its aggregate status over the requested date and slot range, available
// rooms first. Results are cached briefly; the hard allocation path never
// reads this.
func FindRooms(ctx iris.Context) {
	dateStr := ctx.URLParam("date")
	startSlot := ctx.URLParamIntDefault("start_slot", 0)
	endSlot := ctx.URLParamIntDefault("end_slot", 0)
	floor := ctx.URLParamIntDefault("floor", -1)

	date, dateErr := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if dateErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", ctx)
		return
	}
	if !models.ValidSlotNumber(startSlot) || !models.ValidSlotNumber(endSlot) || startSlot > endSlot {
		utils.CreateError(iris.StatusBadRequest, "invalid_slot_range", "slot range must be within 1..14", ctx)
		return
	}

	cacheKey := fmt.Sprintf("find-rooms:%s:%d:%d:%d", dateStr, startSlot, endSlot, floor)
	if storage.Redis != nil {
		if cached, err := storage.Redis.Get(context.Background(), cacheKey).Result(); err == nil {
			ctx.ContentType("application/json")
			ctx.WriteString(cached)
			return
		}
	}

	query := storage.DB.Where("is_active = ?", true)
	if floor >= 0 {
		query = query.Where("floor = ?", floor)
	}
	var rooms []models.Room
	query.Order("floor, name").Find(&rooms)

	roomIDs := make([]uint, 0, len(rooms))
	for _, r := range rooms {
		roomIDs = append(roomIDs, r.ID)
	}

	statuses, err := services.QueryRangeStatus(roomIDs, services.DateOnly(date), startSlot, endSlot)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	statusByRoom := make(map[uint]string, len(statuses))
	for _, s := range statuses {
		statusByRoom[s.RoomID] = s.Status
	}

	results := make([]RoomWithRangeStatus, 0, len(rooms))
	for _, r := range rooms {
		results = append(results, RoomWithRangeStatus{Room: r, RangeStatus: statusByRoom[r.ID]})
	}
	slices.SortStableFunc(results, func(a, b RoomWithRangeStatus) int {
		if a.RangeStatus == b.RangeStatus {
			return 0
		}
		if a.RangeStatus == models.RangeAvailable {
			return -1
		}
		if b.RangeStatus == models.RangeAvailable {
			return 1
		}
		return 0
	})

	payload := iris.Map{"rooms": results}
	if storage.Redis != nil {
		if raw, marshalErr := json.Marshal(payload); marshalErr == nil {
			storage.Redis.Set(context.Background(), cacheKey, raw, 15*time.Second)
		}
	}
	ctx.JSON(payload)
}
