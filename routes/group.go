package routes

import (
	"room-auction-server/models"
	"room-auction-server/services"
	"room-auction-server/storage"
	"room-auction-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateGroupInput struct {
	Name string `json:"name" validate:"max=100"`
}

type MemberActionInput struct {
	UserID uint `json:"userID" validate:"required"`
}

type ContributionInput struct {
	Amount int `json:"amount" validate:"required,min=1"`
}

func CreateGroup(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var input CreateGroupInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	group, err := services.CreateGroup(userID, input.Name)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"group": group})
}

// GetMyGroups lists groups the caller belongs to, with members and the
// live pool balance.
func GetMyGroups(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}

	var groups []models.BookingGroup
	storage.DB.
		Joins("JOIN booking_group_members m ON m.group_id = booking_groups.id AND m.deleted_at IS NULL").
		Where("m.user_id = ?", userID).
		Preload("Members").
		Preload("Members.User").
		Preload("Contributions").
		Find(&groups)

	type groupWithBalance struct {
		models.BookingGroup
		Balance int `json:"balance"`
	}
	out := make([]groupWithBalance, 0, len(groups))
	for _, g := range groups {
		balance := 0
		for _, c := range g.Contributions {
			balance += c.Amount
		}
		out = append(out, groupWithBalance{BookingGroup: g, Balance: balance})
	}
	ctx.JSON(iris.Map{"groups": out})
}

func AddGroupMember(ctx iris.Context) {
	actorID, groupID, input, ok := groupMemberAction(ctx)
	if !ok {
		return
	}
	if err := services.AddMember(groupID, actorID, input.UserID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "member added"})
}

func RemoveGroupMember(ctx iris.Context) {
	actorID, groupID, input, ok := groupMemberAction(ctx)
	if !ok {
		return
	}
	if err := services.RemoveMember(groupID, actorID, input.UserID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "member removed"})
}

func LeaveGroup(ctx iris.Context) {
	userID, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}
	groupID, paramErr := ctx.Params().GetUint("id")
	if paramErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_id", "group id must be numeric", ctx)
		return
	}
	if err := services.LeaveGroup(groupID, userID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "left group"})
}

// GetGroupContributions lists the group's bank, per member.
func GetGroupContributions(ctx iris.Context) {
	_, ok := utils.RequestUserID(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		return
	}
	groupID, paramErr := ctx.Params().GetUint("id")
	if paramErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_id", "group id must be numeric", ctx)
		return
	}

	var contributions []models.GroupContribution
	storage.DB.Where("group_id = ?", groupID).Preload("User").Find(&contributions)

	balance, err := services.GroupBalance(groupID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"contributions": contributions, "balance": balance})
}

func DepositToGroup(ctx iris.Context) {
	userID, groupID, amount, ok := contributionAction(ctx)
	if !ok {
		return
	}
	if err := services.Deposit(groupID, userID, amount); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "deposited"})
}

func WithdrawFromGroup(ctx iris.Context) {
	userID, groupID, amount, ok := contributionAction(ctx)
	if !ok {
		return
	}
	if err := services.Withdraw(groupID, userID, amount); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"status": "withdrawn"})
}

func groupMemberAction(ctx iris.Context) (actorID uint, groupID uint, input MemberActionInput, ok bool) {
	actorID, authed := utils.RequestUserID(ctx)
	if !authed {
		ctx.StatusCode(iris.StatusUnauthorized)
		return 0, 0, input, false
	}
	groupID, paramErr := ctx.Params().GetUint("id")
	if paramErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_id", "group id must be numeric", ctx)
		return 0, 0, input, false
	}
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return 0, 0, input, false
	}
	return actorID, groupID, input, true
}

func contributionAction(ctx iris.Context) (userID uint, groupID uint, amount int, ok bool) {
	userID, authed := utils.RequestUserID(ctx)
	if !authed {
		ctx.StatusCode(iris.StatusUnauthorized)
		return 0, 0, 0, false
	}
	groupID, paramErr := ctx.Params().GetUint("id")
	if paramErr != nil {
		utils.CreateError(iris.StatusBadRequest, "invalid_id", "group id must be numeric", ctx)
		return 0, 0, 0, false
	}
	var input ContributionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return 0, 0, 0, false
	}
	return userID, groupID, input.Amount, true
}
