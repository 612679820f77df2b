package services

import (
	"testing"
	"time"

	"room-auction-server/models"
	"room-auction-server/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBidValidation(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "valid@edu.hse.ru", 28)
	room := createTestRoom(t, "M501")
	date := auctionDate()
	now := time.Now()

	cases := []struct {
		name string
		req  BidRequest
		code string
	}{
		{
			name: "slot number out of range",
			req:  BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: date, StartSlot: 0, EndSlot: 2, TotalBid: intPtr(5)},
			code: "invalid_slot_number",
		},
		{
			name: "slot number above maximum",
			req:  BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: date, StartSlot: 13, EndSlot: 15, TotalBid: intPtr(5)},
			code: "invalid_slot_number",
		},
		{
			name: "inverted range",
			req:  BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: date, StartSlot: 5, EndSlot: 3, TotalBid: intPtr(5)},
			code: "invalid_slot_range",
		},
		{
			name: "no funding source",
			req:  BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: date, StartSlot: 3, EndSlot: 4},
			code: "invalid_funding",
		},
		{
			name: "both funding sources",
			req: BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: date, StartSlot: 3, EndSlot: 4,
				TotalBid: intPtr(5), FundingGroupID: func() *uint { v := uint(1); return &v }()},
			code: "invalid_funding",
		},
		{
			name: "bid below one point per slot",
			req:  BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: date, StartSlot: 3, EndSlot: 5, TotalBid: intPtr(2)},
			code: "bid_below_minimum",
		},
		{
			name: "past date",
			req: BidRequest{InitiatorID: user.ID, RoomID: room.ID, Date: now.AddDate(0, 0, -1),
				StartSlot: 3, EndSlot: 4, TotalBid: intPtr(5)},
			code: "date_in_past",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlaceBid(tc.req, now)
			require.Error(t, err)
			svcErr, ok := AsServiceError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, svcErr.Code)
			assert.Equal(t, 400, svcErr.Status)
		})
	}

	// Rejected bids never create slot or attempt rows.
	var slotCount, attemptCount int64
	require.NoError(t, storage.DB.Model(&models.BookingSlot{}).Count(&slotCount).Error)
	require.NoError(t, storage.DB.Model(&models.BookingAttempt{}).Count(&attemptCount).Error)
	assert.Zero(t, slotCount)
	assert.Zero(t, attemptCount)
}

func TestPlaceBidUnknownRoom(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "noroom@edu.hse.ru", 28)

	_, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: 999, Date: auctionDate(),
		StartSlot: 1, EndSlot: 1, TotalBid: intPtr(1),
	}, time.Now())
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "room_not_found", svcErr.Code)
	assert.Equal(t, 404, svcErr.Status)
}

func TestPlaceBidInactiveRoom(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "inactive@edu.hse.ru", 28)
	room := createTestRoom(t, "M502")
	inactive := false
	require.NoError(t, storage.DB.Model(&room).Update("is_active", &inactive).Error)

	_, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: room.ID, Date: auctionDate(),
		StartSlot: 1, EndSlot: 1, TotalBid: intPtr(1),
	}, time.Now())
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "room_inactive", svcErr.Code)
}

func TestPlaceBidAfterSlotStart(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "late@edu.hse.ru", 28)
	room := createTestRoom(t, "M503")
	date := auctionDate()
	now := models.SlotStartTime(date, 3).Add(time.Minute)

	_, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(5),
	}, now)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "slot_started", svcErr.Code)
}

func TestOpenAuctionTakesLeadership(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "bidder@edu.hse.ru", 28)
	room := createTestRoom(t, "M504")
	date := auctionDate()

	attempt, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(5),
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.AttemptBidding, attempt.Status)
	assert.Equal(t, 5, attempt.TotalBid)

	expectedClose := models.SlotStartTime(date, 3).Add(-InstantWindow)
	for _, n := range []int{3, 4} {
		slot := loadSlot(t, room.ID, date, n)
		assert.Equal(t, models.SlotInAuction, slot.Status)
		require.NotNil(t, slot.CurrentAttemptID)
		assert.Equal(t, attempt.ID, *slot.CurrentAttemptID)
		require.NotNil(t, slot.AuctionCloseTime)
		assert.WithinDuration(t, expectedClose, *slot.AuctionCloseTime, time.Second)
	}

	// Nothing is charged while the auction is open.
	assert.Equal(t, 28, reloadUser(t, user.ID).BookingPoints)
	assert.Zero(t, countTransactions(t, user.ID, models.TxSpendIndividual))
}

func TestOutbidDemotesLeader(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice@edu.hse.ru", 28)
	bob := createTestUser(t, "bob@edu.hse.ru", 28)
	room := createTestRoom(t, "M505")
	date := auctionDate()

	first, err := PlaceBid(BidRequest{
		InitiatorID: alice.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(5),
	}, time.Now())
	require.NoError(t, err)

	second, err := PlaceBid(BidRequest{
		InitiatorID: bob.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(8),
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.AttemptLost, reloadAttempt(t, first.ID).Status)
	assert.Equal(t, models.AttemptBidding, reloadAttempt(t, second.ID).Status)
	for _, n := range []int{3, 4} {
		slot := loadSlot(t, room.ID, date, n)
		require.NotNil(t, slot.CurrentAttemptID)
		assert.Equal(t, second.ID, *slot.CurrentAttemptID)
	}

	// The demoted leader gets no refund at demotion time.
	assert.Equal(t, 28, reloadUser(t, alice.ID).BookingPoints)
	assert.Zero(t, countTransactions(t, alice.ID, models.TxRefundIndividual))
}

func TestOutbidFreesSlotsOutsideNewRange(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice5@edu.hse.ru", 28)
	bob := createTestUser(t, "bob5@edu.hse.ru", 28)
	carol := createTestUser(t, "carol5@edu.hse.ru", 28)
	room := createTestRoom(t, "M517")
	date := auctionDate()

	first, err := PlaceBid(BidRequest{
		InitiatorID: alice.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 5, TotalBid: intPtr(5),
	}, time.Now())
	require.NoError(t, err)

	// The higher bid covers only part of the leader's range.
	second, err := PlaceBid(BidRequest{
		InitiatorID: bob.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(8),
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.AttemptLost, reloadAttempt(t, first.ID).Status)

	for _, n := range []int{3, 4} {
		slot := loadSlot(t, room.ID, date, n)
		assert.Equal(t, models.SlotInAuction, slot.Status)
		require.NotNil(t, slot.CurrentAttemptID)
		assert.Equal(t, second.ID, *slot.CurrentAttemptID)
	}

	// The slot the lost attempt held outside the new range is released,
	// never left pointing at a non-bidding leader.
	slot5 := loadSlot(t, room.ID, date, 5)
	assert.Equal(t, models.SlotAvailable, slot5.Status)
	assert.Nil(t, slot5.CurrentAttemptID)
	assert.Nil(t, slot5.AuctionCloseTime)

	// The released slot is immediately biddable again, also after the
	// lost attempt has been purged.
	RunDailyMaintenance(time.Now())
	third, err := PlaceBid(BidRequest{
		InitiatorID: carol.ID, RoomID: room.ID, Date: date,
		StartSlot: 5, EndSlot: 5, TotalBid: intPtr(2),
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.AttemptBidding, third.Status)
	slot5 = loadSlot(t, room.ID, date, 5)
	require.NotNil(t, slot5.CurrentAttemptID)
	assert.Equal(t, third.ID, *slot5.CurrentAttemptID)
}

func TestBidMustExceedLeader(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice2@edu.hse.ru", 28)
	bob := createTestUser(t, "bob2@edu.hse.ru", 28)
	room := createTestRoom(t, "M506")
	date := auctionDate()

	leader, err := PlaceBid(BidRequest{
		InitiatorID: alice.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(8),
	}, time.Now())
	require.NoError(t, err)

	_, err = PlaceBid(BidRequest{
		InitiatorID: bob.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(8),
	}, time.Now())
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "bid_too_low", svcErr.Code)

	// Rejected bid leaves the auction untouched.
	assert.Equal(t, models.AttemptBidding, reloadAttempt(t, leader.ID).Status)
	slot := loadSlot(t, room.ID, date, 3)
	require.NotNil(t, slot.CurrentAttemptID)
	assert.Equal(t, leader.ID, *slot.CurrentAttemptID)
	var attemptCount int64
	require.NoError(t, storage.DB.Model(&models.BookingAttempt{}).Count(&attemptCount).Error)
	assert.EqualValues(t, 1, attemptCount)
}

func TestBidExceedingBalance(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "poor@edu.hse.ru", 3)
	room := createTestRoom(t, "M507")

	_, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: room.ID, Date: auctionDate(),
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(10),
	}, time.Now())
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "insufficient_funds", svcErr.Code)
}

func TestInstantBookingSingleSlot(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "instant@edu.hse.ru", 1)
	room := createTestRoom(t, "M508")
	date := auctionDate()
	now := models.SlotStartTime(date, 3).Add(-30 * time.Minute)

	attempt, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 3, TotalBid: intPtr(1),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInstantBooked, attempt.Status)
	assert.Equal(t, 1, attempt.TotalBid)

	slot := loadSlot(t, room.ID, date, 3)
	assert.Equal(t, models.SlotBooked, slot.Status)
	require.NotNil(t, slot.FinalAttemptID)
	assert.Equal(t, attempt.ID, *slot.FinalAttemptID)
	assert.Nil(t, slot.CurrentAttemptID)

	assert.Equal(t, 0, reloadUser(t, user.ID).BookingPoints)
	assert.EqualValues(t, 1, countTransactions(t, user.ID, models.TxSpendIndividual))
}

func TestInstantBookingBlockedByAuction(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice3@edu.hse.ru", 28)
	bob := createTestUser(t, "bob3@edu.hse.ru", 28)
	room := createTestRoom(t, "M509")
	date := auctionDate()
	start := models.SlotStartTime(date, 3)

	_, err := PlaceBid(BidRequest{
		InitiatorID: alice.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 3, TotalBid: intPtr(2),
	}, start.Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = PlaceBid(BidRequest{
		InitiatorID: bob.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 3, TotalBid: intPtr(1),
	}, start.Add(-30*time.Minute))
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "auction_in_progress", svcErr.Code)
	assert.Equal(t, 409, svcErr.Status)
}

func TestBidOnBookedSlot(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice4@edu.hse.ru", 28)
	bob := createTestUser(t, "bob4@edu.hse.ru", 28)
	room := createTestRoom(t, "M510")
	date := auctionDate()
	start := models.SlotStartTime(date, 3)

	_, err := PlaceBid(BidRequest{
		InitiatorID: alice.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 3, TotalBid: intPtr(1),
	}, start.Add(-30*time.Minute))
	require.NoError(t, err)

	// Overlapping range hits the booked slot.
	_, err = PlaceBid(BidRequest{
		InitiatorID: bob.ID, RoomID: room.ID, Date: date,
		StartSlot: 2, EndSlot: 4, TotalBid: intPtr(6),
	}, start.Add(-29*time.Minute))
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "slot_occupied", svcErr.Code)
}

func TestGroupBidUsesPooledBalance(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, "gadmin@edu.hse.ru", 28)
	member := createTestUser(t, "gmember@edu.hse.ru", 28)
	room := createTestRoom(t, "M511")
	group := createTestGroup(t, admin.ID, member.ID)
	require.NoError(t, Deposit(group.ID, admin.ID, 6))
	require.NoError(t, Deposit(group.ID, member.ID, 4))
	date := auctionDate()

	attempt, err := PlaceBid(BidRequest{
		InitiatorID: admin.ID, RoomID: room.ID, Date: date,
		StartSlot: 3, EndSlot: 4, FundingGroupID: &group.ID,
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.AttemptBidding, attempt.Status)
	// The effective bid is the whole pooled balance.
	assert.Equal(t, 10, attempt.TotalBid)

	// One live bid per group at a time.
	_, err = PlaceBid(BidRequest{
		InitiatorID: admin.ID, RoomID: room.ID, Date: date,
		StartSlot: 7, EndSlot: 8, FundingGroupID: &group.ID,
	}, time.Now())
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "group_already_bidding", svcErr.Code)
}

func TestGroupBidRequiresAdmin(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, "gadmin2@edu.hse.ru", 28)
	member := createTestUser(t, "gmember2@edu.hse.ru", 28)
	room := createTestRoom(t, "M512")
	group := createTestGroup(t, admin.ID, member.ID)
	require.NoError(t, Deposit(group.ID, member.ID, 10))

	_, err := PlaceBid(BidRequest{
		InitiatorID: member.ID, RoomID: room.ID, Date: auctionDate(),
		StartSlot: 3, EndSlot: 4, FundingGroupID: &group.ID,
	}, time.Now())
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "not_group_admin", svcErr.Code)
	assert.Equal(t, 403, svcErr.Status)
}

func TestGroupInstantBookingChargesWholePool(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, "gadmin3@edu.hse.ru", 28)
	member := createTestUser(t, "gmember3@edu.hse.ru", 28)
	room := createTestRoom(t, "M513")
	group := createTestGroup(t, admin.ID, member.ID)
	require.NoError(t, Deposit(group.ID, admin.ID, 5))
	require.NoError(t, Deposit(group.ID, member.ID, 2))
	date := auctionDate()
	now := models.SlotStartTime(date, 5).Add(-15 * time.Minute)

	attempt, err := PlaceBid(BidRequest{
		InitiatorID: admin.ID, RoomID: room.ID, Date: date,
		StartSlot: 5, EndSlot: 5, FundingGroupID: &group.ID,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInstantBooked, attempt.Status)
	assert.Equal(t, 7, attempt.TotalBid)

	balance, err := GroupBalance(group.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	// Members' personal balances are untouched by the group settlement.
	assert.Equal(t, 23, reloadUser(t, admin.ID).BookingPoints)
	assert.Equal(t, 26, reloadUser(t, member.ID).BookingPoints)
}

func TestQueryRangeStatusClassification(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "query@edu.hse.ru", 28)
	room1 := createTestRoom(t, "M514")
	room2 := createTestRoom(t, "M515")
	room3 := createTestRoom(t, "M516")
	date := auctionDate()

	_, err := PlaceBid(BidRequest{
		InitiatorID: user.ID, RoomID: room1.ID, Date: date,
		StartSlot: 3, EndSlot: 4, TotalBid: intPtr(5),
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, MarkSlotsUnavailable(room2.ID, date, 4, 4))

	results, err := QueryRangeStatus([]uint{room1.ID, room2.ID, room3.ID}, date, 3, 4)
	require.NoError(t, err)
	byRoom := map[uint]string{}
	for _, r := range results {
		byRoom[r.RoomID] = r.Status
	}
	assert.Equal(t, models.RangeInAuction, byRoom[room1.ID])
	assert.Equal(t, models.RangeUnavailableSlot, byRoom[room2.ID])
	assert.Equal(t, models.RangeAvailable, byRoom[room3.ID])
}
