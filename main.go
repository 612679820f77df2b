package main

import (
	"os"
	"time"

	"room-auction-server/logger"
	"room-auction-server/routes"
	"room-auction-server/services"
	"room-auction-server/storage"
	"room-auction-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/login/sso", routes.SSOLogin)
		user.Post("/token/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
		user.Get("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetMe)
		user.Get("/transactions", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetMyTransactions)
	}

	rooms := app.Party("/api/rooms")
	{
		rooms.Get("/", routes.GetRooms)
		rooms.Get("/find", routes.FindRooms)
		rooms.Get("/{id:uint}/events", routes.GetRoomEvents)
	}

	booking := app.Party("/api/booking", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		booking.Post("/attempts", routes.CreateBookingAttempt)
		booking.Post("/attempts/{id:uint}/cancel", routes.CancelBookingAttempt)
		booking.Get("/attempts/my", routes.GetMyAttempts)
	}

	groups := app.Party("/api/groups", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		groups.Post("/", routes.CreateGroup)
		groups.Get("/my", routes.GetMyGroups)
		groups.Post("/{id:uint}/members", routes.AddGroupMember)
		groups.Post("/{id:uint}/members/remove", routes.RemoveGroupMember)
		groups.Post("/{id:uint}/leave", routes.LeaveGroup)
		groups.Get("/{id:uint}/contributions", routes.GetGroupContributions)
		groups.Post("/{id:uint}/contributions/add", routes.DepositToGroup)
		groups.Post("/{id:uint}/contributions/withdraw", routes.WithdrawFromGroup)
	}

	events := app.Party("/api/events", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		events.Post("/", routes.CreateEvent)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", routes.AdminListUsers)
		admin.Post("/points/adjust", routes.AdminAdjustBalance)
		admin.Post("/timetable/import", routes.AdminImportTimetable)
	}

	stopScheduler := startScheduler()
	defer stopScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	app.Listen(":" + port)
}

// startScheduler runs the auction close sweep and the daily maintenance on
// fixed intervals. The timers live here, outside the engine; the service
// entry points are idempotent and tolerate overlapping runs.
func startScheduler() func() {
	sweepInterval := 60 * time.Second
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			sweepInterval = parsed
		}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				services.RunCloseSweep(now)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				services.RunDailyMaintenance(now)
			}
		}
	}()

	logger.L().Info("scheduler started", zap.Duration("sweepInterval", sweepInterval))
	return func() { close(done) }
}
