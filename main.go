package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/louayabidi/projetstage-devops/routes"
	"github.com/louayabidi/projetstage-devops/services"
	"github.com/louayabidi/projetstage-devops/storage"
	"github.com/louayabidi/projetstage-devops/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	// Repositories and services
	boatRepo := storage.NewBoatRepository(storage.DB)
	bookingRepo := storage.NewBookingRepository(storage.DB)
	messageRepo := storage.NewMessageRepository(storage.DB)
	notificationRepo := storage.NewNotificationRepository(storage.DB)
	userRepo := storage.NewUserRepository(storage.DB)

	geo := services.NewGeoIndex()
	matching := services.NewMatching(geo, boatRepo)
	notifier := services.NewNotifier(notificationRepo, userRepo)
	booking := services.NewBooking(bookingRepo, boatRepo, messageRepo, matching, notifier)

	// Warm the geo index from persisted positions so the map and the
	// dispatch radius work before any live update arrives.
	boats, boatsErr := boatRepo.All()
	if boatsErr != nil {
		log.Fatalf("Failed to load boats for geo index: %v", boatsErr)
	}
	services.SeedFromBoats(geo, boats)

	hub := services.NewHub(geo, boatRepo, booking, bookingRepo, func(token string) (uint, error) {
		claims, err := utils.VerifyRawAccessToken(token)
		if err != nil {
			return 0, err
		}
		return claims.ID, nil
	})

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT Verifiers
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

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/logout", accessTokenVerifierMiddleware, routes.Logout)
		user.Post("/password", accessTokenVerifierMiddleware, routes.ChangePassword)
		user.Get("/me", accessTokenVerifierMiddleware, routes.GetMe)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
	}

	boat := app.Party("/api/boat")
	{
		boat.Get("/locations", routes.GetBoatLocations(boatRepo, geo))
		boat.Get("/mine", accessTokenVerifierMiddleware, utils.OwnerOnlyMiddleware, routes.GetMyBoat(boatRepo))
		boat.Post("/", accessTokenVerifierMiddleware, utils.OwnerOnlyMiddleware, routes.CreateBoat(boatRepo, geo))
		boat.Patch("/", accessTokenVerifierMiddleware, utils.OwnerOnlyMiddleware, routes.UpdateBoat(boatRepo))
		boat.Patch("/{id:uint}/location", accessTokenVerifierMiddleware, utils.OwnerOnlyMiddleware, routes.UpdateBoatLocation(hub))
		boat.Get("/{id:uint}", routes.GetBoat(boatRepo))
		boat.Get("/", routes.GetBoats(boatRepo))
		boat.Delete("/{id:uint}", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware, routes.DeleteBoat(boatRepo, geo))
	}

	bookingParty := app.Party("/api/booking", accessTokenVerifierMiddleware)
	{
		bookingParty.Post("/", routes.CreateBooking(booking))
		bookingParty.Get("/mine", routes.ListMyBookings(booking))
		bookingParty.Get("/owner", utils.OwnerOnlyMiddleware, routes.ListOwnerBookings(booking))
		bookingParty.Get("/{id:uint}", routes.GetBooking(booking))
		bookingParty.Post("/{id:uint}/offer", utils.OwnerOnlyMiddleware, routes.MakeOffer(booking))
		bookingParty.Post("/{id:uint}/accept", routes.AcceptOffer(booking))
		bookingParty.Post("/{id:uint}/reject", routes.RejectOffer(booking))
		bookingParty.Post("/{id:uint}/cancel", routes.CancelBooking(booking))
		bookingParty.Post("/{id:uint}/complete", routes.CompleteBooking(booking))
		bookingParty.Put("/{id:uint}/location", routes.UpdatePassengerLocation(booking))
		bookingParty.Post("/{id:uint}/messages", routes.PostMessage(booking))
		bookingParty.Get("/{id:uint}/messages", routes.ListMessages(booking))
	}

	notification := app.Party("/api/notification", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		notification.Get("/", routes.GetNotifications(notificationRepo))
		notification.Get("/unread-count", routes.GetUnreadNotificationCount(notificationRepo))
		notification.Post("/read-all", routes.MarkNotificationsRead(notificationRepo))
	}

	app.Get("/ws", routes.LiveLocationSocket(hub))

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
