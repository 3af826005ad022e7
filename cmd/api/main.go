package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parcel-tracker/internal/core/config"
	"parcel-tracker/internal/core/database"
	"parcel-tracker/internal/core/httpclient"
	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/core/server"
	adminhandler "parcel-tracker/internal/features/admin/handler"
	adminservice "parcel-tracker/internal/features/admin/service"
	authadapter "parcel-tracker/internal/features/auth/adapters"
	authdomain "parcel-tracker/internal/features/auth/domain"
	authhandler "parcel-tracker/internal/features/auth/handler"
	"parcel-tracker/internal/features/auth/middleware"
	authservice "parcel-tracker/internal/features/auth/service"
	geoadapter "parcel-tracker/internal/features/geolocation/adapters"
	geohandler "parcel-tracker/internal/features/geolocation/handler"
	geoservice "parcel-tracker/internal/features/geolocation/service"
	notifyadapter "parcel-tracker/internal/features/notifications/adapters"
	notifyhandler "parcel-tracker/internal/features/notifications/handler"
	shipadapter "parcel-tracker/internal/features/shipments/adapters"
	shiphandler "parcel-tracker/internal/features/shipments/handler"
	shipservice "parcel-tracker/internal/features/shipments/service"

	"go.uber.org/zap"
)

// @title Parcel Tracker API
// @version 1.0
// @description Parcel tracking service: clients create shipments, couriers claim and deliver them, admins monitor the fleet.
// @contact.name API Support
// @contact.email support@parceltracker.com
// @license.name MIT
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Document store
	db, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		l.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer db.Close(context.Background())
	l.Info("MongoDB connection verified")

	userRepo, err := authadapter.NewMongoUserRepository(ctx, db.Collection("users"))
	if err != nil {
		l.Fatal("Failed to initialize user repository", zap.Error(err))
	}

	shipmentRepo, err := shipadapter.NewMongoShipmentRepository(ctx, db.Collection("shipments"))
	if err != nil {
		l.Fatal("Failed to initialize shipment repository", zap.Error(err))
	}

	// Courier position store
	positionStore, err := geoadapter.NewRedisPositionStore(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Redis connection failed", zap.Error(err))
	}
	defer positionStore.Close()

	if err := positionStore.Ping(ctx); err != nil {
		l.Fatal("Redis ping failed", zap.Error(err))
	}
	l.Info("Redis connection verified")

	// Notification relay
	relay := notifyadapter.NewHTTPRelay(cfg.Notifier.URL, httpclient.NewClient(cfg.Notifier.Timeout))

	// Services & handlers
	tokens := authservice.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := authservice.NewAuthService(userRepo, tokens)
	authHdl := authhandler.NewAuthHandler(authSvc)

	shipmentSvc := shipservice.NewShipmentService(shipmentRepo, relay, cfg.PublicBaseURL)
	shipmentHdl := shiphandler.NewShipmentHandler(shipmentSvc)

	geoSvc := geoservice.NewGeolocationService(positionStore)
	geoHdl := geohandler.NewGeolocationHandler(geoSvc)

	adminSvc := adminservice.NewAdminService(userRepo, shipmentRepo, relay)
	adminHdl := adminhandler.NewAdminHandler(adminSvc)

	notifyHdl := notifyhandler.NewNotificationHandler(relay)

	auth := middleware.New(userRepo, tokens)

	srv := server.New(cfg)

	// Public routes
	srv.App.Post("/auth/register", authHdl.Register)
	srv.App.Post("/auth/login", authHdl.Login)
	srv.App.Get("/shipments/track/:code", shipmentHdl.Track)

	// Authenticated routes
	authed := srv.App.Group("", auth.RequireAuth())
	authed.Get("/auth/profile", authHdl.Profile)
	authed.Get("/notifications", notifyHdl.List)
	authed.Patch("/notifications/:id/read", notifyHdl.MarkRead)

	authed.Post("/shipments", auth.RequireRoles(authdomain.RoleClient, authdomain.RoleAdmin), shipmentHdl.Create)
	authed.Get("/shipments/qrcode/:code", shipmentHdl.QRCode)
	authed.Put("/shipments/status/:code", shipmentHdl.UpdateStatus)
	authed.Get("/shipments/search", shipmentHdl.Search)
	authed.Get("/shipments/dashboard", auth.RequireRoles(authdomain.RoleAdmin), shipmentHdl.Dashboard)
	authed.Get("/shipments/client/:id", shipmentHdl.ListForClient)
	authed.Get("/geolocation/:id/trail", geoHdl.Trail)
	authed.Get("/geolocation/:id", geoHdl.Latest)
	authed.Put("/shipments/:id", shipmentHdl.Modify)
	authed.Delete("/shipments/:code", shipmentHdl.Delete)

	// Courier routes
	courier := authed.Group("", auth.RequireRoles(authdomain.RoleCourier, authdomain.RoleAdmin))
	courier.Get("/shipments/courier", shipmentHdl.ListForCourier)
	courier.Patch("/shipments/claim/:code", shipmentHdl.Claim)
	courier.Post("/geolocation", geoHdl.Report)

	// Admin routes
	admin := authed.Group("/admin", auth.RequireRoles(authdomain.RoleAdmin))
	admin.Get("/users", adminHdl.ListUsers)
	admin.Get("/users/search", adminHdl.SearchUsers)
	admin.Get("/users/:id", adminHdl.GetUser)
	admin.Patch("/users/:id/block", adminHdl.SetBlocked)
	admin.Patch("/users/:id/role", adminHdl.ReassignRole)
	admin.Post("/users/:id/password", adminHdl.ResetPassword)
	admin.Get("/users/:id/shipments", adminHdl.UserShipments)
	admin.Get("/shipments", adminHdl.ListShipments)
	admin.Delete("/shipments/:id", adminHdl.DeleteShipment)
	admin.Post("/announce", adminHdl.Announce)
	admin.Get("/stats", adminHdl.Stats)

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		l.Info("Shutting down")
		if err := srv.Shutdown(); err != nil {
			l.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
