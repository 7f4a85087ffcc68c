// Package main runs the club management HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gavel-club/backend/config"
	"github.com/gavel-club/backend/internal/auth"
	"github.com/gavel-club/backend/internal/booking"
	"github.com/gavel-club/backend/internal/clubs"
	"github.com/gavel-club/backend/internal/contacts"
	"github.com/gavel-club/backend/internal/meetings"
	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/internal/projection"
	"github.com/gavel-club/backend/internal/realtime"
	"github.com/gavel-club/backend/internal/reports"
	"github.com/gavel-club/backend/internal/roles"
	"github.com/gavel-club/backend/internal/roster"
	"github.com/gavel-club/backend/internal/votes"
	"github.com/gavel-club/backend/internal/worker"
	"github.com/gavel-club/backend/pkg/database"
	"github.com/gavel-club/backend/pkg/queue"
	"github.com/gavel-club/backend/pkg/redis"
	"github.com/gavel-club/backend/pkg/response"
	"github.com/gavel-club/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" && cfg.AWS.AccessKeyID != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AvatarsBucket:        cfg.AWS.AvatarsBucket,
			MediaBucket:          cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Clubs
	clubRepo := clubs.NewRepository(pool)
	clubHandler := clubs.NewHandler(clubRepo)

	// Contacts (profiles, avatars, administration)
	contactRepo := contacts.NewRepository(pool)
	contactHandler := contacts.NewHandler(contactRepo, s3Client, logger)

	// Role registry with Redis read-through cache
	roleRepo := roles.NewRepository(pool)
	registry := roles.NewRegistry(roleRepo, rdb.Client, time.Duration(cfg.Cache.RoleTTLSeconds)*time.Second, logger)
	roleHandler := roles.NewHandler(registry, roleRepo)

	// Projection read model, memoized in Redis
	builder := projection.NewBuilder(pool)
	projCache := projection.NewCache(builder, rdb.Client, time.Duration(cfg.Cache.ProjectionTTLSeconds)*time.Second, logger)
	projHandler := projection.NewHandler(projCache, pool)

	// Assignment engine. Committed transitions invalidate the projection and
	// feed the booking event queue for fan-out.
	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifier := booking.NotifierFunc(func(ctx context.Context, ev booking.Event) {
		projCache.Invalidate(ctx, ev.MeetingID)
		err := jobQueue.EnqueueBookingEvent(ctx, queue.BookingEventPayload{
			EventType: ev.Type,
			MeetingID: ev.MeetingID,
			SlotIDs:   ev.SlotIDs,
			ContactID: ev.ContactID,
		})
		if err != nil {
			logger.Warn("enqueue booking event failed", zap.Error(err), zap.String("meeting_id", ev.MeetingID.String()))
		}
	})
	engine := booking.NewEngine(booking.NewPGRunner(pool), notifier, logger)
	bookingHandler := booking.NewHandler(engine, pool, logger)

	// Meetings and agenda slots
	meetingRepo := meetings.NewRepository(pool)
	meetingHandler := meetings.NewHandler(meetingRepo, registry, engine, s3Client, logger)

	// Roster (attendance and guest RSVP)
	rosterRepo := roster.NewRepository(pool)
	rosterHandler := roster.NewHandler(rosterRepo, meetingRepo, clubRepo)

	// Award voting
	voteRepo := votes.NewRepository(pool)
	voteHandler := votes.NewHandler(voteRepo, meetingRepo, hub)

	// Reports
	reportHandler := reports.NewHandler(pool)

	// Booking event worker (projection refresh + realtime fan-out)
	processor := worker.NewBookingEventProcessor(projCache, redisPubSub, jobQueue, logger)

	jwtValidate := func(token string) (contactID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.ContactID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth and club discovery (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}
	router.POST("/clubs", clubHandler.Create)
	router.GET("/clubs/:slug", clubHandler.GetBySlug)
	router.POST("/clubs/:slug/meetings/:id/rsvp", rosterHandler.PublicRSVP)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		officer := middleware.RequireRole("officer", "admin")

		// Club
		api.GET("/club", clubHandler.Me)
		api.PATCH("/club/settings", middleware.RequireRole("admin"), clubHandler.UpdateSettings)
		api.GET("/club/contacts", clubHandler.ListContacts)

		// Contacts
		api.GET("/contacts/me", contactHandler.Me)
		api.PATCH("/contacts/me", contactHandler.UpdateMe)
		api.POST("/contacts/me/avatar", contactHandler.AvatarUpload)
		api.GET("/contacts/:id/avatar", contactHandler.AvatarURL)
		api.POST("/contacts", officer, contactHandler.Create)
		api.PATCH("/contacts/:id/standing", officer, contactHandler.UpdateStanding)
		api.GET("/pathways", contactHandler.Pathways)

		// Role registry
		api.GET("/roles", roleHandler.List)
		api.GET("/roles/aliases", roleHandler.Aliases)
		api.POST("/roles", officer, roleHandler.Create)
		api.PATCH("/roles/:id", officer, roleHandler.Update)
		api.DELETE("/roles/:id", officer, roleHandler.Delete)

		// Meetings and agenda
		api.POST("/meetings", officer, meetingHandler.Create)
		api.GET("/meetings", meetingHandler.List)
		api.GET("/meetings/templates", meetingHandler.Templates)
		api.GET("/meetings/:id", meetingHandler.Get)
		api.PATCH("/meetings/:id", officer, meetingHandler.Update)
		api.PATCH("/meetings/:id/status", officer, meetingHandler.UpdateStatus)
		api.DELETE("/meetings/:id", officer, meetingHandler.Delete)
		api.POST("/meetings/:id/slots", officer, meetingHandler.AddSlot)
		api.PATCH("/meetings/:id/slots/:slotID", officer, meetingHandler.UpdateSlot)
		api.DELETE("/meetings/:id/slots/:slotID", officer, meetingHandler.CancelSlot)
		api.POST("/meetings/:id/slots/:slotID/media", officer, meetingHandler.CreateMediaUpload)
		api.GET("/meetings/:id/slots/:slotID/media", meetingHandler.GetMediaURL)

		// Booking
		api.POST("/meetings/:id/book", bookingHandler.Book)
		api.POST("/meetings/:id/slots/:slotID/cancel", bookingHandler.Cancel)
		api.PUT("/meetings/:id/slots/:slotID/assign", officer, bookingHandler.Assign)
		api.POST("/meetings/:id/slots/:slotID/approve", officer, bookingHandler.Approve)

		// Agenda read model
		api.GET("/meetings/:id/bookings", projHandler.Bookings)
		api.GET("/meetings/:id/my-roles", projHandler.MyRoles)

		// Roster
		api.GET("/meetings/:id/roster", rosterHandler.List)
		api.POST("/meetings/:id/rsvp", rosterHandler.RSVP)
		api.DELETE("/meetings/:id/rsvp", rosterHandler.CancelRSVP)

		// Award voting
		api.POST("/meetings/:id/vote-categories", officer, voteHandler.CreateCategory)
		api.GET("/meetings/:id/vote-categories", voteHandler.ListCategories)
		api.POST("/vote-categories/:id/vote", voteHandler.Cast)
		api.POST("/vote-categories/:id/close", officer, voteHandler.CloseCategory)
		api.GET("/vote-categories/:id/tally", officer, voteHandler.Tally)

		// Reports
		api.GET("/reports/club", officer, reportHandler.ClubReport)
		api.GET("/reports/members", officer, reportHandler.MemberReport)
		api.GET("/reports/meetings/:id", officer, reportHandler.MeetingReport)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process booking event worker. Run the dedicated worker binary instead
	// when scaling out.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
