package cmd

import (
	"log"
	"log/slog"
	"net/http"

	"eventpass/config"
	"eventpass/internal/handlers"
	"eventpass/internal/services"
	"eventpass/internal/services/notify"
	"eventpass/internal/services/notify/expo"
	"eventpass/internal/store"
	"eventpass/monitoring"
	"eventpass/security"
	"eventpass/utils"

	_ "eventpass/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go/v7"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	if cfg.JWTSecret == "" {
		secret, err := utils.GenerateCode(32)
		if err != nil {
			return err
		}
		cfg.JWTSecret = secret
		slog.Warn("JWT_SECRET not set, using an ephemeral secret; issued credentials will not survive a restart")
	}

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional, used for realtime ticket updates)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("eventpass-server"))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	// Initialize services
	st := store.New(app)
	credentials := services.NewCredentialService(cfg.JWTSecret, cfg.TokenTTL)
	artifacts := services.NewArtifactService(cfg.ArtifactDir)
	expoClient := expo.NewClient(&expo.ClientConfig{PushURL: cfg.ExpoPushURL})
	notifier := notify.NewNotifier(expoClient, pn)
	purchases := services.NewPurchaseService(st, st, st, artifacts, notifier)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(st, credentials, expoClient, cfg.AdminUsername)
	eventHandler := handlers.NewEventHandler(st)
	ticketHandler := handlers.NewTicketHandler(st, purchases, artifacts)
	auth := handlers.NewAuthMiddleware(st, credentials)
	limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start monitoring
	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
		monitoring.StartMetricsServer(cfg.MetricsPort)
	}

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Auth endpoints
		e.Router.POST("/api/auth/register", limiter.Limit(authHandler.Register))
		e.Router.POST("/api/auth/login", limiter.Limit(authHandler.Login))
		e.Router.POST("/api/auth/push-token", auth.Require(authHandler.RegisterPushToken))
		e.Router.POST("/api/auth/change-password", auth.Require(authHandler.ChangePassword))

		// Development-only endpoints
		if cfg.Environment == "development" {
			e.Router.POST("/api/auth/test-notification", auth.Require(authHandler.TestNotification))
		}

		// Event endpoints
		e.Router.GET("/api/events", eventHandler.List)
		e.Router.POST("/api/events", auth.Require(eventHandler.Create))
		e.Router.PUT("/api/events/{id}", auth.Require(eventHandler.Update))
		e.Router.DELETE("/api/events/{id}", auth.Require(eventHandler.Delete))

		// Ticket endpoints
		e.Router.POST("/api/tickets/buy", limiter.Limit(auth.Require(ticketHandler.Buy)))
		e.Router.GET("/api/tickets/pdf/{ticketId}", auth.RequireWithQueryToken(ticketHandler.PDF))
		e.Router.GET("/api/tickets/my", auth.Require(ticketHandler.My))

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	return app.Start()
}
