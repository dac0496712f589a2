package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	_ "weddingsite/docs" // swagger docs

	"weddingsite/internal/auth"
	"weddingsite/internal/cache"
	"weddingsite/internal/config"
	"weddingsite/internal/db"
	"weddingsite/internal/events"
	"weddingsite/internal/guard"
	"weddingsite/internal/handler"
	"weddingsite/internal/logger"
	"weddingsite/internal/media"
	"weddingsite/internal/repository"
	"weddingsite/internal/role"
	"weddingsite/internal/router"
	"weddingsite/internal/service"
	"weddingsite/internal/session"
)

// @title Wedding Site API
// @version 1.0
// @description Guest RSVPs, the message wall, the media album and the admin dashboard.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if missing := cfg.Missing(); len(missing) > 0 {
		log.Warn().Strs("vars", missing).Msg("optional configuration missing, related features disabled")
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.Fatal().Err(err).Msg("database migrate")
	}
	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true, tables were dropped and recreated")
	}

	cacheClient, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, tokens are kept in memory")
	} else if !cacheClient.Distributed() {
		log.Warn().Msg("REDIS_ADDR not set, tokens are kept in memory")
	}
	defer cacheClient.Close()

	// Session events
	hub := session.NewHub(cacheClient, logger.Component(log, "session"))
	hub.Start(ctx)
	defer hub.Close()

	// Brokers
	var publisher events.Publisher
	if cfg.KafkaBroker != "" {
		producer := events.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}
	emitter := events.NewEmitter(publisher, logger.Component(log, "events"))

	var queue events.QueuePublisher
	var notifier service.ResetNotifier
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitClient(cfg.RabbitMQURL)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, moderation notices and reset mail disabled")
		} else {
			defer rabbit.Close()
			for _, name := range []string{cfg.ModerationQueue, cfg.ResetMailQueue} {
				if err := rabbit.CreateQueue(name); err != nil {
					log.Fatal().Err(err).Str("queue", name).Msg("declare queue")
				}
			}
			queue = rabbit
			notifier = service.QueueNotifier{Queue: rabbit, Name: cfg.ResetMailQueue}
		}
	}

	// Album
	var lister media.Lister
	if cfg.GoogleCredentialsFile != "" {
		drive, err := media.NewDriveLister(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			log.Warn().Err(err).Msg("drive unavailable, album disabled")
		} else {
			lister = drive
		}
	}
	mediaService := media.NewService(
		lister,
		cfg.DriveFolders,
		media.NewPickerConfig(cfg.GoogleAPIKey, cfg.GoogleClientID, cfg.DriveFolders.Main),
		logger.Component(log, "media"),
	)

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(gormDB)
	profileRepo := repository.NewProfileRepository(gormDB)
	rsvpRepo := repository.NewRSVPRepository(gormDB)
	messageRepo := repository.NewMessageRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(accountRepo, profileRepo, jwtService, tokenStore, hub, notifier, logger.Component(log, "auth"))
	rsvpService := service.NewRSVPService(rsvpRepo, emitter, logger.Component(log, "rsvp"))
	messageService := service.NewMessageService(messageRepo, queue, cfg.ModerationQueue, logger.Component(log, "messages"))
	adminService := service.NewAdminService(rsvpRepo, rsvpService)
	siteService := service.NewSiteService(cfg.VenueName, cfg.VenueAddress, cfg.WeddingDateTime)

	roles := role.NewResolver(profileRepo, cfg.RoleTimeout, logger.Component(log, "role"))
	paths := guard.Paths{Login: cfg.LoginPath, Default: cfg.DefaultPath}
	accessGuard := guard.New(authService, roles, paths, logger.Component(log, "guard"))

	e := echo.New()
	e.HideBanner = true

	router.Register(e, log, jwtService.Secret(), accessGuard, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, strings.TrimSuffix(cfg.AppBaseURL, "/")+"/reset-password"),
		RSVP:    handler.NewRSVPHandler(rsvpService),
		Message: handler.NewMessageHandler(messageService),
		Admin:   handler.NewAdminHandler(adminService),
		Media:   handler.NewMediaHandler(mediaService),
		Site:    handler.NewSiteHandler(siteService),
		Session: handler.NewSessionHandler(authService, hub, roles, paths, logger.Component(log, "session")),
	})

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Str("swagger", swaggerURL(cfg)).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
