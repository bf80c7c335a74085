package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nutrio/nutrio/internal/config"
	"github.com/nutrio/nutrio/internal/domain/activity"
	"github.com/nutrio/nutrio/internal/domain/appointment"
	"github.com/nutrio/nutrio/internal/domain/growth"
	"github.com/nutrio/nutrio/internal/domain/invitation"
	"github.com/nutrio/nutrio/internal/domain/meal"
	"github.com/nutrio/nutrio/internal/domain/notification"
	"github.com/nutrio/nutrio/internal/domain/patient"
	"github.com/nutrio/nutrio/internal/domain/recommendation"
	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/internal/platform/db"
	"github.com/nutrio/nutrio/internal/platform/demo"
	"github.com/nutrio/nutrio/internal/platform/functions"
	"github.com/nutrio/nutrio/internal/platform/mailer"
	"github.com/nutrio/nutrio/internal/platform/middleware"
	"github.com/nutrio/nutrio/internal/platform/storage"
	"github.com/nutrio/nutrio/internal/platform/validate"
	"github.com/nutrio/nutrio/internal/platform/websocket"
)

const version = "0.1.0"

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageDriver == "s3" {
		s3, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
			PublicBaseURL:   cfg.StoragePublicURL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	return storage.NewMemoryStore(cfg.StoragePublicURL), nil
}

// newMailer falls back to logging messages when no SMTP relay is configured.
func newMailer(cfg *config.Config, logger zerolog.Logger) mailer.Sender {
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("SMTP_HOST not set; outgoing mail is only logged")
		return mailer.NewLogSender(logger)
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// newEcho builds the server with global middleware and health routes.
func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	// Uploads get headroom over storage.MaxAvatarSize for multipart framing so
	// the avatar handler decides on file size itself.
	e.Use(middleware.BodyLimit("1M", "6M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role", "X-User-Email"},
	}))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.AuthJWTSecret),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		fallback := newLogger("")
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up storage")
	}
	mail := newMailer(cfg, logger)
	hub := websocket.NewHub(logger)
	tx := db.PoolTransactor{Pool: pool}

	e := newEcho(cfg, logger)
	e.GET("/health/db", db.HealthHandler(pool))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	functionsV1 := e.Group("/functions/v1", middleware.RateLimit(rateLimitCfg))

	// Domain services
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	hub.SetPatientAuthorizer(func(ctx context.Context, id uuid.UUID) bool {
		_, err := patientSvc.Authorize(ctx, id)
		return err == nil
	})
	notificationSvc := notification.NewService(notification.NewRepoPG(pool), hub)
	growthSvc := growth.NewService(growth.NewRepoPG(pool), patientSvc, tx, hub)
	mealSvc := meal.NewService(meal.NewRepoPG(pool), meal.NewPlanRepoPG(pool), patientSvc, notificationSvc, tx, hub)
	appointmentSvc := appointment.NewService(appointment.NewRepoPG(pool), patientSvc, hub)
	recommendationSvc := recommendation.NewService(recommendation.NewRepoPG(pool), patientSvc, notificationSvc)
	invitationSvc := invitation.NewService(invitation.NewRepoPG(pool), patientSvc, mail, tx, cfg.AppURL)

	aggregator := activity.NewAggregator(
		activity.PatientRoster{Patients: patientSvc},
		activity.MealAudits{Meals: mealSvc},
		activity.Weights{Growth: growthSvc},
		cfg.ActivityWindow,
	)
	activitySvc := activity.NewService(aggregator, logger)

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	growth.NewHandler(growthSvc).RegisterRoutes(apiV1)
	meal.NewHandler(mealSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	notification.NewHandler(notificationSvc).RegisterRoutes(apiV1)
	recommendation.NewHandler(recommendationSvc).RegisterRoutes(apiV1)
	invitation.NewHandler(invitationSvc).RegisterRoutes(apiV1)
	activity.NewHandler(activitySvc).RegisterRoutes(apiV1)
	storage.NewHandler(store).RegisterRoutes(apiV1, e.Group(""))

	// Serverless-style functions
	registry := functions.NewRegistry()
	registry.Register(invitation.FunctionName, invitation.Function(invitationSvc))
	functions.NewHandler(registry, logger).RegisterRoutes(functionsV1)

	// Realtime
	websocket.NewHandler(hub, cfg.CORSOrigins, logger).RegisterRoutes(e.Group("/realtime"))

	// Demo tooling
	gdb, err := demo.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open demo seeder")
	}
	demo.NewHandler(demo.NewSeeder(gdb, cfg.DemoEmailDomain, logger)).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
