package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caresync/caresync/internal/config"
	"github.com/caresync/caresync/internal/domain/billing"
	"github.com/caresync/caresync/internal/domain/clinic"
	"github.com/caresync/caresync/internal/domain/insight"
	"github.com/caresync/caresync/internal/domain/notification"
	"github.com/caresync/caresync/internal/domain/patient"
	"github.com/caresync/caresync/internal/domain/reminder"
	"github.com/caresync/caresync/internal/domain/response"
	"github.com/caresync/caresync/internal/platform/ai"
	"github.com/caresync/caresync/internal/platform/auth"
	"github.com/caresync/caresync/internal/platform/db"
	"github.com/caresync/caresync/internal/platform/middleware"
	"github.com/caresync/caresync/internal/platform/notify"
	"github.com/caresync/caresync/internal/platform/paystack"
	"github.com/caresync/caresync/internal/platform/scheduler"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caresync-server",
		Short: "CareSync AI follow-up API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Provider clients. Missing credentials disable a channel rather than
	// blocking startup; sends over a disabled channel land in the
	// notification log as failures.
	templates := notify.NewTemplateEngine()

	var emailSender notify.EmailSender = notify.DisabledSender{Provider: "email"}
	if cfg.ResendAPIKey != "" {
		emailSender = notify.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		logger.Warn().Msg("RESEND_API_KEY not set; email delivery is disabled")
	}

	var smsSender notify.SMSSender = notify.DisabledSender{Provider: "sms"}
	var whatsappSender notify.WhatsAppSender = notify.DisabledSender{Provider: "whatsapp"}
	if twilioSender, err := notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber); err == nil {
		smsSender = twilioSender
		whatsappSender = twilioSender
	} else {
		logger.Warn().Err(err).Msg("Twilio not configured; SMS and WhatsApp delivery are disabled")
	}

	var classifier ai.Classifier
	if cfg.OpenAIAPIKey != "" {
		classifier = ai.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set; responses get the fallback analysis")
		classifier = ai.Disabled{}
	}

	paystackClient := paystack.NewClient(cfg.PaystackSecretKey)

	// Repositories and services.
	clinicSvc := clinic.NewService(clinic.NewRepoPG(pool))
	patientSvc := patient.NewService(patient.NewRepoPG(pool), clinicSvc)
	reminderSvc := reminder.NewService(reminder.NewRepoPG(pool), patientSvc, clinicSvc)
	notificationSvc := notification.NewService(notification.NewRepoPG(pool))
	insightSvc := insight.NewService(insight.NewRepoPG(pool))
	responseSvc := response.NewService(response.NewRepoPG(pool), reminderSvc, classifier, logger)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), paystackClient, clinicSvc, billing.Config{
		USDToNGN:    cfg.USDToNGN,
		CallbackURL: strings.TrimRight(cfg.ClientURL, "/") + "/subscription/callback",
	}, logger)

	// Cross-domain wiring.
	clinicSvc.SetStatsSources(patientSvc, reminderSvc, responseSvc)
	notificationSvc.SetSenders(clinicSvc, emailSender, smsSender, whatsappSender, templates)
	reminderSvc.ConfigureDispatch(reminder.DispatchConfig{
		Email:     emailSender,
		SMS:       smsSender,
		WhatsApp:  whatsappSender,
		Templates: templates,
		Logs:      notificationSvc,
		ClientURL: cfg.ClientURL,
		Logger:    logger,
	})
	responseSvc.SetInsightSink(insightSvc)
	insightSvc.SetResponseSource(responseSvc)
	billingSvc.SetUsageSources(patientSvc, reminderSvc)

	// Echo server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(60 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// No session: the patient response portal, the plan catalog and the
	// payment webhook.
	public := api.Group("")

	var authed, scoped *echo.Group
	if cfg.SupabaseJWTSecret != "" {
		authed = api.Group("", auth.JWTMiddleware(auth.JWTConfig{Secret: []byte(cfg.SupabaseJWTSecret)}))
		scoped = authed.Group("", auth.RequireClinic(clinicSvc))
	} else {
		// DevAuthMiddleware stamps every request with the dev clinic, so
		// the RequireClinic email lookup is skipped.
		authed = api.Group("", auth.DevAuthMiddleware(cfg.DevClinicID))
		scoped = authed.Group("")
	}

	clinicHandler := clinic.NewHandler(clinicSvc)
	clinicHandler.RegisterRoutes(authed, scoped)
	patient.NewHandler(patientSvc).RegisterRoutes(scoped)
	reminder.NewHandler(reminderSvc).RegisterRoutes(scoped)
	notification.NewHandler(notificationSvc).RegisterRoutes(scoped)
	insight.NewHandler(insightSvc).RegisterRoutes(scoped)

	responseHandler := response.NewHandler(responseSvc)
	responseHandler.RegisterRoutes(scoped)
	responseHandler.RegisterPublicRoutes(public)

	billingHandler := billing.NewHandler(billingSvc)
	billingHandler.RegisterRoutes(scoped)
	billingHandler.RegisterPublicRoutes(public)

	// Background jobs.
	sched := scheduler.New(logger)
	jobs := scheduler.NewJobs(
		reminderSvc, clinicSvc, insightSvc, patientSvc, notificationSvc,
		emailSender, templates, logger,
	)
	if err := jobs.Register(sched, scheduler.Specs{
		Dispatch:  cfg.DispatchCron,
		Summaries: cfg.SummaryCron,
		Overdue:   cfg.OverdueCron,
		Cleanup:   cfg.LogCleanupCron,
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to register scheduled jobs")
	}
	sched.Start()

	// Serve until interrupted.
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		errCh <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	<-sched.Stop().Done()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
