// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do/v2"

	"speeddating/app/controllers"
	"speeddating/app/middlewares"
	"speeddating/app/models"
	"speeddating/app/repository"
	"speeddating/app/routes"
	"speeddating/app/services"
	"speeddating/config"
	"speeddating/database"
	"speeddating/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	initLogger(cfg)

	if err := run(cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func initLogger(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger.With("app", config.AppName, "version", config.AppVersion))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, services.Settings{SchedulerInterval: cfg.SchedulerInterval})

	slog.Info("initializing stores", "store", cfg.StoreDriver, "feedback_store", cfg.FeedbackStore)
	stores, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			slog.Warn("failed to close stores", "error", err)
		}
	}()
	if stores.Memory != nil && cfg.IsDevelopment() {
		seedDemoProfiles(stores.Memory)
	}
	do.ProvideValue[repository.SessionRepository](injector, stores.Sessions)
	do.ProvideValue[repository.UserRepository](injector, stores.Users)
	do.ProvideValue[repository.FeedbackRepository](injector, stores.Feedback)

	checks := map[string]routes.HealthCheck{}
	for name, check := range stores.Checks() {
		checks[name] = routes.HealthCheck(check)
	}

	switch cfg.LockDriver {
	case config.LockDriverRedis:
		redisService, err := redis.NewService(ctx, redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer redisService.Close()
		do.ProvideValue[services.SessionLocker](injector, redis.NewLocker(redisService, cfg.SessionLockTTL))
		do.ProvideValue[services.StatsRecorder](injector, redis.NewStats(redisService))
		checks["redis"] = redisService.Ping
	default:
		slog.Warn("using in-process session locks, run a single instance only")
		do.ProvideValue[services.SessionLocker](injector, services.NewLocalLocker())
		do.ProvideValue[services.StatsRecorder](injector, services.NewMemoryStats())
	}

	socketHandler := config.NewSessionSocketHandler(stores.Sessions, cfg.AuthJWTSecret)
	do.ProvideValue[services.SessionNotifier](injector, socketHandler)

	services.RegisterDI(injector)

	sessionService := do.MustInvoke[*services.SessionService](injector)
	registrationService := do.MustInvoke[*services.RegistrationService](injector)
	feedbackService := do.MustInvoke[*services.FeedbackService](injector)
	cronService := do.MustInvoke[*services.CronService](injector)
	stats := do.MustInvoke[services.StatsRecorder](injector)

	app := newApp()

	// Socket.IO routes must be mounted before the regular routes
	socketHandler.SetupSocketRoutes(app)

	routes.SetupRoutes(app, routes.Handlers{
		Sessions:  controllers.NewSessionController(sessionService, registrationService),
		Feedback:  controllers.NewFeedbackController(feedbackService),
		System:    controllers.NewSystemController(stats, cronService),
		JWTSecret: cfg.AuthJWTSecret,
		Timeout:   cfg.RequestTimeout,
		Checks:    checks,
		Name:      config.AppName,
		Version:   config.AppVersion,
	})

	if cfg.SchedulerEnabled {
		cronService.Start(ctx)
		defer cronService.Stop()
	} else {
		slog.Info("session scheduler disabled")
	}

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.ServerPort, "socket_io", "/socket.io")
		listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.ServerPort))
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
		ServerHeader:  "Fiber",
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			errorCode := models.ErrorCodeInternal
			switch {
			case code == fiber.StatusNotFound:
				errorCode = models.ErrorCodeNotFound
			case code < fiber.StatusInternalServerError:
				errorCode = models.ErrorCodeValidation
			default:
				slog.Error("unhandled request error", "path", ctx.Path(), "error", err)
			}
			return ctx.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    errorCode,
				"message": err.Error(),
			})
		},
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middlewares.RequestLogger())
	return app
}

// seedDemoProfiles gives a development in-memory store users to register with
func seedDemoProfiles(store *repository.MemoryStore) {
	demo := []models.UserProfile{
		{ID: "demo-1", Name: "Alex", Interests: []string{"Travel", "Music"}},
		{ID: "demo-2", Name: "Sam", Interests: []string{"Travel", "Food"}},
		{ID: "demo-3", Name: "Robin", Interests: []string{"Music", "Sports"}},
		{ID: "demo-4", Name: "Jordan", Interests: []string{"Food", "Books"}},
	}
	for _, p := range demo {
		store.PutUserProfile(p)
	}
	slog.Info("seeded demo profiles", "count", len(demo))
}
