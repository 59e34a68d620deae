package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/cache"
	"github.com/seu-repo/ocpp-central/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/ocpp-central/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp"
	ocppv16 "github.com/seu-repo/ocpp-central/internal/adapter/ocpp/v16"
	ocppv201 "github.com/seu-repo/ocpp-central/internal/adapter/ocpp/v201"
	"github.com/seu-repo/ocpp-central/internal/adapter/queue"
	"github.com/seu-repo/ocpp-central/internal/adapter/storage/memory"
	"github.com/seu-repo/ocpp-central/internal/adapter/storage/postgres"
	"github.com/seu-repo/ocpp-central/internal/auth"
	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/billing"
	"github.com/seu-repo/ocpp-central/internal/service/chargepoint"
	"github.com/seu-repo/ocpp-central/internal/service/command"
	"github.com/seu-repo/ocpp-central/internal/service/monitor"
	"github.com/seu-repo/ocpp-central/internal/service/report"
	"github.com/seu-repo/ocpp-central/internal/service/session"
	"github.com/seu-repo/ocpp-central/pkg/config"
)

const serviceName = "ocpp-central"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting central system",
		zap.String("service", serviceName),
		zap.String("environment", cfg.App.Environment),
	)

	// Storage: postgres when a DSN is configured, in-memory otherwise.
	var repos ports.RepositoryProvider
	var dbClose func()
	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}
		repos = postgres.NewProvider(db, logger)
		dbClose = func() {
			if err := postgres.Close(db); err != nil {
				logger.Error("Error closing database", zap.Error(err))
			}
		}
	} else {
		logger.Warn("No database configured, using in-memory storage")
		repos = memory.NewProvider()
		dbClose = func() {}
	}
	defer dbClose()

	// Cache: redis when configured, local map otherwise.
	var idTagCache ports.Cache
	if cfg.Redis.URL != "" {
		idTagCache, err = cache.NewRedisCache(cfg.Redis.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	} else {
		idTagCache = cache.NewLocalCache(time.Minute, logger)
	}
	defer idTagCache.Close()

	// In-process event bus, optionally bridged to NATS.
	bus := events.NewBus(logger)
	defer bus.Close()

	var bridge *queue.Bridge
	if cfg.NATS.URL != "" {
		messageQueue, err := queue.NewNATSQueue(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer messageQueue.Close()
		bridge = queue.NewBridge(bus, messageQueue, logger)
		go bridge.Run()
	}

	// Core services.
	hasher := auth.NewBcryptHasher()
	billingService := billing.NewService(repos.Tariffs(), repos.Billing(), bus, logger)
	stationService := chargepoint.NewService(repos, bus, idTagCache, billingService, hasher, logger).
		WithHeartbeatInterval(cfg.OCPP.HeartbeatInterval)

	registry := session.NewRegistry(logger)
	sender := command.NewSender(registry, logger)
	if cfg.OCPP.CommandTimeout > 0 {
		sender = sender.WithTimeout(cfg.OCPP.CommandTimeout)
	}
	dispatcher := command.NewDispatcher(sender, registry, logger)
	stationService.SetRemoteStopper(dispatcher)

	reportStore := report.NewStore(logger)

	// Inbound OCPP adapters: 1.6, 2.0.1 and 2.1 share the station service.
	adapters := ocpp.NewAdapterRegistry()
	adapters.Register(ocppv16.NewAdapter(stationService, logger))
	adapters.Register(ocppv201.NewAdapter(domain.OcppV201, stationService, reportStore, logger))
	adapters.Register(ocppv201.NewAdapter(domain.OcppV21, stationService, reportStore, logger))

	ocppServer := ocpp.NewServer(registry, adapters, sender, stationService, stationService, bus, logger)
	ocppHTTP := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.OCPP.Port),
		Handler: ocppServer.Handler(),
	}
	go func() {
		logger.Info("Starting OCPP WebSocket server", zap.Int("port", cfg.OCPP.Port))
		if err := ocppHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("OCPP server failed", zap.Error(err))
		}
	}()

	// Background monitors.
	monitorCtx, cancelMonitors := context.WithCancel(context.Background())
	defer cancelMonitors()

	heartbeatMonitor := monitor.NewHeartbeatMonitor(repos.ChargePoints(), registry, bus, logger).
		WithConfig(monitor.HeartbeatConfig{
			CheckInterval:        cfg.Heartbeat.CheckInterval,
			OfflineThreshold:     cfg.Heartbeat.OfflineThreshold,
			UnavailableThreshold: cfg.Heartbeat.UnavailableThreshold,
		})
	go heartbeatMonitor.Run(monitorCtx)

	reservationExpiry := monitor.NewReservationExpiry(repos.Reservations(), bus, logger).
		WithInterval(cfg.Reservations.ExpiryInterval)
	go reservationExpiry.Run(monitorCtx)

	// REST API.
	app := newRESTApp(cfg, logger, restDeps{
		repos:      repos,
		cache:      idTagCache,
		registry:   registry,
		dispatcher: dispatcher,
		service:    stationService,
		billing:    billingService,
		heartbeats: heartbeatMonitor,
		reports:    reportStore,
	})
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := ocppHTTP.Shutdown(ctx); err != nil {
		logger.Error("OCPP server forced to shutdown", zap.Error(err))
	}
	// Shutdown does not touch hijacked WebSocket connections; closing the
	// sessions ends their writer goroutines and drops the sockets.
	registry.CloseAll()
	cancelMonitors()
	if bridge != nil {
		bridge.Stop()
	}

	logger.Info("Server exited gracefully")
}

type restDeps struct {
	repos      ports.RepositoryProvider
	cache      ports.Cache
	registry   *session.Registry
	dispatcher *command.Dispatcher
	service    *chargepoint.Service
	billing    ports.BillingService
	heartbeats *monitor.HeartbeatMonitor
	reports    *report.Store
}

func newRESTApp(cfg *config.Config, logger *zap.Logger, deps restDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}

	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		if err := deps.cache.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"cache":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"connected": deps.registry.Count(),
		})
	})
	app.Get("/metrics", func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	})

	v1 := app.Group("/api/v1")

	cpHandler := handlers.NewChargePointHandler(deps.service, deps.repos, deps.registry, logger)
	v1.Get("/charge-points", cpHandler.List)
	v1.Get("/charge-points/connected", cpHandler.ListConnected)
	v1.Get("/charge-points/:id", cpHandler.Get)
	v1.Delete("/charge-points/:id", cpHandler.Delete)
	v1.Put("/charge-points/:id/password", cpHandler.SetPassword)

	txHandler := handlers.NewTransactionHandler(deps.service, deps.billing, deps.repos, logger)
	v1.Get("/charge-points/:id/transactions", txHandler.List)
	v1.Get("/charge-points/:id/transactions/active", txHandler.ListActive)
	v1.Get("/transactions/:id", txHandler.Get)
	v1.Get("/transactions/:id/billing", txHandler.GetBilling)
	v1.Get("/transactions/:id/cost", txHandler.GetCostEstimate)
	v1.Post("/transactions/:id/force-stop", txHandler.ForceStop)

	tagHandler := handlers.NewIdTagHandler(deps.service, deps.repos.IdTags(), logger)
	v1.Get("/id-tags", tagHandler.List)
	v1.Post("/id-tags", tagHandler.Create)
	v1.Get("/id-tags/:tag", tagHandler.Get)
	v1.Patch("/id-tags/:tag", tagHandler.Update)
	v1.Delete("/id-tags/:tag", tagHandler.Delete)

	tariffHandler := handlers.NewTariffHandler(deps.repos.Tariffs(), logger)
	v1.Get("/tariffs", tariffHandler.List)
	v1.Post("/tariffs", tariffHandler.Create)
	v1.Get("/tariffs/default", tariffHandler.GetDefault)
	v1.Get("/tariffs/:id", tariffHandler.Get)
	v1.Put("/tariffs/:id", tariffHandler.Update)
	v1.Delete("/tariffs/:id", tariffHandler.Delete)

	monHandler := handlers.NewMonitoringHandler(deps.heartbeats, deps.reports, logger)
	v1.Get("/monitoring/heartbeats", monHandler.HeartbeatStatuses)
	v1.Get("/monitoring/heartbeats/:id", monHandler.HeartbeatStatus)
	v1.Get("/monitoring/connections", monHandler.ConnectionStats)
	v1.Get("/charge-points/:id/reports/latest", monHandler.LatestReport)
	v1.Get("/charge-points/:id/reports/latest/data", monHandler.ReportData)
	v1.Get("/charge-points/:id/reports/:request", monHandler.Report)

	// Command routes go through the circuit breaker: a flapping station
	// must not absorb the whole API worker pool.
	commands := fiber.Router(v1)
	if cfg.CircuitBreaker.Enabled {
		commands = v1.Group("", middleware.CircuitBreaker(logger))
	}

	cmdHandler := handlers.NewCommandHandler(deps.dispatcher, deps.service, logger)
	commands.Post("/charge-points/:id/commands/remote-start", cmdHandler.RemoteStart)
	commands.Post("/charge-points/:id/commands/remote-stop", cmdHandler.RemoteStop)
	commands.Post("/charge-points/:id/commands/reset", cmdHandler.Reset)
	commands.Post("/charge-points/:id/commands/change-availability", cmdHandler.ChangeAvailability)
	commands.Post("/charge-points/:id/commands/change-configuration", cmdHandler.ChangeConfiguration)
	commands.Get("/charge-points/:id/commands/configuration", cmdHandler.GetConfiguration)
	commands.Post("/charge-points/:id/commands/set-variables", cmdHandler.SetVariables)
	commands.Post("/charge-points/:id/commands/get-variables", cmdHandler.GetVariables)
	commands.Post("/charge-points/:id/commands/clear-cache", cmdHandler.ClearCache)
	commands.Post("/charge-points/:id/commands/data-transfer", cmdHandler.DataTransfer)
	commands.Post("/charge-points/:id/commands/trigger-message", cmdHandler.TriggerMessage)
	commands.Post("/charge-points/:id/commands/local-list", cmdHandler.SendLocalList)
	commands.Get("/charge-points/:id/commands/local-list-version", cmdHandler.GetLocalListVersion)
	commands.Post("/charge-points/:id/commands/update-firmware", cmdHandler.UpdateFirmware)
	commands.Post("/charge-points/:id/commands/get-diagnostics", cmdHandler.GetDiagnostics)
	commands.Post("/charge-points/:id/commands/get-log", cmdHandler.GetLog)
	commands.Post("/charge-points/:id/commands/base-report", cmdHandler.GetBaseReport)
	commands.Post("/charge-points/:id/connectors/:connector/unlock", cmdHandler.UnlockConnector)
	commands.Get("/charge-points/:id/connectors/:connector/composite-schedule", cmdHandler.GetCompositeSchedule)

	profileHandler := handlers.NewChargingProfileHandler(deps.dispatcher, deps.repos.ChargingProfiles(), logger)
	v1.Get("/charge-points/:id/charging-profiles", profileHandler.List)
	commands.Post("/charge-points/:id/charging-profiles", profileHandler.Set)
	commands.Delete("/charge-points/:id/charging-profiles", profileHandler.Clear)

	reservationHandler := handlers.NewReservationHandler(deps.dispatcher, deps.repos.Reservations(), logger)
	v1.Get("/charge-points/:id/reservations", reservationHandler.List)
	commands.Post("/charge-points/:id/reservations", reservationHandler.Create)
	commands.Delete("/reservations/:id", reservationHandler.Cancel)

	return app
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
