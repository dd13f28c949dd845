package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/config"
	"github.com/noyon-ahamed/are-you-okay/internal/database"
	"github.com/noyon-ahamed/are-you-okay/internal/handler"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/mqtt"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"
	"github.com/noyon-ahamed/are-you-okay/internal/scheduler"
	"github.com/noyon-ahamed/are-you-okay/internal/server"
	"github.com/noyon-ahamed/are-you-okay/internal/service"
	"github.com/noyon-ahamed/are-you-okay/internal/usgs"
	"github.com/noyon-ahamed/are-you-okay/internal/websocket"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		// Fallback since the main logger isn't ready yet
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Mode:        cfg.Logging.Mode,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Are You Okay API Server")

	// 3. Database Connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Info("Database connected successfully")

	ctx := context.Background()
	if err := db.Health(ctx); err != nil {
		log.Fatal("Database health check failed: %v", err)
	}

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db.DB)
	contactRepo := repository.NewContactRepository(db.DB)
	checkInRepo := repository.NewCheckInRepository(db.DB)
	alertRepo := repository.NewAlertRepository(db.DB)
	quakeRepo := repository.NewEarthquakeRepository(db.DB)

	// 5. MQTT Client for device push (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}
		defer mqttClient.Disconnect()
	}

	// 6. Notification Channels
	channels := buildChannels(cfg, mqttClient, log)

	// 7. WebSocket Hub
	hub := websocket.NewHub(log)
	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	go hub.Run(hubCtx)

	// 8. Services
	dispatcher := service.NewDispatchService(alertRepo, channels,
		cfg.Safety.DispatchWorkers, cfg.Safety.ProviderTimeout, log)

	authService := service.NewAuthService(userRepo, cfg.Security.JWTSecret, cfg.Security.JWTExpirationHours)
	checkInService := service.NewCheckInService(userRepo, checkInRepo, log)
	contactService := service.NewContactService(userRepo, contactRepo, channels.SMS,
		cfg.Safety.FreeContactLimit, cfg.Safety.PremiumContactLimit, log)
	emergencyService := service.NewEmergencyService(userRepo, contactRepo, alertRepo,
		dispatcher, hub, cfg.Safety.DedupWindow, log)

	checkInMonitor := service.NewCheckInMonitorService(userRepo, contactRepo, alertRepo,
		dispatcher, hub, cfg.Safety.GracePeriod, cfg.Safety.DedupWindow, log)

	feed := usgs.NewClient(cfg.Safety.QuakeFeedURL, cfg.Safety.MinMagnitude,
		cfg.Safety.QuakeLookback, cfg.Safety.QuakeFeedTimeout, log)
	quakeMonitor, err := service.NewEarthquakeMonitorService(feed, userRepo, quakeRepo,
		dispatcher, hub, cfg.Safety.RecentEventCache, cfg.Safety.AlertRadiusKm, log)
	if err != nil {
		log.Fatal("Failed to create earthquake monitor: %v", err)
	}

	// 9. Background Jobs
	sched := scheduler.New(log)
	mustSchedule(sched, cfg.Safety.ScanInterval, "checkin-scan", checkInMonitor.Run, log)
	mustSchedule(sched, cfg.Safety.QuakePollInterval, "quake-poll", quakeMonitor.Run, log)
	mustSchedule(sched, cfg.Safety.CleanupInterval, "alert-cleanup", func(ctx context.Context) {
		emergencyService.CleanUpTask(ctx, time.Duration(cfg.Safety.AlertRetentionDays)*24*time.Hour)
	}, log)
	sched.Start()

	// 10. Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	checkInHandler := handler.NewCheckInHandler(checkInService, log)
	contactHandler := handler.NewContactHandler(contactService, log)
	emergencyHandler := handler.NewEmergencyHandler(emergencyService, cfg.Security.SOSPerMinute, log)
	earthquakeHandler := handler.NewEarthquakeHandler(quakeRepo, userRepo, quakeMonitor,
		cfg.Safety.AdvisoryRadiusKm, log)
	wsHandler := handler.NewWSHandler(hub, log)
	healthHandler := handler.NewHealthHandler(db, mqttClient, log)

	// 11. HTTP Server
	srv := server.New(cfg, log)
	srv.RegisterHandlers(authService, authHandler, checkInHandler, contactHandler,
		emergencyHandler, earthquakeHandler, wsHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 12. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	sched.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	// Let in-flight contact notifications finish before the process exits.
	dispatcher.Drain(cfg.Server.ShutdownTimeout)

	log.Info("Shutdown complete")
}

// buildChannels assembles one sender per delivery channel. Channels without
// provider credentials fall back to logging mocks so development setups work
// out of the box.
func buildChannels(cfg *config.Config, mqttClient *mqtt.Client, log *logger.Logger) notification.Channels {
	channels := notification.Channels{
		SMS:   notification.NewMockSender("sms", log),
		Call:  notification.NewMockSender("call", log),
		Email: notification.NewMockSender("email", log),
		Push:  notification.NewMockSender("push", log),
	}

	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		channels.SMS = notification.NewTwilioSMS(cfg.Twilio, cfg.Safety.ProviderTimeout, log)
		channels.Call = notification.NewTwilioVoice(cfg.Twilio, cfg.Safety.ProviderTimeout, log)
		log.Info("Twilio SMS and voice channels enabled")
	} else {
		log.Warn("Twilio credentials missing, SMS and voice channels are mocked")
	}

	if cfg.Email.APIKey != "" {
		channels.Email = notification.NewAPIEmail(cfg.Email, cfg.Safety.ProviderTimeout, log)
		log.Info("Email channel enabled")
	} else {
		log.Warn("Email API key missing, email channel is mocked")
	}

	if mqttClient != nil {
		channels.Push = notification.NewMQTTPush(mqttClient, cfg.MQTT.TopicPrefix)
		log.Info("Push channel enabled over MQTT")
	} else {
		log.Warn("MQTT disabled, push channel is mocked")
	}

	return channels
}

func mustSchedule(sched *scheduler.Scheduler, spec, name string, job func(ctx context.Context), log *logger.Logger) {
	if err := sched.Add(spec, name, job); err != nil {
		log.Fatal("Failed to schedule %s: %v", name, err)
	}
}
