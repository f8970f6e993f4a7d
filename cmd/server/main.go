package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/checkin-api/internal/auth"
	"github.com/gdg-garage/checkin-api/internal/checkin"
	"github.com/gdg-garage/checkin-api/internal/config"
	"github.com/gdg-garage/checkin-api/internal/credential"
	"github.com/gdg-garage/checkin-api/internal/database"
	"github.com/gdg-garage/checkin-api/internal/handlers"
	"github.com/gdg-garage/checkin-api/internal/metrics"
	"github.com/gdg-garage/checkin-api/internal/notifier"
	"github.com/gdg-garage/checkin-api/internal/registration"
	"github.com/gdg-garage/checkin-api/internal/report"
	"github.com/gdg-garage/checkin-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	events := store.NewEventStore(db)
	registrations := store.NewRegistrationStore(db)
	ledger := store.NewAttendanceLedger(db)
	m := metrics.New(prometheus.DefaultRegisterer)

	// Stats cache: redis when configured, in-process otherwise
	var cache report.Cache = report.NewMemoryCache()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		cache = report.NewRedisCache(redis.NewClient(opts), "checkin:")
	}
	aggregator := report.NewAggregator(registrations, ledger, events, cache, cfg.StatsCacheTTL)

	hub := notifier.NewHub(aggregator)
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			hub.Subscribe(notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID))
		}
	}

	registrationSvc := registration.NewService(events, registrations, credential.NewGenerator(cfg.RegistrationIDPrefix), hub, m)
	checkinSvc := checkin.NewService(registrations, ledger, hub, m)

	authHandler := auth.NewAuthHandler(cfg, db)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:         authHandler,
		Events:       handlers.NewEventHandler(events, hub, authHandler),
		Registration: handlers.NewRegistrationHandler(registrationSvc),
		CheckIn:      handlers.NewCheckInHandler(checkinSvc, authHandler),
		Reports:      handlers.NewReportHandler(aggregator, events, authHandler),
		ScannerKeys:  handlers.NewScannerKeyHandler(db, authHandler),
		Metrics:      promhttp.Handler(),
	}, cfg.StoreTimeout)

	// Start Server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
