package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/airbroker/api"
	"github.com/Domenick1991/airbroker/config"
	"github.com/Domenick1991/airbroker/internal/bootstrap"
	"github.com/Domenick1991/airbroker/internal/cache"
	"github.com/Domenick1991/airbroker/internal/kafka"
	"github.com/Domenick1991/airbroker/internal/logger"
	"github.com/Domenick1991/airbroker/internal/repository"
	"github.com/Domenick1991/airbroker/internal/service/booking"
	"github.com/Domenick1991/airbroker/internal/service/schedule"
	"github.com/Domenick1991/airbroker/internal/session"
	"github.com/Domenick1991/airbroker/internal/vendor"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("load config")
	}
	logger.Setup(cfg.Log, "airbroker")
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Schedule.CacheTTL)
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.Warn().Err(err).Msg("kafka unavailable, booking events will fail until it recovers")
	}

	vendorClient := vendor.NewClient(cfg.Vendor)
	tokens := session.NewCache(vendorClient)

	paginator := schedule.NewPaginator(tokens, vendorClient,
		schedule.WithMaxSteps(cfg.Schedule.MaxSteps),
		schedule.WithStepTimeout(cfg.Schedule.StepTimeout),
		schedule.WithStepInterval(cfg.Schedule.StepInterval),
		schedule.WithRunTimeout(cfg.Schedule.RunTimeout),
		schedule.WithMaxTransportFailures(cfg.Schedule.MaxTransportFailures),
	)
	scheduleService := schedule.NewScheduleService(paginator, redisCache)

	bookingRepo := repository.NewBookingRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		tokens,
		vendorClient,
		producer,
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithLocation(vendor.Location(cfg.Vendor.Timezone)),
	)

	router := api.NewRouter(cfg.HTTP, cfg.RateLimit, api.Handlers{
		Session:  api.NewSessionHandler(tokens),
		Schedule: api.NewScheduleHandler(scheduleService),
		Bookings: api.NewBookingHandler(bookingService),
	}, map[string]api.HealthCheck{
		"postgres": pool.Ping,
		"redis":    redisCache.Ping,
	})

	if err := bootstrap.Run(ctx, cfg.HTTP, router); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
