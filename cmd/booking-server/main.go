package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/solenne-institute/booking/internal/booking"
	"github.com/solenne-institute/booking/internal/handlers"
	"github.com/solenne-institute/booking/internal/notify"
	"github.com/solenne-institute/booking/internal/outbox"
	"github.com/solenne-institute/booking/internal/schedule"
	"github.com/solenne-institute/booking/internal/storage"
	"github.com/solenne-institute/booking/libs/config"
	"github.com/solenne-institute/booking/libs/db"
	"github.com/solenne-institute/booking/libs/httpx"
	"github.com/solenne-institute/booking/libs/kafkax"
	otelx "github.com/solenne-institute/booking/libs/otel"
	"github.com/solenne-institute/booking/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-server")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := config.Location("INSTITUTE_TIMEZONE", "Europe/Paris")
	if err != nil {
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	store, err := storage.New(pool, config.Int("SCHEMA_VERSION", storage.CurrentSchemaVersion))
	if err != nil {
		panic(err)
	}

	resolver := schedule.NewResolver(loc)
	outboxRepo := outbox.NewRepository(pool)
	engine := booking.NewEngine(store, resolver, outboxRepo, logger, booking.Config{
		Timeout: config.Duration("BOOKING_TIMEOUT", 10*time.Second),
	})

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	emailSender := notify.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", ""),
	)
	var smsSender notify.SMSSender
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		smsSender = notify.NewWebhookSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	} else {
		logger.Warn("sms webhook not configured, sms reminders are no-ops")
		smsSender = notify.NewNoopSender()
	}
	reminderWorker := notify.NewWorker(store, outboxRepo, emailSender, smsSender, logger, notify.WorkerConfig{
		Interval: config.Duration("REMINDER_SWEEP_EVERY", time.Minute),
		Lead:     config.Duration("REMINDER_LEAD", 24*time.Hour),
		Location: loc,
	})
	go reminderWorker.Run(ctx)

	rateLimitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	}
	var limited httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limited = httpx.NewRedisRateLimiter(rdb, rateLimitPerMinute, time.Minute, "booking").Middleware(logger, true)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		logger.Warn("redis not configured, rate limiting is per-instance only")
		limited = httpx.NewRateLimiter(rateLimitPerMinute, time.Minute).Middleware()
	}

	publicHandler := handlers.NewPublicHandler(engine, logger)
	apptHandler := handlers.NewAppointmentHandler(engine, store, logger)
	adminHandler := handlers.NewAdminHandler(store, resolver, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/api/v1/public/eligible-services", limited(http.HandlerFunc(publicHandler.EligibleServices)))
	mux.Handle("/api/v1/public/free-starts", limited(http.HandlerFunc(publicHandler.FreeStarts)))
	mux.Handle("/api/v1/public/book", limited(http.HandlerFunc(publicHandler.Book)))
	mux.HandleFunc("/api/v1/appointments", apptHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", apptHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", apptHandler.Reschedule)
	mux.HandleFunc("/api/v1/admin/services", adminHandler.Services)
	mux.HandleFunc("/api/v1/admin/practitioners", adminHandler.Practitioners)
	mux.HandleFunc("/api/v1/admin/links", adminHandler.Links)
	mux.HandleFunc("/api/v1/admin/rules", adminHandler.Rules)
	mux.HandleFunc("/api/v1/admin/time-off", adminHandler.TimeOff)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(config.Duration("HTTP_TIMEOUT", 30*time.Second)),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
