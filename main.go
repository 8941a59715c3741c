package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lease-escrow/internal/audit"
	"lease-escrow/internal/auth"
	"lease-escrow/internal/eventing"
	"lease-escrow/internal/eventing/eventbus"
	eventingrepo "lease-escrow/internal/eventing/infrastructure/postgres"
	"lease-escrow/internal/idempotency"
	"lease-escrow/internal/lease/application"
	lease "lease-escrow/internal/lease/domain"
	"lease-escrow/internal/lease/infrastructure/memory"
	"lease-escrow/internal/lease/infrastructure/payout"
	"lease-escrow/internal/lease/infrastructure/postgres"
	leasehttp "lease-escrow/internal/lease/interfaces/http"
	leasemqtt "lease-escrow/internal/lease/interfaces/mqtt"
	"lease-escrow/internal/lease/interfaces/notify"
	"lease-escrow/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := buildLogger(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	policy, err := application.LoadConfig()
	if err != nil {
		logger.Fatal("lease policy", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db open", zap.Error(err))
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
	}
	metrics.Init(db, logger)

	bus := eventbus.NewInMemoryBus()
	registry := eventing.NewRegistry(application.Events()...)

	var (
		store     application.Store
		processed eventing.ProcessedStore
		auditLog  audit.Logger
	)
	if db != nil {
		dispatcher := eventing.NewDispatcher(bus, eventingrepo.NewOutboxStore(db), registry, eventingrepo.NewDLQStore(db))
		storeOpts := []postgres.Option{postgres.WithDispatcher(dispatcher), postgres.WithLogger(logger)}
		if cfg.PayoutURL != "" {
			rail, err := payout.NewClient(cfg.PayoutURL, cfg.PayoutToken, payout.WithLogger(logger))
			if err != nil {
				logger.Fatal("payout client", zap.Error(err))
			}
			storeOpts = append(storeOpts, postgres.WithTransfer(rail.Transfer))
		}
		pgStore, err := postgres.NewStore(db, storeOpts...)
		if err != nil {
			logger.Fatal("lease store", zap.Error(err))
		}
		if err := pgStore.EnsurePlatform(ctx, policy.Platform()); err != nil {
			logger.Fatal("seed platform", zap.Error(err))
		}
		go pgStore.RunPayouts(ctx, cfg.PayoutRetryInterval, 100)
		store = pgStore
		processed = eventingrepo.NewProcessedStore(db)
		auditLog = audit.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, state is kept in memory")
		outbox := eventing.NewMemoryOutbox()
		dispatcher := eventing.NewDispatcher(bus, outbox, registry, &eventing.MemoryDLQ{})
		relay := eventing.NewRelay(eventing.NewPublisher(outbox, bus, logger), dispatcher, logger)
		memStore, err := memory.NewStore(policy.Platform(), memory.WithEventSink(relay), memory.WithLogger(logger))
		if err != nil {
			logger.Fatal("lease store", zap.Error(err))
		}
		store = memStore
		processed = eventing.NewMemoryProcessedStore()
		auditLog = audit.NewMemoryLog()
	}

	if cfg.WebhookURL != "" {
		tpl, err := notify.NewTemplate(cfg.NotifyTemplate)
		if err != nil {
			logger.Fatal("notify template", zap.Error(err))
		}
		channel, err := notify.NewWebhookChannel(cfg.WebhookURL)
		if err != nil {
			logger.Fatal("notify channel", zap.Error(err))
		}
		notifier, err := notify.NewNotifier(channel, tpl,
			notify.WithLogger(logger),
			notify.WithDedupeWindow(cfg.NotifyDedupeWindow),
		)
		if err != nil {
			logger.Fatal("notifier", zap.Error(err))
		}
		notifier.Register(bus, processed)
	}

	service, err := application.NewService(store, application.WithPolicy(policy), application.WithLogger(logger))
	if err != nil {
		logger.Fatal("lease service", zap.Error(err))
	}
	reporter := lease.Identity(policy.Operator)

	idemStore, closeIdem := buildIdempotencyStore(ctx, cfg.RedisAddr, logger)
	defer closeIdem()

	authPolicy := auth.NewDefaultPolicy([]string{"/healthz", "/readyz", "/metrics"}, []string{"/ingest/"})
	routerCfg := leasehttp.RouterConfig{
		Auth:        auth.NewMiddleware([]byte(cfg.JWTSecret), authPolicy),
		Idempotency: idempotency.NewMiddleware(idemStore, cfg.IdempotencyTTL, logger),
		Metrics:     promhttp.Handler(),
		Logger:      logger,
	}
	if cfg.IngestSecret != "" {
		routerCfg.Ingest = auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)
	}
	if db != nil {
		routerCfg.Ready = func() error { return db.PingContext(context.Background()) }
	}
	handler := leasehttp.NewHandler(service,
		leasehttp.WithAudit(auditLog),
		leasehttp.WithLogger(logger),
		leasehttp.WithIngestReporter(reporter),
	)

	if cfg.MQTTBroker != "" {
		mqttCfg := leasemqtt.Config{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		}
		client, err := leasemqtt.Connect(mqttCfg)
		if err != nil {
			logger.Fatal("mqtt connect", zap.Error(err))
		}
		consumer := leasemqtt.NewConsumer(client, service, reporter, mqttCfg, logger)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mqtt consumer stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           leasehttp.NewRouter(handler, routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

func buildIdempotencyStore(ctx context.Context, addr string, logger *zap.Logger) (idempotency.Store, func()) {
	if addr == "" {
		return idempotency.NewMemoryStore(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.String("addr", addr), zap.Error(err))
	}
	return idempotency.NewRedisStore(client, ""), func() { _ = client.Close() }
}

func buildLogger(level, format string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	LogLevel            string
	LogFormat           string
	JWTSecret           string
	IngestSecret        string
	IngestSkewSeconds   int
	RedisAddr           string
	IdempotencyTTL      time.Duration
	WebhookURL          string
	NotifyTemplate      string
	NotifyDedupeWindow  time.Duration
	MQTTBroker          string
	MQTTClientID        string
	MQTTUsername        string
	MQTTPassword        string
	MQTTTopic           string
	PayoutURL           string
	PayoutToken         string
	PayoutRetryInterval time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:            getenvDefault("LOG_LEVEL", "info"),
		LogFormat:           getenvDefault("LOG_FORMAT", "json"),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:        getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds:   getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		RedisAddr:           getenvDefault("REDIS_ADDR", ""),
		IdempotencyTTL:      getenvDuration("IDEMPOTENCY_TTL", idempotency.DefaultTTL),
		WebhookURL:          getenvDefault("DISPUTE_WEBHOOK_URL", ""),
		NotifyTemplate:      getenvDefault("DISPUTE_NOTIFY_TEMPLATE", ""),
		NotifyDedupeWindow:  getenvDuration("DISPUTE_NOTIFY_DEDUP_WINDOW", 0),
		MQTTBroker:          getenvDefault("MQTT_BROKER", ""),
		MQTTClientID:        getenvDefault("MQTT_CLIENT_ID", "lease-escrow"),
		MQTTUsername:        getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:        getenvDefault("MQTT_PASSWORD", ""),
		MQTTTopic:           getenvDefault("MQTT_TOPIC", leasemqtt.DefaultTopic),
		PayoutURL:           getenvDefault("PAYOUT_URL", ""),
		PayoutToken:         getenvDefault("PAYOUT_TOKEN", ""),
		PayoutRetryInterval: getenvDuration("PAYOUT_RETRY_INTERVAL", 30*time.Second),
	}
	if cfg.JWTSecret == "" {
		_, _ = os.Stderr.WriteString("AUTH_JWT_SECRET is required\n")
		os.Exit(1)
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
