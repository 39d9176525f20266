package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"formflow/internal/audit"
	"formflow/internal/form"
	"formflow/internal/form/handler"
	formmetrics "formflow/internal/form/metrics"
	"formflow/internal/form/service"
	"formflow/internal/form/store"
	"formflow/internal/jwt_token"
	"formflow/internal/platform/config"
	"formflow/internal/platform/httpserver"
	"formflow/internal/platform/logger"
	platformmetrics "formflow/internal/platform/metrics"
	"formflow/internal/platform/ratelimit"
	platformredis "formflow/internal/platform/redis"
	"formflow/internal/riskprofile"
	transporthttp "formflow/internal/transport/http"
)

const auditInboxSize = 256

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "formflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := form.NewRegistry()
	if err := registry.Register(riskprofile.Definition()); err != nil {
		return fmt.Errorf("register risk profile form: %w", err)
	}

	records, db, err := newRecordStore(cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	sessions, redisClient, err := newSessionStore(cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	sinks := []audit.Sink{audit.NewMemoryStore()}
	if db != nil {
		sinks = append(sinks, audit.NewPostgresStore(db))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka audit publisher: %w", err)
		}
		defer kafka.Close()
		sinks = append(sinks, kafka)
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	}

	inbox := make(chan audit.Event, auditInboxSize)
	auditor := audit.NewPublisher(inbox, log)
	worker := audit.NewWorker(inbox, log, sinks...)

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "formflow")
	svc := service.New(registry, records, sessions, tokens, auditor, formmetrics.New(), log)

	var openLimit *ratelimit.Limiter
	if cfg.OpenSessionsPerMinute > 0 {
		openLimit = ratelimit.New(cfg.OpenSessionsPerMinute, time.Minute)
	}

	ready := make(map[string]func(context.Context) error)
	if db != nil {
		ready["postgres"] = db.PingContext
	}
	if redisClient != nil {
		ready["redis"] = redisClient.Health
	}

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		Logger:      log,
		Metrics:     platformmetrics.New(),
		FormHandler: handler.New(svc, registry, tokens, openLimit, log),
		ReadyChecks: ready,
	})
	server := httpserver.New(cfg.Addr, cfg.HTTP, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "forms", len(registry.Types()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// A signal cancels the group's context; that is a clean exit, not a
	// failure.
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRecordStore(cfg config.Server, log *slog.Logger) (store.RecordStore, *sql.DB, error) {
	if cfg.Postgres.URL == "" {
		log.Warn("no postgres configured, records are in-memory only")
		return store.NewInMemoryRecordStore(), nil, nil
	}
	db, err := sql.Open("pgx", cfg.Postgres.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store.NewPostgresRecordStore(db), db, nil
}

func newSessionStore(cfg config.Server, log *slog.Logger) (store.SessionStore, *platformredis.Client, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		log.Warn("no redis configured, sessions are in-memory only")
		return store.NewInMemorySessionStore(), nil, nil
	}
	return store.NewRedisSessionStore(client, cfg.SessionTTL), client, nil
}
