package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"machinelaw/internal/audit"
	"machinelaw/internal/delegation"
	"machinelaw/internal/engine"
	enginemetrics "machinelaw/internal/engine/metrics"
	jwttoken "machinelaw/internal/jwt_token"
	"machinelaw/internal/lawspec"
	"machinelaw/internal/machine"
	"machinelaw/internal/minimize"
	minimizemetrics "machinelaw/internal/minimize/metrics"
	"machinelaw/internal/platform/config"
	"machinelaw/internal/platform/httpserver"
	"machinelaw/internal/platform/logger"
	platformredis "machinelaw/internal/platform/redis"
	"machinelaw/internal/sensitivity"
	"machinelaw/internal/tracking"
	trackingmetrics "machinelaw/internal/tracking/metrics"
	httptransport "machinelaw/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hasher := tracking.NewPseudonymizer(cfg.HashSalt)

	// History store: postgres when configured, in-memory otherwise.
	var historyStore tracking.HistoryStore
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgStore := tracking.NewPostgresHistoryStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Error("migrate history store", "error", err)
			os.Exit(1)
		}
		historyStore = pgStore
		log.Info("history store ready", "backend", "postgres")
	} else {
		historyStore = tracking.NewInMemoryHistoryStore()
		log.Info("history store ready", "backend", "memory")
	}

	// Delegation context cache: redis when configured.
	var contextStore delegation.ContextStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		contextStore = delegation.NewRedisContextStore(redisClient.Client, hasher)
		log.Info("delegation cache ready", "backend", "redis")
	} else {
		contextStore = delegation.NewInMemoryContextStore()
		log.Info("delegation cache ready", "backend", "memory")
	}

	// Audit pipeline: kafka when configured, in-memory otherwise. Events flow
	// through a channel so delivery stays off the request path.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit sink ready", "backend", "kafka", "topic", cfg.Kafka.Topic)
	} else {
		sink = audit.NewInMemorySink()
		log.Info("audit sink ready", "backend", "memory")
	}

	inbox := audit.NewChannelSink(1024, log)
	worker := audit.NewWorker(sink, inbox.Inbox(), log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	catalog := machine.NewCatalog(lawspec.NewLoader(), log)
	if err := catalog.LoadDir(cfg.LawsDir); err != nil {
		log.Error("load law catalog", "dir", cfg.LawsDir, "error", err)
		os.Exit(1)
	}

	profiles := machine.NewProfileStore()
	if cfg.ProfilesFile != "" {
		n, err := profiles.LoadFile(cfg.ProfilesFile)
		if err != nil {
			log.Error("load profiles", "file", cfg.ProfilesFile, "error", err)
			os.Exit(1)
		}
		log.Info("profiles loaded", "file", cfg.ProfilesFile, "records", n)
	}
	classifier := sensitivity.NewDefaultClassifier(log)
	filter := minimize.NewFilter(profiles, classifier, minimizemetrics.New(), log)
	engMetrics := enginemetrics.New()
	evaluator := engine.New(profiles, engMetrics, log)
	tracker := tracking.NewAggregator(historyStore, hasher, trackingmetrics.New(), log)
	resolver := delegation.NewResolver(catalog, evaluator, contextStore, log)

	service := machine.NewService(
		catalog, classifier, filter, evaluator, engMetrics,
		tracker, resolver, hasher, audit.NewPublisher(inbox), log,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "machinelaw", "machinelaw-api")
	handler := httptransport.NewHandler(service, log)
	router := httptransport.NewRouter(handler, jwttoken.NewJWTServiceAdapter(jwtService), log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting machinelaw", "addr", cfg.Addr, "laws_dir", cfg.LawsDir)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("machinelaw stopped")
}
