package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	actionhandler "qara/internal/actions/handler"
	actionservice "qara/internal/actions/service"
	actionstore "qara/internal/actions/store"
	"qara/internal/aggregation"
	audithandler "qara/internal/audit/handler"
	auditmetrics "qara/internal/audit/metrics"
	auditservice "qara/internal/audit/service"
	auditstore "qara/internal/audit/store"
	"qara/internal/autosave"
	"qara/internal/catalog"
	"qara/internal/events"
	"qara/internal/platform/config"
	"qara/internal/platform/httpserver"
	"qara/internal/platform/logger"
	"qara/internal/platform/metrics"
	"qara/internal/platform/postgres"
	"qara/internal/platform/redis"
	"qara/internal/platform/tracing"
	qualificationhandler "qara/internal/qualification/handler"
	qualificationservice "qara/internal/qualification/service"
	qualificationstore "qara/internal/qualification/store"
	responsehandler "qara/internal/responses/handler"
	responsemetrics "qara/internal/responses/metrics"
	responseservice "qara/internal/responses/service"
	"qara/internal/responses/store/local"
	"qara/internal/responses/store/remote"
	httptransport "qara/internal/transport/http"
	"qara/pkg/domain"
)

// main wires the stores, services and handlers, then serves until SIGINT or
// SIGTERM. Unset backend URLs fall back to in-memory implementations.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.IsProduction())
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// responseTable is the remote response store as used by both the save path
// and the aggregation loader.
type responseTable interface {
	responseservice.RemoteStore
	aggregation.ResponseSource
}

type actionStore interface {
	actionservice.Store
	aggregation.ActionSource
	DeleteAudit(ctx context.Context, auditID domain.AuditID) error
}

// cascadeFunc adapts a function to auditservice.Cascade.
type cascadeFunc func(ctx context.Context, id domain.AuditID) error

func (f cascadeFunc) DeleteAudit(ctx context.Context, id domain.AuditID) error { return f(ctx, id) }

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	tp := tracing.Init(cfg.Tracing)
	closers = append(closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	})

	// Stores
	var (
		audits         auditservice.Store         = auditstore.NewInMemory()
		actions        actionStore                = actionstore.NewInMemory()
		profiles       qualificationservice.Store = qualificationstore.NewInMemory()
		responsesTable responseTable              = remote.NewInMemory()
	)
	if cfg.Postgres.URL != "" {
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return err
		}
		closers = append(closers, pool.Close)
		checks["postgres"] = pool.Ping
		audits = auditstore.NewPostgres(pool)
		actions = actionstore.NewPostgres(pool)
		profiles = qualificationstore.NewPostgres(pool)
		responsesTable = remote.NewPostgres(pool)
		log.Info("using postgres stores", "max_conns", cfg.Postgres.MaxConns)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var drafts responseservice.LocalCache = local.NewMemory()
	if cfg.Drafts.CacheDir != "" {
		bc, err := local.OpenBadger(cfg.Drafts.CacheDir, log)
		if err != nil {
			return err
		}
		closers = append(closers, func() {
			if err := bc.Close(); err != nil {
				log.Warn("draft cache close failed", "error", err)
			}
		})
		drafts = bc
		log.Info("draft cache on disk", "dir", cfg.Drafts.CacheDir)
	}

	var publisher interface {
		Publish(ctx context.Context, e events.Event) error
		Close() error
	} = events.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic,
			events.WithLogger(log),
			events.WithMetrics(events.NewMetrics()),
		)
		if err != nil {
			return err
		}
		checks["kafka"] = kp.Ping
		publisher = kp
	}
	closers = append(closers, func() { _ = publisher.Close() })

	// Catalog
	questions, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	cat, err := catalog.New(questions)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "path", cfg.Catalog.Path, "questions", len(questions))
	if cfg.Catalog.Watch {
		w, err := catalog.NewWatcher(cat, cfg.Catalog.Path, log)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = w.Close() })
		go w.Run(ctx)
	}

	// Services
	qualificationSvc := qualificationservice.New(profiles, qualificationservice.WithLogger(log))

	var aggCache aggregation.Cache = aggregation.NewMemoryCache(cfg.Aggregation.CacheTTL)
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		closers = append(closers, func() { _ = rc.Close() })
		checks["redis"] = rc.Health
		aggCache = aggregation.NewRedisCache(rc.Client, cfg.Aggregation.CacheTTL)
	}

	aggSvc := aggregation.NewService(
		aggregation.NewLoader(audits, responsesTable, actions, cat),
		aggregation.WithLogger(log),
		aggregation.WithMetrics(aggregation.NewMetrics()),
		aggregation.WithCache(aggCache),
	)

	// The response store gates on the audit service, which in turn cascades
	// deletes into the response store.
	var responses *responseservice.Store
	auditSvc := auditservice.New(audits, cat, qualificationSvc,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditmetrics.New()),
		auditservice.WithPublisher(publisher),
		auditservice.WithInvalidator(aggSvc),
		auditservice.WithCascade(
			cascadeFunc(func(ctx context.Context, id domain.AuditID) error { return responses.DeleteAudit(ctx, id) }),
			actions,
		),
	)

	responses = responseservice.New(responsesTable, drafts, auditSvc,
		responseservice.WithLogger(log),
		responseservice.WithMetrics(responsemetrics.New()),
		responseservice.WithPublisher(publisher),
		responseservice.WithInvalidator(aggSvc),
		responseservice.WithWriteTimeout(cfg.Responses.WriteTimeout),
	)
	scorer := auditservice.NewScorer(auditSvc, cat, responses, log)
	actionSvc := actionservice.New(actions, auditSvc,
		actionservice.WithLogger(log),
		actionservice.WithPublisher(publisher),
		actionservice.WithInvalidator(aggSvc),
	)
	sessions := autosave.NewRegistry(responses, cfg.Responses.AutosaveDebounce, log)

	var bg sync.WaitGroup
	retrier := responseservice.NewRetrier(responses, cfg.Responses.RetryInterval, cfg.Responses.RetryMaxElapsed, log)
	bg.Add(1)
	go func() {
		defer bg.Done()
		retrier.Run(ctx)
	}()

	// HTTP
	router := httptransport.Router{
		Logger:  log,
		Metrics: metrics.New(),
		Checks:  checks,
		Handlers: []httptransport.Registrar{
			qualificationhandler.New(qualificationSvc, log),
			audithandler.New(auditSvc, scorer, log),
			actionhandler.New(actionSvc, log),
			responsehandler.New(responses, auditSvc, log),
			autosave.NewHandler(sessions, auditSvc, log),
			aggregation.NewHandler(aggSvc, log),
		},
	}
	srv := httpserver.New(ctx, cfg.Server, router.Handler(), log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting qara", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	// Open sessions flush what they hold before the stores close.
	sessions.CloseAll(shutdownCtx)
	stop()
	bg.Wait()
	if responses.CacheDegraded() {
		log.Warn("draft cache ran degraded, unsaved drafts lived in memory only")
	}
	return nil
}
