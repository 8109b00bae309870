// Package app wires the gateway's collaborators into a runnable process:
// config, logging, metrics, the auth/crypto/audit/queue/gateway packages,
// and the HTTP server that exposes them (spec §2, §5).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tacedge/gateway/internal/audit"
	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/clock"
	"github.com/tacedge/gateway/internal/config"
	"github.com/tacedge/gateway/internal/crypto"
	"github.com/tacedge/gateway/internal/gateway"
	"github.com/tacedge/gateway/internal/httpserver"
	"github.com/tacedge/gateway/internal/platform"
	"github.com/tacedge/gateway/internal/queue"
	"github.com/tacedge/gateway/internal/telemetry"
)

// drainIntervalFallback is used if Config.DrainInterval fails to parse.
const drainIntervalFallback = 2 * time.Second

// errUnreachable is returned by unreachableBackend's every method: the stub
// stands in for a primary whose initial dial failed, so queue.Store treats
// it as permanently down until Recover's next ping succeeds.
var errUnreachable = errors.New("queue primary backend not configured or unreachable")

// Run reads cfg, wires every collaborator, and starts the requested mode:
// "api" serves the HTTP surface and runs the drain worker in-process;
// "worker" runs only the drain worker loop, for operators who split the
// API and drain worker into separate deployments.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting tactical-edge gateway",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
		"crypto_degrade_allowed", cfg.CryptoDegradeAllowed,
	)

	clk := clock.Real{}

	tokenValidator := auth.NewValidator(cfg.JWTSecret)
	cryptoEngine := crypto.NewEngine(cfg.EncryptionKey)

	auditWriter := audit.NewWriter(cfg.AuditStoragePath, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	nodes := gateway.NewStaticRegistry(cfg.ConnectedNodes)
	statusStore := gateway.NewStore(clk)

	queuePrimary, queueFallback, closeRedis := buildQueueBackends(ctx, cfg, logger)
	if closeRedis != nil {
		defer closeRedis()
	}
	queueStore := queue.NewStore(ctx, queuePrimary, queueFallback, logger)

	pipeline := gateway.NewPipeline(statusStore, nodes, cryptoEngine, auditWriter, queueStore, clk, logger, cfg.CryptoDegradeAllowed)

	drainInterval, err := time.ParseDuration(cfg.DrainInterval)
	if err != nil {
		logger.Warn("invalid DRAIN_INTERVAL, using fallback", "value", cfg.DrainInterval, "fallback", drainIntervalFallback)
		drainInterval = drainIntervalFallback
	}
	worker := queue.NewWorker(queueStore, pipeline, clk, auditWriter, logger, drainInterval)

	switch cfg.Mode {
	case "api":
		go worker.Run(ctx)
		return runAPI(ctx, cfg, logger, tokenValidator, cryptoEngine, auditWriter, queueStore, worker, pipeline)
	case "worker":
		worker.Run(ctx)
		return nil
	default:
		return fmt.Errorf("unknown mode: %s (want api or worker)", cfg.Mode)
	}
}

// buildQueueBackends wires the Redis-backed primary and in-memory fallback
// queue backends. If Redis fails to connect at startup, the primary is left
// as a stub that always errors, so queue.NewStore's own ping falls back to
// memory immediately (spec §4.2: "in-memory fallback used whenever the
// primary's ping fails on startup or during operation").
func buildQueueBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (primary, fallback queue.Backend, closeFn func()) {
	fallback = queue.NewMemoryBackend()

	rdb, err := platform.NewRedisClient(ctx, cfg.QueueStoreURL)
	if err != nil {
		logger.Warn("queue primary (redis) unreachable at startup, using in-memory fallback", "error", err)
		return unreachableBackend{}, fallback, nil
	}

	primary = queue.NewRedisBackend(rdb)
	return primary, fallback, func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis client", "error", err)
		}
	}
}

// unreachableBackend stands in for a primary that could not be dialed at
// process startup.
type unreachableBackend struct{}

func (unreachableBackend) Enqueue(context.Context, queue.Entry) (int, error) {
	return 0, errUnreachable
}
func (unreachableBackend) Requeue(context.Context, queue.Entry) (int, error) {
	return 0, errUnreachable
}
func (unreachableBackend) Dequeue(context.Context, queue.Precedence) (queue.Entry, bool, error) {
	return queue.Entry{}, false, errUnreachable
}
func (unreachableBackend) Depth(context.Context, queue.Precedence) (int, error) {
	return 0, errUnreachable
}
func (unreachableBackend) OldestCreatedAt(context.Context, queue.Precedence) (time.Time, bool, error) {
	return time.Time{}, false, errUnreachable
}
func (unreachableBackend) Ping(context.Context) error           { return errUnreachable }
func (unreachableBackend) Forget(context.Context, string) error { return nil }

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	tokenValidator *auth.Validator,
	cryptoEngine *crypto.Engine,
	auditWriter *audit.Writer,
	queueStore *queue.Store,
	worker *queue.Worker,
	pipeline *gateway.Pipeline,
) error {
	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	checks := map[string]httpserver.ReadyCheck{
		"queue": queueStore.Ping,
	}

	srv := httpserver.NewServer(cfg, logger, metricsReg, auth.Authenticate(tokenValidator, logger), checks)

	// gateway.Handler and crypto.Handler each define their own full leaf
	// paths ("/messages", "/nodes" and "/encrypt", "/decrypt"), so both sit
	// at the API router's root; queue and audit get their own prefix. chi
	// allows only one Mount per pattern, so the gateway routes are mounted
	// at "/" and the two crypto paths are registered individually.
	srv.APIRouter.Mount("/", gateway.NewHandler(pipeline, logger).Routes())
	cryptoRoutes := crypto.NewHandler(cryptoEngine).Routes()
	srv.APIRouter.Handle("/encrypt", cryptoRoutes)
	srv.APIRouter.Handle("/decrypt", cryptoRoutes)
	srv.APIRouter.Mount("/queue", queue.NewHandler(queueStore, worker, clock.Real{}, logger).Routes())
	srv.APIRouter.Mount("/audit", audit.NewHandler(auditWriter, logger).Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
