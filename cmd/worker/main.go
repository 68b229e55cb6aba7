// Command worker runs the bulk-import workers on their own, for deployments
// that scale them apart from the API (set RUN_IMPORT_WORKERS=false there).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"petshop-backend/internal/config"
	"petshop-backend/internal/db"
	"petshop-backend/internal/importer"
	"petshop-backend/internal/logging"
	"petshop-backend/internal/queue"
	"petshop-backend/internal/repository"
	"petshop-backend/internal/service"
	"petshop-backend/internal/telemetry"
	"petshop-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("", "info", "petshop-worker").Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "petshop-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "petshop-worker",
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Error("failed to init tracing", "err", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect redis", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}

	jobs := queue.NewRedisQueue(rdb, "appointments.import", cfg.ImportRetention).WithLease(cfg.ImportLease)
	if n, err := jobs.RequeueStalled(ctx); err != nil {
		logger.Warn("requeue stalled imports", "err", err)
	} else if n > 0 {
		logger.Info("requeued stalled imports", "count", n)
	}

	// metrics only; the worker serves no API
	metricsSrv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener stopped", "err", err)
		}
	}()

	pool := worker.Pool{
		Queue: jobs,
		Processor: importer.Pipeline{
			Files:        repository.FileRepository{DB: pg},
			Services:     repository.ServiceRepository{DB: pg},
			Appointments: repository.AppointmentRepository{DB: pg},
			UoW:          repository.Store{DB: pg},
			Validator:    service.AppointmentValidator{V: service.NewValidator(), PhoneOptional: true},
			Logger:       logger,
		},
		Workers:     cfg.ImportWorkers,
		PollTimeout: 2 * time.Second,
		Logger:      logger,
	}
	logger.Info("import workers starting", "workers", cfg.ImportWorkers)
	pool.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info("import workers stopped")
}
