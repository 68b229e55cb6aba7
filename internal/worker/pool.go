// Package worker runs the import consumers.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/metrics"
)

// Queue is the consumer side of the import queue.
type Queue interface {
	Reserve(ctx context.Context, timeout time.Duration) (*domain.ImportJob, error)
	Progress(ctx context.Context, id string, pct int) error
	Complete(ctx context.Context, id string, result domain.ImportResult) error
	Fail(ctx context.Context, job domain.ImportJob, cause error) (bool, error)
}

type Processor interface {
	Process(ctx context.Context, job domain.ImportJob, progress func(pct int)) (domain.ImportResult, error)
	Finish(ctx context.Context, job domain.ImportJob)
}

type Pool struct {
	Queue     Queue
	Processor Processor
	Workers   int
	// PollTimeout bounds one blocking reserve so shutdown is noticed.
	PollTimeout time.Duration
	Logger      *slog.Logger
}

// Run starts the workers and blocks until ctx is done and every in-flight
// job has been settled.
func (p Pool) Run(ctx context.Context) {
	n := p.Workers
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	p.Logger.Info("import workers started", "workers", n)
	wg.Wait()
	p.Logger.Info("import workers stopped")
}

func (p Pool) loop(ctx context.Context, worker int) {
	timeout := p.PollTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.Queue.Reserve(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.Logger.Error("reserve import job", "worker", worker, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		// A reserved job always runs to the end so it is never left half-imported.
		p.handle(context.WithoutCancel(ctx), worker, *job)
	}
}

func (p Pool) handle(ctx context.Context, worker int, job domain.ImportJob) {
	log := p.Logger.With("worker", worker, "job", job.ID, "tenant", job.TenantID, "attempt", job.Attempts)
	log.Info("import job started")
	start := time.Now()

	progress := func(pct int) {
		if err := p.Queue.Progress(ctx, job.ID, pct); err != nil {
			log.Warn("report progress", "err", err)
		}
	}
	result, err := p.Processor.Process(ctx, job, progress)
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		retried, qerr := p.Queue.Fail(ctx, job, err)
		if qerr != nil {
			log.Error("mark job failed", "err", qerr)
		}
		if retried {
			metrics.ImportJobs.WithLabelValues("retried").Inc()
			log.Warn("import job will retry", "err", err)
			return
		}
		metrics.ImportJobs.WithLabelValues("failed").Inc()
		log.Error("import job failed", "err", err)
		p.Processor.Finish(ctx, job)
		return
	}

	if err := p.Queue.Complete(ctx, job.ID, result); err != nil {
		log.Error("mark job completed", "err", err)
	}
	metrics.ImportJobs.WithLabelValues("completed").Inc()
	log.Info("import job completed", "inserted", result.InsertedCount, "failed", len(result.Failures), "took", time.Since(start))
	p.Processor.Finish(ctx, job)
}
