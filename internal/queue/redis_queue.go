// Package queue is a small Redis-backed job queue for bulk imports.
//
// Each job is a hash under "<prefix>:job:<id>". Waiting ids sit in
// "<prefix>:waiting"; a worker moves an id atomically to "<prefix>:active"
// while it runs and holds a lease ("lease_until", unix ms) that every
// progress report extends. Finished job hashes expire after the retention
// window.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"petshop-backend/internal/domain"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// DefaultLease is how long a reserved job stays owned by its worker without
// a progress report.
const DefaultLease = 5 * time.Minute

type RedisQueue struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
	lease     time.Duration
	now       func() time.Time
}

func NewRedisQueue(rdb *redis.Client, topic string, retention time.Duration) *RedisQueue {
	if topic == "" {
		topic = "appointments.import"
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisQueue{rdb: rdb, prefix: topic, retention: retention, lease: DefaultLease, now: time.Now}
}

// WithLease sets the reservation lease. Non-positive values keep the default.
func (q *RedisQueue) WithLease(d time.Duration) *RedisQueue {
	if d > 0 {
		q.lease = d
	}
	return q
}

func (q *RedisQueue) jobKey(id string) string { return q.prefix + ":job:" + id }
func (q *RedisQueue) waitingKey() string      { return q.prefix + ":waiting" }
func (q *RedisQueue) activeKey() string       { return q.prefix + ":active" }

// Enqueue stores the job as queued and appends it to the waiting list.
func (q *RedisQueue) Enqueue(ctx context.Context, job domain.ImportJob) (*domain.ImportJob, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 1
	}
	now := q.now().UTC()
	job.State = domain.JobQueued
	job.Progress = 0
	job.Attempts = 0
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.jobKey(job.ID), map[string]any{
			"tenant_id":    job.TenantID,
			"file_id":      job.FileID,
			"state":        string(job.State),
			"progress":     0,
			"attempts":     0,
			"max_attempts": job.MaxAttempts,
			"created_at":   now.Format(time.RFC3339Nano),
			"updated_at":   now.Format(time.RFC3339Nano),
		})
		p.LPush(ctx, q.waitingKey(), job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}
	return decodeJob(id, fields)
}

// Reserve blocks up to timeout for the next waiting job and marks it active.
// It returns nil, nil when nothing arrived in time.
func (q *RedisQueue) Reserve(ctx context.Context, timeout time.Duration) (*domain.ImportJob, error) {
	id, err := q.rdb.BLMove(ctx, q.waitingKey(), q.activeKey(), "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reserve job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.jobKey(id), "state", string(domain.JobActive), "updated_at", q.stamp(), "lease_until", q.leaseUntil())
		p.HIncrBy(ctx, q.jobKey(id), "attempts", 1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("activate job %s: %w", id, err)
	}
	return q.Get(ctx, id)
}

// Progress records pct and extends the worker's lease.
func (q *RedisQueue) Progress(ctx context.Context, id string, pct int) error {
	return q.rdb.HSet(ctx, q.jobKey(id), "progress", pct, "updated_at", q.stamp(), "lease_until", q.leaseUntil()).Err()
}

// Complete stores the result and schedules the job hash for expiry.
func (q *RedisQueue) Complete(ctx context.Context, id string, result domain.ImportResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, q.jobKey(id),
			"state", string(domain.JobCompleted),
			"progress", 100,
			"result", string(body),
			"error", "",
			"updated_at", q.stamp(),
		)
		p.HDel(ctx, q.jobKey(id), "lease_until")
		p.LRem(ctx, q.activeKey(), 1, id)
		p.Expire(ctx, q.jobKey(id), q.retention)
		return nil
	})
	return err
}

// Fail records cause. While attempts remain the job goes back to waiting and
// retried is true; otherwise it becomes failed and expires later.
func (q *RedisQueue) Fail(ctx context.Context, job domain.ImportJob, cause error) (retried bool, err error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	retried = job.Attempts < job.MaxAttempts
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.activeKey(), 1, job.ID)
		p.HDel(ctx, q.jobKey(job.ID), "lease_until")
		if retried {
			p.HSet(ctx, q.jobKey(job.ID), "state", string(domain.JobQueued), "error", msg, "updated_at", q.stamp())
			p.LPush(ctx, q.waitingKey(), job.ID)
			return nil
		}
		p.HSet(ctx, q.jobKey(job.ID), "state", string(domain.JobFailed), "error", msg, "updated_at", q.stamp())
		p.Expire(ctx, q.jobKey(job.ID), q.retention)
		return nil
	})
	return retried, err
}

// requeueScript moves one active id back to waiting unless its lease is
// still running. Ids whose job hash already expired are only dropped.
// KEYS: active, waiting, job hash. ARGV: id, now ms, stamp.
var requeueScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[3]) == 0 then
  redis.call("LREM", KEYS[1], 0, ARGV[1])
  return 0
end
local lease = tonumber(redis.call("HGET", KEYS[3], "lease_until") or "0")
if lease > tonumber(ARGV[2]) then
  return 0
end
if redis.call("LREM", KEYS[1], 0, ARGV[1]) == 0 then
  return 0
end
redis.call("LPUSH", KEYS[2], ARGV[1])
redis.call("HSET", KEYS[3], "state", "queued", "updated_at", ARGV[3])
redis.call("HDEL", KEYS[3], "lease_until")
return 1
`)

// RequeueStalled moves active jobs whose lease expired back to waiting.
// Jobs another live worker still holds are left alone, so it is safe to call
// at every start-up.
func (q *RedisQueue) RequeueStalled(ctx context.Context) (int, error) {
	ids, err := q.rdb.LRange(ctx, q.activeKey(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list active jobs: %w", err)
	}
	n := 0
	for _, id := range ids {
		moved, err := requeueScript.Run(ctx, q.rdb,
			[]string{q.activeKey(), q.waitingKey(), q.jobKey(id)},
			id, q.now().UnixMilli(), q.stamp(),
		).Int()
		if err != nil {
			return n, fmt.Errorf("requeue stalled %s: %w", id, err)
		}
		n += moved
	}
	return n, nil
}

func (q *RedisQueue) leaseUntil() int64 {
	return q.now().Add(q.lease).UnixMilli()
}

func (q *RedisQueue) stamp() string {
	return q.now().UTC().Format(time.RFC3339Nano)
}

func decodeJob(id string, f map[string]string) (*domain.ImportJob, error) {
	job := domain.ImportJob{
		ID:    id,
		State: domain.JobState(f["state"]),
		Error: f["error"],
	}
	var err error
	if job.TenantID, err = strconv.ParseInt(f["tenant_id"], 10, 64); err != nil {
		return nil, fmt.Errorf("job %s: bad tenant_id: %w", id, err)
	}
	if job.FileID, err = strconv.ParseInt(f["file_id"], 10, 64); err != nil {
		return nil, fmt.Errorf("job %s: bad file_id: %w", id, err)
	}
	job.Progress, _ = strconv.Atoi(f["progress"])
	job.Attempts, _ = strconv.Atoi(f["attempts"])
	job.MaxAttempts, _ = strconv.Atoi(f["max_attempts"])
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, f["created_at"])
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f["updated_at"])
	if raw := f["result"]; raw != "" {
		var res domain.ImportResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("job %s: bad result: %w", id, err)
		}
		job.Result = &res
	}
	return &job, nil
}

// Health pings the Redis server backing the queue.
func (q *RedisQueue) Health(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
