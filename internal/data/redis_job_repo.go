package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

var _ core.JobRepository = (*RedisJobRepo)(nil)

// DefaultRedisKeyPrefix keeps every key in one cluster hash slot so the Lua scripts
// can touch the job hash and its indexes together.
const DefaultRedisKeyPrefix = "promptjobs:{jobs}:"

// Job hash fields. Absent result/error/metadata fields mean null.
const (
	fieldID        = "id"
	fieldPrompt    = "prompt"
	fieldStatus    = "status"
	fieldResult    = "result"
	fieldError     = "error"
	fieldMetadata  = "metadata"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
	fieldScore     = "created_us"
)

// finalizeScript applies a terminal write only while the stored status is PENDING.
// KEYS: job hash, pending index, target status index.
// ARGV: id, status, updated_at, result, has_result, error, has_error, metadata, has_metadata.
var finalizeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'PENDING' then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
if ARGV[5] == '1' then redis.call('HSET', KEYS[1], 'result', ARGV[4]) else redis.call('HDEL', KEYS[1], 'result') end
if ARGV[7] == '1' then redis.call('HSET', KEYS[1], 'error', ARGV[6]) else redis.call('HDEL', KEYS[1], 'error') end
if ARGV[9] == '1' then redis.call('HSET', KEYS[1], 'metadata', ARGV[8]) else redis.call('HDEL', KEYS[1], 'metadata') end
local score = redis.call('HGET', KEYS[1], 'created_us')
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], score, ARGV[1])
return 1
`)

// forceCompleteScript overwrites a job as COMPLETED whatever its status.
// KEYS: job hash, pending index, completed index, failed index. ARGV: id, result, updated_at.
var forceCompleteScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local score = redis.call('HGET', KEYS[1], 'created_us')
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[4], ARGV[1])
redis.call('ZADD', KEYS[3], score, ARGV[1])
redis.call('HSET', KEYS[1], 'status', 'COMPLETED', 'result', ARGV[2], 'updated_at', ARGV[3])
redis.call('HDEL', KEYS[1], 'error', 'metadata')
return 1
`)

// deleteScript removes the job hash and its index entries.
// KEYS: job hash, then every index. ARGV: id.
var deleteScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
  return 0
end
for i = 2, #KEYS do
  redis.call('ZREM', KEYS[i], ARGV[1])
end
return 1
`)

// RedisJobRepo stores each job as a hash and indexes ids in sorted sets scored
// by creation time: one for all jobs and one per status.
type RedisJobRepo struct {
	client redis.UniversalClient
	prefix string
	cfg    RepoConfig
	logger *slog.Logger
}

// RedisRepoOptions configures NewRedisJobRepo.
type RedisRepoOptions struct {
	Client    redis.UniversalClient
	KeyPrefix string
	Config    RepoConfig
}

// NewRedisJobRepo creates a Redis-backed job store.
func NewRedisJobRepo(opts RedisRepoOptions) *RedisJobRepo {
	cfg := opts.Config.withDefaults()
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisJobRepo{
		client: opts.Client,
		prefix: prefix,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "job_repo", "store", "redis"),
	}
}

func (r *RedisJobRepo) jobKey(id string) string { return r.prefix + "job:" + id }
func (r *RedisJobRepo) allKey() string          { return r.prefix + "idx:all" }
func (r *RedisJobRepo) statusKey(s model.JobStatus) string {
	return r.prefix + "idx:status:" + string(s)
}

func (r *RedisJobRepo) indexKeys() []string {
	return []string{
		r.allKey(),
		r.statusKey(model.JobStatusPending),
		r.statusKey(model.JobStatusCompleted),
		r.statusKey(model.JobStatusFailed),
	}
}

// Create stores the job hash and its index entries in one MULTI/EXEC.
func (r *RedisJobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.cfg.TimeProvider.Now()
	job := &model.Job{
		ID:        r.cfg.IDGenerator(),
		Prompt:    req.Prompt,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	score := float64(now.UnixMicro())

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.jobKey(job.ID), map[string]any{
		fieldID:        job.ID,
		fieldPrompt:    job.Prompt,
		fieldStatus:    string(job.Status),
		fieldCreatedAt: formatTime(now),
		fieldUpdatedAt: formatTime(now),
		fieldScore:     strconv.FormatInt(now.UnixMicro(), 10),
	})
	pipe.ZAdd(ctx, r.allKey(), redis.Z{Score: score, Member: job.ID})
	pipe.ZAdd(ctx, r.statusKey(model.JobStatusPending), redis.Z{Score: score, Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetByID returns the job or model.ErrJobNotFound.
func (r *RedisJobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	vals, err := r.client.HGetAll(ctx, r.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, model.ErrJobNotFound
	}
	return jobFromHash(vals)
}

// List reads a page of ids from the relevant index and fetches the hashes in one pipeline.
func (r *RedisJobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	p := normalizeListOptions(opts)
	key := r.allKey()
	if p.status != nil {
		key = r.statusKey(*p.status)
	}

	ids, err := r.client.ZRevRange(ctx, key, int64(p.offset), int64(p.offset+p.limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list job ids: %w", err)
	}
	jobs := make([]*model.Job, 0, len(ids))
	if len(ids) == 0 {
		return jobs, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	for _, cmd := range cmds {
		vals, cmdErr := cmd.Result()
		if cmdErr != nil || len(vals) == 0 {
			// deleted between the index read and the fetch
			continue
		}
		job, decodeErr := jobFromHash(vals)
		if decodeErr != nil {
			return nil, decodeErr
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Finalize runs the conditional terminal write as a Lua script.
func (r *RedisJobRepo) Finalize(ctx context.Context, params model.FinalizeJobParams) (*model.Job, bool, error) {
	if err := params.Validate(); err != nil {
		return nil, false, err
	}
	meta, err := marshalUsage(params.Metadata)
	if err != nil {
		return nil, false, err
	}

	keys := []string{r.jobKey(params.ID), r.statusKey(model.JobStatusPending), r.statusKey(params.Status)}
	args := []any{
		params.ID,
		string(params.Status),
		formatTime(r.cfg.TimeProvider.Now()),
		derefString(params.Result), presence(params.Result != nil),
		derefString(params.Error), presence(params.Error != nil),
		string(meta), presence(meta != nil),
	}
	applied, err := finalizeScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return nil, false, fmt.Errorf("finalize job: %w", err)
	}
	if applied == 0 {
		return nil, false, nil
	}

	job, err := r.GetByID(ctx, params.ID)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// ForceComplete overwrites the job as COMPLETED with result.
func (r *RedisJobRepo) ForceComplete(ctx context.Context, id, result string) (*model.Job, error) {
	keys := []string{
		r.jobKey(id),
		r.statusKey(model.JobStatusPending),
		r.statusKey(model.JobStatusCompleted),
		r.statusKey(model.JobStatusFailed),
	}
	applied, err := forceCompleteScript.Run(ctx, r.client, keys, id, result, formatTime(r.cfg.TimeProvider.Now())).Int()
	if err != nil {
		return nil, fmt.Errorf("force complete job: %w", err)
	}
	if applied == 0 {
		return nil, model.ErrJobNotFound
	}
	r.logger.WarnContext(ctx, "job force-completed", "job_id", id)
	return r.GetByID(ctx, id)
}

// Delete removes a job and reports whether it existed.
func (r *RedisJobRepo) Delete(ctx context.Context, id string) (bool, error) {
	keys := append([]string{r.jobKey(id)}, r.indexKeys()...)
	n, err := deleteScript.Run(ctx, r.client, keys, id).Int()
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	return n == 1, nil
}

// CountByStatus reads the cardinality of each status index.
func (r *RedisJobRepo) CountByStatus(ctx context.Context) (*model.JobStats, error) {
	statuses := model.AllJobStatuses()
	pipe := r.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(statuses))
	for i, s := range statuses {
		cmds[i] = pipe.ZCard(ctx, r.statusKey(s))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}

	var stats model.JobStats
	for i, s := range statuses {
		stats.Add(s, int(cmds[i].Val()))
	}
	return &stats, nil
}

func jobFromHash(vals map[string]string) (*model.Job, error) {
	job := &model.Job{
		ID:     vals[fieldID],
		Prompt: vals[fieldPrompt],
		Status: model.JobStatus(vals[fieldStatus]),
	}
	var err error
	if job.CreatedAt, err = parseTime(vals[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("decode job %s created_at: %w", job.ID, err)
	}
	if job.UpdatedAt, err = parseTime(vals[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("decode job %s updated_at: %w", job.ID, err)
	}
	if v, ok := vals[fieldResult]; ok {
		job.Result = &v
	}
	if v, ok := vals[fieldError]; ok {
		job.Error = &v
	}
	if v, ok := vals[fieldMetadata]; ok && v != "" {
		var u model.Usage
		if err := json.Unmarshal([]byte(v), &u); err != nil {
			return nil, fmt.Errorf("decode job %s metadata: %w", job.ID, err)
		}
		job.Metadata = &u
	}
	return job, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func presence(ok bool) string {
	if ok {
		return "1"
	}
	return "0"
}
