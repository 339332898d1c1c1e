package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "time"

  goredis "github.com/redis/go-redis/v9"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/types"
)

const statusKeyPrefix = "fps:"

// redisStatusStore is the production StatusStore. Two concurrent mutations
// for the same file id still race get-then-set (last write wins), which
// matches the acknowledged consistency window of the processing flow.
type redisStatusStore struct {
  log *logger.Logger
  rdb *goredis.Client
  ttl time.Duration
}

func NewRedisStatusStore(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) (StatusStore, error) {
  if rdb == nil {
    return nil, fmt.Errorf("redis client required")
  }
  if ttl <= 0 {
    ttl = time.Hour
  }
  return &redisStatusStore{
    log: log.With("service", "RedisStatusStore"),
    rdb: rdb,
    ttl: ttl,
  }, nil
}

func (rs *redisStatusStore) Set(ctx context.Context, fileID string, state types.ProcessingState, message string, progress int) (*types.FileProcessingStatus, bool, error) {
  key := statusKeyPrefix + fileID

  prev, err := rs.get(ctx, key)
  if err != nil && !errors.Is(err, ErrStatusNotFound) {
    return nil, false, err
  }

  rec := nextStatus(prev, fileID, state, message, progress)
  if rec == nil {
    rs.log.Debug("Absorbed stale status write", "file_id", fileID, "state", state, "progress", progress)
    return prev, false, nil
  }

  raw, err := json.Marshal(rec)
  if err != nil {
    return nil, false, err
  }
  if err := rs.rdb.Set(ctx, key, raw, rs.ttl).Err(); err != nil {
    return nil, false, fmt.Errorf("redis set status: %w", err)
  }
  return rec, true, nil
}

func (rs *redisStatusStore) Get(ctx context.Context, fileID string) (*types.FileProcessingStatus, error) {
  return rs.get(ctx, statusKeyPrefix+fileID)
}

func (rs *redisStatusStore) get(ctx context.Context, key string) (*types.FileProcessingStatus, error) {
  raw, err := rs.rdb.Get(ctx, key).Bytes()
  if err != nil {
    if errors.Is(err, goredis.Nil) {
      return nil, ErrStatusNotFound
    }
    return nil, fmt.Errorf("redis get status: %w", err)
  }
  var rec types.FileProcessingStatus
  if err := json.Unmarshal(raw, &rec); err != nil {
    return nil, fmt.Errorf("bad status payload: %w", err)
  }
  return &rec, nil
}
