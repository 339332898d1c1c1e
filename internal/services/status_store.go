package services

import (
  "context"
  "errors"
  "sync"
  "time"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/types"
)

var ErrStatusNotFound = errors.New("processing status not found")

// StatusStore holds the ephemeral per-file processing record. Writes that
// would move the state machine backwards, or past a terminal state, are
// absorbed: the store keeps the existing record and reports accepted=false.
// Records expire after a TTL; there is no other garbage collection.
type StatusStore interface {
  Set(ctx context.Context, fileID string, state types.ProcessingState, message string, progress int) (*types.FileProcessingStatus, bool, error)
  Get(ctx context.Context, fileID string) (*types.FileProcessingStatus, error)
}

// nextStatus applies the shared transition policy to a previous record (nil
// when none) and a proposed write. Returns nil when the write is absorbed.
func nextStatus(prev *types.FileProcessingStatus, fileID string, state types.ProcessingState, message string, progress int) *types.FileProcessingStatus {
  if progress < 0 {
    progress = 0
  }
  if progress > 100 {
    progress = 100
  }
  if prev != nil {
    if !prev.Status.CanAdvanceTo(state) {
      return nil
    }
    if state == prev.Status && progress < prev.Progress {
      return nil
    }
  }
  rec := &types.FileProcessingStatus{
    FileID:    fileID,
    Status:    state,
    Message:   message,
    Progress:  progress,
    Seq:       1,
    UpdatedAt: time.Now(),
  }
  if prev != nil {
    rec.Seq = prev.Seq + 1
  }
  return rec
}

type memoryStatusEntry struct {
  record    *types.FileProcessingStatus
  expiresAt time.Time
}

type memoryStatusStore struct {
  mu      sync.Mutex
  log     *logger.Logger
  ttl     time.Duration
  entries map[string]*memoryStatusEntry
}

func NewMemoryStatusStore(log *logger.Logger, ttl time.Duration) StatusStore {
  if ttl <= 0 {
    ttl = time.Hour
  }
  return &memoryStatusStore{
    log:     log.With("service", "MemoryStatusStore"),
    ttl:     ttl,
    entries: make(map[string]*memoryStatusEntry),
  }
}

func (ms *memoryStatusStore) Set(ctx context.Context, fileID string, state types.ProcessingState, message string, progress int) (*types.FileProcessingStatus, bool, error) {
  ms.mu.Lock()
  defer ms.mu.Unlock()

  var prev *types.FileProcessingStatus
  if entry, ok := ms.entries[fileID]; ok {
    if time.Now().Before(entry.expiresAt) {
      prev = entry.record
    } else {
      delete(ms.entries, fileID)
    }
  }

  rec := nextStatus(prev, fileID, state, message, progress)
  if rec == nil {
    ms.log.Debug("Absorbed stale status write", "file_id", fileID, "state", state, "progress", progress)
    return prev, false, nil
  }

  ms.entries[fileID] = &memoryStatusEntry{record: rec, expiresAt: time.Now().Add(ms.ttl)}
  return rec, true, nil
}

func (ms *memoryStatusStore) Get(ctx context.Context, fileID string) (*types.FileProcessingStatus, error) {
  ms.mu.Lock()
  defer ms.mu.Unlock()

  entry, ok := ms.entries[fileID]
  if !ok {
    return nil, ErrStatusNotFound
  }
  if time.Now().After(entry.expiresAt) {
    delete(ms.entries, fileID)
    return nil, ErrStatusNotFound
  }
  return entry.record, nil
}
