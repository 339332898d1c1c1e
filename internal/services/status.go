package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/google/uuid"

  redisclient "github.com/yungbote/coursemap-backend/internal/clients/redis"
  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/repos"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/sse"
  "github.com/yungbote/coursemap-backend/internal/types"
)

// StatusService is the broadcaster side of the status table. Every accepted
// write goes through exactly one emitter: the Redis bus when one is
// configured (local delivery happens through the subscription forwarder,
// same as messages from other instances), otherwise the local hub directly.
// The SSE channel for a file is its file id.
type StatusService interface {
  Update(ctx context.Context, fileID string, state types.ProcessingState, message string, progress int)
  GetForCaller(ctx context.Context, fileID string) (*types.FileProcessingStatus, error)
}

type statusService struct {
  log      *logger.Logger
  store    StatusStore
  hub      *sse.SSEHub
  bus      redisclient.SSEBus
  fileRepo repos.UploadedFileRepo
}

func NewStatusService(log *logger.Logger, store StatusStore, hub *sse.SSEHub, bus redisclient.SSEBus, fileRepo repos.UploadedFileRepo) StatusService {
  return &statusService{
    log:      log.With("service", "StatusService"),
    store:    store,
    hub:      hub,
    bus:      bus,
    fileRepo: fileRepo,
  }
}

func (ss *statusService) Update(ctx context.Context, fileID string, state types.ProcessingState, message string, progress int) {
  rec, accepted, err := ss.store.Set(ctx, fileID, state, message, progress)
  if err != nil {
    ss.log.Warn("Failed to write processing status", "file_id", fileID, "state", state, "error", err)
    return
  }
  if !accepted {
    return
  }

  msg := sse.SSEMessage{
    Channel: fileID,
    Event:   sse.SSEEventProcessingStatusUpdated,
    Data:    rec,
  }
  if ss.bus != nil {
    if err := ss.bus.Publish(ctx, msg); err != nil {
      ss.log.Warn("Failed to publish status over bus", "file_id", fileID, "error", err)
      // Redis dropped the message; local subscribers still get it.
      ss.hub.Broadcast(msg)
    }
    return
  }
  ss.hub.Broadcast(msg)
}

func (ss *statusService) GetForCaller(ctx context.Context, fileID string) (*types.FileProcessingStatus, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if fileID == "" {
    return nil, fmt.Errorf("missing file id")
  }

  // Prefix pre-check is cheap; the ownership row is authoritative.
  if !strings.HasPrefix(fileID, rd.UserID.String()+"/") {
    return nil, fmt.Errorf("file not found")
  }
  files, err := ss.fileRepo.GetByFileIDs(ctx, nil, []string{fileID})
  if err != nil {
    return nil, err
  }
  if len(files) == 0 || files[0] == nil || files[0].UserID != rd.UserID {
    return nil, fmt.Errorf("file not found")
  }

  return ss.store.Get(ctx, fileID)
}
