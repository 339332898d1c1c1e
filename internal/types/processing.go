package types

import (
  "time"
)

type ProcessingState string

const (
  ProcessingStateUploading  ProcessingState = "UPLOADING"
  ProcessingStateUploaded   ProcessingState = "UPLOADED"
  ProcessingStateProcessing ProcessingState = "PROCESSING"
  ProcessingStateCompleted  ProcessingState = "COMPLETED"
  ProcessingStateError      ProcessingState = "ERROR"
)

// Terminal reports whether no further transition may leave this state.
func (s ProcessingState) Terminal() bool {
  return s == ProcessingStateCompleted || s == ProcessingStateError
}

// rank orders the linear progression UPLOADING -> UPLOADED -> PROCESSING ->
// {COMPLETED, ERROR}. Unknown states rank below everything.
func (s ProcessingState) rank() int {
  switch s {
  case ProcessingStateUploading:
    return 1
  case ProcessingStateUploaded:
    return 2
  case ProcessingStateProcessing:
    return 3
  case ProcessingStateCompleted, ProcessingStateError:
    return 4
  }
  return 0
}

// CanAdvanceTo reports whether a write moving from s to next respects the
// state machine: states never move backwards and terminal states absorb
// everything after them.
func (s ProcessingState) CanAdvanceTo(next ProcessingState) bool {
  if s.Terminal() {
    return false
  }
  return next.rank() >= s.rank()
}

// FileProcessingStatus is the ephemeral per-file record held in the status
// store. Seq increments on every accepted write so a client polling the
// status query can tell stale reads from fresh ones.
type FileProcessingStatus struct {
  FileID    string          `json:"file_id"`
  Status    ProcessingState `json:"status"`
  Message   string          `json:"message"`
  Progress  int             `json:"progress"`
  Seq       int64           `json:"seq"`
  UpdatedAt time.Time       `json:"updated_at"`
}
