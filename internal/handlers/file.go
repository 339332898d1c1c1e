package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/services"
)

type FileHandler struct {
  log               *logger.Logger
  fileService       services.FileService
  processingService services.ProcessingService
  statusService     services.StatusService
}

func NewFileHandler(
  log *logger.Logger,
  fileService services.FileService,
  processingService services.ProcessingService,
  statusService services.StatusService,
) *FileHandler {
  return &FileHandler{
    log:               log.With("handler", "FileHandler"),
    fileService:       fileService,
    processingService: processingService,
    statusService:     statusService,
  }
}

func (h *FileHandler) Upload(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  header, err := c.FormFile("file")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "missing_file", err)
    return
  }
  file, err := h.fileService.Upload(c.Request.Context(), header)
  if err != nil {
    h.log.Error("Upload failed", "error", err, "user_id", rd.UserID)
    RespondError(c, http.StatusInternalServerError, "upload_failed", err)
    return
  }
  RespondOK(c, gin.H{"file": file})
}

func (h *FileHandler) ListFiles(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  files, err := h.fileService.ListForCaller(c.Request.Context())
  if err != nil {
    h.log.Error("ListFiles failed", "error", err, "user_id", rd.UserID)
    RespondError(c, http.StatusInternalServerError, "load_files_failed", err)
    return
  }
  RespondOK(c, gin.H{"files": files})
}

func (h *FileHandler) ProcessTimetable(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  var req struct {
    FileIDs []string `json:"file_ids"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  result, err := h.processingService.ProcessTimetable(c.Request.Context(), req.FileIDs)
  if err != nil {
    if errors.Is(err, services.ErrNoFileIDs) {
      RespondError(c, http.StatusBadRequest, "invalid_request", err)
      return
    }
    RespondError(c, http.StatusNotFound, "process_timetable_failed", err)
    return
  }
  RespondOK(c, result)
}

func (h *FileHandler) ProcessOutlines(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  var req struct {
    Outlines []services.OutlineEntry `json:"outlines"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  results, err := h.processingService.ProcessOutlines(c.Request.Context(), req.Outlines)
  if err != nil {
    if errors.Is(err, services.ErrNoOutlines) {
      RespondError(c, http.StatusBadRequest, "invalid_request", err)
      return
    }
    RespondError(c, http.StatusNotFound, "process_outlines_failed", err)
    return
  }
  RespondOK(c, gin.H{"results": results})
}

func (h *FileHandler) GetStatus(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  fileID := c.Query("file_id")
  if fileID == "" {
    RespondError(c, http.StatusBadRequest, "missing_file_id", nil)
    return
  }
  status, err := h.statusService.GetForCaller(c.Request.Context(), fileID)
  if err != nil {
    RespondError(c, http.StatusNotFound, "status_not_found", err)
    return
  }
  RespondOK(c, gin.H{"status": status})
}
