package handlers

import (
  "net/http"
  "strings"
  "sync"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/services"
  "github.com/yungbote/coursemap-backend/internal/sse"
)

type RealtimeHandler struct {
  Log         *logger.Logger
  Hub         *sse.SSEHub
  fileService services.FileService

  mu      sync.RWMutex
  clients map[uuid.UUID]*sse.SSEClient // key: SessionID (UserToken.ID)
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub, fileService services.FileService) *RealtimeHandler {
  return &RealtimeHandler{
    Log:         log,
    Hub:         hub,
    fileService: fileService,
    clients:     make(map[uuid.UUID]*sse.SSEClient),
  }
}

func (h *RealtimeHandler) SSEStream(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  userID := rd.UserID
  sessionID := rd.SessionID
  if sessionID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session id"})
    return
  }
  h.Log.Info("SSEStream open", "user_id", userID.String(), "session_id", sessionID.String())

  h.mu.Lock()
  // If this session already has a client, close it and replace.
  if existing, ok := h.clients[sessionID]; ok {
    h.Hub.CloseClient(existing)
    delete(h.clients, sessionID)
  }
  client := h.Hub.NewSSEClient(userID)
  h.clients[sessionID] = client
  h.mu.Unlock()

  // Every session listens on the user's own channel; file channels are
  // added per subscription.
  h.Hub.AddChannel(client, userID.String())

  h.Hub.ServeHTTP(c.Writer, c.Request, client)

  // A reconnect may already have replaced this session's entry; only
  // remove the mapping when it still points at this client.
  h.mu.Lock()
  if h.clients[sessionID] == client {
    delete(h.clients, sessionID)
  }
  h.mu.Unlock()
  h.Hub.CloseClient(client)
}

// authorizeChannel decides whether the caller may listen on a channel. A
// channel is either the caller's own user id or a file id the caller owns;
// file ownership is checked against the uploaded_file table, not just the
// id prefix.
func (h *RealtimeHandler) authorizeChannel(c *gin.Context, userID uuid.UUID, channel string) bool {
  if channel == userID.String() {
    return true
  }
  if strings.HasPrefix(channel, userID.String()+"/") {
    if _, err := h.fileService.AuthorizeFileID(c.Request.Context(), channel); err == nil {
      return true
    }
  }
  return false
}

func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  sessionID := rd.SessionID
  if sessionID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session id"})
    return
  }

  var req struct {
    Channel string `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
    return
  }
  if !h.authorizeChannel(c, rd.UserID, req.Channel) {
    c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
    return
  }

  h.mu.RLock()
  client, exists := h.clients[sessionID]
  h.mu.RUnlock()
  if !exists {
    c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection for this session"})
    return
  }

  h.Hub.AddChannel(client, req.Channel)
  c.JSON(http.StatusOK, gin.H{"message": "subscribed", "channel": req.Channel})
}

func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  sessionID := rd.SessionID
  if sessionID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session id"})
    return
  }

  var req struct {
    Channel string `json:"channel"`
  }
  if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
    return
  }

  h.mu.RLock()
  client, exists := h.clients[sessionID]
  h.mu.RUnlock()
  if !exists {
    c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection for this session"})
    return
  }

  h.Hub.RemoveChannel(client, req.Channel)
  c.JSON(http.StatusOK, gin.H{"message": "unsubscribed", "channel": req.Channel})
}
