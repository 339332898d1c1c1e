package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursemap-backend/internal/logger"
	"github.com/yungbote/coursemap-backend/internal/requestdata"
	"github.com/yungbote/coursemap-backend/internal/sse"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

func streamContext(t *testing.T, userID, sessionID uuid.UUID) (*gin.Context, context.CancelFunc) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/sse/stream", nil)
	ctx, cancel := context.WithCancel(req.Context())
	ctx = requestdata.WithRequestData(ctx, &requestdata.RequestData{UserID: userID, SessionID: sessionID})
	c.Request = req.WithContext(ctx)
	return c, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestSSEStream_SessionReconnectKeepsReplacementRegistered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := testLogger(t)
	hub := sse.NewSSEHub(log)
	h := NewRealtimeHandler(log, hub, nil)

	userID := uuid.New()
	sessionID := uuid.New()

	c1, cancel1 := streamContext(t, userID, sessionID)
	defer cancel1()
	done1 := make(chan struct{})
	go func() {
		h.SSEStream(c1)
		close(done1)
	}()

	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.clients[sessionID] != nil
	})
	h.mu.RLock()
	first := h.clients[sessionID]
	h.mu.RUnlock()

	// Same session reconnects; the first stream must shut down cleanly and
	// its cleanup must leave the replacement in place.
	c2, cancel2 := streamContext(t, userID, sessionID)
	done2 := make(chan struct{})
	go func() {
		h.SSEStream(c2)
		close(done2)
	}()

	select {
	case <-done1:
	case <-time.After(2 * time.Second):
		t.Fatalf("first stream did not stop on reconnect")
	}

	h.mu.RLock()
	second := h.clients[sessionID]
	h.mu.RUnlock()
	if second == nil || second == first {
		t.Fatalf("session entry lost or stale after reconnect")
	}

	cancel2()
	select {
	case <-done2:
	case <-time.After(2 * time.Second):
		t.Fatalf("second stream did not stop on disconnect")
	}

	h.mu.RLock()
	_, exists := h.clients[sessionID]
	h.mu.RUnlock()
	if exists {
		t.Fatalf("session entry left behind after disconnect")
	}
}
