package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursemap-backend/internal/logger"
	"github.com/yungbote/coursemap-backend/internal/requestdata"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

func authedContext(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID:    userID,
		SessionID: uuid.New(),
	})
}
