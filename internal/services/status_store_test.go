package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/coursemap-backend/internal/types"
)

func TestMemoryStatusStore_SeqIncrementsOnAcceptedWrites(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), time.Minute)
	ctx := context.Background()

	rec, accepted, err := store.Set(ctx, "u/f-1", types.ProcessingStateUploading, "Uploading file", 0)
	if err != nil || !accepted {
		t.Fatalf("first write: accepted=%v err=%v", accepted, err)
	}
	if rec.Seq != 1 {
		t.Fatalf("expected seq=1 got %d", rec.Seq)
	}

	rec, accepted, _ = store.Set(ctx, "u/f-1", types.ProcessingStateUploaded, "File uploaded", 10)
	if !accepted || rec.Seq != 2 {
		t.Fatalf("second write: accepted=%v seq=%d", accepted, rec.Seq)
	}

	rec, accepted, _ = store.Set(ctx, "u/f-1", types.ProcessingStateProcessing, "Processing", 50)
	if !accepted || rec.Seq != 3 {
		t.Fatalf("third write: accepted=%v seq=%d", accepted, rec.Seq)
	}
}

func TestMemoryStatusStore_AbsorbsBackwardsProgress(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), time.Minute)
	ctx := context.Background()

	store.Set(ctx, "u/f-1", types.ProcessingStateProcessing, "Processing", 75)
	rec, accepted, err := store.Set(ctx, "u/f-1", types.ProcessingStateProcessing, "Processing", 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted {
		t.Fatalf("expected backwards progress to be absorbed")
	}
	if rec.Progress != 75 || rec.Seq != 1 {
		t.Fatalf("expected unchanged record, got progress=%d seq=%d", rec.Progress, rec.Seq)
	}
}

func TestMemoryStatusStore_AbsorbsStateRegression(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), time.Minute)
	ctx := context.Background()

	store.Set(ctx, "u/f-1", types.ProcessingStateProcessing, "Processing", 50)
	_, accepted, _ := store.Set(ctx, "u/f-1", types.ProcessingStateUploaded, "File uploaded", 10)
	if accepted {
		t.Fatalf("expected PROCESSING -> UPLOADED to be absorbed")
	}
}

func TestMemoryStatusStore_TerminalStateAbsorbsEverything(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), time.Minute)
	ctx := context.Background()

	store.Set(ctx, "u/f-1", types.ProcessingStateCompleted, "Processing complete", 100)

	for _, state := range []types.ProcessingState{
		types.ProcessingStateProcessing,
		types.ProcessingStateError,
		types.ProcessingStateCompleted,
	} {
		rec, accepted, _ := store.Set(ctx, "u/f-1", state, "late write", 0)
		if accepted {
			t.Fatalf("expected write after COMPLETED to be absorbed, state=%s", state)
		}
		if rec.Status != types.ProcessingStateCompleted || rec.Progress != 100 {
			t.Fatalf("terminal record mutated: %+v", rec)
		}
	}
}

func TestMemoryStatusStore_ClampsProgress(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), time.Minute)
	ctx := context.Background()

	rec, _, _ := store.Set(ctx, "u/f-1", types.ProcessingStateProcessing, "Processing", 150)
	if rec.Progress != 100 {
		t.Fatalf("expected progress clamped to 100, got %d", rec.Progress)
	}

	rec, _, _ = store.Set(ctx, "u/f-2", types.ProcessingStateProcessing, "Processing", -5)
	if rec.Progress != 0 {
		t.Fatalf("expected progress clamped to 0, got %d", rec.Progress)
	}
}

func TestMemoryStatusStore_GetUnknownReturnsNotFound(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), time.Minute)

	_, err := store.Get(context.Background(), "u/missing")
	if !errors.Is(err, ErrStatusNotFound) {
		t.Fatalf("expected ErrStatusNotFound, got %v", err)
	}
}

func TestMemoryStatusStore_ExpiresRecordsAfterTTL(t *testing.T) {
	store := NewMemoryStatusStore(testLogger(t), 10*time.Millisecond)
	ctx := context.Background()

	store.Set(ctx, "u/f-1", types.ProcessingStateProcessing, "Processing", 50)
	time.Sleep(25 * time.Millisecond)

	if _, err := store.Get(ctx, "u/f-1"); !errors.Is(err, ErrStatusNotFound) {
		t.Fatalf("expected expired record to read as not found, got %v", err)
	}

	// A write after expiry starts a fresh record at seq 1.
	rec, accepted, _ := store.Set(ctx, "u/f-1", types.ProcessingStateUploading, "Uploading file", 0)
	if !accepted || rec.Seq != 1 {
		t.Fatalf("expected fresh record after expiry, accepted=%v seq=%d", accepted, rec.Seq)
	}
}
