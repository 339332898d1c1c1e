package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/types"
)

type fakeUploadedFileRepo struct {
	files map[string]*types.UploadedFile
}

func newFakeUploadedFileRepo() *fakeUploadedFileRepo {
	return &fakeUploadedFileRepo{files: make(map[string]*types.UploadedFile)}
}

func (f *fakeUploadedFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.UploadedFile) ([]*types.UploadedFile, error) {
	for _, file := range files {
		f.files[file.FileID] = file
	}
	return files, nil
}

func (f *fakeUploadedFileRepo) GetByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []string) ([]*types.UploadedFile, error) {
	out := []*types.UploadedFile{}
	for _, id := range fileIDs {
		if file, ok := f.files[id]; ok {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeUploadedFileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadedFile, error) {
	out := []*types.UploadedFile{}
	for _, file := range f.files {
		if file.UserID == userID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeUploadedFileRepo) DeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []string) error {
	for _, id := range fileIDs {
		delete(f.files, id)
	}
	return nil
}

type statusWrite struct {
	FileID   string
	State    types.ProcessingState
	Message  string
	Progress int
}

type fakeStatusService struct {
	writes []statusWrite
}

func (f *fakeStatusService) Update(ctx context.Context, fileID string, state types.ProcessingState, message string, progress int) {
	f.writes = append(f.writes, statusWrite{FileID: fileID, State: state, Message: message, Progress: progress})
}

func (f *fakeStatusService) GetForCaller(ctx context.Context, fileID string) (*types.FileProcessingStatus, error) {
	return nil, ErrStatusNotFound
}

type fakeBucketService struct {
	objects    map[string][]byte
	uploadErr  error
	downloads  []string
	downloadFn func(key string) ([]byte, error)
}

func newFakeBucketService() *fakeBucketService {
	return &fakeBucketService{objects: make(map[string][]byte)}
}

func (f *fakeBucketService) UploadFile(ctx context.Context, key string, file io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		return err
	}
	f.objects[key] = buf.Bytes()
	return nil
}

func (f *fakeBucketService) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	f.downloads = append(f.downloads, key)
	if f.downloadFn != nil {
		return f.downloadFn(key)
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return data, nil
}

func (f *fakeBucketService) DeleteFile(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeBucketService) GetPublicURL(key string) string {
	return "https://bucket.test/" + key
}

func TestMakeFileID_PrefixedWithUserID(t *testing.T) {
	userID := uuid.New()
	fileID := MakeFileID(userID, "Fall Timetable.pdf")
	if !strings.HasPrefix(fileID, userID.String()+"/") {
		t.Fatalf("expected user id prefix, got %q", fileID)
	}
	if !strings.Contains(fileID, "Fall Timetable-") {
		t.Fatalf("expected name stem in id, got %q", fileID)
	}
	if strings.HasSuffix(fileID, ".pdf") {
		t.Fatalf("expected extension stripped, got %q", fileID)
	}
}

func TestAuthorizeFileID_OwnedFile(t *testing.T) {
	repo := newFakeUploadedFileRepo()
	svc := NewFileService(nil, testLogger(t), newFakeBucketService(), repo, &fakeStatusService{})

	userID := uuid.New()
	fileID := userID.String() + "/timetable-123"
	repo.files[fileID] = &types.UploadedFile{ID: uuid.New(), UserID: userID, FileID: fileID}

	file, err := svc.AuthorizeFileID(authedContext(userID), fileID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.FileID != fileID {
		t.Fatalf("wrong file returned: %+v", file)
	}
}

func TestAuthorizeFileID_ForeignPrefixNotFound(t *testing.T) {
	repo := newFakeUploadedFileRepo()
	svc := NewFileService(nil, testLogger(t), newFakeBucketService(), repo, &fakeStatusService{})

	owner := uuid.New()
	fileID := owner.String() + "/timetable-123"
	repo.files[fileID] = &types.UploadedFile{ID: uuid.New(), UserID: owner, FileID: fileID}

	_, err := svc.AuthorizeFileID(authedContext(uuid.New()), fileID)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found for foreign file, got %v", err)
	}
}

func TestAuthorizeFileID_PrefixWithoutRowNotFound(t *testing.T) {
	repo := newFakeUploadedFileRepo()
	svc := NewFileService(nil, testLogger(t), newFakeBucketService(), repo, &fakeStatusService{})

	userID := uuid.New()
	// Right prefix, but nothing was ever uploaded under this id. The
	// ownership row is what authorizes, not the id shape.
	_, err := svc.AuthorizeFileID(authedContext(userID), userID.String()+"/ghost-1")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found without ownership row, got %v", err)
	}
}
