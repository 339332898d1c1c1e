package services

import (
  "context"
  "fmt"
  "mime/multipart"
  "path/filepath"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/repos"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/types"
)

// FileService owns uploads and file-id authorization. File ids follow
// {userId}/{stem}-{epochMillis} and double as the storage key.
type FileService interface {
  Upload(ctx context.Context, header *multipart.FileHeader) (*types.UploadedFile, error)
  AuthorizeFileID(ctx context.Context, fileID string) (*types.UploadedFile, error)
  ListForCaller(ctx context.Context) ([]*types.UploadedFile, error)
}

type fileService struct {
  db            *gorm.DB
  log           *logger.Logger
  bucketService BucketService
  fileRepo      repos.UploadedFileRepo
  statusService StatusService
}

func NewFileService(db *gorm.DB, log *logger.Logger, bucketService BucketService, fileRepo repos.UploadedFileRepo, statusService StatusService) FileService {
  serviceLog := log.With("service", "FileService")
  return &fileService{
    db:            db,
    log:           serviceLog,
    bucketService: bucketService,
    fileRepo:      fileRepo,
    statusService: statusService,
  }
}

func MakeFileID(userID uuid.UUID, originalName string) string {
  stem := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
  stem = strings.ReplaceAll(stem, "/", "_")
  if stem == "" {
    stem = "upload"
  }
  return fmt.Sprintf("%s/%s-%d", userID.String(), stem, time.Now().UnixMilli())
}

func (fs *fileService) Upload(ctx context.Context, header *multipart.FileHeader) (*types.UploadedFile, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if header == nil {
    return nil, fmt.Errorf("missing file")
  }

  fileID := MakeFileID(rd.UserID, header.Filename)
  fs.statusService.Update(ctx, fileID, types.ProcessingStateUploading, "Uploading file", 0)

  src, err := header.Open()
  if err != nil {
    fs.statusService.Update(ctx, fileID, types.ProcessingStateError, "Failed to read upload", 0)
    return nil, fmt.Errorf("Failed to open uploaded file: %w", err)
  }
  defer src.Close()

  if err := fs.bucketService.UploadFile(ctx, fileID, src); err != nil {
    fs.statusService.Update(ctx, fileID, types.ProcessingStateError, "Failed to store file", 0)
    return nil, fmt.Errorf("Failed to upload file to bucket: %w", err)
  }

  record := &types.UploadedFile{
    ID:           uuid.New(),
    UserID:       rd.UserID,
    FileID:       fileID,
    OriginalName: header.Filename,
    MimeType:     header.Header.Get("Content-Type"),
    SizeBytes:    header.Size,
  }
  if _, err := fs.fileRepo.Create(ctx, nil, []*types.UploadedFile{record}); err != nil {
    fs.statusService.Update(ctx, fileID, types.ProcessingStateError, "Failed to record upload", 0)
    return nil, fmt.Errorf("Failed to create uploaded file record: %w", err)
  }

  fs.statusService.Update(ctx, fileID, types.ProcessingStateUploaded, "File uploaded", 10)
  return record, nil
}

func (fs *fileService) AuthorizeFileID(ctx context.Context, fileID string) (*types.UploadedFile, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if fileID == "" {
    return nil, fmt.Errorf("missing file id")
  }
  if !strings.HasPrefix(fileID, rd.UserID.String()+"/") {
    return nil, fmt.Errorf("file not found")
  }
  files, err := fs.fileRepo.GetByFileIDs(ctx, nil, []string{fileID})
  if err != nil {
    return nil, err
  }
  if len(files) == 0 || files[0] == nil || files[0].UserID != rd.UserID {
    return nil, fmt.Errorf("file not found")
  }
  return files[0], nil
}

func (fs *fileService) ListForCaller(ctx context.Context) ([]*types.UploadedFile, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  return fs.fileRepo.GetByUserID(ctx, nil, rd.UserID)
}
