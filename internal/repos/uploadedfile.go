package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/types"
)

type UploadedFileRepo interface {
  Create(ctx context.Context, tx *gorm.DB, files []*types.UploadedFile) ([]*types.UploadedFile, error)
  GetByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []string) ([]*types.UploadedFile, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadedFile, error)
  DeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []string) error
}

type uploadedFileRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUploadedFileRepo(db *gorm.DB, baseLog *logger.Logger) UploadedFileRepo {
  repoLog := baseLog.With("repo", "UploadedFileRepo")
  return &uploadedFileRepo{db: db, log: repoLog}
}

func (ufr *uploadedFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.UploadedFile) ([]*types.UploadedFile, error) {
  transaction := tx
  if transaction == nil {
    transaction = ufr.db
  }

  if len(files) == 0 {
    return []*types.UploadedFile{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
    return nil, err
  }

  return files, nil
}

func (ufr *uploadedFileRepo) GetByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []string) ([]*types.UploadedFile, error) {
  transaction := tx
  if transaction == nil {
    transaction = ufr.db
  }

  var results []*types.UploadedFile

  if len(fileIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("file_id IN ?", fileIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (ufr *uploadedFileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadedFile, error) {
  transaction := tx
  if transaction == nil {
    transaction = ufr.db
  }

  var results []*types.UploadedFile

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (ufr *uploadedFileRepo) DeleteByFileIDs(ctx context.Context, tx *gorm.DB, fileIDs []string) error {
  transaction := tx
  if transaction == nil {
    transaction = ufr.db
  }

  if len(fileIDs) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Where("file_id IN ?", fileIDs).
    Delete(&types.UploadedFile{}).Error; err != nil {
    return err
  }

  return nil
}
