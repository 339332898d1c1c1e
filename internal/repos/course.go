package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/types"
)

type CourseRepo interface {
  Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error)
  GetByUserIDAndTerm(ctx context.Context, tx *gorm.DB, userID uuid.UUID, term string) ([]*types.Course, error)
  GetByUserIDAndCode(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code string) ([]*types.Course, error)
  Update(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, updates map[string]interface{}) error
  DeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) (int64, error)
}

type courseRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
  repoLog := baseLog.With("repo", "CourseRepo")
  return &courseRepo{db: db, log: repoLog}
}

func (cr *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(courses) == 0 {
    return []*types.Course{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
    return nil, err
  }

  return courses, nil
}

func (cr *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Course

  if len(courseIDs) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", courseIDs).
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (cr *courseRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Course

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (cr *courseRepo) GetByUserIDAndTerm(ctx context.Context, tx *gorm.DB, userID uuid.UUID, term string) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Course

  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND term = ?", userID, term).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (cr *courseRepo) GetByUserIDAndCode(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code string) ([]*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  var results []*types.Course

  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND code = ?", userID, code).
    Find(&results).Error; err != nil {
    return nil, err
  }

  return results, nil
}

func (cr *courseRepo) Update(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(updates) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Model(&types.Course{}).
    Where("id = ?", courseID).
    Updates(updates).Error; err != nil {
    return err
  }
  return nil
}

func (cr *courseRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }

  if len(courseIDs) == 0 {
    return 0, nil
  }

  result := transaction.WithContext(ctx).
    Where("id IN ?", courseIDs).
    Delete(&types.Course{})
  if result.Error != nil {
    return 0, result.Error
  }

  return result.RowsAffected, nil
}
