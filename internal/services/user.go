package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/normalization"
  "github.com/yungbote/coursemap-backend/internal/repos"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/types"
)

type OnboardingInput struct {
  School         string `json:"school"`
  Major          string `json:"major"`
  GraduationYear int    `json:"graduation_year"`
}

type UserService interface {
  GetMe(ctx context.Context) (*types.User, error)
  CompleteOnboarding(ctx context.Context, input OnboardingInput) (*types.User, error)
}

type userService struct {
  db       *gorm.DB
  log      *logger.Logger
  userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
  serviceLog := log.With("service", "UserService")
  return &userService{db: db, log: serviceLog, userRepo: userRepo}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load user: %w", err)
  }
  if len(users) == 0 || users[0] == nil {
    return nil, fmt.Errorf("user not found")
  }
  return users[0], nil
}

func (us *userService) CompleteOnboarding(ctx context.Context, input OnboardingInput) (*types.User, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }

  updates := map[string]interface{}{
    "school":              normalization.ParseDisplayString(input.School),
    "major":               normalization.ParseDisplayString(input.Major),
    "graduation_year":     input.GraduationYear,
    "onboarding_complete": true,
  }
  if err := us.userRepo.Update(ctx, nil, rd.UserID, updates); err != nil {
    return nil, fmt.Errorf("Failed to complete onboarding: %w", err)
  }

  return us.GetMe(ctx)
}
