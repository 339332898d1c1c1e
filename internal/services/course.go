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
  "github.com/yungbote/coursemap-backend/internal/sse"
  "github.com/yungbote/coursemap-backend/internal/types"
)

type CourseInput struct {
  Code        string             `json:"code"`
  Name        string             `json:"name"`
  Description string             `json:"description,omitempty"`
  Term        string             `json:"term,omitempty"`
  Sections    []types.Section    `json:"sections"`
  Assessments []types.Assessment `json:"assessments"`
}

type CourseUpdateInput struct {
  Code        *string             `json:"code,omitempty"`
  Name        *string             `json:"name,omitempty"`
  Description *string             `json:"description,omitempty"`
  Term        *string             `json:"term,omitempty"`
  Sections    *[]types.Section    `json:"sections,omitempty"`
  Assessments *[]types.Assessment `json:"assessments,omitempty"`
}

type CourseService interface {
  AddCourse(ctx context.Context, tx *gorm.DB, input CourseInput) (*types.Course, error)
  AddCourses(ctx context.Context, tx *gorm.DB, inputs []CourseInput) ([]*types.Course, error)
  GetUserCourses(ctx context.Context) ([]*types.Course, error)
  GetUserCoursesByTerm(ctx context.Context, term string) ([]*types.Course, error)
  GetCourseByCode(ctx context.Context, code string) (*types.Course, error)
  UpdateCourse(ctx context.Context, courseID uuid.UUID, input CourseUpdateInput) (*types.Course, error)
  DeleteCourse(ctx context.Context, courseID uuid.UUID) error
}

type courseService struct {
  db         *gorm.DB
  log        *logger.Logger
  courseRepo repos.CourseRepo
  hub        *sse.SSEHub
}

func NewCourseService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo, hub *sse.SSEHub) CourseService {
  serviceLog := baseLog.With("service", "CourseService")
  return &courseService{
    db:         db,
    log:        serviceLog,
    courseRepo: courseRepo,
    hub:        hub,
  }
}

func buildCourse(userID uuid.UUID, input CourseInput) (*types.Course, error) {
  code := normalization.ParseDisplayString(input.Code)
  name := normalization.ParseDisplayString(input.Name)
  if code == "" {
    return nil, fmt.Errorf("A course code is required")
  }
  if name == "" {
    return nil, fmt.Errorf("A course name is required")
  }
  course := &types.Course{
    ID:          uuid.New(),
    UserID:      userID,
    Code:        code,
    Name:        name,
    Description: input.Description,
    Term:        normalization.ParseDisplayString(input.Term),
  }
  if err := course.SetSections(input.Sections); err != nil {
    return nil, fmt.Errorf("Failed to encode sections: %w", err)
  }
  if err := course.SetAssessments(input.Assessments); err != nil {
    return nil, fmt.Errorf("Failed to encode assessments: %w", err)
  }
  return course, nil
}

func (cs *courseService) AddCourse(ctx context.Context, tx *gorm.DB, input CourseInput) (*types.Course, error) {
  courses, err := cs.AddCourses(ctx, tx, []CourseInput{input})
  if err != nil {
    return nil, err
  }
  return courses[0], nil
}

func (cs *courseService) AddCourses(ctx context.Context, tx *gorm.DB, inputs []CourseInput) ([]*types.Course, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if len(inputs) == 0 {
    return []*types.Course{}, nil
  }

  courses := make([]*types.Course, 0, len(inputs))
  for _, input := range inputs {
    course, err := buildCourse(rd.UserID, input)
    if err != nil {
      return nil, err
    }
    courses = append(courses, course)
  }

  if _, err := cs.courseRepo.Create(ctx, tx, courses); err != nil {
    cs.log.Error("Failed to create courses", "error", err)
    return nil, fmt.Errorf("Failed to create courses: %w", err)
  }

  if cs.hub != nil {
    for _, course := range courses {
      cs.hub.Broadcast(sse.SSEMessage{
        Channel: rd.UserID.String(),
        Event:   sse.SSEEventUserCourseCreated,
        Data:    map[string]interface{}{"course": course},
      })
    }
  }

  return courses, nil
}

func (cs *courseService) GetUserCourses(ctx context.Context) ([]*types.Course, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  return cs.courseRepo.GetByUserID(ctx, nil, rd.UserID)
}

func (cs *courseService) GetUserCoursesByTerm(ctx context.Context, term string) ([]*types.Course, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  return cs.courseRepo.GetByUserIDAndTerm(ctx, nil, rd.UserID, normalization.ParseDisplayString(term))
}

func (cs *courseService) GetCourseByCode(ctx context.Context, code string) (*types.Course, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  code = normalization.ParseDisplayString(code)
  if code == "" {
    return nil, fmt.Errorf("missing course code")
  }
  courses, err := cs.courseRepo.GetByUserIDAndCode(ctx, nil, rd.UserID, code)
  if err != nil {
    return nil, err
  }
  if len(courses) == 0 || courses[0] == nil {
    return nil, fmt.Errorf("course not found")
  }
  return courses[0], nil
}

// authorizeCourse loads a course and checks ownership. Cross-user access
// reads as not-found so course ids cannot be probed.
func (cs *courseService) authorizeCourse(ctx context.Context, courseID uuid.UUID) (*types.Course, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if courseID == uuid.Nil {
    return nil, fmt.Errorf("missing course id")
  }
  courses, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
  if err != nil {
    return nil, err
  }
  if len(courses) == 0 || courses[0] == nil || courses[0].UserID != rd.UserID {
    return nil, fmt.Errorf("course not found")
  }
  return courses[0], nil
}

func (cs *courseService) UpdateCourse(ctx context.Context, courseID uuid.UUID, input CourseUpdateInput) (*types.Course, error) {
  course, err := cs.authorizeCourse(ctx, courseID)
  if err != nil {
    return nil, err
  }

  updates := map[string]interface{}{}
  if input.Code != nil {
    code := normalization.ParseDisplayString(*input.Code)
    if code == "" {
      return nil, fmt.Errorf("A course code is required")
    }
    updates["code"] = code
  }
  if input.Name != nil {
    name := normalization.ParseDisplayString(*input.Name)
    if name == "" {
      return nil, fmt.Errorf("A course name is required")
    }
    updates["name"] = name
  }
  if input.Description != nil {
    updates["description"] = *input.Description
  }
  if input.Term != nil {
    updates["term"] = normalization.ParseDisplayString(*input.Term)
  }
  if input.Sections != nil {
    scratch := types.Course{}
    if err := scratch.SetSections(*input.Sections); err != nil {
      return nil, fmt.Errorf("Failed to encode sections: %w", err)
    }
    updates["sections"] = scratch.Sections
  }
  if input.Assessments != nil {
    scratch := types.Course{}
    if err := scratch.SetAssessments(*input.Assessments); err != nil {
      return nil, fmt.Errorf("Failed to encode assessments: %w", err)
    }
    updates["assessments"] = scratch.Assessments
  }

  if len(updates) == 0 {
    return course, nil
  }

  if err := cs.courseRepo.Update(ctx, nil, courseID, updates); err != nil {
    cs.log.Error("Failed to update course", "course_id", courseID, "error", err)
    return nil, fmt.Errorf("Failed to update course: %w", err)
  }

  updated, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
  if err != nil || len(updated) == 0 {
    return nil, fmt.Errorf("Failed to reload course after update")
  }

  if cs.hub != nil {
    cs.hub.Broadcast(sse.SSEMessage{
      Channel: course.UserID.String(),
      Event:   sse.SSEEventUserCourseUpdated,
      Data:    map[string]interface{}{"course": updated[0]},
    })
  }

  return updated[0], nil
}

func (cs *courseService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
  course, err := cs.authorizeCourse(ctx, courseID)
  if err != nil {
    return err
  }

  deleted, err := cs.courseRepo.DeleteByIDs(ctx, nil, []uuid.UUID{courseID})
  if err != nil {
    cs.log.Error("Failed to delete course", "course_id", courseID, "error", err)
    return fmt.Errorf("Failed to delete course: %w", err)
  }
  if deleted == 0 {
    return fmt.Errorf("course not found")
  }

  if cs.hub != nil {
    cs.hub.Broadcast(sse.SSEMessage{
      Channel: course.UserID.String(),
      Event:   sse.SSEEventUserCourseDeleted,
      Data:    map[string]interface{}{"course_id": courseID},
    })
  }

  return nil
}
