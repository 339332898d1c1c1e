package services

import (
  "context"
  "errors"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"

  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/types"
)

// ProcessResult is the single result shape for processing mutations.
// Expected failures (bad file, unparsable model reply) come back as
// Success=false with a message; errors are reserved for auth failures and
// programmer mistakes.
type ProcessResult struct {
  Success bool            `json:"success"`
  Message string          `json:"message"`
  FileID  string          `json:"file_id,omitempty"`
  Courses []*types.Course `json:"courses,omitempty"`
}

type OutlineEntry struct {
  FileID     string `json:"file_id"`
  CourseCode string `json:"course_code,omitempty"`
}

type ProcessingService interface {
  ProcessTimetable(ctx context.Context, fileIDs []string) (*ProcessResult, error)
  ProcessOutlines(ctx context.Context, entries []OutlineEntry) ([]*ProcessResult, error)
}

type processingService struct {
  db            *gorm.DB
  log           *logger.Logger
  fileService   FileService
  bucketService BucketService
  gemini        GeminiClient
  courseService CourseService
  statusService StatusService
}

func NewProcessingService(
  db *gorm.DB,
  log *logger.Logger,
  fileService FileService,
  bucketService BucketService,
  gemini GeminiClient,
  courseService CourseService,
  statusService StatusService,
) ProcessingService {
  serviceLog := log.With("service", "ProcessingService")
  return &processingService{
    db:            db,
    log:           serviceLog,
    fileService:   fileService,
    bucketService: bucketService,
    gemini:        gemini,
    courseService: courseService,
    statusService: statusService,
  }
}

const failedMessage = "Failed to process file"

// Empty-input errors are the caller's mistake, not a missing file; handlers
// map them to 400 instead of 404.
var (
  ErrNoFileIDs  = errors.New("no file ids given")
  ErrNoOutlines = errors.New("no outlines given")
)

func (ps *processingService) ProcessTimetable(ctx context.Context, fileIDs []string) (*ProcessResult, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if len(fileIDs) == 0 {
    return nil, ErrNoFileIDs
  }

  // Ownership first; an unauthorized id fails the whole mutation before any
  // status write happens.
  files := make([]*types.UploadedFile, 0, len(fileIDs))
  for _, fileID := range fileIDs {
    file, err := ps.fileService.AuthorizeFileID(ctx, fileID)
    if err != nil {
      return nil, err
    }
    files = append(files, file)
  }

  primary := fileIDs[0]

  ps.updateAll(ctx, fileIDs, types.ProcessingStateProcessing, "Processing started", 25)

  parts, err := ps.downloadParts(ctx, files)
  if err != nil {
    ps.log.Error("Failed to download files for processing", "error", err)
    ps.failAll(ctx, fileIDs)
    return &ProcessResult{Success: false, Message: failedMessage, FileID: primary}, nil
  }

  ps.updateAll(ctx, fileIDs, types.ProcessingStateProcessing, "Extracting course data", 50)

  extracted, err := ps.gemini.ExtractCourses(ctx, parts)
  if err != nil {
    ps.preserveRawText(ctx, primary, err)
    ps.log.Error("Extraction failed", "file_id", primary, "error", err)
    ps.failAll(ctx, fileIDs)
    return &ProcessResult{Success: false, Message: failedMessage, FileID: primary}, nil
  }

  ps.updateAll(ctx, fileIDs, types.ProcessingStateProcessing, "Saving courses", 75)

  persisted, skipped, err := ps.persistExtracted(ctx, extracted)
  if err != nil {
    ps.log.Error("Failed to persist extracted courses", "error", err)
    ps.failAll(ctx, fileIDs)
    return &ProcessResult{Success: false, Message: failedMessage, FileID: primary}, nil
  }

  // The subscription must see the terminal state no later than the mutation
  // result, so the COMPLETED write happens before returning.
  ps.updateAll(ctx, fileIDs, types.ProcessingStateCompleted, "Processing complete", 100)

  message := fmt.Sprintf("Extracted %d course(s)", len(persisted))
  if skipped > 0 {
    message = fmt.Sprintf("%s; %d record(s) need review and were not saved", message, skipped)
  }
  return &ProcessResult{
    Success: true,
    Message: message,
    FileID:  primary,
    Courses: persisted,
  }, nil
}

func (ps *processingService) ProcessOutlines(ctx context.Context, entries []OutlineEntry) ([]*ProcessResult, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.UserID == uuid.Nil {
    return nil, fmt.Errorf("not authenticated")
  }
  if len(entries) == 0 {
    return nil, ErrNoOutlines
  }

  results := make([]*ProcessResult, 0, len(entries))
  for _, entry := range entries {
    file, err := ps.fileService.AuthorizeFileID(ctx, entry.FileID)
    if err != nil {
      return nil, err
    }
    results = append(results, ps.processOutline(ctx, file, entry))
  }
  return results, nil
}

func (ps *processingService) processOutline(ctx context.Context, file *types.UploadedFile, entry OutlineEntry) *ProcessResult {
  fileID := file.FileID
  ps.statusService.Update(ctx, fileID, types.ProcessingStateProcessing, "Processing started", 25)

  data, err := ps.bucketService.DownloadFile(ctx, fileID)
  if err != nil {
    ps.log.Error("Failed to download outline", "file_id", fileID, "error", err)
    ps.statusService.Update(ctx, fileID, types.ProcessingStateError, failedMessage, 0)
    return &ProcessResult{Success: false, Message: failedMessage, FileID: fileID}
  }

  ps.statusService.Update(ctx, fileID, types.ProcessingStateProcessing, "Extracting course data", 50)

  extracted, err := ps.gemini.ExtractCourses(ctx, []FilePart{{MimeType: file.MimeType, Data: data}})
  if err != nil {
    ps.preserveRawText(ctx, fileID, err)
    ps.log.Error("Outline extraction failed", "file_id", fileID, "error", err)
    ps.statusService.Update(ctx, fileID, types.ProcessingStateError, failedMessage, 0)
    return &ProcessResult{Success: false, Message: failedMessage, FileID: fileID}
  }

  ps.statusService.Update(ctx, fileID, types.ProcessingStateProcessing, "Saving courses", 75)

  // An outline usually describes one course; a declared course code pins the
  // merge target when the model disagrees with the filename.
  if entry.CourseCode != "" {
    for i := range extracted {
      if extracted[i].Code == "" {
        extracted[i].Code = entry.CourseCode
      }
    }
  }

  var courses []*types.Course
  var skipped int
  for _, ec := range extracted {
    course, merged, err := ps.mergeOutlineCourse(ctx, ec)
    if err != nil {
      ps.log.Error("Failed to merge outline course", "file_id", fileID, "error", err)
      ps.statusService.Update(ctx, fileID, types.ProcessingStateError, failedMessage, 0)
      return &ProcessResult{Success: false, Message: failedMessage, FileID: fileID}
    }
    if !merged {
      skipped++
      continue
    }
    courses = append(courses, course)
  }

  ps.statusService.Update(ctx, fileID, types.ProcessingStateCompleted, "Processing complete", 100)

  message := fmt.Sprintf("Processed outline into %d course(s)", len(courses))
  if skipped > 0 {
    message = fmt.Sprintf("%s; %d record(s) need review and were not saved", message, skipped)
  }
  return &ProcessResult{Success: true, Message: message, FileID: fileID, Courses: courses}
}

// mergeOutlineCourse updates an existing course in place when the code
// matches, otherwise creates a new one. Returns merged=false for records
// that fail validation (left for manual entry).
func (ps *processingService) mergeOutlineCourse(ctx context.Context, ec types.ExtractedCourse) (*types.Course, bool, error) {
  if strings.TrimSpace(ec.Code) == "" || strings.TrimSpace(ec.Name) == "" {
    return nil, false, nil
  }

  existing, err := ps.courseService.GetCourseByCode(ctx, ec.Code)
  if err == nil && existing != nil {
    update := CourseUpdateInput{}
    if ec.Description != "" {
      update.Description = &ec.Description
    }
    if ec.Term != "" {
      update.Term = &ec.Term
    }
    if len(ec.Sections) > 0 {
      update.Sections = &ec.Sections
    }
    if len(ec.Assessments) > 0 {
      update.Assessments = &ec.Assessments
    }
    updated, uErr := ps.courseService.UpdateCourse(ctx, existing.ID, update)
    if uErr != nil {
      return nil, false, uErr
    }
    return updated, true, nil
  }

  created, cErr := ps.courseService.AddCourse(ctx, nil, CourseInput{
    Code:        ec.Code,
    Name:        ec.Name,
    Description: ec.Description,
    Term:        ec.Term,
    Sections:    ec.Sections,
    Assessments: ec.Assessments,
  })
  if cErr != nil {
    return nil, false, cErr
  }
  return created, true, nil
}

func (ps *processingService) downloadParts(ctx context.Context, files []*types.UploadedFile) ([]FilePart, error) {
  parts := make([]FilePart, len(files))
  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(4)
  for i, file := range files {
    g.Go(func() error {
      data, err := ps.bucketService.DownloadFile(gctx, file.FileID)
      if err != nil {
        return err
      }
      parts[i] = FilePart{MimeType: file.MimeType, Data: data}
      return nil
    })
  }
  if err := g.Wait(); err != nil {
    return nil, err
  }
  return parts, nil
}

// persistExtracted saves every extracted course that passes validation and
// counts the rest; a course with no code or name is never written.
func (ps *processingService) persistExtracted(ctx context.Context, extracted []types.ExtractedCourse) ([]*types.Course, int, error) {
  inputs := make([]CourseInput, 0, len(extracted))
  skipped := 0
  for _, ec := range extracted {
    if strings.TrimSpace(ec.Code) == "" || strings.TrimSpace(ec.Name) == "" || len(ec.Sections) == 0 {
      skipped++
      continue
    }
    inputs = append(inputs, CourseInput{
      Code:        ec.Code,
      Name:        ec.Name,
      Description: ec.Description,
      Term:        ec.Term,
      Sections:    ec.Sections,
      Assessments: ec.Assessments,
    })
  }
  if len(inputs) == 0 {
    return []*types.Course{}, skipped, nil
  }
  courses, err := ps.courseService.AddCourses(ctx, nil, inputs)
  if err != nil {
    return nil, 0, err
  }
  return courses, skipped, nil
}

func (ps *processingService) updateAll(ctx context.Context, fileIDs []string, state types.ProcessingState, message string, progress int) {
  for _, fileID := range fileIDs {
    ps.statusService.Update(ctx, fileID, state, message, progress)
  }
}

func (ps *processingService) failAll(ctx context.Context, fileIDs []string) {
  for _, fileID := range fileIDs {
    ps.statusService.Update(ctx, fileID, types.ProcessingStateError, failedMessage, 0)
  }
}

// preserveRawText keeps the unparsable model reply next to the source file
// so it can be inspected by hand.
func (ps *processingService) preserveRawText(ctx context.Context, fileID string, err error) {
  var exErr *ExtractionError
  if !errors.As(err, &exErr) || exErr.RawText == "" {
    return
  }
  key := "debug/" + fileID + ".txt"
  if upErr := ps.bucketService.UploadFile(ctx, key, strings.NewReader(exErr.RawText)); upErr != nil {
    ps.log.Warn("Failed to preserve raw extraction text", "file_id", fileID, "error", upErr)
    return
  }
  ps.log.Info("Preserved raw extraction text", "file_id", fileID, "key", key)
}
