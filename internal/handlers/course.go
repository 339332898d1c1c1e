package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/requestdata"
  "github.com/yungbote/coursemap-backend/internal/services"
)

type CourseHandler struct {
  log           *logger.Logger
  courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
  return &CourseHandler{
    log:           log.With("handler", "CourseHandler"),
    courseService: courseService,
  }
}

// ListUserCourses returns the caller's courses, filtered by term when the
// term query parameter is present.
func (h *CourseHandler) ListUserCourses(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  term := c.Query("term")
  if term != "" {
    list, err := h.courseService.GetUserCoursesByTerm(c.Request.Context(), term)
    if err != nil {
      h.log.Error("ListUserCourses by term failed", "error", err, "user_id", rd.UserID)
      RespondError(c, http.StatusInternalServerError, "load_courses_failed", err)
      return
    }
    RespondOK(c, gin.H{"courses": list})
    return
  }
  list, err := h.courseService.GetUserCourses(c.Request.Context())
  if err != nil {
    h.log.Error("ListUserCourses failed", "error", err, "user_id", rd.UserID)
    RespondError(c, http.StatusInternalServerError, "load_courses_failed", err)
    return
  }
  RespondOK(c, gin.H{"courses": list})
}

func (h *CourseHandler) GetCourseByCode(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  code := c.Param("code")
  course, err := h.courseService.GetCourseByCode(c.Request.Context(), code)
  if err != nil {
    RespondError(c, http.StatusNotFound, "course_not_found", err)
    return
  }
  RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) AddCourse(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  var req services.CourseInput
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  course, err := h.courseService.AddCourse(c.Request.Context(), nil, req)
  if err != nil {
    h.log.Error("AddCourse failed", "error", err, "user_id", rd.UserID)
    RespondError(c, http.StatusBadRequest, "add_course_failed", err)
    return
  }
  RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  courseID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
    return
  }
  var req services.CourseUpdateInput
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  course, err := h.courseService.UpdateCourse(c.Request.Context(), courseID, req)
  if err != nil {
    RespondError(c, http.StatusNotFound, "update_course_failed", err)
    return
  }
  RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  courseID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
    return
  }
  if err := h.courseService.DeleteCourse(c.Request.Context(), courseID); err != nil {
    RespondError(c, http.StatusNotFound, "delete_course_failed", err)
    return
  }
  RespondOK(c, gin.H{"message": "course deleted"})
}
