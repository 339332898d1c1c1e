package server

import (
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/yungbote/coursemap-backend/internal/handlers"
  "github.com/yungbote/coursemap-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler     *handlers.AuthHandler
  AuthMiddleware  *middleware.AuthMiddleware
  UserHandler     *handlers.UserHandler
  CourseHandler   *handlers.CourseHandler
  FileHandler     *handlers.FileHandler
  RealtimeHandler *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  api := router.Group("/api")
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
  }

// ===============
// || Protected ||
// ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
  protected.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
  protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
  // User
  protected.GET("/api/user", cfg.UserHandler.GetMe)
  protected.POST("/api/user/onboarding", cfg.UserHandler.CompleteOnboarding)
  // Courses
  protected.GET("/api/courses", cfg.CourseHandler.ListUserCourses)
  protected.GET("/api/courses/code/:code", cfg.CourseHandler.GetCourseByCode)
  protected.POST("/api/courses", cfg.CourseHandler.AddCourse)
  protected.PATCH("/api/courses/:id", cfg.CourseHandler.UpdateCourse)
  protected.DELETE("/api/courses/:id", cfg.CourseHandler.DeleteCourse)
  // Files and processing
  protected.POST("/api/files/upload", cfg.FileHandler.Upload)
  protected.GET("/api/files", cfg.FileHandler.ListFiles)
  protected.GET("/api/files/status", cfg.FileHandler.GetStatus)
  protected.POST("/api/files/process-timetable", cfg.FileHandler.ProcessTimetable)
  protected.POST("/api/files/process-outlines", cfg.FileHandler.ProcessOutlines)

  return router
}
