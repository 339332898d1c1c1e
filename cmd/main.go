package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/yungbote/coursemap-backend/internal/logger"
  "github.com/yungbote/coursemap-backend/internal/utils"
  "github.com/yungbote/coursemap-backend/internal/db"
  "github.com/yungbote/coursemap-backend/internal/repos"
  "github.com/yungbote/coursemap-backend/internal/services"
  "github.com/yungbote/coursemap-backend/internal/handlers"
  "github.com/yungbote/coursemap-backend/internal/middleware"
  "github.com/yungbote/coursemap-backend/internal/server"
  "github.com/yungbote/coursemap-backend/internal/sse"
  redisclient "github.com/yungbote/coursemap-backend/internal/clients/redis"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  statusTTL := utils.GetEnvAsInt("STATUS_TTL", 3600, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  courseRepo := repos.NewCourseRepo(thePG, log)
  uploadedFileRepo := repos.NewUploadedFileRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)

  // Redis is optional: without it status records live in memory and events
  // stay on this instance.
  var sseBus redisclient.SSEBus
  var statusStore services.StatusStore
  rdb, err := redisclient.NewClient(log)
  if err != nil {
    log.Warn("Redis unavailable, using in-memory status store", "error", err)
    statusStore = services.NewMemoryStatusStore(log, time.Duration(statusTTL)*time.Second)
  } else {
    statusStore, err = services.NewRedisStatusStore(log, rdb, time.Duration(statusTTL)*time.Second)
    if err != nil {
      log.Error("Could not init redis status store", "error", err)
      os.Exit(1)
    }
    sseBus, err = redisclient.NewSSEBus(log, rdb)
    if err != nil {
      log.Error("Could not init SSE bus", "error", err)
      os.Exit(1)
    }
    if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
      log.Error("Could not start SSE forwarder", "error", err)
      os.Exit(1)
    }
  }

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Error("Could not init BucketService", "error", err)
    os.Exit(1)
  }
  geminiClient, err := services.NewGeminiClient(log)
  if err != nil {
    log.Error("Could not init GeminiClient", "error", err)
    os.Exit(1)
  }
  statusService := services.NewStatusService(log, statusStore, sseHub, sseBus, uploadedFileRepo)
  fileService := services.NewFileService(thePG, log, bucketService, uploadedFileRepo, statusService)
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  userService := services.NewUserService(thePG, log, userRepo)
  courseService := services.NewCourseService(thePG, log, courseRepo, sseHub)
  processingService := services.NewProcessingService(thePG, log, fileService, bucketService, geminiClient, courseService, statusService)

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(log, userService)
  courseHandler := handlers.NewCourseHandler(log, courseService)
  fileHandler := handlers.NewFileHandler(log, fileService, processingService, statusService)
  realtimeHandler := handlers.NewRealtimeHandler(log, sseHub, fileService)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:     authHandler,
    AuthMiddleware:  authMiddleware,
    UserHandler:     userHandler,
    CourseHandler:   courseHandler,
    FileHandler:     fileHandler,
    RealtimeHandler: realtimeHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Warn("Server failed", "error", err)
  }
}
