package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/yungbote/coursemap-backend/internal/types"
  "github.com/yungbote/coursemap-backend/internal/utils"
  "github.com/yungbote/coursemap-backend/internal/logger"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  log.Info("Loading environment variables...")
  driver := utils.GetEnv("DB_DRIVER", "postgres", log)

  var gormDB *gorm.DB
  var err error
  switch driver {
  case "sqlite":
    // Local/dev fallback; jsonb columns degrade to TEXT under sqlite.
    dbPath := utils.GetEnv("SQLITE_PATH", "coursemap.db", log)
    log.Info("Connecting to sqlite...", "path", dbPath)
    gormDB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
    if err != nil {
      log.Error("Failed to open sqlite database", "error", err)
      return nil, fmt.Errorf("Failed to open sqlite database: %w", err)
    }
  default:
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "coursemap", log)
    log.Debug("Environment variables loaded")

    dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

    log.Info("Connecting to Postgres...")
    gormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
      DisableForeignKeyConstraintWhenMigrating: true,
    })
    if err != nil {
      log.Error("Failed to connect to Postgres", "error", err)
      return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
    }

    if err := gormDB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
      log.Error("Failed to enable uuid-ossp extension", "error", err)
      return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
    }
    log.Info("uuid-ossp extension enabled")
  }

  return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.UploadedFile{},
    &types.Course{},
  )
  if err != nil {
    s.log.Error("Auto migration failed", "error", err)
    return err
  }
  if s.db.Dialector.Name() != "postgres" {
    return nil
  }
  s.log.Info("Configuring foreign key relationships...")
  if err := s.db.Exec(`
    ALTER TABLE "user_token"
    ADD CONSTRAINT "fk_user_token_user_id"
    FOREIGN KEY ("user_id")
    REFERENCES "user"("id")
    ON DELETE CASCADE
  `).Error; err != nil {
    s.log.Warn("Failed to add fk_user_token_user_id", "error", err)
  }
  if err := s.db.Exec(`
    ALTER TABLE "course"
    ADD CONSTRAINT "fk_course_user_id"
    FOREIGN KEY ("user_id")
    REFERENCES "user"("id")
    ON DELETE CASCADE
  `).Error; err != nil {
    s.log.Warn("Failed to add fk_course_user_id", "error", err)
  }
  if err := s.db.Exec(`
    ALTER TABLE "uploaded_file"
    ADD CONSTRAINT "fk_uploaded_file_user_id"
    FOREIGN KEY ("user_id")
    REFERENCES "user"("id")
    ON DELETE CASCADE
  `).Error; err != nil {
    s.log.Warn("Failed to add fk_uploaded_file_user_id", "error", err)
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
