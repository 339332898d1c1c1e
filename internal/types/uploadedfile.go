package types

import (
  "time"
  "github.com/google/uuid"
)

// UploadedFile is the ownership record for an object in the bucket. The
// public file id doubles as the storage key ({userId}/{stem}-{epochMillis});
// the row, not the key prefix, is what authorization trusts.
type UploadedFile struct {
  ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
  User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  FileID       string    `gorm:"uniqueIndex;not null;column:file_id" json:"file_id"`
  OriginalName string    `gorm:"column:original_name;not null" json:"original_name"`
  MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
  SizeBytes    int64     `gorm:"column:size_bytes" json:"size_bytes"`
  CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UploadedFile) TableName() string {
  return "uploaded_file"
}
