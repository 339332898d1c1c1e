package types

import (
  "encoding/json"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// Sections and assessments live as jsonb blobs on the course row. They have
// no identity of their own and are only ever read back whole, never filtered
// by column.
type Course struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Code        string         `gorm:"column:code;not null;index" json:"code"`
  Name        string         `gorm:"column:name;not null" json:"name"`
  Description string         `gorm:"column:description" json:"description"`
  Term        string         `gorm:"column:term;index" json:"term"`
  Sections    datatypes.JSON `gorm:"column:sections;type:jsonb" json:"sections"`
  Assessments datatypes.JSON `gorm:"column:assessments;type:jsonb" json:"assessments"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

type Assessment struct {
  Title       string   `json:"title"`
  Type        string   `json:"type"`
  DueDate     string   `json:"due_date"`
  Description string   `json:"description,omitempty"`
  Weight      *float64 `json:"weight,omitempty"`
  Status      string   `json:"status,omitempty"`
  Location    string   `json:"location,omitempty"`
}

type OfficeHour struct {
  Day       string `json:"day"`
  StartTime string `json:"start_time"`
  EndTime   string `json:"end_time"`
  Location  string `json:"location,omitempty"`
}

type Office struct {
  Location    string       `json:"location,omitempty"`
  OfficeHours []OfficeHour `json:"office_hours,omitempty"`
}

type Instructor struct {
  Name   string  `json:"name"`
  Email  string  `json:"email,omitempty"`
  Office *Office `json:"office,omitempty"`
}

type ScheduleItem struct {
  Day           string `json:"day"`
  StartTime     string `json:"start_time"`
  EndTime       string `json:"end_time"`
  Location      string `json:"location,omitempty"`
  ClassType     string `json:"class_type,omitempty"`
  IsRescheduled bool   `json:"is_rescheduled,omitempty"`
}

type Section struct {
  SectionID  string         `json:"section_id"`
  Instructor *Instructor    `json:"instructor,omitempty"`
  Schedule   []ScheduleItem `json:"schedule"`
}

func (c *Course) SetSections(sections []Section) error {
  if sections == nil {
    sections = []Section{}
  }
  raw, err := json.Marshal(sections)
  if err != nil {
    return err
  }
  c.Sections = datatypes.JSON(raw)
  return nil
}

func (c *Course) GetSections() ([]Section, error) {
  if len(c.Sections) == 0 {
    return []Section{}, nil
  }
  var sections []Section
  if err := json.Unmarshal(c.Sections, &sections); err != nil {
    return nil, err
  }
  return sections, nil
}

func (c *Course) SetAssessments(assessments []Assessment) error {
  if assessments == nil {
    assessments = []Assessment{}
  }
  raw, err := json.Marshal(assessments)
  if err != nil {
    return err
  }
  c.Assessments = datatypes.JSON(raw)
  return nil
}

func (c *Course) GetAssessments() ([]Assessment, error) {
  if len(c.Assessments) == 0 {
    return []Assessment{}, nil
  }
  var assessments []Assessment
  if err := json.Unmarshal(c.Assessments, &assessments); err != nil {
    return nil, err
  }
  return assessments, nil
}
