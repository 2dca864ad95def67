package models

import (
	"time"
)

type ReportStatus string

const (
	ReportProcessing ReportStatus = "processing"
	ReportAnalyzed   ReportStatus = "analyzed"
	ReportFailed     ReportStatus = "failed"
)

type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleDoctor  UserRole = "doctor"
)

// ParseUserRole maps any claim value onto the two roles the service knows.
func ParseUserRole(raw string) UserRole {
	if raw == string(RoleDoctor) {
		return RoleDoctor
	}
	return RolePatient
}

// Report is an uploaded medical document and the state of its analysis.
// Status leaves ReportProcessing exactly once.
type Report struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      string       `gorm:"not null;index" json:"user_id"`
	Role        UserRole     `gorm:"size:16;not null;default:'patient'" json:"role"`
	FilePath    string       `gorm:"size:512;not null" json:"file_path"`
	FileName    string       `gorm:"size:255" json:"file_name"`
	ContentType string       `gorm:"size:128" json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	Status      ReportStatus `gorm:"size:16;not null;default:'processing';index" json:"status"`
	AIResult    *string      `gorm:"column:ai_result;type:text" json:"ai_result"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (s ReportStatus) Terminal() bool {
	return s == ReportAnalyzed || s == ReportFailed
}
