package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Route string

const (
	RouteCase        Route = "case"
	RouteTeam        Route = "team"
	RouteImagingCase Route = "imaging+case"
	RouteImagingTeam Route = "imaging+team"
)

// ChatHistory is one question/answer exchange. Rows are insert-only.
type ChatHistory struct {
	UUID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"not null;index" json:"user_id"`
	UserMessage string         `gorm:"type:text;not null" json:"user_message"`
	AIResponse  string         `gorm:"column:ai_response;type:text;not null" json:"ai_response"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (ChatHistory) TableName() string {
	return "chat_history"
}

// ChatMetadata is stored in ChatHistory.Metadata.
type ChatMetadata struct {
	Route          Route    `json:"route"`
	AuxiliaryScore *float64 `json:"auxiliary_score,omitempty"`
	ImageReference string   `json:"image_reference,omitempty"`
}
