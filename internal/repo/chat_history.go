package repo

import (
	"context"
	"encoding/json"
	"time"

	"oncology-assist-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type ChatHistoryRepo struct {
	db *gorm.DB
}

type ChatHistoryRepoInterface interface {
	CreateExchange(ctx context.Context, userID, userMessage, aiResponse string, meta models.ChatMetadata) (*models.ChatHistory, error)
	GetLatestByUser(ctx context.Context, userID string, limit int) ([]models.ChatHistory, error)
}

func NewChatHistoryRepository(db *gorm.DB) ChatHistoryRepoInterface {
	return &ChatHistoryRepo{db: db}
}

// CreateExchange stores one question and the answer that was returned for it.
func (r *ChatHistoryRepo) CreateExchange(ctx context.Context, userID, userMessage, aiResponse string, meta models.ChatMetadata) (*models.ChatHistory, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, errors.Wrap(err, "marshal chat metadata")
	}

	row := &models.ChatHistory{
		UUID:        uuid.New(),
		UserID:      userID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		Metadata:    datatypes.JSON(raw),
		CreatedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, errors.Wrap(err, "insert chat history")
	}
	return row, nil
}

// GetLatestByUser returns the newest exchanges first.
func (r *ChatHistoryRepo) GetLatestByUser(ctx context.Context, userID string, limit int) ([]models.ChatHistory, error) {
	// default + cap
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var rows []models.ChatHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query chat history")
	}
	return rows, nil
}
