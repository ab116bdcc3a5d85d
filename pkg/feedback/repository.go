package feedback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/carepath-ai/platform/pkg/common/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type feedbackModel struct {
	ID        uuid.UUID      `gorm:"primaryKey;column:id"`
	SessionID string         `gorm:"column:session_id;index"`
	UserID    string         `gorm:"column:user_id"`
	Rating    int            `gorm:"column:rating"`
	Category  string         `gorm:"column:category"`
	Comment   string         `gorm:"column:comment"`
	Context   datatypes.JSON `gorm:"column:context"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (feedbackModel) TableName() string { return "intake_feedback" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&feedbackModel{})
}

func (r *Repository) Create(ctx context.Context, entry models.Feedback) error {
	row := &feedbackModel{
		ID:        entry.ID,
		SessionID: entry.SessionID,
		UserID:    entry.UserID,
		Rating:    entry.Rating,
		Category:  entry.Category,
		Comment:   entry.Comment,
		CreatedAt: entry.CreatedAt,
	}
	if entry.Context != nil {
		if data, err := json.Marshal(entry.Context); err == nil {
			row.Context = datatypes.JSON(data)
		}
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Feedback, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []feedbackModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]models.Feedback, 0, len(rows))
	for _, row := range rows {
		entry := models.Feedback{
			ID:        row.ID,
			SessionID: row.SessionID,
			UserID:    row.UserID,
			Rating:    row.Rating,
			Category:  row.Category,
			Comment:   row.Comment,
			CreatedAt: row.CreatedAt,
		}
		if len(row.Context) > 0 {
			var payload map[string]interface{}
			_ = json.Unmarshal(row.Context, &payload)
			entry.Context = payload
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
