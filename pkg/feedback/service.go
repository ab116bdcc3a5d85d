package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/redact"
)

// ErrInvalidRating rejects ratings outside the 1..5 scale.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Store persists feedback entries.
type Store interface {
	Create(ctx context.Context, entry models.Feedback) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Feedback, error)
}

// Publisher pushes analytics events onto the event bus.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	store     Store
	publisher Publisher
	redactor  *redact.Redactor
}

func NewService(store Store, publisher Publisher, redactor *redact.Redactor) *Service {
	return &Service{store: store, publisher: publisher, redactor: redactor}
}

// Submit validates and stores one feedback entry, then emits a scrubbed
// analytics event. Event publishing is best-effort.
func (s *Service) Submit(ctx context.Context, sessionID, userID string, req models.FeedbackRequest) (models.Feedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return models.Feedback{}, ErrInvalidRating
	}
	category := req.Category
	if category == "" {
		category = "general"
	}

	entry := models.Feedback{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Rating:    req.Rating,
		Category:  category,
		Comment:   req.Comment,
		Context:   req.Context,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return models.Feedback{}, err
	}

	if s.publisher != nil {
		data := s.redactor.Scrub(map[string]interface{}{
			"feedback_id": entry.ID.String(),
			"session_id":  sessionID,
			"rating":      entry.Rating,
			"category":    entry.Category,
			"comment":     entry.Comment,
		})
		if err := s.publisher.PublishEvent(ctx, "feedback_submitted", "intake-service", data); err != nil {
			logger.Log.WithError(err).Warn("failed to publish feedback event")
		}
	}

	return entry, nil
}

func (s *Service) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Feedback, error) {
	return s.store.ListBySession(ctx, sessionID, limit)
}
