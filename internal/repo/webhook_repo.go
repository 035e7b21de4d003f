package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

// CreateWebhookEvent records a processed provider delivery; a
// (provider, event_id) collision surfaces as ErrDuplicate.
func CreateWebhookEvent(ctx context.Context, db *gorm.DB, provider, eventID, eventType, payload string) (*domain.WebhookEvent, error) {
	w := &domain.WebhookEvent{
		ID:        uuid.NewString(),
		Provider:  provider,
		EventID:   eventID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(w).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return w, nil
}

// GetWebhookEvent fetches a recorded delivery by provider and event id, or
// ErrNotFound.
func GetWebhookEvent(ctx context.Context, db *gorm.DB, provider, eventID string) (*domain.WebhookEvent, error) {
	var w domain.WebhookEvent
	err := db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}
