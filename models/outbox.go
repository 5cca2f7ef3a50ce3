package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxEvent.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// OutboxEvent is written in the same transaction as the person/report change it describes.
// The dispatcher publishes it after commit.
type OutboxEvent struct {
	ID               int                 `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	ReferenceType    OutboxReferenceType `gorm:"size:1;not null" json:"reference_type"`
	ReferenceId      int                 `gorm:"not null;index" json:"reference_id"`
	Action           OutboxAction        `gorm:"size:1;not null" json:"action"`
	UserId           int                 `gorm:"index" json:"user_id"`
	Payload          []byte              `gorm:"type:blob" json:"payload"`
	PublishStatus    string              `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time          `json:"published_at"`
	PubSubMessageId  *string             `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time          `json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError *string             `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// writeOutboxEvent records a lifecycle event inside the caller's transaction.
func writeOutboxEvent(ctx context.Context, tx *gorm.DB, refType OutboxReferenceType, refId int, action OutboxAction, obj interface{}) error {
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	event := OutboxEvent{
		ReferenceType: refType,
		ReferenceId:   refId,
		Action:        action,
		UserId:        userId,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.WithContext(ctx).Create(&event).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToPubSubMessage(event OutboxEvent) config.PubSubMessage {
	return config.PubSubMessage{
		ID:            event.ID,
		EventType:     eventType(event.ReferenceType, event.Action),
		ReferenceType: string(event.ReferenceType),
		ReferenceId:   event.ReferenceId,
		UserId:        event.UserId,
		OccurredAt:    event.CreatedAt,
		Payload:       event.Payload,
		CorrelationId: event.CorrelationId,
	}
}
