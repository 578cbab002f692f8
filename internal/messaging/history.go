package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DirectionOutbound = "outbound"

// Message is one row of the WhatsApp conversation history.
type Message struct {
	ID         string            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   string            `gorm:"type:uuid;index;not null"`
	Direction  string            `gorm:"type:text;not null"`
	FromNumber *string           `gorm:"type:text"`
	ToNumber   string            `gorm:"type:text;not null"`
	Body       string            `gorm:"type:text;not null"`
	Raw        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:now()"`
}

func (Message) TableName() string { return "whatsapp_messages" }

type OutboundMessage struct {
	TenantID          string
	From              string
	To                string
	Body              string
	JobID             string
	TemplateKey       string
	ProviderMessageID string
}

type History struct {
	DB *gorm.DB
}

func (h *History) RecordOutbound(ctx context.Context, m OutboundMessage) error {
	row := Message{
		ID:        uuid.NewString(),
		TenantID:  m.TenantID,
		Direction: DirectionOutbound,
		ToNumber:  m.To,
		Body:      m.Body,
		Raw: datatypes.JSONMap{
			"source":       "cron_dispatch",
			"job_id":       m.JobID,
			"template_key": m.TemplateKey,
			"sid":          m.ProviderMessageID,
		},
	}
	if m.From != "" {
		row.FromNumber = &m.From
	}
	return h.DB.WithContext(ctx).Create(&row).Error
}
