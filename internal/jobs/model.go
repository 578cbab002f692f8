package jobs

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const DefaultMaxAttempts = 3

// Job is one outbound WhatsApp message with its own retry state.
// A non-nil LockedBy means exactly one dispatch invocation owns the row.
type Job struct {
	ID       string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID string `gorm:"type:uuid;index;not null" json:"tenant_id"`

	Status Status    `gorm:"type:text;index;not null;default:'pending'" json:"status"`
	RunAt  time.Time `gorm:"index;not null" json:"run_at"`

	Attempts    int `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int `gorm:"not null;default:3" json:"max_attempts"`

	DedupeKey *string `gorm:"type:text" json:"dedupe_key"`

	ToPhone     string            `gorm:"type:text;not null" json:"to_phone"`
	TemplateKey string            `gorm:"type:text;not null" json:"template_key"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'::jsonb" json:"payload"`

	LastError *string `gorm:"type:text" json:"last_error"`

	LockedBy *string    `gorm:"type:text" json:"locked_by"`
	LockedAt *time.Time `gorm:"type:timestamptz" json:"locked_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "whatsapp_jobs" }

// Backoff is the delay before a failed job becomes due again:
// 2^attempts minutes, capped at one hour.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= 6 {
		return 60 * time.Minute
	}
	return time.Duration(1<<attempts) * time.Minute
}
