package schedules

import (
	"time"

	"gorm.io/datatypes"
)

// Schedule spawns one job per due tick. Either CronExpr or IntervalSeconds drives
// the cadence; CronExpr wins when both are set.
type Schedule struct {
	ID              string            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID        string            `gorm:"type:uuid;index;not null" json:"tenant_id"`
	ScheduleKey     string            `gorm:"type:text;not null" json:"schedule_key"`
	TemplateKey     string            `gorm:"type:text;not null" json:"template_key"`
	Enabled         bool              `gorm:"not null;default:true" json:"enabled"`
	NextRunAt       time.Time         `gorm:"not null" json:"next_run_at"`
	IntervalSeconds int               `gorm:"not null;default:86400" json:"interval_seconds"`
	CronExpr        *string           `gorm:"type:text" json:"cron_expr,omitempty"`
	Timezone        string            `gorm:"type:text;not null;default:'UTC'" json:"timezone"`
	Payload         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'::jsonb" json:"payload"`
	CreatedAt       time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (Schedule) TableName() string { return "whatsapp_schedules" }

// Due is a picked schedule together with the tick that made it due,
// i.e. next_run_at before the store advanced it.
type Due struct {
	Schedule
	DueNextRunAt time.Time
}
