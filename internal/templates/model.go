package templates

import "time"

// Template is a tenant-scoped message body keyed by (tenant, key).
type Template struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  string    `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Key       string    `gorm:"type:text;not null" json:"key"`
	Enabled   bool      `gorm:"not null;default:true" json:"enabled"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Template) TableName() string { return "whatsapp_templates" }
