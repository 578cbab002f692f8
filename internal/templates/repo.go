package templates

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type Repo struct {
	DB *gorm.DB
}

// Lookup returns the enabled template for (tenantID, key).
// Disabled and foreign-tenant templates are reported as ErrNotFound.
func (r *Repo) Lookup(ctx context.Context, tenantID, key string) (*Template, error) {
	var t Template
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND key = ? AND enabled = ?", tenantID, key, true).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) List(ctx context.Context, tenantID string) ([]Template, error) {
	var out []Template
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("key asc").
		Find(&out).Error
	return out, err
}
