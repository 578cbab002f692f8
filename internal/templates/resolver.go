package templates

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTemplateNotFound = errors.New("TEMPLATE_NOT_FOUND")
	ErrTemplateLookup   = errors.New("TEMPLATE_LOOKUP_ERROR")
)

type Lookuper interface {
	Lookup(ctx context.Context, tenantID, key string) (*Template, error)
}

// Resolver renders the tenant's enabled template for a key against a payload.
type Resolver struct {
	Store Lookuper
}

func (r *Resolver) Resolve(ctx context.Context, tenantID, key string, payload map[string]any) (string, error) {
	t, err := r.Store.Lookup(ctx, tenantID, key)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateLookup, key, err)
	}
	if t == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	return Render(t.Body, payload), nil
}
