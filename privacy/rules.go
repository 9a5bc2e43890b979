package privacy

import (
	"context"
	"fmt"
	"slices"
)

// Viewer is the user on whose behalf a write runs.
type Viewer interface {
	GetID() string
	GetRoles() []string
	// GetTenantID returns "" without multi-tenancy.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a context carrying viewer.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext returns the viewer carried by ctx, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a plain Viewer.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user id.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant id.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer denies writes made without a viewer.
func DenyIfNoViewer() MutationRule {
	return ContextMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("tablegate/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole allows writes by viewers holding role.
func HasRole(role string) MutationRule {
	return HasAnyRole(role)
}

// HasAnyRole allows writes by viewers holding any of roles.
func HasAnyRole(roles ...string) MutationRule {
	return ContextMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner allows writes whose column value equals the viewer's id.
func IsOwner(column string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		value, ok := m.Field(column)
		if !ok || value == nil {
			return Skip
		}
		if valueString(value) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule allows writes whose column value equals the viewer's tenant
// and denies writes to other tenants.
func TenantRule(column string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		value, ok := m.Field(column)
		if !ok {
			return Skip
		}
		if valueString(value) == viewer.GetTenantID() {
			return Allow
		}
		return Denyf("tablegate/privacy: tenant mismatch")
	})
}

func valueString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
