// Package tenant defines the tenant domain model and the read-only
// membership store the authorization layer builds request contexts from.
//
// The bridge never writes tenant or membership rows; provisioning belongs
// to the management plane. This package only reads, which keeps the
// authentication path free of write-ordering concerns and lets the store
// run against a replica.
//
// Membership Model:
//
// A [Membership] associates an identity-provider subject with exactly one
// tenant and one tenant-scoped [Role]. The pair (subject, tenant) is unique.
// Tenant roles form a strict containment hierarchy:
//
//	owner ⊃ admin ⊃ member
//
// Tenant roles are deliberately separate from platform-level roles carried
// in access tokens. A platform administrator holds no implicit tenant role,
// and a tenant owner holds no platform authority; the two sources are never
// merged into one field.
package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Role represents a tenant-scoped authority level. Roles are assigned per
// membership row; a subject may hold different roles in different tenants.
type Role string

const (
	// RoleOwner is the highest tenant authority. Owners hold every
	// admin capability plus tenant lifecycle control (rename,
	// deactivate, transfer).
	RoleOwner Role = "owner"

	// RoleAdmin grants tenant management capabilities (member
	// administration, settings) without tenant lifecycle control.
	RoleAdmin Role = "admin"

	// RoleMember is the baseline authority: access to tenant resources
	// without management capabilities.
	RoleMember Role = "member"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// IsAdminRole reports whether the role grants tenant management
// capabilities (owner or admin).
func (r Role) IsAdminRole() bool {
	return r == RoleOwner || r == RoleAdmin
}

// slugPattern matches lowercase URL-safe tenant slugs: segments of
// lowercase letters and digits separated by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant represents an organization that owns resources and holds
// memberships. Tenant rows are provisioned by the management plane; the
// bridge reads them to resolve membership slugs and activity state.
//
// Fields are annotated with JSON tags (for API serialization) and db tags
// (for database column mapping).
type Tenant struct {
	// ID is the unique identifier for this tenant (UUID v4).
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the human-readable display name.
	Name string `json:"name" db:"name"`

	// Slug is the lowercase URL-safe identifier used in routing and
	// cache keys. Unique across tenants.
	Slug string `json:"slug" db:"slug"`

	// Active reports whether the tenant is currently enabled.
	// Memberships in inactive tenants confer no authority.
	Active bool `json:"active" db:"active"`

	// CreatedAt is the UTC timestamp when the tenant was provisioned.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the UTC timestamp when the tenant row was last
	// modified.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewTenant creates a Tenant with a generated UUID, active state, and UTC
// timestamps. It is used by provisioning flows and test fixtures; the
// bridge itself never creates tenants.
//
// Returns an error if name is empty or slug does not match the slug
// format (lowercase letters, digits, single hyphens).
func NewTenant(name, slug string) (*Tenant, error) {
	if name == "" {
		return nil, errors.New("tenant: name must not be empty")
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("tenant: slug %q must be lowercase letters, digits, and single hyphens", slug)
	}

	now := time.Now().UTC()
	return &Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks that all required fields are present and well formed.
// Returns the first validation error encountered, or nil if the tenant
// is valid.
func (t *Tenant) Validate() error {
	if t.ID == uuid.Nil {
		return errors.New("tenant: ID is required")
	}
	if t.Name == "" {
		return errors.New("tenant: name is required")
	}
	if !slugPattern.MatchString(t.Slug) {
		return fmt.Errorf("tenant: invalid slug %q", t.Slug)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("tenant: created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return errors.New("tenant: updated_at is required")
	}
	return nil
}

// Membership associates an identity-provider subject with a tenant and a
// tenant-scoped role. Membership rows are read-only from the bridge's
// perspective and unique per (subject, tenant).
//
// TenantSlug is denormalized from the tenant row so that authorization
// contexts can route by slug without a second lookup.
type Membership struct {
	// UserSubject is the identity-provider subject claim value
	// identifying the member. Opaque to the bridge; compared byte for
	// byte.
	UserSubject string `json:"user_subject" db:"user_subject"`

	// TenantID is the UUID of the tenant this membership belongs to.
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`

	// TenantSlug is the slug of the tenant this membership belongs to.
	TenantSlug string `json:"tenant_slug" db:"tenant_slug"`

	// Role is the tenant-scoped authority level this membership grants.
	Role Role `json:"role" db:"role"`

	// CreatedAt is the UTC timestamp when the membership was granted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewMembership creates a Membership with UTC creation time. It is used by
// provisioning flows and test fixtures.
//
// Returns an error if subject is empty, tenantID is the nil UUID, or role
// is not a recognized value.
func NewMembership(subject string, tenantID uuid.UUID, tenantSlug string, role Role) (*Membership, error) {
	if subject == "" {
		return nil, errors.New("tenant: membership subject must not be empty")
	}
	if tenantID == uuid.Nil {
		return nil, errors.New("tenant: membership tenant ID must not be nil")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("tenant: invalid membership role %q", role)
	}

	return &Membership{
		UserSubject: subject,
		TenantID:    tenantID,
		TenantSlug:  tenantSlug,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Validate checks that all required fields are present and that the role
// is a recognized value. Returns the first validation error encountered,
// or nil if the membership is valid.
func (m *Membership) Validate() error {
	if m.UserSubject == "" {
		return errors.New("tenant: membership user subject is required")
	}
	if m.TenantID == uuid.Nil {
		return errors.New("tenant: membership tenant ID is required")
	}
	if !m.Role.Valid() {
		return fmt.Errorf("tenant: invalid membership role %q", m.Role)
	}
	return nil
}
