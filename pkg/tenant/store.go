package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/StricklySoft/authbridge/pkg/clients/postgres"
	sserr "github.com/StricklySoft/authbridge/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/authbridge/pkg/tenant"

// Lookup is the read-only membership query surface. It is implemented by
// [Store] and decorated by [Cache]; the authorization layer depends on this
// interface rather than on a concrete store.
type Lookup interface {
	// MembershipsBySubject returns every membership the subject holds in
	// active tenants. Zero memberships is a valid result: an empty slice
	// and a nil error, never an error.
	MembershipsBySubject(ctx context.Context, subject string) ([]Membership, error)
}

// Store reads tenant and membership rows through the platform postgres
// client. All queries are read-only; the bridge never writes these tables.
//
// A Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     *postgres.Client
	tracer trace.Tracer
}

// Compile-time interface compliance check.
var _ Lookup = (*Store)(nil)

// NewStore creates a Store backed by the given postgres client.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// MembershipsBySubject returns every membership the subject holds in active
// tenants, ordered by tenant slug for deterministic output. A subject with
// no memberships yields an empty slice and a nil error.
//
// Database errors are returned as classified by the postgres client
// ([sserr.CodeTimeoutDatabase] or [sserr.CodeInternalDatabase]); callers
// that surface unavailability map them at their own boundary.
func (s *Store) MembershipsBySubject(ctx context.Context, subject string) ([]Membership, error) {
	ctx, span := s.startSpan(ctx, "MembershipsBySubject", subject)
	defer span.End()

	rows, err := s.db.Query(ctx, `
		SELECT m.user_subject, m.tenant_id, t.slug, m.role, m.created_at
		FROM tenant_memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_subject = $1 AND t.active
		ORDER BY t.slug`,
		subject,
	)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	defer rows.Close()

	memberships := make([]Membership, 0, 4)
	for rows.Next() {
		var m Membership
		if scanErr := rows.Scan(&m.UserSubject, &m.TenantID, &m.TenantSlug, &m.Role, &m.CreatedAt); scanErr != nil {
			finishSpan(span, scanErr)
			return nil, sserr.Wrap(scanErr, sserr.CodeInternalDatabase,
				"tenant: failed to scan membership row")
		}
		memberships = append(memberships, m)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		finishSpan(span, rowsErr)
		return nil, sserr.Wrap(rowsErr, sserr.CodeInternalDatabase,
			"tenant: membership row iteration failed")
	}

	span.SetAttributes(attribute.Int("tenant.membership_count", len(memberships)))
	finishSpan(span, nil)
	return memberships, nil
}

// MembershipForTenant returns the subject's membership in one tenant.
//
// Returns a [*sserr.Error] with code [sserr.CodeAuthorizationNotMember]
// when the subject holds no membership in the tenant (or the tenant is
// inactive). Database errors pass through as classified by the postgres
// client.
func (s *Store) MembershipForTenant(ctx context.Context, subject string, tenantID uuid.UUID) (*Membership, error) {
	ctx, span := s.startSpan(ctx, "MembershipForTenant", subject)
	span.SetAttributes(attribute.String("tenant.id", tenantID.String()))
	defer span.End()

	var m Membership
	err := s.db.QueryRow(ctx, `
		SELECT m.user_subject, m.tenant_id, t.slug, m.role, m.created_at
		FROM tenant_memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_subject = $1 AND m.tenant_id = $2 AND t.active`,
		subject, tenantID,
	).Scan(&m.UserSubject, &m.TenantID, &m.TenantSlug, &m.Role, &m.CreatedAt)
	if err != nil {
		finishSpan(span, err)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sserr.New(sserr.CodeAuthorizationNotMember,
				"tenant: subject is not a member of this tenant").
				WithDetail("tenant_id", tenantID.String())
		}
		return nil, wrapQueryError(err, "tenant: membership lookup failed")
	}

	finishSpan(span, nil)
	return &m, nil
}

// TenantBySlug returns the tenant with the given slug.
//
// Returns a [*sserr.Error] with code [sserr.CodeNotFoundTenant] when no
// tenant carries the slug. Inactive tenants are returned; callers decide
// whether inactive tenants are acceptable for their operation.
func (s *Store) TenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "tenant.TenantBySlug",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(attribute.String("tenant.slug", slug))
	defer span.End()

	var t Tenant
	err := s.db.QueryRow(ctx, `
		SELECT id, name, slug, active, created_at, updated_at
		FROM tenants
		WHERE slug = $1`,
		slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		finishSpan(span, err)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sserr.Newf(sserr.CodeNotFoundTenant,
				"tenant: no tenant with slug %q", slug)
		}
		return nil, wrapQueryError(err, "tenant: tenant lookup failed")
	}

	finishSpan(span, nil)
	return &t, nil
}

// IsMember reports whether the subject holds any membership in the tenant.
func (s *Store) IsMember(ctx context.Context, subject string, tenantID uuid.UUID) (bool, error) {
	m, err := s.MembershipForTenant(ctx, subject, tenantID)
	if err != nil {
		if sserr.HasCode(err, sserr.CodeAuthorizationNotMember) {
			return false, nil
		}
		return false, err
	}
	return m != nil, nil
}

// IsAdmin reports whether the subject holds an admin-capable role (owner
// or admin) in the tenant.
func (s *Store) IsAdmin(ctx context.Context, subject string, tenantID uuid.UUID) (bool, error) {
	m, err := s.MembershipForTenant(ctx, subject, tenantID)
	if err != nil {
		if sserr.HasCode(err, sserr.CodeAuthorizationNotMember) {
			return false, nil
		}
		return false, err
	}
	return m.Role.IsAdminRole(), nil
}

// IsOwner reports whether the subject holds the owner role in the tenant.
func (s *Store) IsOwner(ctx context.Context, subject string, tenantID uuid.UUID) (bool, error) {
	m, err := s.MembershipForTenant(ctx, subject, tenantID)
	if err != nil {
		if sserr.HasCode(err, sserr.CodeAuthorizationNotMember) {
			return false, nil
		}
		return false, err
	}
	return m.Role == RoleOwner, nil
}

// startSpan creates an internal span for a membership query keyed by
// subject. The subject claim is an opaque identifier, not PII, and is a
// standard dimension for authorization traces.
func (s *Store) startSpan(ctx context.Context, operationName, subject string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "tenant."+operationName,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(attribute.String("tenant.subject", subject))
	return ctx, span
}

// finishSpan records an error on the span (if any) and sets its status.
// The span itself is ended by the caller's deferred End.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// wrapQueryError preserves the postgres client's classification when the
// error already carries a platform code, and wraps raw scan errors as
// internal database failures otherwise.
func wrapQueryError(err error, message string) error {
	if _, ok := sserr.AsError(err); ok {
		return err
	}
	return sserr.Wrap(err, sserr.CodeInternalDatabase, message)
}
