package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insano70/bcos-sub014/internal/platform/db"
)

// queryable abstracts pgxpool.Pool, pgxpool.Conn, and pgx.Tx so repository
// calls join an ambient transaction when one is present.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// -- Organization store --

type orgStorePG struct {
	pool *pgxpool.Pool
}

// NewOrganizationStorePG creates a Postgres-backed OrganizationStore.
func NewOrganizationStorePG(pool *pgxpool.Pool) OrganizationStore {
	return &orgStorePG{pool: pool}
}

func (r *orgStorePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orgColumns = `id, name, parent_organization_id, is_active, deleted_at`

func (r *orgStorePG) ListAll(ctx context.Context, includeInactive bool) ([]*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations`
	if !includeInactive {
		query += ` WHERE is_active = true AND deleted_at IS NULL`
	}

	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.ParentID, &o.IsActive, &o.DeletedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, &o)
	}
	return orgs, rows.Err()
}

func (r *orgStorePG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var o Organization
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.ParentID, &o.IsActive, &o.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Kind: "organization", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// -- User directory --

type userDirectoryPG struct {
	pool *pgxpool.Pool
}

// NewUserDirectoryPG creates a Postgres-backed UserDirectory.
func NewUserDirectoryPG(pool *pgxpool.Pool) UserDirectory {
	return &userDirectoryPG{pool: pool}
}

func (r *userDirectoryPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *userDirectoryPG) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, email, is_active, deleted_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.IsActive, &u.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActiveGrants loads active, unexpired role assignments with the
// permission names of each role, aggregated per assignment.
func (r *userDirectoryPG) ListActiveGrants(ctx context.Context, userID uuid.UUID) ([]RoleGrant, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT
			ro.id,
			ro.name,
			ro.is_system_role,
			ur.organization_id,
			COALESCE(ARRAY_AGG(p.name) FILTER (WHERE p.name IS NOT NULL), '{}')
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id AND ro.deleted_at IS NULL
		LEFT JOIN role_permissions rp ON rp.role_id = ro.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		  AND ur.is_active = true
		  AND (ur.expires_at IS NULL OR ur.expires_at > NOW())
		GROUP BY ro.id, ro.name, ro.is_system_role, ur.organization_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []RoleGrant
	for rows.Next() {
		var g RoleGrant
		if err := rows.Scan(&g.RoleID, &g.RoleName, &g.IsSystemRole, &g.OrganizationID, &g.PermissionNames); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *userDirectoryPG) ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT uo.organization_id, uo.is_primary
		FROM user_organizations uo
		JOIN organizations o ON o.id = uo.organization_id
		WHERE uo.user_id = $1
		  AND o.is_active = true
		  AND o.deleted_at IS NULL
		ORDER BY uo.is_primary DESC, uo.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.OrganizationID, &m.IsPrimary); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}
