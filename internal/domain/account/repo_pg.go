package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insano70/bcos-sub014/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns pgx-backed implementations of the account repositories.
// One struct serves all three; the tables are too entangled to split.
func NewRepoPG(pool *pgxpool.Pool) (UserRepository, RoleRepository, MembershipRepository) {
	r := &repoPG{pool: pool}
	return r, r, r
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, email, first_name, last_name, is_active, deleted_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.IsActive, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.IsActive = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, is_active)
		VALUES ($1,$2,$3,$4,TRUE)`,
		u.ID, u.Email, u.FirstName, u.LastName)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email=$2, first_name=$3, last_name=$4, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		u.ID, u.Email, u.FirstName, u.LastName)
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*User, int, error) {
	where := `u.deleted_at IS NULL`
	args := []interface{}{}
	n := 0

	if !f.IncludeInactive {
		where += ` AND u.is_active`
	}
	from := `users u`
	if f.OrganizationIDs != nil {
		n++
		from = `users u JOIN user_organizations uo ON uo.user_id = u.id`
		where += fmt.Sprintf(` AND uo.organization_id = ANY($%d)`, n)
		args = append(args, f.OrganizationIDs)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(DISTINCT u.id) FROM `+from+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT DISTINCT u.id, u.email, u.first_name, u.last_name,
			u.is_active, u.deleted_at, u.created_at, u.updated_at
		FROM `+from+` WHERE `+where+
		` ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	var role Role
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, description, is_system_role, organization_id, created_at
		FROM roles WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsSystemRole,
			&role.OrganizationID, &role.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &role, err
}

func (r *repoPG) ListRoles(ctx context.Context, organizationID *uuid.UUID) ([]*Role, error) {
	query := `
		SELECT id, name, description, is_system_role, organization_id, created_at
		FROM roles WHERE deleted_at IS NULL`
	args := []interface{}{}
	if organizationID != nil {
		query += ` AND (organization_id = $1 OR is_system_role)`
		args = append(args, *organizationID)
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description,
			&role.IsSystemRole, &role.OrganizationID, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func (r *repoPG) ListAssignments(ctx context.Context, userID uuid.UUID) ([]*RoleAssignment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT ur.id, ur.user_id, ur.role_id, ro.name, ur.organization_id, ur.expires_at, ur.created_at
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1 AND ur.is_active
		ORDER BY ur.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.RoleID, &a.RoleName,
			&a.OrganizationID, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) Assign(ctx context.Context, a *RoleAssignment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO user_roles (id, user_id, role_id, organization_id, expires_at, is_active)
		VALUES ($1,$2,$3,$4,$5,TRUE)
		ON CONFLICT (user_id, role_id) DO UPDATE
		SET is_active = TRUE, organization_id = EXCLUDED.organization_id, expires_at = EXCLUDED.expires_at`,
		a.ID, a.UserID, a.RoleID, a.OrganizationID, a.ExpiresAt)
	return err
}

func (r *repoPG) Revoke(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE user_roles SET is_active = FALSE
		WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

func (r *repoPG) ListForUser(ctx context.Context, userID uuid.UUID) ([]*MembershipRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT user_id, organization_id, is_primary, created_at
		FROM user_organizations WHERE user_id = $1
		ORDER BY is_primary DESC, created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MembershipRecord
	for rows.Next() {
		var m MembershipRecord
		if err := rows.Scan(&m.UserID, &m.OrganizationID, &m.IsPrimary, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *repoPG) Add(ctx context.Context, m *MembershipRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO user_organizations (user_id, organization_id, is_primary)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET is_primary = EXCLUDED.is_primary`,
		m.UserID, m.OrganizationID, m.IsPrimary)
	return err
}

func (r *repoPG) Remove(ctx context.Context, userID, organizationID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM user_organizations WHERE user_id = $1 AND organization_id = $2`,
		userID, organizationID)
	return err
}
