package organization

import (
	"context"
	"errors"

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

type orgRepoPG struct{ pool *pgxpool.Pool }

func NewOrganizationRepoPG(pool *pgxpool.Pool) OrganizationRepository {
	return &orgRepoPG{pool: pool}
}

func (r *orgRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orgCols = `id, name, parent_organization_id, is_active, deleted_at, created_at, updated_at`

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.ParentID, &o.IsActive,
		&o.DeletedAt, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *orgRepoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	o.IsActive = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organizations (id, name, parent_organization_id, is_active)
		VALUES ($1,$2,$3,TRUE)`,
		o.ID, o.Name, o.ParentID)
	return err
}

func (r *orgRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o, err := scanOrganization(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *orgRepoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET name=$2, is_active=$3, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.Name, o.IsActive)
	return err
}

func (r *orgRepoPG) UpdateParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET parent_organization_id=$2, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, parentID)
	return err
}

func (r *orgRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organizations SET is_active=FALSE, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *orgRepoPG) List(ctx context.Context, ids []uuid.UUID) ([]*Organization, error) {
	query := `SELECT ` + orgCols + ` FROM organizations WHERE deleted_at IS NULL`
	args := []interface{}{}
	if ids != nil {
		query += ` AND id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}
