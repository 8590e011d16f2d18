package practice

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

type practiceRepoPG struct{ pool *pgxpool.Pool }

func NewPracticeRepoPG(pool *pgxpool.Pool) PracticeRepository {
	return &practiceRepoPG{pool: pool}
}

func (r *practiceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const practiceCols = `id, name, specialty, status, organization_id, created_by,
	phone, email, deleted_at, created_at, updated_at`

func scanPractice(row pgx.Row) (*Practice, error) {
	var p Practice
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.Status,
		&p.OrganizationID, &p.CreatedBy,
		&p.Phone, &p.Email, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *practiceRepoPG) Create(ctx context.Context, p *Practice) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practices (id, name, specialty, status, organization_id, created_by, phone, email)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Name, p.Specialty, p.Status, p.OrganizationID, p.CreatedBy, p.Phone, p.Email)
	return err
}

func (r *practiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practice, error) {
	p, err := scanPractice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practiceCols+` FROM practices WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *practiceRepoPG) Update(ctx context.Context, p *Practice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE practices SET name=$2, specialty=$3, status=$4, phone=$5, email=$6, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.Name, p.Specialty, p.Status, p.Phone, p.Email)
	return err
}

func (r *practiceRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE practices SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *practiceRepoPG) List(ctx context.Context, f ListFilter) ([]*Practice, int, error) {
	where := `deleted_at IS NULL`
	args := []interface{}{}
	n := 0

	if f.OwnerID != nil {
		n++
		where += fmt.Sprintf(` AND created_by = $%d`, n)
		args = append(args, *f.OwnerID)
	}
	if f.OrganizationIDs != nil {
		n++
		where += fmt.Sprintf(` AND organization_id = ANY($%d)`, n)
		args = append(args, f.OrganizationIDs)
	}
	if f.Status != "" {
		n++
		where += fmt.Sprintf(` AND status = $%d`, n)
		args = append(args, f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM practices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+practiceCols+` FROM practices WHERE `+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Practice
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
