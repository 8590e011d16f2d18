package workitem

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

type workItemRepoPG struct{ pool *pgxpool.Pool }

func NewWorkItemRepoPG(pool *pgxpool.Pool) WorkItemRepository {
	return &workItemRepoPG{pool: pool}
}

func (r *workItemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const workItemCols = `id, title, description, status, priority, practice_id,
	organization_id, assigned_to, created_by, due_at, completed_at,
	created_at, updated_at`

func scanWorkItem(row pgx.Row) (*WorkItem, error) {
	var w WorkItem
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Status, &w.Priority,
		&w.PracticeID, &w.OrganizationID, &w.AssignedTo, &w.CreatedBy,
		&w.DueAt, &w.CompletedAt, &w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *workItemRepoPG) Create(ctx context.Context, w *WorkItem) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO work_items (id, title, description, status, priority,
			practice_id, organization_id, assigned_to, created_by, due_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		w.ID, w.Title, w.Description, w.Status, w.Priority,
		w.PracticeID, w.OrganizationID, w.AssignedTo, w.CreatedBy, w.DueAt)
	return err
}

func (r *workItemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*WorkItem, error) {
	w, err := scanWorkItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+workItemCols+` FROM work_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *workItemRepoPG) Update(ctx context.Context, w *WorkItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE work_items SET title=$2, description=$3, status=$4, priority=$5,
			assigned_to=$6, due_at=$7, completed_at=$8, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Title, w.Description, w.Status, w.Priority,
		w.AssignedTo, w.DueAt, w.CompletedAt)
	return err
}

func (r *workItemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM work_items WHERE id = $1`, id)
	return err
}

func (r *workItemRepoPG) List(ctx context.Context, f ListFilter) ([]*WorkItem, int, error) {
	where := `TRUE`
	args := []interface{}{}
	n := 0

	if f.OwnerID != nil {
		n++
		where += fmt.Sprintf(` AND (assigned_to = $%d OR (assigned_to IS NULL AND created_by = $%d))`, n, n)
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
	if f.PracticeID != nil {
		n++
		where += fmt.Sprintf(` AND practice_id = $%d`, n)
		args = append(args, *f.PracticeID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM work_items WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+workItemCols+` FROM work_items WHERE `+where+
		` ORDER BY priority DESC, created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, rows.Err()
}
