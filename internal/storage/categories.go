package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"finflow/internal/core"
	flog "finflow/internal/log"
)

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	stamp := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, category_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), stamp, stamp)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = parseStamp(stamp)
	c.UpdatedAt = c.CreatedAt

	slog.InfoContext(ctx, "Category saved to SQLite", flog.FieldComponent, flog.ComponentStorage, "id", id, flog.FieldUserID, c.UserID, "type", c.Type)
	return c, nil
}

// GetCategory loads a category owned by userID.
func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.category_type, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM transactions t WHERE t.category_id = c.id)
		 FROM categories c WHERE c.id = ? AND c.user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound(err)
	}
	return c, nil
}

// UpdateCategory renames or retypes a category owned by c.UserID.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	stamp := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, category_type = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Type), stamp, c.ID, c.UserID)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Category{}, err
	}
	return r.GetCategory(ctx, c.UserID, c.ID)
}

// DeleteCategory removes a category and clears it from the owner's
// transactions, keeping their amounts and dates.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) (int64, error) {
	var orphaned int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET category_id = NULL, updated_at = ? WHERE category_id = ? AND user_id = ?`,
			r.stamp(), id, userID)
		if err != nil {
			return fmt.Errorf("orphan transactions: %w", err)
		}
		if orphaned, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return expectOneRow(res)
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Category deleted from SQLite", flog.FieldComponent, flog.ComponentStorage, "id", id, flog.FieldUserID, userID, "orphaned_transactions", orphaned)
	return orphaned, nil
}

// ListCategories returns the user's categories ordered by type then name.
// An empty kind lists both types.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	query := `SELECT c.id, c.user_id, c.name, c.category_type, c.created_at, c.updated_at,
	                 (SELECT COUNT(*) FROM transactions t WHERE t.category_id = c.id)
	          FROM categories c WHERE c.user_id = ?`
	args := []any{userID}
	if kind != "" {
		query += ` AND c.category_type = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY c.category_type, c.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c                core.Category
		kind             string
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &kind, &created, &updated, &c.TransactionCount); err != nil {
		return core.Category{}, err
	}
	c.Type = core.Kind(kind)
	c.CreatedAt = parseStamp(created)
	c.UpdatedAt = parseStamp(updated)
	return c, nil
}
