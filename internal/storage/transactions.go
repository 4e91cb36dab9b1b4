package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finflow/internal/core"
	flog "finflow/internal/log"
)

// TransactionFilter narrows a user's transactions. Zero fields match everything.
type TransactionFilter struct {
	UserID     int64
	From       time.Time // inclusive
	To         time.Time // inclusive
	Type       core.Kind
	CategoryID int64
	// Search matches a case-insensitive substring of the description.
	Search string
	Limit  int
}

// TypeSums holds amount totals grouped by transaction type.
type TypeSums struct {
	Income  core.Money
	Expense core.Money
}

const transactionSelect = `SELECT t.id, t.user_id, t.date, t.description, t.category_id, COALESCE(c.name, ''), COALESCE(c.category_type, ''),
	       t.transaction_type, t.amount_cents, t.created_at, t.updated_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	stamp := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, category_id, date, description, transaction_type, amount_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, nullableID(t.CategoryID), t.Date.String(), t.Description, string(t.Type), t.Amount.Cents, stamp, stamp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		flog.FieldComponent, flog.ComponentStorage,
		"id", id,
		flog.FieldUserID, t.UserID,
		"type", t.Type,
		flog.FieldAmountCents, t.Amount.Cents,
		"date", t.Date.String())

	return r.GetTransaction(ctx, t.UserID, id)
}

// GetTransaction loads a transaction owned by userID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET category_id = ?, date = ?, description = ?, transaction_type = ?, amount_cents = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		nullableID(t.CategoryID), t.Date.String(), t.Description, string(t.Type), t.Amount.Cents, r.stamp(), t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", flog.FieldComponent, flog.ComponentStorage, "id", id, flog.FieldUserID, userID)
	return nil
}

// ListTransactions returns matching transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	where, args := f.where()
	query := transactionSelect + where + ` ORDER BY t.date DESC, t.created_at DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumTransactions totals matching amounts per type inside the database.
func (r *SQLiteRepository) SumTransactions(ctx context.Context, f TransactionFilter) (TypeSums, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.transaction_type, COALESCE(SUM(t.amount_cents), 0) FROM transactions t`+where+` GROUP BY t.transaction_type`,
		args...)
	if err != nil {
		return TypeSums{}, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	var sums TypeSums
	for rows.Next() {
		var (
			kind  string
			cents int64
		)
		if err := rows.Scan(&kind, &cents); err != nil {
			return TypeSums{}, fmt.Errorf("scan sum: %w", err)
		}
		switch core.Kind(kind) {
		case core.Income:
			sums.Income = core.Money{Cents: cents}
		case core.Expense:
			sums.Expense = core.Money{Cents: cents}
		}
	}
	return sums, rows.Err()
}

func (f TransactionFilter) where() (string, []any) {
	clauses := []string{"t.user_id = ?"}
	args := []any{f.UserID}
	if !f.From.IsZero() {
		clauses = append(clauses, "t.date >= ?")
		args = append(args, f.From.Format(core.DateLayout))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "t.date <= ?")
		args = append(args, f.To.Format(core.DateLayout))
	}
	if f.Type != "" {
		clauses = append(clauses, "t.transaction_type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID > 0 {
		clauses = append(clauses, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clauses = append(clauses, `t.description LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(s)+"%")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		date, kind       string
		categoryKind     string
		categoryID       sql.NullInt64
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.UserID, &date, &t.Description, &categoryID, &t.CategoryName, &categoryKind,
		&kind, &t.Amount.Cents, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = d
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
	}
	t.Type = core.Kind(kind)
	t.CategoryType = core.Kind(categoryKind)
	t.CreatedAt = parseStamp(created)
	t.UpdatedAt = parseStamp(updated)
	return t, nil
}
