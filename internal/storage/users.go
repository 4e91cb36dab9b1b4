package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"finflow/internal/core"
	flog "finflow/internal/log"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at`

// CreateUser inserts the user and its profile in one transaction.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.now()
	stamp := now.Format(timestampLayout)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, first_name, last_name, password_hash, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, stamp)
		if err != nil {
			return classifyUserErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, current_year, updated_at) VALUES (?, ?, ?)`,
			id, now.Year(), stamp); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		u.ID = id
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = parseStamp(stamp)

	slog.InfoContext(ctx, "User saved to SQLite", flog.FieldComponent, flog.ComponentStorage, "id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UserTaken reports which of username and email are already registered.
func (r *SQLiteRepository) UserTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT
			EXISTS (SELECT 1 FROM users WHERE username = ?),
			EXISTS (SELECT 1 FROM users WHERE email = ?)`,
		username, email).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return usernameTaken, emailTaken, nil
}

// SaveSettings stores the editable account fields and the business profile
// in one transaction.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, u core.User, p core.Profile) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET first_name = ?, last_name = ?, email = ? WHERE id = ?`,
			u.FirstName, u.LastName, u.Email, u.ID)
		if err != nil {
			return classifyUserErr(err)
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx,
			`UPDATE profiles SET business_name = ?, logo_path = ?, current_year = ?, updated_at = ? WHERE user_id = ?`,
			p.BusinessName, p.LogoPath, p.CurrentYear, r.stamp(), u.ID)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return expectOneRow(res)
	})
}

// GetProfile returns the user's profile, creating an empty one if it is missing.
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID int64) (core.Profile, error) {
	var (
		p     core.Profile
		stamp string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, business_name, logo_path, current_year, updated_at FROM profiles WHERE user_id = ?`,
		userID).Scan(&p.UserID, &p.BusinessName, &p.LogoPath, &p.CurrentYear, &stamp)
	if err == sql.ErrNoRows {
		now := r.now()
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO profiles (user_id, current_year, updated_at) VALUES (?, ?, ?)`,
			userID, now.Year(), now.Format(timestampLayout)); err != nil {
			return core.Profile{}, fmt.Errorf("create missing profile: %w", err)
		}
		return core.Profile{UserID: userID, CurrentYear: now.Year(), UpdatedAt: now}, nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.UpdatedAt = parseStamp(stamp)
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u     core.User
		stamp string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &stamp); err != nil {
		return core.User{}, notFound(err)
	}
	u.CreatedAt = parseStamp(stamp)
	return u, nil
}

func classifyUserErr(err error) error {
	if !isUniqueConstraintErr(err) {
		return fmt.Errorf("write user: %w", err)
	}
	if strings.Contains(err.Error(), "users.email") {
		return core.ErrEmailTaken
	}
	return core.ErrUsernameTaken
}
