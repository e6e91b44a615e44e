package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/n3m01726/chattyChat/internal/domain"
)

const userColumns = `id, username, display_name, bio, pronouns, custom_color,
	avatar_url, banner_url, status, status_text, timezone, dark_mode,
	email, password_hash, is_suspended, created_at, last_seen, last_login`

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, display_name, custom_color, status, status_text,
			timezone, dark_mode, email, password_hash, is_suspended, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	status := u.Status
	if status == "" {
		status = domain.StatusOffline
	}
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	res, err := r.db.ExecContext(ctx, query,
		u.Username,
		u.DisplayName,
		u.CustomColor,
		status,
		u.StatusText,
		tz,
		u.DarkMode,
		u.Email,
		u.PasswordHash,
		u.IsSuspended,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	u.Status = status
	u.Timezone = tz
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(ctx, query, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanUser(ctx, query, username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(ctx, query, email)
}

func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("username exists: %w", err)
	}
	return true, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY last_seen DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateProfile reads the current row, merges the patch, and writes the full
// profile column set back. last_seen is always refreshed.
func (r *UserRepo) UpdateProfile(ctx context.Context, username string, patch *domain.ProfilePatch) error {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrNotFound
	}

	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.Pronouns != nil {
		u.Pronouns = *patch.Pronouns
	}
	if patch.CustomColor != nil {
		u.CustomColor = *patch.CustomColor
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	if patch.BannerURL != nil {
		u.BannerURL = *patch.BannerURL
	}
	if patch.Status != nil {
		u.Status = *patch.Status
	}
	if patch.StatusText != nil {
		u.StatusText = *patch.StatusText
	}
	if patch.Timezone != nil {
		u.Timezone = *patch.Timezone
	}
	if patch.DarkMode != nil {
		u.DarkMode = *patch.DarkMode
	}

	query := `
		UPDATE users
		SET display_name = ?, bio = ?, pronouns = ?, custom_color = ?,
			avatar_url = ?, banner_url = ?, status = ?, status_text = ?,
			timezone = ?, dark_mode = ?, last_seen = CURRENT_TIMESTAMP
		WHERE username = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		u.DisplayName,
		u.Bio,
		u.Pronouns,
		u.CustomColor,
		u.AvatarURL,
		u.BannerURL,
		u.Status,
		u.StatusText,
		u.Timezone,
		u.DarkMode,
		username,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *UserRepo) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE users SET status = ?, last_seen = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (r *UserRepo) SetCredentials(ctx context.Context, id int64, email, passwordHash string) error {
	query := `UPDATE users SET email = ?, password_hash = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, email, passwordHash, id); err != nil {
		return fmt.Errorf("set credentials: %w", err)
	}
	return nil
}

func (r *UserRepo) RecordLogin(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_login = CURRENT_TIMESTAMP, last_seen = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func (r *UserRepo) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	query := `UPDATE users SET is_suspended = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, suspended, id); err != nil {
		return fmt.Errorf("set suspended: %w", err)
	}
	return nil
}

// MarkAllOffline resets every user's status; run at startup so nobody stays
// "online" after a crash.
func (r *UserRepo) MarkAllOffline(ctx context.Context) error {
	query := `UPDATE users SET status = ? WHERE status != ?`
	if _, err := r.db.ExecContext(ctx, query, domain.StatusOffline, domain.StatusOffline); err != nil {
		return fmt.Errorf("mark all offline: %w", err)
	}
	return nil
}

// Delete removes the user row; owned messages go with it via the
// foreign-key cascade.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.Bio,
		&u.Pronouns,
		&u.CustomColor,
		&u.AvatarURL,
		&u.BannerURL,
		&u.Status,
		&u.StatusText,
		&u.Timezone,
		&u.DarkMode,
		&u.Email,
		&u.PasswordHash,
		&u.IsSuspended,
		&u.CreatedAt,
		&u.LastSeen,
		&u.LastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
