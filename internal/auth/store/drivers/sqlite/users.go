package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, tenant_id, email, name, password_hash, role, is_active,
	failed_login_attempts, locked_until, last_login_at, last_activity_at,
	created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		role         string
		lockedUntil  sql.NullTime
		lastLogin    sql.NullTime
		lastActivity sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.IsActive,
		&u.FailedLoginAttempts, &lockedUntil, &lastLogin, &lastActivity,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.LastActivityAt = mapNullTimePtr(lastActivity)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, tenantID, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND email = ?`, tenantID, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, tenant_id, email, name, password_hash, role, is_active,
			failed_login_attempts, locked_until, last_login_at, last_activity_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.TenantID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.IsActive,
		u.FailedLoginAttempts, mapOptionalTime(u.LockedUntil),
		mapOptionalTime(u.LastLoginAt), mapOptionalTime(u.LastActivityAt),
		now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) RecordLoginFailure(
	ctx context.Context,
	userID string,
	threshold int,
	lockUntil time.Time,
) (int, *time.Time, error) {
	// Single UPDATE so concurrent failures serialize in the database; a
	// read-modify-write on a stale in-process copy could under-count and
	// let an attacker dodge the lockout.
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE
				WHEN failed_login_attempts + 1 >= ? THEN ?
				ELSE locked_until
			END,
			updated_at = ?
		WHERE id = ?
		RETURNING failed_login_attempts, locked_until`,
		threshold, lockUntil.UTC(), time.Now().UTC(), userID,
	)

	var (
		attempts int
		locked   sql.NullTime
	)
	if err := row.Scan(&attempts, &locked); err != nil {
		return 0, nil, mapNotFound(err)
	}
	return attempts, mapNullTimePtr(locked), nil
}

func (r *usersRepo) ResetLoginFailures(ctx context.Context, userID string, loginAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			failed_login_attempts = 0,
			locked_until = NULL,
			last_login_at = ?,
			last_activity_at = ?,
			updated_at = ?
		WHERE id = ?`,
		loginAt.UTC(), loginAt.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) UpdateLastActivity(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_activity_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetUserActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
