package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, refresh_token_hash, access_token_hash, ip,
	user_agent, issued_at, access_expires_at, refresh_expires_at, is_active,
	revoked_at, revoked_reason, created_at, updated_at`

func scanSession(row *sql.Row) (domain.Session, error) {
	var (
		s         domain.Session
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.AccessTokenHash, &s.IP,
		&s.UserAgent, &s.IssuedAt, &s.AccessExpiresAt, &s.RefreshExpiresAt,
		&s.IsActive, &revokedAt, &s.RevokedReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.RevokedAt = mapNullTimePtr(revokedAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, user_id, refresh_token_hash, access_token_hash, ip, user_agent,
			issued_at, access_expires_at, refresh_expires_at, is_active,
			revoked_at, revoked_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.AccessTokenHash, s.IP, s.UserAgent,
		s.IssuedAt.UTC(), s.AccessExpiresAt.UTC(), s.RefreshExpiresAt.UTC(), s.IsActive,
		mapOptionalTime(s.RevokedAt), s.RevokedReason, now, now,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) GetActiveSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE refresh_token_hash = ? AND is_active = 1 AND refresh_expires_at > ?`,
		hash, time.Now().UTC()))
}

func (r *sessionsRepo) RotateSession(
	ctx context.Context,
	oldRefreshHash string,
	revokedAt time.Time,
	next domain.Session,
) error {
	// Conditional revoke keyed on (hash AND is_active): of two concurrent
	// rotations exactly one flips the row, the other sees zero rows and
	// loses. Read-then-write would let both win.
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			is_active = 0,
			revoked_at = ?,
			revoked_reason = ?,
			updated_at = ?
		WHERE refresh_token_hash = ? AND is_active = 1 AND refresh_expires_at > ?`,
		revokedAt.UTC(), domain.RevokedReasonRotated, time.Now().UTC(),
		oldRefreshHash, revokedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return r.CreateSession(ctx, next)
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id, reason string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			is_active = 0,
			revoked_at = ?,
			revoked_reason = ?,
			updated_at = ?
		WHERE id = ? AND is_active = 1`,
		at.UTC(), reason, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RevokeAllUserSessions(
	ctx context.Context,
	userID, reason string,
	at time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			is_active = 0,
			revoked_at = ?,
			revoked_reason = ?,
			updated_at = ?
		WHERE user_id = ? AND is_active = 1`,
		at.UTC(), reason, time.Now().UTC(), userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) SweepExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			is_active = 0,
			revoked_at = ?,
			revoked_reason = ?,
			updated_at = ?
		WHERE is_active = 1 AND refresh_expires_at <= ?`,
		now.UTC(), domain.RevokedReasonExpired, time.Now().UTC(), now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
