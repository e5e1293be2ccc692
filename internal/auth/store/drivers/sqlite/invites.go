package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/domain"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, tenant_id, email, role, invited_by_user_id, token_hash,
	max_uses, uses, expires_at, used_at, used_by_user_id, created_at, updated_at`

func scanInvite(row *sql.Row) (domain.Invite, error) {
	var (
		inv    domain.Invite
		role   string
		usedAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &role, &inv.InvitedByUserID, &inv.TokenHash,
		&inv.MaxUses, &inv.Uses, &inv.ExpiresAt, &usedAt, &inv.UsedByUserID,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.Role = domain.Role(role)
	inv.UsedAt = mapNullTimePtr(usedAt)
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (
			id, tenant_id, email, role, invited_by_user_id, token_hash,
			max_uses, uses, expires_at, used_at, used_by_user_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TenantID, inv.Email, string(inv.Role), inv.InvitedByUserID,
		inv.TokenHash, inv.MaxUses, inv.Uses, inv.ExpiresAt.UTC(),
		mapOptionalTime(inv.UsedAt), inv.UsedByUserID, now, now,
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id))
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE token_hash = ?`, hash))
}

func (r *invitesRepo) FindPendingInviteByEmail(
	ctx context.Context,
	tenantID, email string,
	now time.Time,
) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM invites
		WHERE tenant_id = ? AND email = ? AND uses < max_uses AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`,
		tenantID, email, now.UTC()))
}

func (r *invitesRepo) ConsumeInvite(
	ctx context.Context,
	id, usedByUserID string,
	now time.Time,
) (domain.Invite, error) {
	// Conditional increment: pending state is re-checked inside the UPDATE,
	// so a concurrent consume of the final use leaves exactly one winner.
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET
			uses = uses + 1,
			used_at = CASE WHEN uses + 1 >= max_uses THEN ? ELSE used_at END,
			used_by_user_id = CASE WHEN uses + 1 >= max_uses THEN ? ELSE used_by_user_id END,
			updated_at = ?
		WHERE id = ? AND uses < max_uses AND expires_at > ?`,
		now.UTC(), usedByUserID, time.Now().UTC(), id, now.UTC(),
	)
	if err != nil {
		return domain.Invite{}, err
	}
	if err := requireRow(res); err != nil {
		return domain.Invite{}, err
	}

	return r.GetInviteByID(ctx, id)
}

func (r *invitesRepo) DeleteInvite(ctx context.Context, tenantID, id string) error {
	// Deletion is only legal while the invite is untouched, and only within
	// the owning tenant.
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE id = ? AND tenant_id = ? AND uses = 0`, id, tenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
