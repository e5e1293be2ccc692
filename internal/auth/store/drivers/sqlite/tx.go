package sqlite

import (
	"context"
	"database/sql"

	"github.com/sysdesk/sysdesk/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays
// open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users       { return &usersRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{db: t.tx} }
func (t *txStore) Invites() store.Invites   { return &invitesRepo{db: t.tx} }
func (t *txStore) Tenants() store.Tenants   { return &tenantsRepo{db: t.tx} }
