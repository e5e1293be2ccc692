package cryptox

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch reports that a password does not match its stored hash.
var ErrMismatch = errors.New("cryptox: password mismatch")

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// dummyHash is a valid bcrypt digest (cost 12) used to burn comparison cost
// when the looked-up user does not exist, so a login attempt against an
// unknown email takes as long as one against a real account.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Hasher wraps bcrypt with a configurable cost and a bounded worker pool.
// bcrypt is the only CPU-bound step in the request path, so every hash and
// compare acquires a pool slot first; queued callers respect context
// cancellation rather than piling onto the scheduler.
type Hasher struct {
	cost  int
	slots chan struct{}
}

// NewHasher builds a Hasher with the given bcrypt cost and pool size.
// Non-positive arguments fall back to DefaultCost and min(4, GOMAXPROCS).
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if workers <= 0 {
		workers = min(4, runtime.GOMAXPROCS(0))
	}
	return &Hasher{
		cost:  cost,
		slots: make(chan struct{}, workers),
	}
}

// Hash derives a bcrypt digest of password on a pool slot.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare checks password against encodedHash. Returns ErrMismatch when they
// differ; any other error means the stored hash is unusable.
func (h *Hasher) Compare(ctx context.Context, encodedHash, password string) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// CompareDummy performs a full-cost comparison against a throwaway hash.
// Called when a user lookup misses, to keep failure timing uniform.
func (h *Hasher) CompareDummy(ctx context.Context, password string) {
	if err := h.acquire(ctx); err != nil {
		return
	}
	defer h.release()

	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}

func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hasher) release() { <-h.slots }
