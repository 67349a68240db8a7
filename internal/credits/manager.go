// ABOUTME: Capacity credit manager: caches one active credit per signer
// ABOUTME: Per-signer locking keeps minting at-most-once-in-flight

package credits

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/toolwarden/internal/errs"
	"github.com/2389/toolwarden/internal/store"
)

// Manager mints, caches and expires capacity credits. On deployments that
// do not enforce rate limits it is a no-op that always reports "no credit
// needed". The cache is never the source of truth; losing it only costs an
// extra mint.
type Manager struct {
	deployment Deployment
	ledger     Ledger
	cache      store.CreditStore
	logger     *slog.Logger

	defaults MintParams

	// now is swappable for tests.
	now func() time.Time

	mu      sync.Mutex
	signers map[string]*sync.Mutex
}

// NewManager builds a credit manager for one deployment.
func NewManager(deployment Deployment, ledger Ledger, cache store.CreditStore, defaults MintParams) *Manager {
	return &Manager{
		deployment: deployment,
		ledger:     ledger,
		cache:      cache,
		logger:     slog.Default().With("component", "credits"),
		defaults:   defaults,
		now:        time.Now,
		signers:    make(map[string]*sync.Mutex),
	}
}

// RequiresCredit reports whether this deployment enforces rate limits.
func (m *Manager) RequiresCredit() bool {
	return m.deployment.RequiresCredits
}

// signerLock returns the mutex serializing mints for one signer.
func (m *Manager) signerLock(signer string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.signers[signer]
	if !ok {
		lock = &sync.Mutex{}
		m.signers[signer] = lock
	}
	return lock
}

// GetOrMint returns the signer's active capacity credit, minting a new one
// when none is cached or the cached one has expired. Returns (nil, nil) on
// deployments that do not require credits.
func (m *Manager) GetOrMint(ctx context.Context, signer string) (*store.Credit, error) {
	if !m.deployment.RequiresCredits {
		return nil, nil
	}

	lock := m.signerLock(signer)
	lock.Lock()
	defer lock.Unlock()

	now := m.now()

	cached, err := m.cache.GetCredit(ctx, signer)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, errs.Wrap(errs.KindExternal, "store.GetCredit", err)
	}
	if cached != nil {
		if !Expired(cached, now) {
			return cached, nil
		}
		m.logger.Info("cached credit expired",
			"signer", signer,
			"credit_id", cached.ID,
			"expired_at", cached.ExpiresAt,
		)
	}

	return m.mint(ctx, signer, now)
}

// mint quotes the cost, checks the signer's balance, and mints a fresh
// credit, overwriting the cache entry. Must be called with the signer lock
// held.
func (m *Manager) mint(ctx context.Context, signer string, now time.Time) (*store.Credit, error) {
	expiresAt := Expiry(now, m.defaults.DaysUntilExpiration)

	cost, err := m.ledger.Quote(ctx, m.defaults.RequestsPerKilosecond, expiresAt)
	if err != nil {
		return nil, errs.Wrap(errs.KindExternal, "ledger.Quote", err)
	}
	balance, err := m.ledger.BalanceOf(ctx, signer)
	if err != nil {
		return nil, errs.Wrap(errs.KindExternal, "ledger.BalanceOf", err)
	}
	if balance.Cmp(cost) < 0 {
		return nil, errs.NewInsufficientBalance("credits.Mint", cost.String(), balance.String())
	}

	receipt, err := m.ledger.Mint(ctx, signer, m.defaults)
	if err != nil {
		return nil, errs.Wrap(errs.KindExternal, "ledger.Mint", err)
	}

	credit := &store.Credit{
		ID:                    receipt.CreditID,
		Signer:                signer,
		RequestsPerKilosecond: m.defaults.RequestsPerKilosecond,
		MintedAt:              now.UTC(),
		DaysUntilExpiration:   m.defaults.DaysUntilExpiration,
		ExpiresAt:             expiresAt,
	}
	if err := m.cache.PutCredit(ctx, credit); err != nil {
		// The credit is live on the ledger; a failed cache write only
		// risks a redundant mint later.
		m.logger.Warn("failed to cache minted credit", "signer", signer, "error", err)
	}

	m.logger.Info("minted capacity credit",
		"signer", signer,
		"credit_id", credit.ID,
		"requests_per_kilosecond", credit.RequestsPerKilosecond,
		"expires_at", credit.ExpiresAt,
	)
	return credit, nil
}
