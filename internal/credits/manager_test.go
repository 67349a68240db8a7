// ABOUTME: Tests for the capacity credit manager
// ABOUTME: Covers expiry boundaries, cache reuse, balance checks, and mint serialization

package credits

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/toolwarden/internal/errs"
	"github.com/2389/toolwarden/internal/store"
)

// fakeLedger is an in-memory Ledger with a fixed cost and per-signer balances.
type fakeLedger struct {
	mu       sync.Mutex
	cost     *big.Int
	balances map[string]*big.Int
	mints    atomic.Int64
	mintErr  error
}

func newFakeLedger(cost int64) *fakeLedger {
	return &fakeLedger{
		cost:     big.NewInt(cost),
		balances: make(map[string]*big.Int),
	}
}

func (l *fakeLedger) Quote(ctx context.Context, rpks uint64, expiresAt time.Time) (*big.Int, error) {
	return new(big.Int).Set(l.cost), nil
}

func (l *fakeLedger) Mint(ctx context.Context, signer string, params MintParams) (Receipt, error) {
	if l.mintErr != nil {
		return Receipt{}, l.mintErr
	}
	l.mu.Lock()
	if bal, ok := l.balances[signer]; ok {
		bal.Sub(bal, l.cost)
	}
	l.mu.Unlock()
	l.mints.Add(1)
	return Receipt{CreditID: "credit-" + uuid.NewString(), TxHash: "0x" + uuid.NewString()}, nil
}

func (l *fakeLedger) BalanceOf(ctx context.Context, signer string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[signer]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (l *fakeLedger) setBalance(signer string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[signer] = big.NewInt(amount)
}

const signer = "0x4444444444444444444444444444444444444444"

func newTestManager(t *testing.T, deployment Deployment, ledger *fakeLedger) *Manager {
	t.Helper()
	return NewManager(deployment, ledger, store.NewMockStore(), MintParams{
		RequestsPerKilosecond: 80,
		DaysUntilExpiration:   1,
	})
}

func TestDeploymentByName(t *testing.T) {
	dev, err := DeploymentByName("datil-dev")
	require.NoError(t, err)
	assert.False(t, dev.RequiresCredits)

	prod, err := DeploymentByName("datil")
	require.NoError(t, err)
	assert.True(t, prod.RequiresCredits)

	_, err = DeploymentByName("nowhere")
	assert.Error(t, err)
}

func TestExpiry_MidnightBoundaryMinusMargin(t *testing.T) {
	// Minted mid-day UTC with a one-day horizon: expiry is the following
	// UTC midnight minus the 10 minute margin.
	minted := time.Date(2026, 8, 30, 15, 45, 12, 0, time.UTC)
	want := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).Add(-ExpiryMargin)
	assert.True(t, Expiry(minted, 1).Equal(want))
}

func TestExpiry_CountsFromCalendarDateNotInstant(t *testing.T) {
	// Two mints on the same UTC date share the same expiry
	a := Expiry(time.Date(2026, 8, 30, 0, 0, 1, 0, time.UTC), 7)
	b := Expiry(time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC), 7)
	assert.True(t, a.Equal(b))
}

func TestExpiry_NonUTCInputUsesUTCDate(t *testing.T) {
	// 23:30 UTC-3 on Aug 30 is 02:30 UTC on Aug 31
	loc := time.FixedZone("UTC-3", -3*3600)
	minted := time.Date(2026, 8, 30, 23, 30, 0, 0, loc)
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Add(-ExpiryMargin)
	assert.True(t, Expiry(minted, 1).Equal(want))
}

func TestExpired_BoundaryIsExclusive(t *testing.T) {
	minted := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	credit := &store.Credit{ExpiresAt: Expiry(minted, 1)}

	boundary := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).Add(-10 * time.Minute)
	assert.False(t, Expired(credit, boundary.Add(-time.Second)))
	assert.False(t, Expired(credit, boundary))
	assert.True(t, Expired(credit, boundary.Add(time.Nanosecond)))
}

func TestGetOrMint_NoOpWhenDeploymentDoesNotRequireCredits(t *testing.T) {
	ledger := newFakeLedger(100)
	m := newTestManager(t, Deployment{Name: "datil-dev", RequiresCredits: false}, ledger)

	credit, err := m.GetOrMint(context.Background(), signer)
	require.NoError(t, err)
	assert.Nil(t, credit)
	assert.Equal(t, int64(0), ledger.mints.Load())
}

func TestGetOrMint_MintsWhenCacheEmpty(t *testing.T) {
	ledger := newFakeLedger(100)
	ledger.setBalance(signer, 1000)
	m := newTestManager(t, Deployment{Name: "datil", RequiresCredits: true}, ledger)

	credit, err := m.GetOrMint(context.Background(), signer)
	require.NoError(t, err)
	require.NotNil(t, credit)
	assert.Equal(t, uint64(80), credit.RequestsPerKilosecond)
	assert.Equal(t, int64(1), ledger.mints.Load())
}

func TestGetOrMint_ReusesCachedCredit(t *testing.T) {
	ledger := newFakeLedger(100)
	ledger.setBalance(signer, 1000)
	m := newTestManager(t, Deployment{Name: "datil", RequiresCredits: true}, ledger)
	ctx := context.Background()

	first, err := m.GetOrMint(ctx, signer)
	require.NoError(t, err)
	second, err := m.GetOrMint(ctx, signer)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), ledger.mints.Load())
}

func TestGetOrMint_RemintsAfterExpiry(t *testing.T) {
	ledger := newFakeLedger(100)
	ledger.setBalance(signer, 1000)
	m := newTestManager(t, Deployment{Name: "datil", RequiresCredits: true}, ledger)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	first, err := m.GetOrMint(ctx, signer)
	require.NoError(t, err)

	// Jump past the expiry boundary
	now = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	second, err := m.GetOrMint(ctx, signer)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(2), ledger.mints.Load())
}

func TestGetOrMint_InsufficientBalance(t *testing.T) {
	ledger := newFakeLedger(100)
	ledger.setBalance(signer, 40)
	m := newTestManager(t, Deployment{Name: "datil", RequiresCredits: true}, ledger)

	_, err := m.GetOrMint(context.Background(), signer)
	require.Error(t, err)
	require.True(t, errs.IsKind(err, errs.KindInsufficientBalance))

	// The error carries both amounts; the ledger was never hit with a mint
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "100", e.Detail["required"])
	assert.Equal(t, "40", e.Detail["available"])
	assert.Equal(t, int64(0), ledger.mints.Load())
}

func TestGetOrMint_ConcurrentCallsMintOnce(t *testing.T) {
	ledger := newFakeLedger(100)
	ledger.setBalance(signer, 10000)
	m := newTestManager(t, Deployment{Name: "datil", RequiresCredits: true}, ledger)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.GetOrMint(context.Background(), signer)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The per-signer lock makes minting at-most-once-in-flight
	assert.Equal(t, int64(1), ledger.mints.Load())
}
