// ABOUTME: Tests for the local store implementations
// ABOUTME: Runs the same suite against SQLite and the in-memory mock

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eachStore runs fn against both store implementations.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})

	t.Run("mock", func(t *testing.T) {
		fn(t, NewMockStore())
	})
}

func testCredit(signer string) *Credit {
	minted := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	return &Credit{
		ID:                    "credit-1",
		Signer:                signer,
		RequestsPerKilosecond: 80,
		MintedAt:              minted,
		DaysUntilExpiration:   7,
		ExpiresAt:             minted.AddDate(0, 0, 8).Truncate(24 * time.Hour).Add(-10 * time.Minute),
	}
}

func TestCredit_GetAbsent(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetCredit(context.Background(), "0xsigner")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCredit_PutGetRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		in := testCredit("0xsigner")
		require.NoError(t, s.PutCredit(ctx, in))

		out, err := s.GetCredit(ctx, "0xsigner")
		require.NoError(t, err)
		assert.Equal(t, in.ID, out.ID)
		assert.Equal(t, in.RequestsPerKilosecond, out.RequestsPerKilosecond)
		assert.True(t, in.MintedAt.Equal(out.MintedAt))
		assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
		assert.Equal(t, in.DaysUntilExpiration, out.DaysUntilExpiration)
	})
}

func TestCredit_PutOverwritesPreviousEntry(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first := testCredit("0xsigner")
		require.NoError(t, s.PutCredit(ctx, first))

		second := testCredit("0xsigner")
		second.ID = "credit-2"
		require.NoError(t, s.PutCredit(ctx, second))

		out, err := s.GetCredit(ctx, "0xsigner")
		require.NoError(t, err)
		assert.Equal(t, "credit-2", out.ID)
	})
}

func TestCredit_PerSignerIsolation(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := testCredit("0xaaa")
		b := testCredit("0xbbb")
		b.ID = "credit-b"
		require.NoError(t, s.PutCredit(ctx, a))
		require.NoError(t, s.PutCredit(ctx, b))

		got, err := s.GetCredit(ctx, "0xbbb")
		require.NoError(t, err)
		assert.Equal(t, "credit-b", got.ID)
	})
}

func TestCredit_Delete(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.PutCredit(ctx, testCredit("0xsigner")))
		require.NoError(t, s.DeleteCredit(ctx, "0xsigner"))

		_, err := s.GetCredit(ctx, "0xsigner")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting an absent credit is not an error
		assert.NoError(t, s.DeleteCredit(ctx, "0xsigner"))
	})
}

func TestOwnedIdentities_AddListRemove(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.AddOwnedIdentity(ctx, "pkp-1"))
		require.NoError(t, s.AddOwnedIdentity(ctx, "pkp-2"))
		// Adding twice is idempotent
		require.NoError(t, s.AddOwnedIdentity(ctx, "pkp-1"))

		ids, err := s.ListOwnedIdentities(ctx)
		require.NoError(t, err)
		require.Len(t, ids, 2)

		require.NoError(t, s.RemoveOwnedIdentity(ctx, "pkp-1"))
		ids, err = s.ListOwnedIdentities(ctx)
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, "pkp-2", ids[0].IdentityID)

		assert.ErrorIs(t, s.RemoveOwnedIdentity(ctx, "pkp-1"), ErrNotFound)
	})
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/warden.db"
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.PutCredit(ctx, testCredit("0xsigner")))
	require.NoError(t, s.AddOwnedIdentity(ctx, "pkp-1"))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	credit, err := s2.GetCredit(ctx, "0xsigner")
	require.NoError(t, err)
	assert.Equal(t, "credit-1", credit.ID)

	ids, err := s2.ListOwnedIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
}
