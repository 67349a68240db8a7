// ABOUTME: Store interfaces and data types for toolwarden local persistence
// ABOUTME: Holds the capacity-credit cache and the admin's owned-identity bookkeeping

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Credit is a cached capacity credit for one signer address. The store
// retains exactly one credit per signer; minting a replacement overwrites
// the previous entry. The store is a cache, never the source of truth.
type Credit struct {
	ID                    string
	Signer                string
	RequestsPerKilosecond uint64
	MintedAt              time.Time
	DaysUntilExpiration   int
	ExpiresAt             time.Time
}

// OwnedIdentity is the admin's local record of an identity it controls.
// Strictly bookkeeping over the registry's ownership; re-derivable.
type OwnedIdentity struct {
	IdentityID string
	AddedAt    time.Time
}

// CreditStore caches capacity credits keyed by signer address.
type CreditStore interface {
	// GetCredit returns the cached credit for a signer, or ErrNotFound.
	GetCredit(ctx context.Context, signer string) (*Credit, error)
	// PutCredit stores the credit for its signer, replacing any previous one.
	PutCredit(ctx context.Context, credit *Credit) error
	// DeleteCredit removes the cached credit for a signer, if any.
	DeleteCredit(ctx context.Context, signer string) error
}

// IdentityStore tracks the identities the local admin controls.
type IdentityStore interface {
	AddOwnedIdentity(ctx context.Context, identityID string) error
	RemoveOwnedIdentity(ctx context.Context, identityID string) error
	ListOwnedIdentities(ctx context.Context) ([]OwnedIdentity, error)
}

// Store combines the local persistence interfaces. SQLiteStore implements
// all of them in one struct; MockStore does the same in memory.
type Store interface {
	CreditStore
	IdentityStore

	// Close releases any resources held by the store.
	Close() error
}
