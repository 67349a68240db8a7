// Package store provides local persistence for toolwarden using SQLite.
//
// # Architecture
//
// Two narrow interfaces cover everything the engine keeps locally:
//
//   - CreditStore: the capacity-credit cache, one credit per signer
//   - IdentityStore: the admin's owned-identity bookkeeping
//
// SQLiteStore implements both in a single struct; MockStore does the same
// in memory for tests. Neither is ever the source of truth: credits live on
// the ledger and ownership lives in the registry, so losing this database
// costs at most a redundant mint and a re-derivable listing.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The schema is created automatically on open. Use ":memory:" for tests.
//
// # Error Handling
//
// ErrNotFound is returned when a requested entity does not exist. All
// methods accept context.Context for cancellation support.
package store
