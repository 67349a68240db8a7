// Package registry defines the contract with the remote system of record.
//
// # Overview
//
// The registry holds identities, their registered tools, delegatees,
// permissions and policies. The engine only ever talks to it through the
// Registry interface; the production implementation is an adapter over the
// on-chain registry, and MockRegistry provides the same semantics in
// memory for tests.
//
// # Data Model
//
// Everything is keyed by identity. Tools are content-addressed (IPFS CIDs)
// and carry an identity-scoped enabled flag. Permissions and policies are
// stored per (identity, tool, delegatee) triple; policy blobs are opaque
// here and interpreted only by the policy codec.
//
// # Semantics
//
// Mutations require the caller to own the identity (ErrNotOwner).
// Removing a tool or delegatee cascades to the permissions, policies and
// parameters hanging off it. Reads tolerate read-after-write staleness;
// implementations define their own consistency.
package registry
