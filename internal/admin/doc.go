// Package admin provides the identity-owner facade.
//
// # Overview
//
// An Admin wraps the registry with owner-side operations: minting and
// transferring identities, registering tools, managing delegatees, and
// storing permissions, policies and policy parameters.
//
// Construction requires a credential proving the admin role:
//
//	a, err := admin.New(cred, reg, idStore, cat, logger)
//
// There is no degraded read-only mode; a non-admin credential fails at
// construction.
//
// # Ownership
//
// The registry enforces ownership on every mutation. The local identity
// store is bookkeeping only: it records which identities this admin
// minted, and is updated only after the registry confirms a change. A
// reverted transfer leaves both registry and local state untouched.
//
// # Policies
//
// Typed policies are encoded through the policy codec before storage and
// decoded through the schema the catalog declares for the tool. Setting a
// policy on a triple that already has one is a conflict: the caller must
// remove the old policy first, which also drops its stored parameters.
package admin
