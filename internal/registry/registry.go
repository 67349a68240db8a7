// ABOUTME: Registry adapter contract and data types for the authorization engine
// ABOUTME: Defines Tool, Policy, Parameter structs and the Registry interface

package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when creating an entity that already exists.
var ErrAlreadyExists = errors.New("already exists")

// ErrNotOwner is returned when the caller does not own the identity.
var ErrNotOwner = errors.New("not the identity owner")

// ErrArrayLengthMismatch is returned when paired name/value slices differ in length.
var ErrArrayLengthMismatch = errors.New("array length mismatch")

// Tool is an addressable unit of executable capability registered under an
// identity. The ID is content-addressed (an IPFS CID); Enabled is scoped to
// the identity, so a tool can be registered but disabled.
type Tool struct {
	ID               string
	Name             string
	Description      string
	DefaultPolicyRef string
	Enabled          bool
}

// Policy is the opaque, versioned constraint blob stored for one
// (identity, tool, delegatee) triple. The engine interprets it only through
// the policy codec.
type Policy struct {
	Blob    []byte
	Enabled bool
}

// Parameter is a named scalar value stored alongside a policy, used for
// dynamic values that change too often to re-encode the whole blob.
type Parameter struct {
	Name  string
	Value []byte
}

// PermittedTool pairs a tool with the policy (if any) stored for one
// delegatee. Policy is nil when no policy exists for the triple.
type PermittedTool struct {
	Tool   Tool
	Policy *Policy
}

// TxReceipt reports the outcome of a registry transaction that maps to an
// on-chain write. Success is false when the transaction reverted.
type TxReceipt struct {
	TxHash  string
	Success bool
}

// Registry is the remote system of record for tools, delegatees, permissions
// and policies, keyed by identity. Implementations define their own
// consistency; the engine tolerates read-after-write staleness.
type Registry interface {
	// Identity lifecycle
	MintIdentity(ctx context.Context) (identityID string, err error)
	TransferIdentity(ctx context.Context, identityID, newOwner string) (TxReceipt, error)
	OwnerOf(ctx context.Context, identityID string) (string, error)

	// Tools
	GetTool(ctx context.Context, identityID, toolID string) (*Tool, error)
	ListTools(ctx context.Context, identityID string) ([]Tool, error)
	RegisterTool(ctx context.Context, identityID string, tool Tool) error
	RemoveTool(ctx context.Context, identityID, toolID string) error
	SetToolEnabled(ctx context.Context, identityID, toolID string, enabled bool) error

	// Delegatees
	AddDelegatee(ctx context.Context, identityID, delegatee string) error
	RemoveDelegatee(ctx context.Context, identityID, delegatee string) error
	ListDelegatees(ctx context.Context, identityID string) ([]string, error)
	IsDelegatee(ctx context.Context, identityID, delegatee string) (bool, error)
	ListDelegatedIdentities(ctx context.Context, delegatee string) ([]string, error)

	// Permissions
	SetPermission(ctx context.Context, identityID, toolID, delegatee string, enabled bool) error
	RemovePermission(ctx context.Context, identityID, toolID, delegatee string) error
	GetPermission(ctx context.Context, identityID, toolID, delegatee string) (enabled bool, err error)
	GetPermittedTools(ctx context.Context, identityID, delegatee string) ([]PermittedTool, error)

	// Policies
	SetPolicy(ctx context.Context, identityID, toolID, delegatee string, blob []byte, enabled bool) error
	RemovePolicy(ctx context.Context, identityID, toolID, delegatee string) error
	SetPolicyEnabled(ctx context.Context, identityID, toolID, delegatee string, enabled bool) error
	GetPolicy(ctx context.Context, identityID, toolID, delegatee string) (*Policy, error)

	// Policy parameters
	SetPolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string, values [][]byte) error
	RemovePolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string) error
	GetPolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string) ([]Parameter, error)
}
