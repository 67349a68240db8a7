// ABOUTME: Admin facade for identity owners
// ABOUTME: Identity lifecycle, tool registration, delegation, permission and policy management

package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/toolwarden/internal/auth"
	"github.com/2389/toolwarden/internal/catalog"
	"github.com/2389/toolwarden/internal/checker"
	"github.com/2389/toolwarden/internal/errs"
	"github.com/2389/toolwarden/internal/policy"
	"github.com/2389/toolwarden/internal/registry"
	"github.com/2389/toolwarden/internal/store"
)

// Admin is the identity-owner facade. Every mutation goes through the
// registry, which enforces ownership; the local identity store is pure
// bookkeeping on top.
type Admin struct {
	address string
	reg     registry.Registry
	ids     store.IdentityStore
	chk     *checker.Checker
	cat     *catalog.Catalog
	codec   *policy.Codec
	logger  *slog.Logger
}

// New builds the admin facade for a verified credential. Construction fails
// when the credential does not prove the admin role; there is no degraded
// read-only mode.
func New(cred auth.Credential, reg registry.Registry, ids store.IdentityStore, cat *catalog.Catalog, logger *slog.Logger) (*Admin, error) {
	if cred.Address == "" {
		return nil, errs.New(errs.KindConfig, "admin.New", "credential address is required")
	}
	if !cred.IsAdmin() {
		return nil, errs.New(errs.KindConfig, "admin.New", "credential does not prove the admin role")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{
		address: cred.Address,
		reg:     reg,
		ids:     ids,
		chk:     checker.New(reg, cat),
		cat:     cat,
		codec:   policy.NewCodec(),
		logger:  logger.With("component", "admin"),
	}, nil
}

// Address returns the admin's signing address.
func (a *Admin) Address() string {
	return a.address
}

// registryErr maps registry sentinel errors onto the engine's typed errors,
// attaching as much of the triple as the caller knows.
func registryErr(op string, err error, identityID, toolID, delegatee string) error {
	kind := errs.KindExternal
	switch {
	case errors.Is(err, registry.ErrNotFound):
		kind = errs.KindNotFound
	case errors.Is(err, registry.ErrAlreadyExists):
		kind = errs.KindAlreadyExists
	case errors.Is(err, registry.ErrNotOwner):
		kind = errs.KindNotOwner
	}
	return &errs.Error{
		Kind:      kind,
		Op:        op,
		Identity:  identityID,
		Tool:      toolID,
		Delegatee: delegatee,
		Cause:     err,
	}
}

// MintIdentity mints a fresh identity owned by the admin and records it in
// the local bookkeeping. A bookkeeping failure is logged, not fatal: the
// registry remains the source of truth for ownership.
func (a *Admin) MintIdentity(ctx context.Context) (string, error) {
	id, err := a.reg.MintIdentity(ctx)
	if err != nil {
		return "", errs.Wrap(errs.KindExternal, "admin.MintIdentity", err)
	}
	if err := a.ids.AddOwnedIdentity(ctx, id); err != nil {
		a.logger.Warn("failed to record owned identity", "identity", id, "error", err)
	}
	a.logger.Info("minted identity", "identity", id)
	return id, nil
}

// TransferIdentity hands ownership of an identity to a new owner. The local
// record is removed only after the registry confirms the transfer; a
// reverted transaction leaves all state untouched.
func (a *Admin) TransferIdentity(ctx context.Context, identityID, newOwner string) (registry.TxReceipt, error) {
	receipt, err := a.reg.TransferIdentity(ctx, identityID, newOwner)
	if err != nil {
		return receipt, registryErr("admin.TransferIdentity", err, identityID, "", "")
	}
	if !receipt.Success {
		return receipt, &errs.Error{
			Kind:     errs.KindTransferFailed,
			Op:       "admin.TransferIdentity",
			Message:  "transaction reverted",
			Identity: identityID,
			Detail:   map[string]any{"txHash": receipt.TxHash},
		}
	}
	if err := a.ids.RemoveOwnedIdentity(ctx, identityID); err != nil {
		a.logger.Warn("failed to remove owned identity record", "identity", identityID, "error", err)
	}
	a.logger.Info("transferred identity", "identity", identityID, "newOwner", newOwner, "txHash", receipt.TxHash)
	return receipt, nil
}

// ListOwnedIdentities returns the locally recorded identities.
func (a *Admin) ListOwnedIdentities(ctx context.Context) ([]store.OwnedIdentity, error) {
	return a.ids.ListOwnedIdentities(ctx)
}

// RegisterTool registers a tool under an identity.
func (a *Admin) RegisterTool(ctx context.Context, identityID string, tool registry.Tool) error {
	if err := a.reg.RegisterTool(ctx, identityID, tool); err != nil {
		return registryErr("admin.RegisterTool", err, identityID, tool.ID, "")
	}
	return nil
}

// RemoveTool removes a tool and everything hanging off it: permissions,
// policies and parameters for every delegatee.
func (a *Admin) RemoveTool(ctx context.Context, identityID, toolID string) error {
	if err := a.reg.RemoveTool(ctx, identityID, toolID); err != nil {
		return registryErr("admin.RemoveTool", err, identityID, toolID, "")
	}
	return nil
}

// SetToolEnabled flips the identity-scoped enabled flag on a tool.
func (a *Admin) SetToolEnabled(ctx context.Context, identityID, toolID string, enabled bool) error {
	if err := a.reg.SetToolEnabled(ctx, identityID, toolID, enabled); err != nil {
		return registryErr("admin.SetToolEnabled", err, identityID, toolID, "")
	}
	return nil
}

// AddDelegatee grants an address delegatee status under an identity.
func (a *Admin) AddDelegatee(ctx context.Context, identityID, delegatee string) error {
	if err := a.reg.AddDelegatee(ctx, identityID, delegatee); err != nil {
		return registryErr("admin.AddDelegatee", err, identityID, "", delegatee)
	}
	return nil
}

// RemoveDelegatee revokes delegatee status. Permissions and policies held by
// the delegatee are removed with it.
func (a *Admin) RemoveDelegatee(ctx context.Context, identityID, delegatee string) error {
	if err := a.reg.RemoveDelegatee(ctx, identityID, delegatee); err != nil {
		return registryErr("admin.RemoveDelegatee", err, identityID, "", delegatee)
	}
	return nil
}

// ListDelegatees returns the delegatee addresses of an identity.
func (a *Admin) ListDelegatees(ctx context.Context, identityID string) ([]string, error) {
	delegatees, err := a.reg.ListDelegatees(ctx, identityID)
	if err != nil {
		return nil, registryErr("admin.ListDelegatees", err, identityID, "", "")
	}
	return delegatees, nil
}

// SetPermission grants or updates a delegatee's permission for a tool.
func (a *Admin) SetPermission(ctx context.Context, identityID, toolID, delegatee string, enabled bool) error {
	if err := a.reg.SetPermission(ctx, identityID, toolID, delegatee, enabled); err != nil {
		return registryErr("admin.SetPermission", err, identityID, toolID, delegatee)
	}
	return nil
}

// RemovePermission deletes a delegatee's permission for a tool.
func (a *Admin) RemovePermission(ctx context.Context, identityID, toolID, delegatee string) error {
	if err := a.reg.RemovePermission(ctx, identityID, toolID, delegatee); err != nil {
		return registryErr("admin.RemovePermission", err, identityID, toolID, delegatee)
	}
	return nil
}

// SetPolicy encodes and stores a typed policy for a triple. Setting a
// policy on a triple that already has one fails with AlreadyExists; callers
// must RemovePolicy first, accepting that the removal also drops the
// triple's stored parameters.
func (a *Admin) SetPolicy(ctx context.Context, identityID, toolID, delegatee string, p policy.Policy, enabled bool) error {
	blob, err := a.codec.Encode(p)
	if err != nil {
		return err
	}
	if err := a.reg.SetPolicy(ctx, identityID, toolID, delegatee, blob, enabled); err != nil {
		return registryErr("admin.SetPolicy", err, identityID, toolID, delegatee)
	}
	return nil
}

// RemovePolicy deletes the policy stored for a triple, parameters included.
func (a *Admin) RemovePolicy(ctx context.Context, identityID, toolID, delegatee string) error {
	if err := a.reg.RemovePolicy(ctx, identityID, toolID, delegatee); err != nil {
		return registryErr("admin.RemovePolicy", err, identityID, toolID, delegatee)
	}
	return nil
}

// SetPolicyEnabled flips the enabled flag on a stored policy without
// touching the blob.
func (a *Admin) SetPolicyEnabled(ctx context.Context, identityID, toolID, delegatee string, enabled bool) error {
	if err := a.reg.SetPolicyEnabled(ctx, identityID, toolID, delegatee, enabled); err != nil {
		return registryErr("admin.SetPolicyEnabled", err, identityID, toolID, delegatee)
	}
	return nil
}

// GetPolicy returns the raw stored policy for a triple.
func (a *Admin) GetPolicy(ctx context.Context, identityID, toolID, delegatee string) (*registry.Policy, error) {
	pol, err := a.reg.GetPolicy(ctx, identityID, toolID, delegatee)
	if err != nil {
		return nil, registryErr("admin.GetPolicy", err, identityID, toolID, delegatee)
	}
	return pol, nil
}

// GetDecodedPolicy returns the stored policy decoded through the schema the
// catalog declares for the tool. Fails for tools the catalog does not know.
func (a *Admin) GetDecodedPolicy(ctx context.Context, identityID, toolID, delegatee string) (policy.Policy, bool, error) {
	def, ok := a.cat.Lookup(toolID)
	if !ok {
		return nil, false, &errs.Error{
			Kind:     errs.KindNotFound,
			Op:       "admin.GetDecodedPolicy",
			Message:  "tool not in catalog",
			Identity: identityID,
			Tool:     toolID,
		}
	}
	raw, err := a.GetPolicy(ctx, identityID, toolID, delegatee)
	if err != nil {
		return nil, false, err
	}
	decoded, err := a.codec.Decode(def.PolicySchema, raw.Blob)
	if err != nil {
		return nil, false, err
	}
	return decoded, raw.Enabled, nil
}

// SetPolicyParameters stores named parameter values alongside a policy.
// Names and values are paired by index and must have equal length.
func (a *Admin) SetPolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string, values [][]byte) error {
	if err := a.reg.SetPolicyParameters(ctx, identityID, toolID, delegatee, names, values); err != nil {
		if errors.Is(err, registry.ErrArrayLengthMismatch) {
			return &errs.Error{
				Kind:      errs.KindSchemaViolation,
				Op:        "admin.SetPolicyParameters",
				Message:   "names and values must have equal length",
				Identity:  identityID,
				Tool:      toolID,
				Delegatee: delegatee,
			}
		}
		return registryErr("admin.SetPolicyParameters", err, identityID, toolID, delegatee)
	}
	return nil
}

// RemovePolicyParameters deletes the named parameters from a policy.
func (a *Admin) RemovePolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string) error {
	if err := a.reg.RemovePolicyParameters(ctx, identityID, toolID, delegatee, names); err != nil {
		return registryErr("admin.RemovePolicyParameters", err, identityID, toolID, delegatee)
	}
	return nil
}

// GetPolicyParameters reads parameter values for a policy. A nil names
// slice reads all parameters.
func (a *Admin) GetPolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string) ([]registry.Parameter, error) {
	params, err := a.reg.GetPolicyParameters(ctx, identityID, toolID, delegatee, names)
	if err != nil {
		return nil, registryErr("admin.GetPolicyParameters", err, identityID, toolID, delegatee)
	}
	return params, nil
}

// ListToolsAndDelegatees returns every registered tool and delegatee under
// the identity, with tools partitioned into the four catalog/policy buckets.
func (a *Admin) ListToolsAndDelegatees(ctx context.Context, identityID string) (checker.RegisteredState, error) {
	return a.chk.ListRegisteredToolsAndDelegatees(ctx, identityID)
}
