// ABOUTME: Pure permission decision functions over registry reads
// ABOUTME: Authorize combines tool, permission and policy state into one decision

package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/toolwarden/internal/catalog"
	"github.com/2389/toolwarden/internal/errs"
	"github.com/2389/toolwarden/internal/registry"
)

// DenyReason explains why Authorize refused execution.
type DenyReason string

const (
	DenyNone               DenyReason = ""
	DenyToolNotRegistered  DenyReason = "tool_not_registered"
	DenyToolDisabled       DenyReason = "tool_disabled"
	DenyNotPermitted       DenyReason = "not_permitted"
	DenyPermissionDisabled DenyReason = "permission_disabled"
	DenyPolicyDisabled     DenyReason = "policy_disabled"
)

// Decision is the outcome of an Authorize call. When allowed and a policy
// exists, the raw policy blob and its parameters are attached for
// downstream tool-specific enforcement.
type Decision struct {
	Allowed    bool
	Reason     DenyReason
	Identity   string
	ToolID     string
	Delegatee  string
	PolicyBlob []byte
	HasPolicy  bool
	Parameters []registry.Parameter
}

// Err converts a denied decision into the engine's typed error, with the
// full triple attached. Returns nil for allowed decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	kind := errs.KindNotFound
	switch d.Reason {
	case DenyToolDisabled:
		kind = errs.KindToolDisabled
	case DenyNotPermitted, DenyPermissionDisabled:
		kind = errs.KindNotDelegatee
	case DenyPolicyDisabled:
		kind = errs.KindPolicyDisabled
	}
	return &errs.Error{
		Kind:      kind,
		Op:        "checker.Authorize",
		Message:   string(d.Reason),
		Identity:  d.Identity,
		Tool:      d.ToolID,
		Delegatee: d.Delegatee,
	}
}

// Checker answers authorization questions from registry reads. It holds no
// state of its own; the catalog is an explicit immutable value.
type Checker struct {
	reg registry.Registry
	cat *catalog.Catalog
}

// New builds a Checker over a registry and a tool catalog.
func New(reg registry.Registry, cat *catalog.Catalog) *Checker {
	return &Checker{reg: reg, cat: cat}
}

// IsRegistered reports whether the tool exists under the identity and
// whether it is enabled.
func (c *Checker) IsRegistered(ctx context.Context, identityID, toolID string) (registered, enabled bool, err error) {
	tool, err := c.reg.GetTool(ctx, identityID, toolID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return false, false, nil
		}
		return false, false, errs.Wrap(errs.KindExternal, "registry.GetTool", err)
	}
	return true, tool.Enabled, nil
}

// IsPermitted reports whether the delegatee holds an enabled permission for
// the tool, along with the tool's own enabled flag.
func (c *Checker) IsPermitted(ctx context.Context, identityID, toolID, delegatee string) (permitted, toolEnabled bool, err error) {
	registered, toolEnabled, err := c.IsRegistered(ctx, identityID, toolID)
	if err != nil {
		return false, false, err
	}
	if !registered {
		return false, false, nil
	}
	enabled, err := c.reg.GetPermission(ctx, identityID, toolID, delegatee)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return false, toolEnabled, nil
		}
		return false, toolEnabled, errs.Wrap(errs.KindExternal, "registry.GetPermission", err)
	}
	return enabled, toolEnabled, nil
}

// GetPolicy returns the raw policy blob and its enabled flag for a triple.
// An absent policy is (nil, false, nil) — distinct from a read failure.
func (c *Checker) GetPolicy(ctx context.Context, identityID, toolID, delegatee string) ([]byte, bool, error) {
	pol, err := c.reg.GetPolicy(ctx, identityID, toolID, delegatee)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(errs.KindExternal, "registry.GetPolicy", err)
	}
	return pol.Blob, pol.Enabled, nil
}

// Authorize decides whether the delegatee may invoke the tool under the
// identity. Execution is authorized iff the tool is registered and enabled,
// an enabled permission exists, and any policy present is itself enabled.
// Policy parameters are fetched and attached for downstream enforcement.
func (c *Checker) Authorize(ctx context.Context, identityID, toolID, delegatee string) (Decision, error) {
	d := Decision{Identity: identityID, ToolID: toolID, Delegatee: delegatee}

	registered, toolEnabled, err := c.IsRegistered(ctx, identityID, toolID)
	if err != nil {
		return d, err
	}
	if !registered {
		d.Reason = DenyToolNotRegistered
		return d, nil
	}
	if !toolEnabled {
		d.Reason = DenyToolDisabled
		return d, nil
	}

	permEnabled, err := c.reg.GetPermission(ctx, identityID, toolID, delegatee)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			d.Reason = DenyNotPermitted
			return d, nil
		}
		return d, errs.Wrap(errs.KindExternal, "registry.GetPermission", err)
	}
	if !permEnabled {
		d.Reason = DenyPermissionDisabled
		return d, nil
	}

	pol, err := c.reg.GetPolicy(ctx, identityID, toolID, delegatee)
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		return d, errs.Wrap(errs.KindExternal, "registry.GetPolicy", err)
	}
	if err == nil {
		d.HasPolicy = true
		d.PolicyBlob = pol.Blob
		if !pol.Enabled {
			d.Reason = DenyPolicyDisabled
			return d, nil
		}
		params, err := c.reg.GetPolicyParameters(ctx, identityID, toolID, delegatee, nil)
		if err != nil && !errors.Is(err, registry.ErrNotFound) {
			return d, errs.Wrap(errs.KindExternal, "registry.GetPolicyParameters", err)
		}
		d.Parameters = params
	}

	d.Allowed = true
	return d, nil
}

// KnownTool is a registered tool the local catalog recognizes.
type KnownTool struct {
	Tool       registry.Tool
	Definition catalog.Definition
}

// KnownToolWithPolicy pairs a known tool with the policies stored for it,
// keyed by delegatee address.
type KnownToolWithPolicy struct {
	Tool       registry.Tool
	Definition catalog.Definition
	Policies   map[string]registry.Policy
}

// UnknownToolWithPolicy is a tool absent from the local catalog that has at
// least one stored policy. The triple is surfaced unmodified; the checker
// neither fails open nor closed on unknown tools.
type UnknownToolWithPolicy struct {
	Tool     registry.Tool
	Policies map[string]registry.Policy
}

// ToolBuckets partitions registered tools into the four disjoint buckets.
// Every tool ID returned by the registry appears in exactly one bucket.
type ToolBuckets struct {
	KnownWithPolicy      []KnownToolWithPolicy
	KnownWithoutPolicy   []KnownTool
	UnknownWithPolicy    []UnknownToolWithPolicy
	UnknownWithoutPolicy []registry.Tool
}

// PermittedTools is the delegatee-facing bucketed listing.
type PermittedTools struct {
	Buckets ToolBuckets
}

// RegisteredState is the admin-facing listing of all tools and delegatees
// under an identity.
type RegisteredState struct {
	Delegatees []string
	Buckets    ToolBuckets
}

// ListPermittedToolsForDelegatee partitions the delegatee's permitted tools
// into the four buckets. Policies maps hold at most the one delegatee's
// entry here.
func (c *Checker) ListPermittedToolsForDelegatee(ctx context.Context, identityID, delegatee string) (PermittedTools, error) {
	permitted, err := c.reg.GetPermittedTools(ctx, identityID, delegatee)
	if err != nil {
		return PermittedTools{}, errs.Wrap(errs.KindExternal, "registry.GetPermittedTools", err)
	}

	var buckets ToolBuckets
	for _, pt := range permitted {
		policies := map[string]registry.Policy{}
		if pt.Policy != nil {
			policies[delegatee] = *pt.Policy
		}
		bucketTool(&buckets, c.cat, pt.Tool, policies)
	}
	return PermittedTools{Buckets: buckets}, nil
}

// ListRegisteredToolsAndDelegatees lists every registered tool and delegatee
// under the identity, with tools partitioned into the four buckets. A tool
// lands in a "with policy" bucket when any delegatee holds a policy for it.
func (c *Checker) ListRegisteredToolsAndDelegatees(ctx context.Context, identityID string) (RegisteredState, error) {
	tools, err := c.reg.ListTools(ctx, identityID)
	if err != nil {
		return RegisteredState{}, errs.Wrap(errs.KindExternal, "registry.ListTools", err)
	}
	delegatees, err := c.reg.ListDelegatees(ctx, identityID)
	if err != nil {
		return RegisteredState{}, errs.Wrap(errs.KindExternal, "registry.ListDelegatees", err)
	}

	state := RegisteredState{Delegatees: delegatees}
	for _, tool := range tools {
		policies := map[string]registry.Policy{}
		for _, d := range delegatees {
			pol, err := c.reg.GetPolicy(ctx, identityID, tool.ID, d)
			if err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					continue
				}
				return RegisteredState{}, errs.Wrap(errs.KindExternal,
					fmt.Sprintf("registry.GetPolicy(%s,%s)", tool.ID, d), err)
			}
			policies[d] = *pol
		}
		bucketTool(&state.Buckets, c.cat, tool, policies)
	}
	return state, nil
}

// bucketTool places one tool into exactly one of the four buckets.
func bucketTool(buckets *ToolBuckets, cat *catalog.Catalog, tool registry.Tool, policies map[string]registry.Policy) {
	def, known := cat.Lookup(tool.ID)
	hasPolicy := len(policies) > 0

	switch {
	case known && hasPolicy:
		buckets.KnownWithPolicy = append(buckets.KnownWithPolicy, KnownToolWithPolicy{
			Tool:       tool,
			Definition: def,
			Policies:   policies,
		})
	case known:
		buckets.KnownWithoutPolicy = append(buckets.KnownWithoutPolicy, KnownTool{
			Tool:       tool,
			Definition: def,
		})
	case hasPolicy:
		buckets.UnknownWithPolicy = append(buckets.UnknownWithPolicy, UnknownToolWithPolicy{
			Tool:     tool,
			Policies: policies,
		})
	default:
		buckets.UnknownWithoutPolicy = append(buckets.UnknownWithoutPolicy, tool)
	}
}
