// ABOUTME: Tests for the permission checker
// ABOUTME: Covers the full authorization matrix, bucketed listings, and the admin scenario

package checker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/toolwarden/internal/catalog"
	"github.com/2389/toolwarden/internal/registry"
)

const (
	testOwner     = "0x1111111111111111111111111111111111111111"
	testDelegatee = "0x2222222222222222222222222222222222222222"

	// ERC20 transfer tool CID on datil-dev, present in the built-in catalog
	knownToolID   = "QmZbQoEbrJLGNK7ir6vKvLZLvMfuKZwiCLB4x6NKm3V8Tm"
	unknownToolID = "QmUnknownToolNotInLocalCatalog11111111111111"
)

type fixture struct {
	reg      *registry.MockRegistry
	cat      *catalog.Catalog
	checker  *Checker
	identity string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.NewMockRegistry(testOwner)
	identity, err := reg.MintIdentity(context.Background())
	require.NoError(t, err)

	cat, err := catalog.ForNetwork("datil-dev")
	require.NoError(t, err)

	return &fixture{
		reg:      reg,
		cat:      cat,
		checker:  New(reg, cat),
		identity: identity,
	}
}

func (f *fixture) registerTool(t *testing.T, toolID string, enabled bool) {
	t.Helper()
	require.NoError(t, f.reg.RegisterTool(context.Background(), f.identity, registry.Tool{
		ID:      toolID,
		Name:    "tool",
		Enabled: enabled,
	}))
}

func (f *fixture) addDelegatee(t *testing.T) {
	t.Helper()
	require.NoError(t, f.reg.AddDelegatee(context.Background(), f.identity, testDelegatee))
}

func TestIsRegistered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, enabled, err := f.checker.IsRegistered(ctx, f.identity, knownToolID)
	require.NoError(t, err)
	assert.False(t, registered)
	assert.False(t, enabled)

	f.registerTool(t, knownToolID, false)
	registered, enabled, err = f.checker.IsRegistered(ctx, f.identity, knownToolID)
	require.NoError(t, err)
	assert.True(t, registered)
	assert.False(t, enabled)
}

func TestGetPolicy_AbsentIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerTool(t, knownToolID, true)
	f.addDelegatee(t)

	blob, enabled, err := f.checker.GetPolicy(ctx, f.identity, knownToolID, testDelegatee)
	require.NoError(t, err)
	assert.Empty(t, blob)
	assert.False(t, enabled)
}

// policyState describes the policy axis of the authorization matrix.
type policyState int

const (
	policyAbsent policyState = iota
	policyDisabled
	policyEnabled
)

// permState describes the permission axis.
type permState int

const (
	permAbsent permState = iota
	permDisabled
	permEnabled
)

func TestAuthorize_Matrix(t *testing.T) {
	cases := []struct {
		name       string
		registered bool
		enabled    bool
		perm       permState
		policy     policyState
		wantAllow  bool
		wantReason DenyReason
	}{
		{"unregistered", false, false, permAbsent, policyAbsent, false, DenyToolNotRegistered},
		{"registered_disabled", true, false, permEnabled, policyAbsent, false, DenyToolDisabled},
		{"no_permission", true, true, permAbsent, policyAbsent, false, DenyNotPermitted},
		{"permission_disabled", true, true, permDisabled, policyAbsent, false, DenyPermissionDisabled},
		{"permission_enabled_no_policy", true, true, permEnabled, policyAbsent, true, DenyNone},
		{"policy_disabled", true, true, permEnabled, policyDisabled, false, DenyPolicyDisabled},
		{"policy_enabled", true, true, permEnabled, policyEnabled, true, DenyNone},
		{"policy_enabled_but_tool_disabled", true, false, permEnabled, policyEnabled, false, DenyToolDisabled},
		{"policy_enabled_but_no_permission", true, true, permAbsent, policyEnabled, false, DenyNotPermitted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.addDelegatee(t)

			if tc.registered {
				f.registerTool(t, knownToolID, tc.enabled)
			}
			if tc.perm != permAbsent {
				require.NoError(t, f.reg.SetPermission(ctx, f.identity, knownToolID, testDelegatee, tc.perm == permEnabled))
			}
			if tc.policy != policyAbsent {
				require.NoError(t, f.reg.SetPolicy(ctx, f.identity, knownToolID, testDelegatee,
					[]byte(`{"type":"ERC20Transfer","version":"1.0.0"}`), tc.policy == policyEnabled))
			}

			decision, err := f.checker.Authorize(ctx, f.identity, knownToolID, testDelegatee)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAllow, decision.Allowed)
			assert.Equal(t, tc.wantReason, decision.Reason)
			if tc.wantAllow {
				assert.NoError(t, decision.Err())
			} else {
				assert.Error(t, decision.Err())
			}
		})
	}
}

func TestAuthorize_AttachesPolicyAndParameters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerTool(t, knownToolID, true)
	f.addDelegatee(t)

	blob := []byte(`{"type":"ERC20Transfer","version":"1.0.0","maxAmount":"100","allowedTokens":null,"allowedRecipients":null}`)
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, knownToolID, testDelegatee, true))
	require.NoError(t, f.reg.SetPolicy(ctx, f.identity, knownToolID, testDelegatee, blob, true))
	require.NoError(t, f.reg.SetPolicyParameters(ctx, f.identity, knownToolID, testDelegatee,
		[]string{"dailyCap"}, [][]byte{[]byte("500")}))

	decision, err := f.checker.Authorize(ctx, f.identity, knownToolID, testDelegatee)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	assert.True(t, decision.HasPolicy)
	assert.Equal(t, blob, decision.PolicyBlob)
	require.Len(t, decision.Parameters, 1)
	assert.Equal(t, "dailyCap", decision.Parameters[0].Name)
}

func TestListPermittedTools_FourDisjointBuckets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDelegatee(t)

	// Known tool with policy
	f.registerTool(t, knownToolID, true)
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, knownToolID, testDelegatee, true))
	require.NoError(t, f.reg.SetPolicy(ctx, f.identity, knownToolID, testDelegatee, []byte(`{}`), true))

	// Known tool without policy (sign-message CID on datil-dev)
	knownNoPolicy := "QmdUWBk6NYfGMTtyCxnMSbDnQsJeQ3RbfpRZk9yFNixwXp"
	f.registerTool(t, knownNoPolicy, true)
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, knownNoPolicy, testDelegatee, true))

	// Unknown tool with policy
	f.registerTool(t, unknownToolID, true)
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, unknownToolID, testDelegatee, true))
	require.NoError(t, f.reg.SetPolicy(ctx, f.identity, unknownToolID, testDelegatee, []byte(`opaque`), true))

	// Unknown tool without policy
	unknownNoPolicy := "QmAnotherUnknownTool2222222222222222222222222"
	f.registerTool(t, unknownNoPolicy, true)
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, unknownNoPolicy, testDelegatee, true))

	result, err := f.checker.ListPermittedToolsForDelegatee(ctx, f.identity, testDelegatee)
	require.NoError(t, err)

	b := result.Buckets
	require.Len(t, b.KnownWithPolicy, 1)
	require.Len(t, b.KnownWithoutPolicy, 1)
	require.Len(t, b.UnknownWithPolicy, 1)
	require.Len(t, b.UnknownWithoutPolicy, 1)

	assert.Equal(t, knownToolID, b.KnownWithPolicy[0].Tool.ID)
	assert.Equal(t, knownNoPolicy, b.KnownWithoutPolicy[0].Tool.ID)
	assert.Equal(t, unknownToolID, b.UnknownWithPolicy[0].Tool.ID)
	assert.Equal(t, unknownNoPolicy, b.UnknownWithoutPolicy[0].ID)

	// The unknown tool's policy blob is surfaced unmodified
	assert.Equal(t, []byte(`opaque`), b.UnknownWithPolicy[0].Policies[testDelegatee].Blob)
}

func TestListRegisteredToolsAndDelegatees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDelegatee(t)

	f.registerTool(t, knownToolID, true)
	f.registerTool(t, unknownToolID, false)
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, knownToolID, testDelegatee, true))
	require.NoError(t, f.reg.SetPolicy(ctx, f.identity, knownToolID, testDelegatee, []byte(`{"x":1}`), false))

	state, err := f.checker.ListRegisteredToolsAndDelegatees(ctx, f.identity)
	require.NoError(t, err)

	assert.Equal(t, []string{testDelegatee}, state.Delegatees)
	require.Len(t, state.Buckets.KnownWithPolicy, 1)
	require.Len(t, state.Buckets.UnknownWithoutPolicy, 1)
	assert.Empty(t, state.Buckets.KnownWithoutPolicy)
	assert.Empty(t, state.Buckets.UnknownWithPolicy)

	// Disabled policies still count as "with policy"
	pol := state.Buckets.KnownWithPolicy[0].Policies[testDelegatee]
	assert.False(t, pol.Enabled)
}

// End-to-end scenario: register disabled -> enable -> permit -> policy
// disabled -> policy enabled.
func TestScenario_AdminLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Register disabled
	f.registerTool(t, knownToolID, false)
	registered, enabled, err := f.checker.IsRegistered(ctx, f.identity, knownToolID)
	require.NoError(t, err)
	assert.True(t, registered)
	assert.False(t, enabled)

	// Enable: still not permitted for anyone
	require.NoError(t, f.reg.SetToolEnabled(ctx, f.identity, knownToolID, true))
	f.addDelegatee(t)
	tools, err := f.checker.ListPermittedToolsForDelegatee(ctx, f.identity, testDelegatee)
	require.NoError(t, err)
	assert.Empty(t, tools.Buckets.KnownWithPolicy)
	assert.Empty(t, tools.Buckets.KnownWithoutPolicy)

	// Permit with no policy: authorized
	require.NoError(t, f.reg.SetPermission(ctx, f.identity, knownToolID, testDelegatee, true))
	decision, err := f.checker.Authorize(ctx, f.identity, knownToolID, testDelegatee)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Disabled policy: denied
	require.NoError(t, f.reg.SetPolicy(ctx, f.identity, knownToolID, testDelegatee, []byte(`{}`), false))
	decision, err = f.checker.Authorize(ctx, f.identity, knownToolID, testDelegatee)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyPolicyDisabled, decision.Reason)

	// Enabled policy: allowed again
	require.NoError(t, f.reg.SetPolicyEnabled(ctx, f.identity, knownToolID, testDelegatee, true))
	decision, err = f.checker.Authorize(ctx, f.identity, knownToolID, testDelegatee)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
