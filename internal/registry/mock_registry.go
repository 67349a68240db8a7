// ABOUTME: In-memory Registry implementation for tests and local development
// ABOUTME: Enforces ownership and the cascade rules of the remote registry contract

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// tripleKey identifies one (identity, tool, delegatee) relation.
type tripleKey struct {
	identity  string
	tool      string
	delegatee string
}

// MockRegistry is an in-memory Registry. It mirrors the remote contract's
// behavior closely enough for unit tests: ownership checks on mutations,
// cascading removal of permissions and policies, and the remove-then-set
// rule for policies.
type MockRegistry struct {
	mu          sync.RWMutex
	caller      string
	owners      map[string]string          // identity -> owner address
	tools       map[string]map[string]Tool // identity -> tool ID -> tool
	delegatees  map[string]map[string]bool // identity -> delegatee -> present
	permissions map[tripleKey]bool         // triple -> enabled
	policies    map[tripleKey]*Policy
	parameters  map[tripleKey]map[string][]byte

	// FailNextTransfer makes the next TransferIdentity report a reverted
	// transaction without mutating ownership.
	FailNextTransfer bool
}

// NewMockRegistry creates an empty MockRegistry acting as the given caller
// address.
func NewMockRegistry(caller string) *MockRegistry {
	return &MockRegistry{
		caller:      caller,
		owners:      make(map[string]string),
		tools:       make(map[string]map[string]Tool),
		delegatees:  make(map[string]map[string]bool),
		permissions: make(map[tripleKey]bool),
		policies:    make(map[tripleKey]*Policy),
		parameters:  make(map[tripleKey]map[string][]byte),
	}
}

// ActAs switches the caller address used for ownership checks.
func (m *MockRegistry) ActAs(caller string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caller = caller
}

// requireOwner checks that the current caller owns the identity.
// Must be called with mu held.
func (m *MockRegistry) requireOwner(identityID string) error {
	owner, ok := m.owners[identityID]
	if !ok {
		return fmt.Errorf("identity %s: %w", identityID, ErrNotFound)
	}
	if owner != m.caller {
		return fmt.Errorf("identity %s caller %s: %w", identityID, m.caller, ErrNotOwner)
	}
	return nil
}

// MintIdentity creates a fresh identity owned by the current caller.
func (m *MockRegistry) MintIdentity(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := "pkp-" + uuid.NewString()
	m.owners[id] = m.caller
	m.tools[id] = make(map[string]Tool)
	m.delegatees[id] = make(map[string]bool)
	return id, nil
}

// TransferIdentity moves ownership to newOwner. Delegation and policy state
// stays keyed by identity and remains valid after the transfer.
func (m *MockRegistry) TransferIdentity(ctx context.Context, identityID, newOwner string) (TxReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return TxReceipt{}, err
	}
	receipt := TxReceipt{TxHash: "0x" + uuid.NewString()}
	if m.FailNextTransfer {
		m.FailNextTransfer = false
		return receipt, nil // Success stays false; ownership untouched
	}
	m.owners[identityID] = newOwner
	receipt.Success = true
	return receipt, nil
}

// OwnerOf returns the owner address of an identity.
func (m *MockRegistry) OwnerOf(ctx context.Context, identityID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, ok := m.owners[identityID]
	if !ok {
		return "", fmt.Errorf("identity %s: %w", identityID, ErrNotFound)
	}
	return owner, nil
}

// GetTool retrieves one tool registered under an identity.
func (m *MockRegistry) GetTool(ctx context.Context, identityID, toolID string) (*Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tool, ok := m.tools[identityID][toolID]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", toolID, ErrNotFound)
	}
	t := tool
	return &t, nil
}

// ListTools returns all tools registered under an identity, sorted by ID.
func (m *MockRegistry) ListTools(ctx context.Context, identityID string) ([]Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tools := make([]Tool, 0, len(m.tools[identityID]))
	for _, t := range m.tools[identityID] {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools, nil
}

// RegisterTool registers a tool under an identity.
func (m *MockRegistry) RegisterTool(ctx context.Context, identityID string, tool Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	if _, exists := m.tools[identityID][tool.ID]; exists {
		return fmt.Errorf("tool %s: %w", tool.ID, ErrAlreadyExists)
	}
	m.tools[identityID][tool.ID] = tool
	return nil
}

// RemoveTool removes a tool and revokes every permission, policy and
// parameter for it under the identity.
func (m *MockRegistry) RemoveTool(ctx context.Context, identityID, toolID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	if _, exists := m.tools[identityID][toolID]; !exists {
		return fmt.Errorf("tool %s: %w", toolID, ErrNotFound)
	}
	delete(m.tools[identityID], toolID)
	for key := range m.permissions {
		if key.identity == identityID && key.tool == toolID {
			delete(m.permissions, key)
		}
	}
	m.removePoliciesLocked(func(key tripleKey) bool {
		return key.identity == identityID && key.tool == toolID
	})
	return nil
}

// SetToolEnabled flips the enabled flag of a registered tool.
func (m *MockRegistry) SetToolEnabled(ctx context.Context, identityID, toolID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	tool, exists := m.tools[identityID][toolID]
	if !exists {
		return fmt.Errorf("tool %s: %w", toolID, ErrNotFound)
	}
	tool.Enabled = enabled
	m.tools[identityID][toolID] = tool
	return nil
}

// AddDelegatee registers an address as a delegatee of the identity.
func (m *MockRegistry) AddDelegatee(ctx context.Context, identityID, delegatee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	if m.delegatees[identityID][delegatee] {
		return fmt.Errorf("delegatee %s: %w", delegatee, ErrAlreadyExists)
	}
	m.delegatees[identityID][delegatee] = true
	return nil
}

// RemoveDelegatee removes a delegatee and every permission, policy and
// parameter held for it under the identity.
func (m *MockRegistry) RemoveDelegatee(ctx context.Context, identityID, delegatee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	if !m.delegatees[identityID][delegatee] {
		return fmt.Errorf("delegatee %s: %w", delegatee, ErrNotFound)
	}
	delete(m.delegatees[identityID], delegatee)
	for key := range m.permissions {
		if key.identity == identityID && key.delegatee == delegatee {
			delete(m.permissions, key)
		}
	}
	m.removePoliciesLocked(func(key tripleKey) bool {
		return key.identity == identityID && key.delegatee == delegatee
	})
	return nil
}

// ListDelegatees returns all delegatee addresses for an identity, sorted.
func (m *MockRegistry) ListDelegatees(ctx context.Context, identityID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.delegatees[identityID]))
	for d := range m.delegatees[identityID] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

// IsDelegatee reports whether the address is a delegatee of the identity.
func (m *MockRegistry) IsDelegatee(ctx context.Context, identityID, delegatee string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.delegatees[identityID][delegatee], nil
}

// ListDelegatedIdentities returns all identities that list the address as a
// delegatee, sorted.
func (m *MockRegistry) ListDelegatedIdentities(ctx context.Context, delegatee string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for identityID, set := range m.delegatees {
		if set[delegatee] {
			out = append(out, identityID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SetPermission creates or updates the permission for a triple.
func (m *MockRegistry) SetPermission(ctx context.Context, identityID, toolID, delegatee string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	if _, exists := m.tools[identityID][toolID]; !exists {
		return fmt.Errorf("tool %s: %w", toolID, ErrNotFound)
	}
	if !m.delegatees[identityID][delegatee] {
		return fmt.Errorf("delegatee %s: %w", delegatee, ErrNotFound)
	}
	m.permissions[tripleKey{identityID, toolID, delegatee}] = enabled
	return nil
}

// RemovePermission destroys the permission for a triple.
func (m *MockRegistry) RemovePermission(ctx context.Context, identityID, toolID, delegatee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	key := tripleKey{identityID, toolID, delegatee}
	if _, exists := m.permissions[key]; !exists {
		return fmt.Errorf("permission %s/%s: %w", toolID, delegatee, ErrNotFound)
	}
	delete(m.permissions, key)
	return nil
}

// GetPermission returns the enabled flag of a permission, or ErrNotFound
// when no permission exists for the triple.
func (m *MockRegistry) GetPermission(ctx context.Context, identityID, toolID, delegatee string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	enabled, exists := m.permissions[tripleKey{identityID, toolID, delegatee}]
	if !exists {
		return false, fmt.Errorf("permission %s/%s: %w", toolID, delegatee, ErrNotFound)
	}
	return enabled, nil
}

// GetPermittedTools returns every tool the delegatee holds an enabled
// permission for, paired with the stored policy when one exists.
func (m *MockRegistry) GetPermittedTools(ctx context.Context, identityID, delegatee string) ([]PermittedTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PermittedTool
	for key, enabled := range m.permissions {
		if key.identity != identityID || key.delegatee != delegatee || !enabled {
			continue
		}
		tool, exists := m.tools[identityID][key.tool]
		if !exists {
			continue
		}
		pt := PermittedTool{Tool: tool}
		if pol, ok := m.policies[key]; ok {
			p := *pol
			p.Blob = append([]byte(nil), pol.Blob...)
			pt.Policy = &p
		}
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool.ID < out[j].Tool.ID })
	return out, nil
}

// SetPolicy stores the policy blob for a triple. At most one policy may
// exist per triple; callers must remove the old one first.
func (m *MockRegistry) SetPolicy(ctx context.Context, identityID, toolID, delegatee string, blob []byte, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	key := tripleKey{identityID, toolID, delegatee}
	if _, exists := m.policies[key]; exists {
		return fmt.Errorf("policy %s/%s: %w", toolID, delegatee, ErrAlreadyExists)
	}
	m.policies[key] = &Policy{Blob: append([]byte(nil), blob...), Enabled: enabled}
	return nil
}

// RemovePolicy removes the policy and all its parameters for a triple.
func (m *MockRegistry) RemovePolicy(ctx context.Context, identityID, toolID, delegatee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	key := tripleKey{identityID, toolID, delegatee}
	if _, exists := m.policies[key]; !exists {
		return fmt.Errorf("policy %s/%s: %w", toolID, delegatee, ErrNotFound)
	}
	delete(m.policies, key)
	delete(m.parameters, key)
	return nil
}

// SetPolicyEnabled flips the enabled flag of an existing policy.
func (m *MockRegistry) SetPolicyEnabled(ctx context.Context, identityID, toolID, delegatee string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	key := tripleKey{identityID, toolID, delegatee}
	pol, exists := m.policies[key]
	if !exists {
		return fmt.Errorf("policy %s/%s: %w", toolID, delegatee, ErrNotFound)
	}
	pol.Enabled = enabled
	return nil
}

// GetPolicy returns the policy for a triple, or ErrNotFound when absent.
func (m *MockRegistry) GetPolicy(ctx context.Context, identityID, toolID, delegatee string) (*Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pol, exists := m.policies[tripleKey{identityID, toolID, delegatee}]
	if !exists {
		return nil, fmt.Errorf("policy %s/%s: %w", toolID, delegatee, ErrNotFound)
	}
	p := *pol
	p.Blob = append([]byte(nil), pol.Blob...)
	return &p, nil
}

// SetPolicyParameters writes named parameter values under a triple.
// The names and values slices must have equal length.
func (m *MockRegistry) SetPolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string, values [][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	if len(names) != len(values) {
		return fmt.Errorf("%d names, %d values: %w", len(names), len(values), ErrArrayLengthMismatch)
	}
	key := tripleKey{identityID, toolID, delegatee}
	if _, exists := m.policies[key]; !exists {
		return fmt.Errorf("policy %s/%s: %w", toolID, delegatee, ErrNotFound)
	}
	params := m.parameters[key]
	if params == nil {
		params = make(map[string][]byte)
		m.parameters[key] = params
	}
	for i, name := range names {
		params[name] = append([]byte(nil), values[i]...)
	}
	return nil
}

// RemovePolicyParameters removes the named parameters from a triple.
// Unknown names are ignored.
func (m *MockRegistry) RemovePolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(identityID); err != nil {
		return err
	}
	key := tripleKey{identityID, toolID, delegatee}
	for _, name := range names {
		delete(m.parameters[key], name)
	}
	return nil
}

// GetPolicyParameters returns the named parameters of a triple. An empty
// names slice returns all parameters, sorted by name.
func (m *MockRegistry) GetPolicyParameters(ctx context.Context, identityID, toolID, delegatee string, names []string) ([]Parameter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := tripleKey{identityID, toolID, delegatee}
	params := m.parameters[key]

	var out []Parameter
	if len(names) == 0 {
		for name, value := range params {
			out = append(out, Parameter{Name: name, Value: append([]byte(nil), value...)})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}
	for _, name := range names {
		value, exists := params[name]
		if !exists {
			return nil, fmt.Errorf("parameter %s: %w", name, ErrNotFound)
		}
		out = append(out, Parameter{Name: name, Value: append([]byte(nil), value...)})
	}
	return out, nil
}

// removePoliciesLocked removes policies and parameters matching the
// predicate. Must be called with mu held.
func (m *MockRegistry) removePoliciesLocked(match func(tripleKey) bool) {
	for key := range m.policies {
		if match(key) {
			delete(m.policies, key)
			delete(m.parameters, key)
		}
	}
}
