// ABOUTME: Delegatee facade for delegated tool execution
// ABOUTME: Permitted-tool listing, intent-driven tool selection, authorized execution

package delegatee

import (
	"context"
	"log/slog"

	"github.com/2389/toolwarden/internal/auth"
	"github.com/2389/toolwarden/internal/catalog"
	"github.com/2389/toolwarden/internal/checker"
	"github.com/2389/toolwarden/internal/credits"
	"github.com/2389/toolwarden/internal/errs"
	"github.com/2389/toolwarden/internal/intent"
	"github.com/2389/toolwarden/internal/registry"
	"github.com/2389/toolwarden/internal/store"
)

// ExecutionRequest is everything an executor needs to run one authorized
// tool invocation. PolicyBlob and Parameters are nil when no policy is
// stored for the triple; Credit is nil on deployments without rate limits.
type ExecutionRequest struct {
	Identity   string
	ToolID     string
	Delegatee  string
	Params     map[string]string
	PolicyBlob []byte
	Parameters []registry.Parameter
	Credit     *store.Credit
}

// ExecutionResult is the executor's report for one invocation.
type ExecutionResult struct {
	TxHash string
	Output []byte
}

// Executor runs an authorized tool invocation. Implementations own
// tool-specific policy enforcement against the attached blob.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// Delegatee is the delegated-execution facade. All reads and the execution
// path are scoped to the credential's address; nothing here can mutate
// registry state.
type Delegatee struct {
	address  string
	reg      registry.Registry
	chk      *checker.Checker
	resolver *intent.Resolver
	credits  *credits.Manager
	logger   *slog.Logger
}

// New builds the delegatee facade for a verified credential. The resolver
// may be nil when intent resolution is not configured; GetToolViaIntent
// then fails with a config error instead of at construction.
func New(cred auth.Credential, reg registry.Registry, cat *catalog.Catalog, resolver *intent.Resolver, cm *credits.Manager, logger *slog.Logger) (*Delegatee, error) {
	if cred.Address == "" {
		return nil, errs.New(errs.KindConfig, "delegatee.New", "credential address is required")
	}
	if cred.Role != auth.RoleDelegatee {
		return nil, errs.New(errs.KindConfig, "delegatee.New", "credential does not prove the delegatee role")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Delegatee{
		address:  cred.Address,
		reg:      reg,
		chk:      checker.New(reg, cat),
		resolver: resolver,
		credits:  cm,
		logger:   logger.With("component", "delegatee", "address", cred.Address),
	}, nil
}

// Address returns the delegatee's signing address.
func (d *Delegatee) Address() string {
	return d.address
}

// ListIdentities returns every identity that has delegated to this address.
func (d *Delegatee) ListIdentities(ctx context.Context) ([]string, error) {
	ids, err := d.reg.ListDelegatedIdentities(ctx, d.address)
	if err != nil {
		return nil, errs.Wrap(errs.KindExternal, "delegatee.ListIdentities", err)
	}
	return ids, nil
}

// ListPermittedTools returns the tools this delegatee may use under one
// identity, partitioned into the four catalog/policy buckets.
func (d *Delegatee) ListPermittedTools(ctx context.Context, identityID string) (checker.PermittedTools, error) {
	return d.chk.ListPermittedToolsForDelegatee(ctx, identityID, d.address)
}

// GetToolPolicy returns the raw policy blob and enabled flag stored for
// this delegatee on one tool. An absent policy is (nil, false, nil).
func (d *Delegatee) GetToolPolicy(ctx context.Context, identityID, toolID string) ([]byte, bool, error) {
	return d.chk.GetPolicy(ctx, identityID, toolID, d.address)
}

// GetCredit returns this delegatee's active capacity credit, minting one if
// needed. Nil on deployments that do not enforce rate limits.
func (d *Delegatee) GetCredit(ctx context.Context) (*store.Credit, error) {
	if d.credits == nil {
		return nil, nil
	}
	return d.credits.GetOrMint(ctx, d.address)
}

// permittedDefinitions collects the catalog definitions of the delegatee's
// permitted known tools. Unknown tools cannot be intent-matched; they are
// listed, never selected.
func (d *Delegatee) permittedDefinitions(ctx context.Context, identityID string) ([]catalog.Definition, error) {
	tools, err := d.ListPermittedTools(ctx, identityID)
	if err != nil {
		return nil, err
	}
	var defs []catalog.Definition
	for _, kt := range tools.Buckets.KnownWithPolicy {
		defs = append(defs, kt.Definition)
	}
	for _, kt := range tools.Buckets.KnownWithoutPolicy {
		defs = append(defs, kt.Definition)
	}
	return defs, nil
}

// GetToolViaIntent resolves free-form text against the delegatee's
// permitted tools under one identity. A nil Result.Tool means no permitted
// tool fits the request; that is a valid outcome, not an error.
func (d *Delegatee) GetToolViaIntent(ctx context.Context, identityID, intentText string) (intent.Result, error) {
	if d.resolver == nil {
		return intent.Result{}, errs.New(errs.KindConfig, "delegatee.GetToolViaIntent",
			"intent resolution is not configured")
	}
	defs, err := d.permittedDefinitions(ctx, identityID)
	if err != nil {
		return intent.Result{}, err
	}
	if len(defs) == 0 {
		return intent.Result{}, nil
	}
	return d.resolver.Resolve(ctx, intentText, defs)
}

// Execute authorizes and runs one tool invocation. The authorization
// decision is made fresh against the registry; on deployments with rate
// limits an active capacity credit is acquired before the executor runs.
func (d *Delegatee) Execute(ctx context.Context, exec Executor, identityID, toolID string, params map[string]string) (ExecutionResult, error) {
	decision, err := d.chk.Authorize(ctx, identityID, toolID, d.address)
	if err != nil {
		return ExecutionResult{}, err
	}
	if err := decision.Err(); err != nil {
		return ExecutionResult{}, err
	}

	var credit *store.Credit
	if d.credits != nil {
		credit, err = d.credits.GetOrMint(ctx, d.address)
		if err != nil {
			return ExecutionResult{}, err
		}
	}

	req := ExecutionRequest{
		Identity:   identityID,
		ToolID:     toolID,
		Delegatee:  d.address,
		Params:     params,
		PolicyBlob: decision.PolicyBlob,
		Parameters: decision.Parameters,
		Credit:     credit,
	}
	result, err := exec.Execute(ctx, req)
	if err != nil {
		return ExecutionResult{}, err
	}
	d.logger.Info("executed tool",
		"identity", identityID,
		"tool", toolID,
		"tx_hash", result.TxHash,
	)
	return result, nil
}
