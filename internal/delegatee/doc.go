// Package delegatee provides the delegated-execution facade.
//
// # Overview
//
// A Delegatee wraps the registry with the read-and-execute surface an
// agent operating under delegated authority needs: listing the identities
// that delegated to it, listing permitted tools, resolving free-form
// intent text to a permitted tool, and executing tools behind a fresh
// authorization decision.
//
// Construction requires a credential proving the delegatee role:
//
//	d, err := delegatee.New(cred, reg, cat, resolver, creditManager, logger)
//
// # Execution
//
// Execute authorizes against the registry on every call; nothing is cached
// between invocations. When the deployment enforces rate limits, an active
// capacity credit is acquired (minting if necessary) before the executor
// runs. The executor receives the stored policy blob and parameters and
// owns tool-specific enforcement.
//
// # Intent
//
// GetToolViaIntent matches text only against permitted tools the local
// catalog knows. Unknown tools are listed but never selected, and a
// no-match outcome is a valid result, not an error.
package delegatee
