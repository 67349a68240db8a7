// Package auth provides credential verification for the role facades.
//
// Callers authenticate with JWT tokens signed with HS256 using the
// configured jwt_secret. A verified token yields a Credential carrying
// the caller's signing address ("sub" claim) and role ("role" claim).
//
// Two roles exist:
//
//   - admin: unlocks identity ownership operations (minting, transfers,
//     tool registration, permission and policy management)
//   - delegatee: unlocks delegated execution (listing permitted tools,
//     intent resolution, tool execution)
//
// Credentials propagate through context.Context:
//
//	ctx = auth.WithCredential(ctx, cred)
//	cred, ok := auth.FromContext(ctx)
package auth
