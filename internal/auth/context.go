// ABOUTME: Authentication context for tracking the verified credential
// ABOUTME: Provides WithCredential/FromContext for propagation via context

package auth

import (
	"context"
)

// credentialKey is the key type for storing a Credential in context.Context.
type credentialKey struct{}

// WithCredential returns a new context with the credential attached.
func WithCredential(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, cred)
}

// FromContext retrieves the credential from the context. ok is false when
// none is present.
func FromContext(ctx context.Context) (Credential, bool) {
	cred, ok := ctx.Value(credentialKey{}).(Credential)
	return cred, ok
}

// IsAdmin reports whether the credential proves the admin role.
func (c Credential) IsAdmin() bool {
	return c.Role == RoleAdmin
}
