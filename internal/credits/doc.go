// Package credits manages capacity credits on rate-limited deployments.
//
// A capacity credit entitles a signer to a request rate until an expiry
// boundary: the UTC midnight daysUntilExpiration days after the mint date,
// minus a ten-minute safety margin. The Manager keeps one active credit per
// signer in the local cache and mints a replacement when the cached one
// expires, after quoting the cost and checking the signer's ledger balance.
// Minting never proceeds on insufficient balance.
//
// Deployments that do not enforce rate limits (datil-dev) short-circuit:
// GetOrMint returns (nil, nil) and nothing touches the ledger.
package credits
