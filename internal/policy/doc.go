// Package policy implements the typed policy variants and their codec.
//
// # Overview
//
// A policy constrains what a delegatee may do with one tool. On the wire a
// policy is an opaque versioned blob; this package owns the closed set of
// typed shapes behind those blobs and the codec that moves between the two.
//
// Supported schemas, each at version 1.0.0:
//
//   - ERC20Transfer: max amount plus token and recipient allow-lists
//   - SignMessage: allowed message prefixes
//   - UniswapSwap: max input amount plus a token allow-list
//
// # Codec
//
// Encode validates against the schema before serializing; invalid policies
// never reach the wire. Decode is strict: the caller names the schema, the
// bytes must carry matching literal type/version tags, unknown fields are
// rejected, and a decode failure is a hard error, never "no policy".
//
// Addresses are EIP-55 checksummed during normalization, so decode(encode(p))
// differs from p only in address casing.
package policy
