// ABOUTME: Typed policy variants for the supported tool kinds
// ABOUTME: Closed set; each variant owns one schema type string and version

package policy

import (
	"fmt"
	"math/big"

	"github.com/2389/toolwarden/internal/errs"
)

// Schema identifies one policy shape: a literal type tag plus a version.
// The codec dispatches on the full pair and rejects unknown combinations.
type Schema struct {
	Type    string
	Version string
}

func (s Schema) String() string {
	return s.Type + "@" + s.Version
}

// Known schemas, one per tool kind.
var (
	SchemaERC20Transfer = Schema{Type: "ERC20Transfer", Version: "1.0.0"}
	SchemaSignMessage   = Schema{Type: "SignMessage", Version: "1.0.0"}
	SchemaUniswapSwap   = Schema{Type: "UniswapSwap", Version: "1.0.0"}
)

// Policy is one of the typed policy variants. The unexported methods keep
// the variant set closed to this package.
type Policy interface {
	Schema() Schema
	validate(op string) error
	normalize() Policy
}

// ERC20TransferPolicy bounds token transfers: a maximum amount in base
// units plus allow-lists for token contracts and recipients. Empty
// allow-lists mean "no restriction on that axis".
type ERC20TransferPolicy struct {
	Type              string   `json:"type"`
	Version           string   `json:"version"`
	MaxAmount         string   `json:"maxAmount"`
	AllowedTokens     []string `json:"allowedTokens"`
	AllowedRecipients []string `json:"allowedRecipients"`
}

// Schema returns the ERC20Transfer schema id.
func (p ERC20TransferPolicy) Schema() Schema { return SchemaERC20Transfer }

func (p ERC20TransferPolicy) validate(op string) error {
	if err := validateTags(op, p.Type, p.Version, SchemaERC20Transfer); err != nil {
		return err
	}
	if err := validateAmount(op, "maxAmount", p.MaxAmount); err != nil {
		return err
	}
	if err := validateAddresses(op, "allowedTokens", p.AllowedTokens); err != nil {
		return err
	}
	return validateAddresses(op, "allowedRecipients", p.AllowedRecipients)
}

func (p ERC20TransferPolicy) normalize() Policy {
	p.Type = SchemaERC20Transfer.Type
	p.Version = SchemaERC20Transfer.Version
	p.AllowedTokens = checksumAll(p.AllowedTokens)
	p.AllowedRecipients = checksumAll(p.AllowedRecipients)
	return p
}

// SignMessagePolicy restricts message signing to messages starting with one
// of the allowed prefixes. An empty list allows any message.
type SignMessagePolicy struct {
	Type            string   `json:"type"`
	Version         string   `json:"version"`
	AllowedPrefixes []string `json:"allowedPrefixes"`
}

// Schema returns the SignMessage schema id.
func (p SignMessagePolicy) Schema() Schema { return SchemaSignMessage }

func (p SignMessagePolicy) validate(op string) error {
	return validateTags(op, p.Type, p.Version, SchemaSignMessage)
}

func (p SignMessagePolicy) normalize() Policy {
	p.Type = SchemaSignMessage.Type
	p.Version = SchemaSignMessage.Version
	return p
}

// UniswapSwapPolicy bounds swaps: a maximum input amount in base units plus
// an allow-list of tokens that may appear on either side of the swap.
type UniswapSwapPolicy struct {
	Type          string   `json:"type"`
	Version       string   `json:"version"`
	MaxAmountIn   string   `json:"maxAmountIn"`
	AllowedTokens []string `json:"allowedTokens"`
}

// Schema returns the UniswapSwap schema id.
func (p UniswapSwapPolicy) Schema() Schema { return SchemaUniswapSwap }

func (p UniswapSwapPolicy) validate(op string) error {
	if err := validateTags(op, p.Type, p.Version, SchemaUniswapSwap); err != nil {
		return err
	}
	if err := validateAmount(op, "maxAmountIn", p.MaxAmountIn); err != nil {
		return err
	}
	return validateAddresses(op, "allowedTokens", p.AllowedTokens)
}

func (p UniswapSwapPolicy) normalize() Policy {
	p.Type = SchemaUniswapSwap.Type
	p.Version = SchemaUniswapSwap.Version
	p.AllowedTokens = checksumAll(p.AllowedTokens)
	return p
}

// validateTags checks the embedded type/version tags against the expected
// schema. Empty tags are allowed on encode and filled by normalize; a
// mismatched literal tag is a schema violation.
func validateTags(op, typ, version string, want Schema) error {
	if typ != "" && typ != want.Type {
		return errs.New(errs.KindSchemaViolation, op,
			fmt.Sprintf("field type: got %q, want %q", typ, want.Type))
	}
	if version != "" && version != want.Version {
		return errs.New(errs.KindSchemaViolation, op,
			fmt.Sprintf("field version: got %q, want %q", version, want.Version))
	}
	return nil
}

// validateAmount checks that the field is a non-negative base-10 integer
// string. Signs, decimals and non-numeric input are rejected.
func validateAmount(op, field, value string) error {
	if value == "" {
		return errs.New(errs.KindSchemaViolation, op,
			fmt.Sprintf("field %s: amount is required", field))
	}
	if value[0] == '-' || value[0] == '+' {
		return errs.New(errs.KindSchemaViolation, op,
			fmt.Sprintf("field %s: amount must not be signed: %q", field, value))
	}
	if _, ok := new(big.Int).SetString(value, 10); !ok {
		return errs.New(errs.KindSchemaViolation, op,
			fmt.Sprintf("field %s: not a base-10 integer: %q", field, value))
	}
	return nil
}

// validateAddresses checks every entry of an address allow-list.
func validateAddresses(op, field string, addrs []string) error {
	for i, a := range addrs {
		if !IsHexAddress(a) {
			return errs.New(errs.KindSchemaViolation, op,
				fmt.Sprintf("field %s[%d]: malformed address %q", field, i, a))
		}
	}
	return nil
}
