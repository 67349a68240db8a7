// ABOUTME: Versioned policy codec: schema-validated encode, strict decode
// ABOUTME: Dispatch keyed by (type, version); unknown combinations are rejected

package policy

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/2389/toolwarden/internal/errs"
)

// Codec encodes typed policies to their opaque wire form and back. Encoding
// validates against the schema first; decoding is the exact left inverse of
// encoding for schema-valid inputs, modulo address checksum normalization.
type Codec struct {
	decoders map[Schema]func([]byte) (Policy, error)
}

// NewCodec builds a codec that knows every supported schema.
func NewCodec() *Codec {
	return &Codec{
		decoders: map[Schema]func([]byte) (Policy, error){
			SchemaERC20Transfer: decodeStrict[ERC20TransferPolicy],
			SchemaSignMessage:   decodeStrict[SignMessagePolicy],
			SchemaUniswapSwap:   decodeStrict[UniswapSwapPolicy],
		},
	}
}

// Encode validates the policy against its schema and serializes it. The
// returned bytes carry the literal type and version tags.
func (c *Codec) Encode(p Policy) ([]byte, error) {
	if _, known := c.decoders[p.Schema()]; !known {
		return nil, errs.New(errs.KindSchemaViolation, "policy.Encode",
			fmt.Sprintf("unknown schema %s", p.Schema()))
	}
	if err := p.validate("policy.Encode"); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p.normalize())
	if err != nil {
		return nil, errs.Wrap(errs.KindSchemaViolation, "policy.Encode", err)
	}
	return data, nil
}

// Decode parses wire bytes into the policy shape named by the caller-supplied
// schema id. The codec never sniffs the shape from the bytes; decode failure
// is a hard error, never "no policy".
func (c *Codec) Decode(schema Schema, data []byte) (Policy, error) {
	decode, known := c.decoders[schema]
	if !known {
		return nil, errs.New(errs.KindMalformedPolicy, "policy.Decode",
			fmt.Sprintf("unknown schema %s", schema))
	}

	p, err := decode(data)
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedPolicy, "policy.Decode", err)
	}

	// Embedded tags must match the requested schema literally.
	if got := taggedSchema(p); got != schema {
		return nil, errs.New(errs.KindMalformedPolicy, "policy.Decode",
			fmt.Sprintf("schema tag %s does not match requested %s", got, schema))
	}
	if err := p.validate("policy.Decode"); err != nil {
		return nil, &errs.Error{Kind: errs.KindMalformedPolicy, Op: "policy.Decode", Cause: err}
	}
	return p.normalize(), nil
}

// decodeStrict unmarshals with unknown fields disallowed.
func decodeStrict[T Policy](data []byte) (Policy, error) {
	var p T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// taggedSchema reads the type/version tags embedded in a decoded variant.
func taggedSchema(p Policy) Schema {
	switch v := p.(type) {
	case ERC20TransferPolicy:
		return Schema{Type: v.Type, Version: v.Version}
	case SignMessagePolicy:
		return Schema{Type: v.Type, Version: v.Version}
	case UniswapSwapPolicy:
		return Schema{Type: v.Type, Version: v.Version}
	default:
		return Schema{}
	}
}
