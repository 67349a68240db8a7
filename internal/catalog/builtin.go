// ABOUTME: Built-in tool definitions per network deployment
// ABOUTME: Maps the pinned tool CIDs of each network to schemas and validators

package catalog

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/2389/toolwarden/internal/policy"
)

// Tool kind names shared with the intent resolver.
const (
	KindERC20Transfer = "erc20-transfer"
	KindSignMessage   = "sign-message"
	KindUniswapSwap   = "uniswap-swap"
)

// Per-network pinned tool CIDs. Tool code is content addressed, so each
// network deployment pins its own set.
var networkToolIDs = map[string]map[string]string{
	"datil-dev": {
		KindERC20Transfer: "QmZbQoEbrJLGNK7ir6vKvLZLvMfuKZwiCLB4x6NKm3V8Tm",
		KindSignMessage:   "QmdUWBk6NYfGMTtyCxnMSbDnQsJeQ3RbfpRZk9yFNixwXp",
		KindUniswapSwap:   "QmYHyvFPdSMm4k6uZa4hmy9Yr6cx9vnTFCxWhn1DBf1hze",
	},
	"datil-test": {
		KindERC20Transfer: "QmWx9SM6DTRqLCQZv4bRt6VcFEk1vtr9UAXq5YtvUVFvtb",
		KindSignMessage:   "QmU7BrtCfZ7HDYKM4nYfcVnFJbexDKe6xYzAkBPWCWYUQJ",
		KindUniswapSwap:   "QmTCB5w8rXBRJZdVeqrGLGGyZCxWMSJnM2hJx6c2EvRddF",
	},
	"datil": {
		KindERC20Transfer: "QmProd1ERC20TransferV1hDYKM4nYfcVnFJbexDKe6xY",
		KindSignMessage:   "QmProd2SignMessageV1rXBRJZdVeqrGLGGyZCxWMSJnM",
		KindUniswapSwap:   "QmProd3UniswapSwapV1oEbrJLGNK7ir6vKvLZLvMfuKZ",
	},
}

// ForNetwork returns the built-in catalog for a network deployment.
func ForNetwork(network string) (*Catalog, error) {
	ids, ok := networkToolIDs[network]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown network %q", network)
	}
	return New([]Definition{
		{
			ToolID:       ids[KindERC20Transfer],
			Kind:         KindERC20Transfer,
			Name:         "ERC20 Transfer",
			Description:  "Transfer ERC-20 tokens from the identity's wallet to a recipient",
			PolicySchema: policy.SchemaERC20Transfer,
			Params: []ParamDef{
				{Name: "tokenAddress", Description: "ERC20 token contract address"},
				{Name: "recipient", Description: "Recipient address"},
				{Name: "amount", Description: "Amount of tokens in base units, as a string"},
			},
			Validator: ValidatorFunc(validateERC20Transfer),
		},
		{
			ToolID:       ids[KindSignMessage],
			Kind:         KindSignMessage,
			Name:         "Sign Message",
			Description:  "Sign an arbitrary message with the identity's key",
			PolicySchema: policy.SchemaSignMessage,
			Params: []ParamDef{
				{Name: "message", Description: "The message text to sign"},
			},
			Validator: ValidatorFunc(validateSignMessage),
		},
		{
			ToolID:       ids[KindUniswapSwap],
			Kind:         KindUniswapSwap,
			Name:         "Uniswap Swap",
			Description:  "Swap one ERC-20 token for another on Uniswap",
			PolicySchema: policy.SchemaUniswapSwap,
			Params: []ParamDef{
				{Name: "tokenIn", Description: "Address of the token to sell"},
				{Name: "tokenOut", Description: "Address of the token to buy"},
				{Name: "amountIn", Description: "Input amount in base units, as a string"},
			},
			Validator: ValidatorFunc(validateUniswapSwap),
		},
	})
}

func validateERC20Transfer(params map[string]string) []ValidationError {
	var out []ValidationError
	out = appendAddressError(out, params, "tokenAddress")
	out = appendAddressError(out, params, "recipient")
	out = appendAmountError(out, params, "amount")
	return out
}

func validateSignMessage(params map[string]string) []ValidationError {
	var out []ValidationError
	if msg, ok := params["message"]; ok && strings.TrimSpace(msg) == "" {
		out = append(out, ValidationError{Param: "message", Message: "must be non-empty text"})
	}
	return out
}

func validateUniswapSwap(params map[string]string) []ValidationError {
	var out []ValidationError
	out = appendAddressError(out, params, "tokenIn")
	out = appendAddressError(out, params, "tokenOut")
	out = appendAmountError(out, params, "amountIn")
	return out
}

func appendAddressError(out []ValidationError, params map[string]string, name string) []ValidationError {
	if v, ok := params[name]; ok && !policy.IsHexAddress(v) {
		out = append(out, ValidationError{
			Param:   name,
			Message: "must be a 0x-prefixed 20-byte hex address",
		})
	}
	return out
}

func appendAmountError(out []ValidationError, params map[string]string, name string) []ValidationError {
	v, ok := params[name]
	if !ok {
		return out
	}
	n, parsed := new(big.Int).SetString(v, 10)
	if !parsed || n.Sign() <= 0 || v[0] == '+' {
		out = append(out, ValidationError{
			Param:   name,
			Message: "must be a positive base-10 integer amount in base units",
		})
	}
	return out
}
