// Package chain fetches finalized transactions from a Solana RPC endpoint and
// normalizes them into the shape the verifier works on.
package chain

import (
	"encoding/json"
)

// AccountKey is a resolved account of a transaction message.
type AccountKey struct {
	Address  string
	Signer   bool
	Writable bool
}

// TokenBalance is a token account snapshot taken before or after execution.
// Amount is the raw base-unit integer as a decimal string.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string
	Decimals     uint8
}

// Transaction is a fetched, executed transaction.
type Transaction struct {
	Signature         string
	Slot              uint64
	AccountKeys       []AccountKey
	Err               any // non-nil when execution failed
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// Failed reports whether the transaction carries an on-chain error.
func (t *Transaction) Failed() bool { return t.Err != nil }

// HasWritableAccount reports whether address appears among the account keys
// with write access.
func (t *Transaction) HasWritableAccount(address string) bool {
	for _, k := range t.AccountKeys {
		if k.Address == address && k.Writable {
			return true
		}
	}
	return false
}

// IsSigner reports whether address appears flagged as a signer.
func (t *Transaction) IsSigner(address string) bool {
	for _, k := range t.AccountKeys {
		if k.Address == address && k.Signer {
			return true
		}
	}
	return false
}

// CustomErrorCode extracts a program's custom error code from an execution
// error of the form {"InstructionError":[index,{"Custom":code}]}.
func CustomErrorCode(txErr any) (uint32, bool) {
	m, ok := txErr.(map[string]any)
	if !ok {
		return 0, false
	}
	ie, ok := m["InstructionError"].([]any)
	if !ok || len(ie) != 2 {
		return 0, false
	}
	detail, ok := ie[1].(map[string]any)
	if !ok {
		return 0, false
	}
	return toUint32(detail["Custom"])
}

func toUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > float64(^uint32(0)) || n != float64(uint32(n)) {
			return 0, false
		}
		return uint32(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 || i > int64(^uint32(0)) {
			return 0, false
		}
		return uint32(i), true
	case int:
		if n < 0 || int64(n) > int64(^uint32(0)) {
			return 0, false
		}
		return uint32(n), true
	case uint32:
		return n, true
	default:
		return 0, false
	}
}
