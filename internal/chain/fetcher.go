package chain

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Fetcher retrieves an executed transaction by signature.
type Fetcher interface {
	Fetch(ctx context.Context, signature string) (*Transaction, error)
}

// DefaultTimeout bounds a single RPC round trip.
const DefaultTimeout = 10 * time.Second

type rpcAPI interface {
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// RPCClient talks to a Solana JSON-RPC endpoint.
type RPCClient struct {
	api     rpcAPI
	timeout time.Duration
}

var _ Fetcher = (*RPCClient)(nil)

// NewRPCClient constructs a client for endpoint. A non-positive timeout uses DefaultTimeout.
func NewRPCClient(endpoint string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RPCClient{api: rpc.New(endpoint), timeout: timeout}
}

// Fetch loads a finalized transaction, accepting versioned messages, and
// resolves its account keys including lookup-table addresses.
func (c *RPCClient) Fetch(ctx context.Context, signature string) (*Transaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidSignature, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxVersion := uint64(0)
	res, err := c.api.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	switch {
	case err == nil:
	case errors.Is(err, rpc.ErrNotFound):
		return nil, &FetchError{Kind: KindNotFound, Err: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, &FetchError{Kind: KindTimeout, Err: err}
	default:
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}
	if res == nil || res.Transaction == nil {
		return nil, &FetchError{Kind: KindNotFound}
	}
	if res.Meta == nil {
		return nil, &FetchError{Kind: KindMalformed, Err: errors.New("missing meta")}
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, &FetchError{Kind: KindMalformed, Err: err}
	}

	out := &Transaction{
		Signature:         signature,
		Slot:              res.Slot,
		AccountKeys:       accountKeys(tx, res.Meta),
		Err:               res.Meta.Err,
		PreTokenBalances:  tokenBalances(res.Meta.PreTokenBalances),
		PostTokenBalances: tokenBalances(res.Meta.PostTokenBalances),
	}
	return out, nil
}

// LatestBlockhash returns a recent finalized blockhash for new transactions.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, &FetchError{Kind: KindNetwork, Err: err}
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, &FetchError{Kind: KindMalformed, Err: errors.New("empty blockhash result")}
	}
	return res.Value.Blockhash, nil
}

// accountKeys lists static keys with header-derived flags, then loaded
// writable addresses, then loaded readonly addresses; token balance
// indexes refer to this order.
func accountKeys(tx *solana.Transaction, meta *rpc.TransactionMeta) []AccountKey {
	h := tx.Message.Header
	static := tx.Message.AccountKeys
	numSigned := int(h.NumRequiredSignatures)
	writableSigned := numSigned - int(h.NumReadonlySignedAccounts)
	writableUnsigned := len(static) - int(h.NumReadonlyUnsignedAccounts)

	keys := make([]AccountKey, 0, len(static)+len(meta.LoadedAddresses.Writable)+len(meta.LoadedAddresses.ReadOnly))
	for i, k := range static {
		signer := i < numSigned
		writable := i < writableSigned || (!signer && i < writableUnsigned)
		keys = append(keys, AccountKey{Address: k.String(), Signer: signer, Writable: writable})
	}
	for _, k := range meta.LoadedAddresses.Writable {
		keys = append(keys, AccountKey{Address: k.String(), Writable: true})
	}
	for _, k := range meta.LoadedAddresses.ReadOnly {
		keys = append(keys, AccountKey{Address: k.String()})
	}
	return keys
}

func tokenBalances(in []rpc.TokenBalance) []TokenBalance {
	out := make([]TokenBalance, 0, len(in))
	for _, tb := range in {
		b := TokenBalance{
			AccountIndex: int(tb.AccountIndex),
			Mint:         tb.Mint.String(),
		}
		if tb.Owner != nil {
			b.Owner = tb.Owner.String()
		}
		if tb.UiTokenAmount != nil {
			b.Amount = tb.UiTokenAmount.Amount
			b.Decimals = tb.UiTokenAmount.Decimals
		}
		out = append(out, b)
	}
	return out
}
