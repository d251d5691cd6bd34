package record

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"record-storefront/internal/chain"
	"record-storefront/internal/domain"
)

// ErrEmptyResult is returned when a call returns no data, which is what a node
// answers for an address without contract code.
var ErrEmptyResult = errors.New("empty call result")

// Reader performs read calls against record contracts.
type Reader struct {
	rpc chain.RPCClient
}

// NewReader creates a new Reader.
func NewReader(rpc chain.RPCClient) *Reader {
	return &Reader{rpc: rpc}
}

func (r *Reader) call(ctx context.Context, addr common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := r.rpc.Call(ctx, chain.CallMsg{To: addr, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, addr.Hex(), err)
	}
	return out, nil
}

func (r *Reader) readUint(ctx context.Context, addr common.Address, method string) (*big.Int, error) {
	out, err := r.call(ctx, addr, method)
	if err != nil {
		return nil, err
	}
	return unpackUint(method, out)
}

// MintPrice returns the price of one token in wei.
func (r *Reader) MintPrice(ctx context.Context, addr common.Address) (*big.Int, error) {
	return r.readUint(ctx, addr, MethodMintPrice)
}

// Supply returns the maximum number of tokens.
func (r *Reader) Supply(ctx context.Context, addr common.Address) (*big.Int, error) {
	return r.readUint(ctx, addr, MethodSupply)
}

// TokenCount returns the number of tokens minted so far.
func (r *Reader) TokenCount(ctx context.Context, addr common.Address) (*big.Int, error) {
	return r.readUint(ctx, addr, MethodTokenCount)
}

// PreviewImageURI returns the collection preview image URI.
func (r *Reader) PreviewImageURI(ctx context.Context, addr common.Address) (string, error) {
	out, err := r.call(ctx, addr, MethodPreviewImageURI)
	if err != nil {
		return "", err
	}
	return unpackString(MethodPreviewImageURI, out)
}

// TokenURI returns the metadata URI of token id.
func (r *Reader) TokenURI(ctx context.Context, addr common.Address, id *big.Int) (string, error) {
	out, err := r.call(ctx, addr, MethodTokenURI, id)
	if err != nil {
		return "", err
	}
	return unpackString(MethodTokenURI, out)
}

// TokensOfOwner returns the token ids owner holds in one contract.
func (r *Reader) TokensOfOwner(ctx context.Context, addr, owner common.Address) ([]*big.Int, error) {
	out, err := r.call(ctx, addr, MethodTokensOfOwner, owner)
	if err != nil {
		return nil, err
	}
	return unpackUints(MethodTokensOfOwner, out)
}

// Snapshot issues the price, supply, minted count and preview reads concurrently.
// It fails if any of them fails.
func (r *Reader) Snapshot(ctx context.Context, addr common.Address) (*domain.ContractSnapshot, error) {
	var snap domain.ContractSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.MintPrice(gctx, addr)
		snap.MintPrice = v
		return err
	})
	g.Go(func() error {
		v, err := r.Supply(gctx, addr)
		snap.Supply = v
		return err
	})
	g.Go(func() error {
		v, err := r.TokenCount(gctx, addr)
		snap.TokenCount = v
		return err
	})
	g.Go(func() error {
		v, err := r.PreviewImageURI(gctx, addr)
		snap.PreviewImageURI = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Holdings is the ownership read result for one contract.
type Holdings struct {
	Record   common.Address
	TokenIDs []*big.Int
	Err      error
}

// TokensOfOwnerBatch reads owner's tokens in every contract with one batch request.
// Per-contract failures are reported in Holdings.Err.
func (r *Reader) TokensOfOwnerBatch(ctx context.Context, records []common.Address, owner common.Address) ([]Holdings, error) {
	if len(records) == 0 {
		return nil, nil
	}

	data, err := Pack(MethodTokensOfOwner, owner)
	if err != nil {
		return nil, err
	}
	msgs := make([]chain.CallMsg, len(records))
	for i, addr := range records {
		msgs[i] = chain.CallMsg{To: addr, Data: data}
	}

	results, err := r.rpc.BatchCall(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", MethodTokensOfOwner, err)
	}
	if len(results) != len(records) {
		return nil, fmt.Errorf("batch %s: expected %d results, got %d", MethodTokensOfOwner, len(records), len(results))
	}

	out := make([]Holdings, len(records))
	for i, res := range results {
		out[i].Record = records[i]
		if res.Err != nil {
			out[i].Err = res.Err
			continue
		}
		out[i].TokenIDs, out[i].Err = unpackUints(MethodTokensOfOwner, res.Data)
	}
	return out, nil
}
