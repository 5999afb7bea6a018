package evm

import (
	"context"
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"

	"certanchor/internal/config"
	"certanchor/internal/domain"
	"certanchor/internal/infra/merkle"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeContract decodes verify calls and answers from a root -> block table,
// reducing the flattened subtree the way the deployed contract does.
type fakeContract struct {
	t       *testing.T
	abi     abi.ABI
	blocks  map[domain.Digest]int64
	headers map[int64]uint64
	callErr error
	calls   int
	lastTo  string
}

func newFakeContract(t *testing.T) *fakeContract {
	t.Helper()
	c, err := NewClient(&fakeContract{}, config.Config{LedgerContractAddress: config.DefaultLedgerContract}.Ledger(), 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return &fakeContract{
		t:       t,
		abi:     c.abi,
		blocks:  make(map[domain.Digest]int64),
		headers: make(map[int64]uint64),
	}
}

func (f *fakeContract) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.lastTo = call.To.Hex()
	method, err := f.abi.MethodById(call.Data[:4])
	if err != nil {
		f.t.Fatalf("unknown method: %v", err)
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		f.t.Fatalf("unpack args: %v", err)
	}
	current := digestFromInt(args[0].(*big.Int))
	subtree := args[1].([]*big.Int)
	for i := 0; i+1 < len(subtree); i += 2 {
		sibling := digestFromInt(subtree[i+1])
		if subtree[i].Sign() == 0 {
			current = merkle.NodeHash(sibling, current)
		} else {
			current = merkle.NodeHash(current, sibling)
		}
	}
	return method.Outputs.Pack(big.NewInt(f.blocks[current]))
}

func (f *fakeContract) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	ts, ok := f.headers[number.Int64()]
	if !ok {
		return nil, ethereum.NotFound
	}
	return &types.Header{Number: number, Time: ts}, nil
}

func digestFromInt(v *big.Int) domain.Digest {
	var d domain.Digest
	v.FillBytes(d[:])
	return d
}

func newTestClient(t *testing.T, backend Backend) *Client {
	t.Helper()
	c, err := NewClient(backend, config.Config{
		LedgerNetwork:         "ropsten",
		LedgerContractAddress: config.DefaultLedgerContract,
	}.Ledger(), 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestVerifyAndGetRootAgreesWithContract(t *testing.T) {
	leaves := []domain.Digest{
		sha256.Sum256([]byte("cert-1")),
		sha256.Sum256([]byte("cert-2")),
		sha256.Sum256([]byte("cert-3")),
		sha256.Sum256([]byte("cert-4")),
		sha256.Sum256([]byte("cert-5")),
	}
	root, err := merkle.Root(leaves)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	backend := newFakeContract(t)
	backend.blocks[root] = 5723001
	client := newTestClient(t, backend)

	for i := range leaves {
		path, err := merkle.ProofPathFor(leaves, i)
		if err != nil {
			t.Fatalf("proof path: %v", err)
		}
		block, gotRoot, err := client.VerifyAndGetRoot(context.Background(), leaves[i], path)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if block != 5723001 {
			t.Fatalf("leaf %d: expected anchored block, got %d", i, block)
		}
		if gotRoot != root {
			t.Fatalf("leaf %d: root %s, want %s", i, gotRoot.Hex(), root.Hex())
		}
	}
	if backend.lastTo != "0xd123Ec03ACdbC36e4fA818c983C259049EE705e0" {
		t.Fatalf("unexpected contract address %s", backend.lastTo)
	}
}

func TestVerifyAndGetRootUnknownRoot(t *testing.T) {
	backend := newFakeContract(t)
	client := newTestClient(t, backend)
	path, err := merkle.ParseProofPath("r-ab")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	block, _, err := client.VerifyAndGetRoot(context.Background(), sha256.Sum256([]byte("x")), path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if block != 0 {
		t.Fatalf("expected block 0, got %d", block)
	}
}

func TestVerifyAndGetRootTransportError(t *testing.T) {
	backend := newFakeContract(t)
	backend.callErr = errors.New("connection refused")
	client := newTestClient(t, backend)

	_, _, err := client.VerifyAndGetRoot(context.Background(), sha256.Sum256([]byte("x")), nil)
	if !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected ledger unavailable, got %v", err)
	}
}

func TestBlockTimestamp(t *testing.T) {
	backend := newFakeContract(t)
	backend.headers[7] = 1560000000
	client := newTestClient(t, backend)

	ts, err := client.BlockTimestamp(context.Background(), 7)
	if err != nil {
		t.Fatalf("block timestamp: %v", err)
	}
	if ts != 1560000000 {
		t.Fatalf("unexpected timestamp %d", ts)
	}
	if _, err := client.BlockTimestamp(context.Background(), 8); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected ledger unavailable for missing header, got %v", err)
	}
}

func TestNewClientRejectsBadAddress(t *testing.T) {
	if _, err := NewClient(newFakeContract(t), domain.LedgerInfo{Contract: "not-an-address"}, 0); err == nil {
		t.Fatal("expected invalid address error")
	}
}

func TestFlattenPath(t *testing.T) {
	path, err := merkle.ParseProofPath("r-01:l-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	flat := flattenPath(path)
	want := []int64{1, 1, 0, 2}
	if len(flat) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(flat))
	}
	for i, v := range want {
		if flat[i].Int64() != v {
			t.Fatalf("value %d: %s, want %d", i, flat[i], v)
		}
	}
}
