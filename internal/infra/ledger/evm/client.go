// Package evm talks to the anchoring contract on an EVM chain.
//
// The contract stores the block number at which each Merkle root was anchored
// and exposes verify(uint256 digest, uint256[] subtree) returns (uint256). The
// subtree argument is the proof path flattened to [side, sibling, side,
// sibling, ...] with side 1 for right and 0 for left. The contract reduces the
// path itself and returns 0 for roots it never stored.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"certanchor/internal/config"
	"certanchor/internal/domain"
	"certanchor/internal/infra/merkle"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
)

const anchorContractABI = `[
  {"type":"function","name":"verify","stateMutability":"view",
   "inputs":[{"name":"digest","type":"uint256"},{"name":"subtree","type":"uint256[]"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

const methodVerify = "verify"

// Backend is the slice of ethclient.Client the ledger needs.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type Client struct {
	backend  Backend
	contract common.Address
	abi      abi.ABI
	info     domain.LedgerInfo
	timeout  time.Duration
	close    func()
}

// Dial connects to cfg.LedgerRPCURL.
func Dial(ctx context.Context, cfg config.Config) (*Client, error) {
	if cfg.LedgerRPCURL == "" {
		return nil, errors.New("LEDGER_RPC_URL is required")
	}
	ec, err := ethclient.DialContext(ctx, cfg.LedgerRPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger: %w", err)
	}
	c, err := NewClient(ec, cfg.Ledger(), cfg.LedgerTimeout())
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.close = ec.Close
	log.Info("Connected to ledger", "network", cfg.LedgerNetwork, "contract", c.contract.Hex())
	return c, nil
}

func NewClient(backend Backend, info domain.LedgerInfo, timeout time.Duration) (*Client, error) {
	if backend == nil {
		return nil, errors.New("ledger backend is nil")
	}
	if !common.IsHexAddress(info.Contract) {
		return nil, fmt.Errorf("invalid contract address %q", info.Contract)
	}
	parsed, err := abi.JSON(strings.NewReader(anchorContractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	return &Client{
		backend:  backend,
		contract: common.HexToAddress(info.Contract),
		abi:      parsed,
		info:     info,
		timeout:  timeout,
	}, nil
}

func (c *Client) Info() domain.LedgerInfo {
	return c.info
}

func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

// VerifyAndGetRoot asks the contract for the anchoring block of the path's
// root. The root itself is reduced locally with the same combination rule.
func (c *Client) VerifyAndGetRoot(ctx context.Context, leaf domain.Digest, path domain.ProofPath) (int64, domain.Digest, error) {
	root := merkle.Reduce(leaf, path)

	input, err := c.abi.Pack(methodVerify, new(big.Int).SetBytes(leaf[:]), flattenPath(path))
	if err != nil {
		return 0, root, fmt.Errorf("pack verify call: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	output, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
	if err != nil {
		return 0, root, fmt.Errorf("%w: call verify: %v", domain.ErrLedgerUnavailable, err)
	}
	values, err := c.abi.Unpack(methodVerify, output)
	if err != nil {
		return 0, root, fmt.Errorf("%w: decode verify result: %v", domain.ErrLedgerUnavailable, err)
	}
	if len(values) != 1 {
		return 0, root, fmt.Errorf("%w: unexpected verify result", domain.ErrLedgerUnavailable)
	}
	block, ok := values[0].(*big.Int)
	if !ok {
		return 0, root, fmt.Errorf("%w: unexpected verify result type %T", domain.ErrLedgerUnavailable, values[0])
	}
	if !block.IsInt64() {
		log.Warn("Ledger returned out of range block number", "block", block)
		return 0, root, nil
	}
	return block.Int64(), root, nil
}

func (c *Client) BlockTimestamp(ctx context.Context, blockNumber int64) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	header, err := c.backend.HeaderByNumber(ctx, big.NewInt(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("%w: header %d: %v", domain.ErrLedgerUnavailable, blockNumber, err)
	}
	if header == nil {
		return 0, domain.ErrNotFound
	}
	return int64(header.Time), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func flattenPath(path domain.ProofPath) []*big.Int {
	out := make([]*big.Int, 0, 2*len(path))
	for _, step := range path {
		side := big.NewInt(0)
		if step.Side == domain.SideRight {
			side = big.NewInt(1)
		}
		out = append(out, side, new(big.Int).SetBytes(step.Digest[:]))
	}
	return out
}
