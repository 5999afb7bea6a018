// Package ledgermem is an in-process stand-in for the anchoring contract. It
// keeps anchored roots in memory and answers VerifyAndGetRoot the same way the
// contract does.
package ledgermem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"certanchor/internal/domain"
	"certanchor/internal/infra/merkle"
)

// Anchor is the JSON form used by anchors files.
type Anchor struct {
	Root        string `json:"root"`
	BlockNumber int64  `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
}

type Ledger struct {
	mu        sync.RWMutex
	now       func() time.Time
	blocks    map[domain.Digest]int64
	times     map[int64]int64
	lastBlock int64
}

func New() *Ledger {
	return NewWithClock(nil)
}

func NewWithClock(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		now:    now,
		blocks: make(map[domain.Digest]int64),
		times:  make(map[int64]int64),
	}
}

// LoadFile reads a JSON array of anchors.
func LoadFile(path string) (*Ledger, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read anchors: %w", err)
	}
	var anchors []Anchor
	if err := json.Unmarshal(payload, &anchors); err != nil {
		return nil, fmt.Errorf("decode anchors: %w", err)
	}
	l := New()
	for i, a := range anchors {
		if err := l.Put(a); err != nil {
			return nil, fmt.Errorf("anchor %d: %w", i, err)
		}
	}
	return l, nil
}

// Anchor records root in a new block stamped with the current time.
func (l *Ledger) Anchor(root domain.Digest) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if block, ok := l.blocks[root]; ok {
		return block
	}
	l.lastBlock++
	l.blocks[root] = l.lastBlock
	l.times[l.lastBlock] = l.now().Unix()
	return l.lastBlock
}

func (l *Ledger) Put(a Anchor) error {
	root, err := domain.ParseDigestHex(a.Root)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	if a.BlockNumber <= 0 {
		return fmt.Errorf("block_number must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks[root] = a.BlockNumber
	if a.Timestamp > 0 {
		l.times[a.BlockNumber] = a.Timestamp
	}
	if a.BlockNumber > l.lastBlock {
		l.lastBlock = a.BlockNumber
	}
	return nil
}

func (l *Ledger) VerifyAndGetRoot(_ context.Context, leaf domain.Digest, path domain.ProofPath) (int64, domain.Digest, error) {
	root := merkle.Reduce(leaf, path)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[root], root, nil
}

func (l *Ledger) BlockTimestamp(_ context.Context, blockNumber int64) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ts, ok := l.times[blockNumber]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return ts, nil
}
