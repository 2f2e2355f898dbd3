// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Memory is an in-process ledger. It backs development setups and tests.
type Memory struct {
	mu       sync.Mutex
	byVote   map[common.Hash]Entry
	order    []common.Hash
	balances map[common.Address]*big.Int
	seq      int
	calls    int

	failNext int
	failErr  error
}

func NewMemory() *Memory {
	return &Memory{
		byVote:   make(map[common.Hash]Entry),
		balances: make(map[common.Address]*big.Int),
	}
}

func (m *Memory) Anchor(ctx context.Context, e Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failNext > 0 {
		m.failNext--
		return "", m.failErr
	}

	if existing, ok := m.byVote[e.VoteKey]; ok {
		return existing.Ref, nil
	}

	m.seq++
	e.Ref = fmt.Sprintf("mem:%d", m.seq)
	m.byVote[e.VoteKey] = e
	m.order = append(m.order, e.VoteKey)
	return e.Ref, nil
}

func (m *Memory) Entries(ctx context.Context, electionKey common.Hash) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext > 0 {
		m.failNext--
		return nil, m.failErr
	}

	var out []Entry
	for _, k := range m.order {
		if e := m.byVote[k]; e.ElectionKey == electionKey {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// FailNext makes the next n calls to Anchor or Entries return err.
func (m *Memory) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext, m.failErr = n, err
}

// Calls returns how many times Anchor has been called.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inject records e as if it had been anchored by someone else.
func (m *Memory) Inject(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Ref == "" {
		m.seq++
		e.Ref = fmt.Sprintf("mem:%d", m.seq)
	}
	if _, ok := m.byVote[e.VoteKey]; !ok {
		m.order = append(m.order, e.VoteKey)
	}
	m.byVote[e.VoteKey] = e
}

// Drop removes the entry for voteKey.
func (m *Memory) Drop(voteKey common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byVote, voteKey)
	for i, k := range m.order {
		if k == voteKey {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Memory) SetBalance(addr common.Address, wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] = new(big.Int).Set(wei)
}
