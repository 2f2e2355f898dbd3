// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Entry is one anchored vote as the ledger sees it. Keys are hashes of
// local IDs; nothing in an entry identifies a voter.
type Entry struct {
	ElectionKey common.Hash
	VoteKey     common.Hash
	Digest      common.Hash
	Ref         string // transaction hash or equivalent
}

// Chain is a distributed ledger votes can be anchored to.
type Chain interface {
	// Anchor publishes e and returns its reference once confirmed.
	// Anchoring a vote key that is already on the ledger returns the
	// existing reference.
	Anchor(ctx context.Context, e Entry) (string, error)
	// Entries lists every entry recorded for an election.
	Entries(ctx context.Context, electionKey common.Hash) ([]Entry, error)
	// Balance returns the native balance of addr.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Key maps a local identifier to its ledger key.
func Key(id string) common.Hash {
	return crypto.Keccak256Hash([]byte(id))
}

var sep = []byte{0}

// Digest binds a vote's local fields to its ledger entry. commitment stands
// in for the voter ID.
func Digest(voteID, electionID, candidacyID string, commitment []byte) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(voteID), sep,
		[]byte(electionID), sep,
		[]byte(candidacyID), sep,
		commitment,
	)
}

// NewEntry builds the entry for a vote.
func NewEntry(voteID, electionID, candidacyID string, commitment []byte) Entry {
	return Entry{
		ElectionKey: Key(electionID),
		VoteKey:     Key(voteID),
		Digest:      Digest(voteID, electionID, candidacyID, commitment),
	}
}
