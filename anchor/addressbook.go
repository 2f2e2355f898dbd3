// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package anchor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/models"
)

type VoterSource interface {
	Get(ctx context.Context, voterID string) (models.Voter, error)
}

// AddressBook binds voters to ledger addresses. It is the only writer of
// ledger_address rows.
type AddressBook struct {
	db     *sql.DB
	chain  ledger.Chain // nil when the ledger is off
	salt   string
	voters VoterSource
}

func NewAddressBook(conn *sql.DB, chain ledger.Chain, salt string, voters VoterSource) *AddressBook {
	return &AddressBook{db: conn, chain: chain, salt: salt, voters: voters}
}

// DeriveAddress returns the deterministic ledger address of a voter. The
// private key behind it is recomputed on demand and never stored.
func DeriveAddress(voterID, salt string) common.Address {
	seed := auth.AddressSeed(voterID, salt)
	for {
		key, err := crypto.ToECDSA(seed)
		if err == nil {
			return crypto.PubkeyToAddress(key.PublicKey)
		}
		// Seed outside the curve order.
		seed = crypto.Keccak256(seed)
	}
}

// EnsureAddress returns the voter's address, creating it on first use.
// Concurrent calls for one voter store a single row and all return it.
func (a *AddressBook) EnsureAddress(ctx context.Context, voterID string, now time.Time) (models.LedgerAddress, error) {
	if _, err := a.voters.Get(ctx, voterID); err != nil {
		return models.LedgerAddress{}, err
	}

	la, err := a.Get(ctx, voterID)
	if err == nil {
		return la, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.LedgerAddress{}, err
	}

	addr := DeriveAddress(voterID, a.salt).Hex()
	res, err := a.db.ExecContext(ctx, `
		INSERT INTO ledger_address (voter_id, address, valid, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (voter_id) DO NOTHING
	`, voterID, addr, common.IsHexAddress(addr), db.UTC(now))
	if err != nil {
		return models.LedgerAddress{}, fmt.Errorf("failed to insert ledger address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		slog.Info("ledger address created", "voter_id", voterID, "address", addr)
	}

	return a.Get(ctx, voterID)
}

// Get returns a voter's stored address. Valid is false if the stored value
// is malformed or no longer matches the derivation under the current salt.
func (a *AddressBook) Get(ctx context.Context, voterID string) (models.LedgerAddress, error) {
	var (
		la        models.LedgerAddress
		balance   sql.NullString
		balanceAt sql.NullTime
	)
	err := a.db.QueryRowContext(ctx, `
		SELECT voter_id, address, valid, balance, balance_at, created_at
		FROM ledger_address WHERE voter_id = $1
	`, voterID).Scan(&la.VoterID, &la.Address, &la.Valid, &balance, &balanceAt, &la.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LedgerAddress{}, fmt.Errorf("ledger address for %s: %w", voterID, models.ErrNotFound)
	}
	if err != nil {
		return models.LedgerAddress{}, fmt.Errorf("failed to query ledger address: %w", err)
	}

	la.CreatedAt = la.CreatedAt.UTC()
	if balance.Valid {
		la.Balance = &balance.String
	}
	if balanceAt.Valid {
		t := balanceAt.Time.UTC()
		la.BalanceAt = &t
	}
	la.Valid = la.Valid && la.Address == DeriveAddress(voterID, a.salt).Hex()
	return la, nil
}

// RefreshBalances stores a balance snapshot for every address. An address
// whose lookup fails keeps its previous snapshot. Returns how many were
// updated.
func (a *AddressBook) RefreshBalances(ctx context.Context, now time.Time) (int, error) {
	if a.chain == nil {
		return 0, nil
	}

	rows, err := a.db.QueryContext(ctx, `SELECT voter_id, address FROM ledger_address ORDER BY voter_id`)
	if err != nil {
		return 0, fmt.Errorf("failed to query ledger addresses: %w", err)
	}
	type pair struct{ voterID, address string }
	var all []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.voterID, &p.address); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan ledger address: %w", err)
		}
		all = append(all, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read ledger addresses: %w", err)
	}

	updated := 0
	for _, p := range all {
		if !common.IsHexAddress(p.address) {
			continue
		}
		bal, err := a.chain.Balance(ctx, common.HexToAddress(p.address))
		if err != nil {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			slog.Warn("balance lookup failed", "address", p.address, "error", err)
			continue
		}
		_, err = a.db.ExecContext(ctx, `
			UPDATE ledger_address SET balance = $1, balance_at = $2 WHERE voter_id = $3
		`, bal.String(), db.UTC(now), p.voterID)
		if err != nil {
			return updated, fmt.Errorf("failed to store balance: %w", err)
		}
		updated++
	}

	slog.Info("ledger balances refreshed", "updated", updated, "total", len(all))
	return updated, nil
}
