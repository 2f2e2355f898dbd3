// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"fmt"

	"github.com/danielhkuo/quickly-elect/cliparse"
)

// Open returns the chain selected by cfg.Mode and a function that releases
// it. The chain is nil when the ledger is off.
func Open(ctx context.Context, cfg cliparse.LedgerConfig) (Chain, func(), error) {
	switch cfg.Mode {
	case cliparse.LedgerOff:
		return nil, func() {}, nil
	case cliparse.LedgerMemory:
		return NewMemory(), func() {}, nil
	case cliparse.LedgerEthereum:
		c, err := DialEth(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger mode %q", cfg.Mode)
	}
}
