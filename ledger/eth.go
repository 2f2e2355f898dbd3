// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/danielhkuo/quickly-elect/cliparse"
)

// The anchor contract only has to emit the event; it stores nothing.
const anchorABI = `[
	{"type":"function","name":"anchor","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"election","type":"bytes32"},{"name":"vote","type":"bytes32"},{"name":"digest","type":"bytes32"}]},
	{"type":"event","name":"VoteAnchored","anonymous":false,
	 "inputs":[{"name":"election","type":"bytes32","indexed":true},{"name":"vote","type":"bytes32","indexed":true},{"name":"digest","type":"bytes32","indexed":true}]}
]`

var anchorContract = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(anchorABI))
	if err != nil {
		panic(fmt.Sprintf("invalid anchor ABI: %v", err))
	}
	return parsed
}()

var voteAnchoredID = anchorContract.Events["VoteAnchored"].ID

const receiptPollInterval = 2 * time.Second

// EthChain anchors votes by calling the anchor contract over JSON-RPC.
type EthChain struct {
	client   *ethclient.Client
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int

	// One transaction in flight per signer keeps nonces in order.
	sendMu sync.Mutex
}

// DialEth connects to the configured node and checks its chain ID.
func DialEth(ctx context.Context, cfg cliparse.LedgerConfig) (*EthChain, error) {
	if !common.IsHexAddress(cfg.AnchorContract) {
		return nil, fmt.Errorf("invalid anchor contract address %q", cfg.AnchorContract)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	networkID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if cfg.ChainID != 0 && networkID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", cfg.ChainID, networkID.Uint64())
	}

	c := &EthChain{
		client:   client,
		contract: common.HexToAddress(cfg.AnchorContract),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  networkID,
	}

	slog.Info("ledger connected", "chain_id", networkID, "contract", c.contract.Hex(), "signer", c.from.Hex())
	return c, nil
}

func (c *EthChain) Close() {
	c.client.Close()
}

func (c *EthChain) Anchor(ctx context.Context, e Entry) (string, error) {
	// A previous attempt may have landed after we stopped waiting for it.
	if ref, ok, err := c.find(ctx, e); err != nil {
		return "", err
	} else if ok {
		return ref, nil
	}

	data, err := packAnchor(e)
	if err != nil {
		return "", err
	}

	hash, err := c.send(ctx, data)
	if err != nil {
		return "", err
	}

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("anchor transaction %s reverted", hash.Hex())
	}

	return hash.Hex(), nil
}

func (c *EthChain) send(ctx context.Context, data []byte) (common.Hash, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gas, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	slog.Debug("anchor transaction sent", "tx", signed.Hash().Hex(), "nonce", nonce)
	return signed.Hash(), nil
}

func (c *EthChain) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EthChain) find(ctx context.Context, e Entry) (string, bool, error) {
	logs, err := c.client.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{voteAnchoredID}, {e.ElectionKey}, {e.VoteKey}},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to query logs: %w", err)
	}
	for _, l := range logs {
		if l.Removed {
			continue
		}
		return l.TxHash.Hex(), true, nil
	}
	return "", false, nil
}

func (c *EthChain) Entries(ctx context.Context, electionKey common.Hash) ([]Entry, error) {
	logs, err := c.client.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{voteAnchoredID}, {electionKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	entries := make([]Entry, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		e, err := decodeEntry(l)
		if err != nil {
			slog.Warn("skipping malformed anchor log", "tx", l.TxHash.Hex(), "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *EthChain) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	b, err := c.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

func packAnchor(e Entry) ([]byte, error) {
	data, err := anchorContract.Pack("anchor",
		[32]byte(e.ElectionKey), [32]byte(e.VoteKey), [32]byte(e.Digest))
	if err != nil {
		return nil, fmt.Errorf("failed to pack anchor call: %w", err)
	}
	return data, nil
}

func decodeEntry(l types.Log) (Entry, error) {
	if len(l.Topics) != 4 || l.Topics[0] != voteAnchoredID {
		return Entry{}, errors.New("not a VoteAnchored log")
	}
	return Entry{
		ElectionKey: l.Topics[1],
		VoteKey:     l.Topics[2],
		Digest:      l.Topics[3],
		Ref:         l.TxHash.Hex(),
	}, nil
}
