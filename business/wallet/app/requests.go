package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

// Provider methods used by the coordinator.
const (
	methodAccounts        = "eth_accounts"
	methodRequestAccounts = "eth_requestAccounts"
	methodChainID         = "eth_chainId"
	methodGetBalance      = "eth_getBalance"
	methodSwitchChain     = "wallet_switchEthereumChain"
	methodAddChain        = "wallet_addEthereumChain"
)

// request issues one provider call and counts it. Errors are returned raw so
// callers can inspect provider codes before normalizing.
func (c *Coordinator) request(ctx context.Context, result any, method string, params ...any) error {
	c.metrics.providerRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	return c.provider.Request(ctx, result, method, params...)
}

func (c *Coordinator) accounts(ctx context.Context, method string) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.request(ctx, &accounts, method); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Coordinator) chainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := c.request(ctx, &id, methodChainID); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (c *Coordinator) balance(ctx context.Context, address common.Address) (*big.Int, error) {
	var wei hexutil.Big
	if err := c.request(ctx, &wei, methodGetBalance, address, "latest"); err != nil {
		return nil, err
	}
	return wei.ToInt(), nil
}

// balanceDisplay fetches and formats the balance, returning "" on failure.
func (c *Coordinator) balanceDisplay(ctx context.Context, address common.Address, chainID uint64) string {
	wei, err := c.balance(ctx, address)
	if err != nil {
		c.logger.Warn(ctx, "balance fetch failed", "address", address.Hex(), "chain_id", chainID, "error", err)
		return ""
	}
	return domain.FormatBalanceOn(c.registry, chainID, wei)
}
