package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Requester is the EIP-1193 style request surface of a wallet provider.
type Requester interface {
	Request(ctx context.Context, result any, method string, params ...any) error
}

// TransactionRequest is the eth_sendTransaction parameter object. From is
// filled in by the Signer.
type TransactionRequest struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

// Signer authorizes actions for one account through the wallet provider.
type Signer struct {
	address  common.Address
	provider Requester
}

// NewSigner binds an account to a provider.
func NewSigner(address common.Address, provider Requester) *Signer {
	return &Signer{
		address:  address,
		provider: provider,
	}
}

// Address returns the account the signer acts for.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignMessage asks the wallet to personal_sign msg.
func (s *Signer) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	var sig hexutil.Bytes
	if err := s.provider.Request(ctx, &sig, "personal_sign", hexutil.Bytes(msg), s.address); err != nil {
		return nil, NormalizeProviderError(err, "personal_sign")
	}
	return sig, nil
}

// SendTransaction asks the wallet to sign and broadcast tx from this account.
func (s *Signer) SendTransaction(ctx context.Context, tx TransactionRequest) (common.Hash, error) {
	tx.From = s.address

	var hash common.Hash
	if err := s.provider.Request(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, NormalizeProviderError(err, "eth_sendTransaction")
	}
	return hash, nil
}
