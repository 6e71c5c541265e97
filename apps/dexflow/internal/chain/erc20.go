package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

// ERC20 ABI for the read and approve methods the pipeline needs
const ERC20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "remaining", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// Reader performs on-chain ERC20 state reads. Amounts are returned as human
// decimals using the token's own decimal places.
type Reader struct {
	client   *ethclient.Client
	logger   *zap.Logger
	erc20ABI abi.ABI
}

func NewReader(client *ethclient.Client, logger *zap.Logger) (*Reader, error) {
	parsedABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &Reader{
		client:   client,
		logger:   logger,
		erc20ABI: parsedABI,
	}, nil
}

// BalanceOf returns the owner's balance of the given token.
func (r *Reader) BalanceOf(ctx context.Context, token model.Token, owner string) (decimal.Decimal, error) {
	raw, err := r.callUint256(ctx, token.ContractAddress, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of %s for %s: %w", token.Symbol, owner, err)
	}
	return decimal.NewFromBigInt(raw, -int32(token.Decimals)), nil
}

// Allowance returns what the spender may still transfer from the owner.
func (r *Reader) Allowance(ctx context.Context, token model.Token, owner, spender string) (decimal.Decimal, error) {
	raw, err := r.callUint256(ctx, token.ContractAddress, "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read allowance of %s for %s: %w", token.Symbol, owner, err)
	}
	return decimal.NewFromBigInt(raw, -int32(token.Decimals)), nil
}

func (r *Reader) callUint256(ctx context.Context, contract, method string, args ...interface{}) (*big.Int, error) {
	data, err := r.erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	to := common.HexToAddress(contract)
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	var value *big.Int
	if err := r.erc20ABI.UnpackIntoInterface(&value, method, result); err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return value, nil
}

// BuildApprove encodes an ERC20 approve for the spending contract.
func BuildApprove(token model.Token, spender string, amount *big.Int) (PreparedTx, error) {
	parsedABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return PreparedTx{}, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	data, err := parsedABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return PreparedTx{}, fmt.Errorf("failed to pack approve method: %w", err)
	}

	return PreparedTx{
		To:       token.ContractAddress,
		Data:     data,
		Value:    big.NewInt(0),
		GasLimit: DefaultGasLimit,
	}, nil
}
