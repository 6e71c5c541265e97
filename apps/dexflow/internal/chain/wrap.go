package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Wrapped-native (WETH9-style) ABI for wrapping and unwrapping the chain's
// native asset around swaps.
const WrappedNativeABI = `[
	{
		"inputs": [],
		"name": "deposit",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "wad", "type": "uint256"}],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// BuildWrap encodes a wrapped-native deposit, attaching the native amount as
// transaction value.
func BuildWrap(wrappedNativeAddress string, amount *big.Int) (PreparedTx, error) {
	parsedABI, err := abi.JSON(strings.NewReader(WrappedNativeABI))
	if err != nil {
		return PreparedTx{}, fmt.Errorf("failed to parse wrapped native ABI: %w", err)
	}

	data, err := parsedABI.Pack("deposit")
	if err != nil {
		return PreparedTx{}, fmt.Errorf("failed to pack deposit method: %w", err)
	}

	return PreparedTx{
		To:       wrappedNativeAddress,
		Data:     data,
		Value:    amount,
		GasLimit: DefaultGasLimit,
	}, nil
}

// BuildUnwrap encodes a wrapped-native withdraw back to the native asset.
func BuildUnwrap(wrappedNativeAddress string, amount *big.Int) (PreparedTx, error) {
	parsedABI, err := abi.JSON(strings.NewReader(WrappedNativeABI))
	if err != nil {
		return PreparedTx{}, fmt.Errorf("failed to parse wrapped native ABI: %w", err)
	}

	data, err := parsedABI.Pack("withdraw", amount)
	if err != nil {
		return PreparedTx{}, fmt.Errorf("failed to pack withdraw method: %w", err)
	}

	return PreparedTx{
		To:       wrappedNativeAddress,
		Data:     data,
		Value:    big.NewInt(0),
		GasLimit: DefaultGasLimit,
	}, nil
}
