package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/model"
)

// ErrNoRoute means the router could not price the pair right now. Treated as
// transient: the order stays put and is retried on the next tick.
var ErrNoRoute = errors.New("no route available for pair")

const RouterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "amountOutMin", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "swapExactTokensForTokens",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const FactoryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const (
	swapDeadline       = 20 * time.Minute
	defaultSlippageBps = 50
)

// RouterOracle quotes pairs and generates swap routes against a V2-style
// router contract.
type RouterOracle struct {
	client         *ethclient.Client
	logger         *zap.Logger
	routerABI      abi.ABI
	factoryABI     abi.ABI
	routerAddress  common.Address
	factoryAddress common.Address
	wrappedNative  common.Address
	slippageBps    int64
}

func NewRouterOracle(client *ethclient.Client, routerAddress, factoryAddress, wrappedNative string, logger *zap.Logger) (*RouterOracle, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}

	return &RouterOracle{
		client:         client,
		logger:         logger,
		routerABI:      routerABI,
		factoryABI:     factoryABI,
		routerAddress:  common.HexToAddress(routerAddress),
		factoryAddress: common.HexToAddress(factoryAddress),
		wrappedNative:  common.HexToAddress(wrappedNative),
		slippageBps:    defaultSlippageBps,
	}, nil
}

// SpenderAddress is the contract an order's sell token must be approved for.
func (o *RouterOracle) SpenderAddress() string {
	return o.routerAddress.Hex()
}

// ResolvePair returns the pool address for the pair, or ErrNoRoute when the
// factory has no pool for it.
func (o *RouterOracle) ResolvePair(ctx context.Context, a, b model.Token) (string, error) {
	data, err := o.factoryABI.Pack("getPair", common.HexToAddress(a.ContractAddress), common.HexToAddress(b.ContractAddress))
	if err != nil {
		return "", fmt.Errorf("failed to pack getPair call: %w", err)
	}

	result, err := o.client.CallContract(ctx, ethereum.CallMsg{
		To:   &o.factoryAddress,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call getPair: %w", err)
	}

	var pair common.Address
	if err := o.factoryABI.UnpackIntoInterface(&pair, "getPair", result); err != nil {
		return "", fmt.Errorf("failed to unpack getPair result: %w", err)
	}

	if pair == (common.Address{}) {
		return "", fmt.Errorf("%w: %s/%s", ErrNoRoute, a.Symbol, b.Symbol)
	}
	return pair.Hex(), nil
}

// QuoteOneUnit prices one unit of the base token in quote-token units.
func (o *RouterOracle) QuoteOneUnit(ctx context.Context, base, quote model.Token) (decimal.Decimal, error) {
	oneUnit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(base.Decimals)), nil)

	amounts, path, err := o.amountsOut(ctx, base, quote, oneUnit)
	if err != nil {
		return decimal.Zero, err
	}

	out := amounts[len(amounts)-1]
	price := decimal.NewFromBigInt(out, -int32(quote.Decimals))

	o.logger.Debug("Quoted pair",
		zap.String("base", base.Symbol),
		zap.String("quote", quote.Symbol),
		zap.Int("hops", len(path)-1),
		zap.String("price", price.String()))

	return price, nil
}

// GenerateRoute prices amountIn of tokenIn and builds the executable swap
// calldata with slippage-protected minimum output.
func (o *RouterOracle) GenerateRoute(ctx context.Context, tokenIn, tokenOut model.Token, amountIn decimal.Decimal, recipient string) (*Route, error) {
	amountInBase, err := chain.ToBaseUnits(amountIn.String(), tokenIn.Decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid route amount: %w", err)
	}

	amounts, path, err := o.amountsOut(ctx, tokenIn, tokenOut, amountInBase)
	if err != nil {
		return nil, err
	}

	expectedOut := amounts[len(amounts)-1]
	if expectedOut.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero output for %s/%s", ErrNoRoute, tokenIn.Symbol, tokenOut.Symbol)
	}

	// minOut = expectedOut * (10000 - slippageBps) / 10000
	minOut := new(big.Int).Mul(expectedOut, big.NewInt(10000-o.slippageBps))
	minOut.Div(minOut, big.NewInt(10000))

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	data, err := o.routerABI.Pack("swapExactTokensForTokens",
		amountInBase, minOut, path, common.HexToAddress(recipient), deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap method: %w", err)
	}

	pathHex := make([]string, len(path))
	for i, hop := range path {
		pathHex[i] = hop.Hex()
	}

	return &Route{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Path:         pathHex,
		AmountIn:     amountInBase,
		AmountOutMin: minOut,
		ExpectedOut:  decimal.NewFromBigInt(expectedOut, -int32(tokenOut.Decimals)),
		Tx: chain.PreparedTx{
			To:       o.routerAddress.Hex(),
			Data:     data,
			Value:    big.NewInt(0),
			GasLimit: chain.SwapGasLimit,
		},
	}, nil
}

// amountsOut quotes the pair through the router, routing through the wrapped
// native token when neither side is it.
func (o *RouterOracle) amountsOut(ctx context.Context, tokenIn, tokenOut model.Token, amountIn *big.Int) ([]*big.Int, []common.Address, error) {
	path := o.pathFor(tokenIn, tokenOut)

	data, err := o.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack getAmountsOut call: %w", err)
	}

	result, err := o.client.CallContract(ctx, ethereum.CallMsg{
		To:   &o.routerAddress,
		Data: data,
	}, nil)
	if err != nil {
		// Routers revert when a hop has no liquidity.
		if strings.Contains(strings.ToLower(err.Error()), "revert") {
			return nil, nil, fmt.Errorf("%w: %s/%s", ErrNoRoute, tokenIn.Symbol, tokenOut.Symbol)
		}
		return nil, nil, fmt.Errorf("failed to call getAmountsOut: %w", err)
	}

	var amounts []*big.Int
	if err := o.routerABI.UnpackIntoInterface(&amounts, "getAmountsOut", result); err != nil {
		return nil, nil, fmt.Errorf("failed to unpack getAmountsOut result: %w", err)
	}
	if len(amounts) != len(path) {
		return nil, nil, fmt.Errorf("router returned %d amounts for %d hops", len(amounts), len(path))
	}

	return amounts, path, nil
}

func (o *RouterOracle) pathFor(tokenIn, tokenOut model.Token) []common.Address {
	in := common.HexToAddress(tokenIn.ContractAddress)
	out := common.HexToAddress(tokenOut.ContractAddress)
	if in == o.wrappedNative || out == o.wrappedNative {
		return []common.Address{in, out}
	}
	return []common.Address{in, o.wrappedNative, out}
}
