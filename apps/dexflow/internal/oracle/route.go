package oracle

import (
	"math/big"

	"github.com/shopspring/decimal"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/model"
)

// Route is a prepared, executable description of a swap: the hop path, the
// expected output, and the calldata ready for signing.
type Route struct {
	TokenIn      model.Token
	TokenOut     model.Token
	Path         []string
	AmountIn     *big.Int
	AmountOutMin *big.Int
	ExpectedOut  decimal.Decimal
	Tx           chain.PreparedTx
}
