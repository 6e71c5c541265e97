package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Receipt is the settled outcome of a mined transaction. FeeWei is
// gasUsed * effectiveGasPrice.
type Receipt struct {
	Confirmed bool
	FeeWei    *big.Int
}

// ReceiptFetcher polls the network for transaction receipts.
type ReceiptFetcher struct {
	client *ethclient.Client
	logger *zap.Logger
}

func NewReceiptFetcher(client *ethclient.Client, logger *zap.Logger) *ReceiptFetcher {
	return &ReceiptFetcher{client: client, logger: logger}
}

// GetReceipt returns nil (no error) while the transaction is still unmined,
// mirroring the sql.ErrNoRows-to-nil convention used by the repositories.
func (f *ReceiptFetcher) GetReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	receipt, err := f.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash, err)
	}

	fee := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)

	return &Receipt{
		Confirmed: receipt.Status == 1,
		FeeWei:    fee,
	}, nil
}
