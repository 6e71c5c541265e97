package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

const (
	// Default gas limits for transactions
	DefaultGasLimit = uint64(200000)
	SwapGasLimit    = uint64(300000)

	// Broadcast attempts before a transient failure is surfaced to the stage
	submitAttempts = 3
)

// ErrTxRejected marks an explicit rejection or revert reported at submission
// time. Orders hitting this are escalated to failed rather than retried.
var ErrTxRejected = errors.New("transaction rejected by network")

// PreparedTx is an unsigned transaction ready for signing and broadcast.
type PreparedTx struct {
	To       string
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// SubmitResult is the pending reference returned after a broadcast.
type SubmitResult struct {
	Hash string
	To   string
}

// Submitter signs prepared transactions with the wallet's key and broadcasts
// them. The private key is decrypted by the vault only inside Submit and
// never stored.
type Submitter struct {
	client  *ethclient.Client
	vault   KeyVault
	chainID *big.Int
	logger  *zap.Logger
}

func NewSubmitter(client *ethclient.Client, vault KeyVault, chainID int64, logger *zap.Logger) *Submitter {
	return &Submitter{
		client:  client,
		vault:   vault,
		chainID: big.NewInt(chainID),
		logger:  logger,
	}
}

// Submit signs and broadcasts the prepared transaction. Terminal rejections
// are wrapped with ErrTxRejected; everything else is a transient
// infrastructure error.
func (s *Submitter) Submit(ctx context.Context, wallet *model.Wallet, tx PreparedTx) (SubmitResult, error) {
	key, err := s.vault.UnlockKey(wallet)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to unlock wallet %s: %w", wallet.WalletID, err)
	}

	from := common.HexToAddress(wallet.Address)
	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to get nonce for %s: %w", wallet.Address, err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	to := common.HexToAddress(tx.To)
	signedTx, err := types.SignNewTx(key, types.LatestSignerForChainID(s.chainID), &types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    tx.Value,
		Gas:      tx.GasLimit,
		GasPrice: gasPrice,
		Data:     tx.Data,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	// Transport hiccups get a few signed-tx resends; rejections surface at
	// once. The nonce is fixed at signing, so a resend cannot double-spend.
	err = Retry(ctx, submitAttempts, isTerminalSendError, func() error {
		return s.client.SendTransaction(ctx, signedTx)
	})
	if err != nil {
		if isTerminalSendError(err) {
			return SubmitResult{}, fmt.Errorf("%w: %v", ErrTxRejected, err)
		}
		return SubmitResult{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	hash := signedTx.Hash().Hex()
	s.logger.Info("Broadcast transaction",
		zap.String("tx_hash", hash),
		zap.String("to", tx.To),
		zap.String("wallet_id", wallet.WalletID))

	return SubmitResult{Hash: hash, To: tx.To}, nil
}

// isTerminalSendError distinguishes an explicit node rejection from a
// transport failure. Rejections will fail again on resubmission; transport
// failures may not.
func isTerminalSendError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"execution reverted",
		"insufficient funds for gas",
		"nonce too low",
		"exceeds block gas limit",
		"invalid sender",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
