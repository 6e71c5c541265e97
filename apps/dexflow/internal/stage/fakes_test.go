package stage

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"dexflow/apps/dexflow/internal/chain"
	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/oracle"
)

// In-memory collaborators. Stages fan orders out over goroutines, so every
// fake locks around its state.

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]model.Order
	order  []string
}

func newFakeOrderStore(orders ...model.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]model.Order)}
	for _, o := range orders {
		s.orders[o.OrderID] = o
		s.order = append(s.order, o.OrderID)
	}
	return s
}

func (s *fakeOrderStore) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, id := range s.order {
		o := s.orders[id]
		if filter.OrderType != nil && o.OrderType != *filter.OrderType {
			continue
		}
		if filter.OrderStatus != nil && o.Status != *filter.OrderStatus {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeOrderStore) ListOrdersByIDs(ctx context.Context, ids []string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, id := range ids {
		if o, ok := s.orders[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	o.Status = status
	s.orders[orderID] = o
	return nil
}

func (s *fakeOrderStore) UpdateOrderBuyAmount(ctx context.Context, orderID string, buyAmount string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	o.BuyAmount = buyAmount
	s.orders[orderID] = o
	return nil
}

func (s *fakeOrderStore) BulkUpdateOrderStatus(ctx context.Context, status model.OrderStatus, ids []string) error {
	for _, id := range ids {
		if err := s.UpdateOrderStatus(ctx, id, status); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeOrderStore) get(orderID string) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID]
}

type fakeTransactionStore struct {
	mu  sync.Mutex
	txs []model.Transaction
}

func (s *fakeTransactionStore) CreateTransaction(ctx context.Context, tx model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

func (s *fakeTransactionStore) ListPendingTransactions(ctx context.Context) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, tx := range s.txs {
		if tx.Status == model.TxStatusPending {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *fakeTransactionStore) BulkUpdateTransactions(ctx context.Context, updates []model.TransactionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		for i, tx := range s.txs {
			if tx.TransactionID != u.TransactionID {
				continue
			}
			tx.Status = u.Status
			if u.Fee != nil {
				tx.Fee = u.Fee
			}
			tx.PollCount = u.PollCount
			s.txs[i] = tx
		}
	}
	return nil
}

func (s *fakeTransactionStore) all() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.txs...)
}

func (s *fakeTransactionStore) byType(txType model.TransactionType) []model.Transaction {
	var out []model.Transaction
	for _, tx := range s.all() {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	return out
}

type fakeWalletStore struct {
	wallets map[string]*model.Wallet
}

func (s *fakeWalletStore) GetWallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	return s.wallets[walletID], nil
}

type fakeChainReader struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal // key: symbol
	allowances map[string]decimal.Decimal
	err        error
}

func (r *fakeChainReader) BalanceOf(ctx context.Context, token model.Token, owner string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return decimal.Zero, r.err
	}
	return r.balances[token.Symbol], nil
}

func (r *fakeChainReader) Allowance(ctx context.Context, token model.Token, owner, spender string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return decimal.Zero, r.err
	}
	return r.allowances[token.Symbol], nil
}

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []chain.PreparedTx
	err       error
	errFor    map[string]error // key: destination address
	seq       int
}

func (s *fakeSubmitter) Submit(ctx context.Context, wallet *model.Wallet, tx chain.PreparedTx) (chain.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return chain.SubmitResult{}, s.err
	}
	if err, ok := s.errFor[tx.To]; ok {
		return chain.SubmitResult{}, err
	}
	s.submitted = append(s.submitted, tx)
	s.seq++
	return chain.SubmitResult{Hash: fmt.Sprintf("0xhash%d", s.seq), To: tx.To}, nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

type fakeOracle struct {
	mu       sync.Mutex
	pair     string
	price    decimal.Decimal
	quoteErr error
	routeErr error
	routeTo  string
}

func (o *fakeOracle) ResolvePair(ctx context.Context, a, b model.Token) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pair == "" {
		return "", oracle.ErrNoRoute
	}
	return o.pair, nil
}

func (o *fakeOracle) QuoteOneUnit(ctx context.Context, base, quote model.Token) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.quoteErr != nil {
		return decimal.Zero, o.quoteErr
	}
	return o.price, nil
}

func (o *fakeOracle) GenerateRoute(ctx context.Context, tokenIn, tokenOut model.Token, amountIn decimal.Decimal, recipient string) (*oracle.Route, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.routeErr != nil {
		return nil, o.routeErr
	}
	expected := amountIn.Mul(o.price)
	return &oracle.Route{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Path:         []string{tokenIn.ContractAddress, tokenOut.ContractAddress},
		AmountIn:     big.NewInt(1),
		AmountOutMin: big.NewInt(1),
		ExpectedOut:  expected,
		Tx:           chain.PreparedTx{To: o.routeTo, Data: []byte{0x01}},
	}, nil
}

type fakeReceipts struct {
	mu       sync.Mutex
	receipts map[string]*chain.Receipt // key: tx hash, nil value = not mined
	err      error
}

func (r *fakeReceipts) GetReceipt(ctx context.Context, txHash string) (*chain.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.receipts[txHash], nil
}

type notification struct {
	UserID  string
	OrderID string
	Status  string
	Message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(userID, orderID, status, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{UserID: userID, OrderID: orderID, Status: status, Message: message})
}

func (n *recordingNotifier) forOrder(orderID string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, e := range n.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}
