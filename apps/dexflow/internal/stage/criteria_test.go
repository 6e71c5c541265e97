package stage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

func newCriteriaStage(orders *fakeOrderStore, txs *fakeTransactionStore, wallets *fakeWalletStore, submitter *fakeSubmitter, oracle *fakeOracle, notifier *recordingNotifier) *CriteriaStage {
	return NewCriteriaStage(orders, txs, wallets, submitter, oracle, testRegistry(), notifier, zap.NewNop())
}

func dcaOrder(id string, minPrice, maxPrice string, intervalMinutes int, createdAt time.Time) model.Order {
	minP, maxP := minPrice, maxPrice
	interval := intervalMinutes
	return model.Order{
		OrderID:         id,
		WalletID:        "wallet-1",
		UserID:          "user-1",
		ChainID:         1,
		OrderType:       model.OrderTypeDca,
		OrderMode:       model.OrderModeBuy,
		SellToken:       testUsdc,
		BuyToken:        testWeth,
		SellAmount:      "500",
		Status:          model.StatusActive,
		MinPrice:        &minP,
		MaxPrice:        &maxP,
		IntervalMinutes: &interval,
		CreatedAt:       createdAt,
	}
}

func TestCriteriaMet(t *testing.T) {
	tests := []struct {
		name   string
		mode   model.OrderMode
		quoted string
		target string
		want   bool
	}{
		{"buy below target", model.OrderModeBuy, "1750", "1800", true},
		{"buy at target", model.OrderModeBuy, "1800", "1800", true},
		{"buy above target", model.OrderModeBuy, "1850", "1800", false},
		{"sell above target", model.OrderModeSell, "1850", "1800", true},
		{"sell at target", model.OrderModeSell, "1800", "1800", true},
		{"sell below target", model.OrderModeSell, "1750", "1800", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quoted := decimal.RequireFromString(tt.quoted)
			target := decimal.RequireFromString(tt.target)
			if got := criteriaMet(tt.mode, quoted, target); got != tt.want {
				t.Errorf("criteriaMet(%s, %s, %s) = %v, want %v", tt.mode, tt.quoted, tt.target, got, tt.want)
			}
		})
	}
}

func TestDcaTickEligible(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		elapsed  time.Duration
		interval int
		want     bool
	}{
		{"exactly one interval", 30 * time.Minute, 30, true},
		{"two intervals", 60 * time.Minute, 30, true},
		{"between intervals", 45 * time.Minute, 30, false},
		{"at creation", 0, 30, true},
		{"hourly interval", 120 * time.Minute, 120, true},
		{"clock skew before creation", -5 * time.Minute, 30, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dcaTickEligible(base, base.Add(tt.elapsed), tt.interval); got != tt.want {
				t.Errorf("dcaTickEligible(+%v, %d) = %v, want %v", tt.elapsed, tt.interval, got, tt.want)
			}
		})
	}
}

func TestEffectiveIntervalPrefersHours(t *testing.T) {
	minutes, hours := 45, 2
	order := model.Order{IntervalMinutes: &minutes, IntervalHours: &hours}
	if got := order.EffectiveIntervalMinutes(); got != 120 {
		t.Errorf("EffectiveIntervalMinutes() = %d, want 120", got)
	}
}

func TestCriteriaWavesMarketOrderThrough(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.OrderType = model.OrderTypeMarket
	order.TargetPrice = nil
	order.Status = model.StatusApprovalCompleted

	orders := newFakeOrderStore(order)
	notifier := &recordingNotifier{}
	s := newCriteriaStage(orders, &fakeTransactionStore{}, &fakeWalletStore{}, &fakeSubmitter{}, &fakeOracle{pair: testPairAddress}, notifier)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := orders.get("order-1").Status; got != model.StatusExecutionReady {
		t.Errorf("market order status = %s, want %s", got, model.StatusExecutionReady)
	}
}

func TestCriteriaAdvancesLimitBuyWhenPriceMet(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusApprovalCompleted

	orders := newFakeOrderStore(order)
	notifier := &recordingNotifier{}
	oracle := &fakeOracle{pair: testPairAddress, price: decimal.RequireFromString("1750")}
	s := newCriteriaStage(orders, &fakeTransactionStore{}, &fakeWalletStore{}, &fakeSubmitter{}, oracle, notifier)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := orders.get("order-1").Status; got != model.StatusExecutionReady {
		t.Errorf("order status = %s, want %s", got, model.StatusExecutionReady)
	}
	if events := notifier.forOrder("order-1"); len(events) != 1 {
		t.Errorf("got %d notifications, want 1", len(events))
	}
}

func TestCriteriaHoldsLimitBuyWhenPriceAbove(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusApprovalCompleted

	orders := newFakeOrderStore(order)
	oracle := &fakeOracle{pair: testPairAddress, price: decimal.RequireFromString("1900")}
	s := newCriteriaStage(orders, &fakeTransactionStore{}, &fakeWalletStore{}, &fakeSubmitter{}, oracle, &recordingNotifier{})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := orders.get("order-1").Status; got != model.StatusApprovalCompleted {
		t.Errorf("order status = %s, want %s", got, model.StatusApprovalCompleted)
	}
}

func TestCriteriaFailsLimitOrderWithoutTarget(t *testing.T) {
	order := limitOrder("order-1", testUsdc, testWeth, "1000", "1800")
	order.Status = model.StatusApprovalCompleted
	order.TargetPrice = nil

	orders := newFakeOrderStore(order)
	s := newCriteriaStage(orders, &fakeTransactionStore{}, &fakeWalletStore{}, &fakeSubmitter{}, &fakeOracle{pair: testPairAddress}, &recordingNotifier{})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := orders.get("order-1").Status; got != model.StatusFailed {
		t.Errorf("order status = %s, want %s", got, model.StatusFailed)
	}
}

func TestCriteriaExecutesDcaTickInsideBand(t *testing.T) {
	now := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	order := dcaOrder("order-1", "1500", "2000", 60, now.Add(-60*time.Minute))

	orders := newFakeOrderStore(order)
	txs := &fakeTransactionStore{}
	wallets := &fakeWalletStore{wallets: map[string]*model.Wallet{"wallet-1": testWallet("wallet-1")}}
	oracle := &fakeOracle{pair: testPairAddress, price: decimal.RequireFromString("1750"), routeTo: testSpender}
	notifier := &recordingNotifier{}
	submitter := &fakeSubmitter{}

	s := newCriteriaStage(orders, txs, wallets, submitter, oracle, notifier)
	s.now = func() time.Time { return now }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := orders.get("order-1").Status; got != model.StatusDcaExecuted {
		t.Errorf("order status = %s, want %s", got, model.StatusDcaExecuted)
	}
	if submitter.count() != 1 {
		t.Errorf("submitted %d transactions, want 1", submitter.count())
	}
	if swaps := txs.byType(model.TxTypeSwap); len(swaps) != 1 {
		t.Errorf("recorded %d swap transactions, want 1", len(swaps))
	}
	if events := notifier.forOrder("order-1"); len(events) != 1 {
		t.Errorf("got %d notifications, want 1", len(events))
	}
}

func TestCriteriaSkipsDcaTickOutsideBand(t *testing.T) {
	now := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	order := dcaOrder("order-1", "1500", "1600", 60, now.Add(-60*time.Minute))

	orders := newFakeOrderStore(order)
	submitter := &fakeSubmitter{}
	oracle := &fakeOracle{pair: testPairAddress, price: decimal.RequireFromString("1750")}

	s := newCriteriaStage(orders, &fakeTransactionStore{}, &fakeWalletStore{}, submitter, oracle, &recordingNotifier{})
	s.now = func() time.Time { return now }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := orders.get("order-1").Status; got != model.StatusActive {
		t.Errorf("order status = %s, want %s", got, model.StatusActive)
	}
	if submitter.count() != 0 {
		t.Errorf("submitted %d transactions, want 0", submitter.count())
	}
}

func TestCriteriaSkipsDcaOffTick(t *testing.T) {
	now := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	order := dcaOrder("order-1", "1500", "2000", 60, now.Add(-45*time.Minute))

	orders := newFakeOrderStore(order)
	submitter := &fakeSubmitter{}
	oracle := &fakeOracle{pair: testPairAddress, price: decimal.RequireFromString("1750")}

	s := newCriteriaStage(orders, &fakeTransactionStore{}, &fakeWalletStore{}, submitter, oracle, &recordingNotifier{})
	s.now = func() time.Time { return now }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := orders.get("order-1").Status; got != model.StatusActive {
		t.Errorf("order status = %s, want %s", got, model.StatusActive)
	}
	if submitter.count() != 0 {
		t.Errorf("submitted %d transactions, want 0", submitter.count())
	}
}

func TestCriteriaBandBoundariesInclusive(t *testing.T) {
	now := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	for _, price := range []string{"1500", "2000"} {
		order := dcaOrder("order-1", "1500", "2000", 60, now.Add(-60*time.Minute))
		orders := newFakeOrderStore(order)
		wallets := &fakeWalletStore{wallets: map[string]*model.Wallet{"wallet-1": testWallet("wallet-1")}}
		oracle := &fakeOracle{pair: testPairAddress, price: decimal.RequireFromString(price), routeTo: testSpender}

		s := newCriteriaStage(orders, &fakeTransactionStore{}, wallets, &fakeSubmitter{}, oracle, &recordingNotifier{})
		s.now = func() time.Time { return now }

		if err := s.Run(context.Background()); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		if got := orders.get("order-1").Status; got != model.StatusDcaExecuted {
			t.Errorf("price %s: order status = %s, want %s", price, got, model.StatusDcaExecuted)
		}
	}
}
