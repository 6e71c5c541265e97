package batch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"dexflow/apps/dexflow/internal/model"
)

// Result is the settled outcome of one order's step. A batch of N orders
// always produces exactly N results, index-aligned with the input; a failed
// or skipped order occupies its slot with OK=false instead of being removed.
type Result[T any] struct {
	OK    bool
	Value T
	Err   *StageError
}

func Ok[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

func Err[T any](e *StageError) Result[T] {
	return Result[T]{Err: e}
}

// StepFunc runs one order's step. It receives a read-only view of the
// per-order context accumulated by earlier steps of the same invocation.
type StepFunc[T any] func(ctx context.Context, order model.Order, octx *OrderContext) (T, *StageError)

// Executor fans a batch of orders out over one goroutine each, waits for all
// of them to settle, and returns the index-aligned result list. One order's
// failure never aborts the batch; panics are contained as terminal errors.
type Executor struct {
	logger *zap.Logger
}

func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run executes fn once per order, concurrently, with no ordering guarantee
// between orders. Each goroutine writes only its own slot of the result
// slice and only its own order's entry in bctx, so no locking is needed
// across order branches.
func Run[T any](e *Executor, ctx context.Context, bctx *Context, orders []model.Order, fn StepFunc[T]) []Result[T] {
	results := make([]Result[T], len(orders))

	var wg sync.WaitGroup
	for i, order := range orders {
		wg.Add(1)
		go func(i int, order model.Order) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("order step panicked",
						zap.String("order_id", order.OrderID),
						zap.Any("panic", r))
					results[i] = Err[T](Terminal(order.OrderID, fmt.Errorf("step panic: %v", r)))
				}
			}()

			octx := bctx.Get(order.OrderID)
			v, stageErr := fn(ctx, order, octx)
			if stageErr != nil {
				results[i] = Err[T](stageErr)
				return
			}
			results[i] = Ok(v)
		}(i, order)
	}
	wg.Wait()

	return results
}

// Succeeded filters a settled batch down to the orders whose step returned
// ok, preserving order. Positional alignment between orders and results is
// the caller's invariant.
func Succeeded[T any](orders []model.Order, results []Result[T]) []model.Order {
	kept := make([]model.Order, 0, len(orders))
	for i, r := range results {
		if r.OK {
			kept = append(kept, orders[i])
		}
	}
	return kept
}
