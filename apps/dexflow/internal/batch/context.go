package batch

import (
	"sync"

	"dexflow/apps/dexflow/internal/model"
	"dexflow/apps/dexflow/internal/oracle"
)

// OrderContext is the working state accumulated for a single order across
// the steps of one stage invocation. It is written only by that order's own
// goroutine and read only by later steps processing the same order.
type OrderContext struct {
	Wallet      *model.Wallet
	PairAddress string
	QuotedPrice string
	Route       *oracle.Route
}

// Context maps orderID to its OrderContext for one stage invocation. Keying
// by orderID rather than slice position means filtering a batch between
// steps cannot misalign an order with another order's state. Discarded when
// the invocation returns.
type Context struct {
	mu      sync.Mutex
	entries map[string]*OrderContext
}

func NewContext() *Context {
	return &Context{entries: make(map[string]*OrderContext)}
}

// Get returns the context entry for the order, creating it on first access.
func (c *Context) Get(orderID string) *OrderContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	octx, ok := c.entries[orderID]
	if !ok {
		octx = &OrderContext{}
		c.entries[orderID] = octx
	}
	return octx
}
