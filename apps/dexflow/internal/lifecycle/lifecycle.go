package lifecycle

import (
	"fmt"

	"dexflow/apps/dexflow/internal/model"
)

// transitions is the order status state machine. Failed is reachable from
// every non-terminal state and is handled separately in CanTransition.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusSubmitted:         {model.StatusApprovalPending, model.StatusApprovalCompleted, model.StatusActive, model.StatusExpired},
	model.StatusApprovalPending:   {model.StatusApprovalCompleted, model.StatusActive, model.StatusExpired},
	model.StatusApprovalCompleted: {model.StatusExecutionReady, model.StatusExpired},
	model.StatusExecutionReady:    {model.StatusExecutionPending, model.StatusExpired},
	model.StatusExecutionPending:  {model.StatusCompleted},
	model.StatusActive:            {model.StatusDcaExecuted, model.StatusExpired},
}

// IsTerminal reports whether no further automatic transition can occur.
func IsTerminal(s model.OrderStatus) bool {
	switch s {
	case model.StatusCompleted, model.StatusDcaExecuted, model.StatusFailed, model.StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to model.OrderStatus) bool {
	if IsTerminal(from) {
		return false
	}
	if to == model.StatusFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change to the order in memory.
// Persistence is the caller's job.
func Transition(order *model.Order, to model.OrderStatus) error {
	if !CanTransition(order.Status, to) {
		return fmt.Errorf("illegal order status transition %s -> %s for order %s", order.Status, to, order.OrderID)
	}
	order.Status = to
	return nil
}
