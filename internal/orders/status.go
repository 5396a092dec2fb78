// Package orders tracks a store's orders and moves them through their
// lifecycle.
package orders

import (
	"errors"
	"fmt"

	"storedesk/internal/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// next lists the statuses each status may move to. cancelled is added for
// every non-terminal status in CanTransition.
var next = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusAccepted},
	models.StatusAccepted:  {models.StatusPreparing},
	models.StatusPreparing: {models.StatusReady, models.StatusOnTheWay},
	models.StatusReady:     {models.StatusOnTheWay, models.StatusDelivered},
	models.StatusOnTheWay:  {models.StatusDelivered},
}

func Terminal(s models.OrderStatus) bool {
	return s == models.StatusDelivered || s == models.StatusCancelled
}

// Known reports whether s is one of the lifecycle statuses.
func Known(s models.OrderStatus) bool {
	_, ok := next[s]
	return ok || Terminal(s)
}

func CanTransition(from, to models.OrderStatus) bool {
	if !Known(from) || Terminal(from) {
		return false
	}
	if to == models.StatusCancelled {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from s, cancelled last.
func Next(s models.OrderStatus) []models.OrderStatus {
	if !Known(s) || Terminal(s) {
		return nil
	}
	out := append([]models.OrderStatus(nil), next[s]...)
	return append(out, models.StatusCancelled)
}

func checkTransition(o models.Order, to models.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: order %d is %s, cannot become %s", ErrInvalidTransition, o.ID, o.Status, to)
	}
	return nil
}
