// Package relay forwards incoming orders to other systems: a RabbitMQ
// exchange, a Telegram chat, or several at once.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storedesk/internal/models"
)

// Sink receives every new order the store gets.
type Sink interface {
	Forward(ctx context.Context, o models.Order) error
}

// Fanout forwards to every sink and joins their errors. A failing sink does
// not stop the others.
type Fanout []Sink

func (f Fanout) Forward(ctx context.Context, o models.Order) error {
	var errs []error
	for _, s := range f {
		if err := s.Forward(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RoutingKey is the topic key an order is published under.
func RoutingKey(o models.Order) string {
	return fmt.Sprintf("store.%d.new_order", o.StoreID)
}

// Card renders a short plain-text summary of the order.
func Card(o models.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New order #%d\n", o.ID)
	for _, it := range o.Items {
		fmt.Fprintf(&sb, "%d x %s  %s\n", it.Quantity, it.Name, it.Price)
	}
	fmt.Fprintf(&sb, "Total: %s", o.TotalPrice)
	if o.DeliveryAddress != "" {
		fmt.Fprintf(&sb, "\nDeliver to: %s", o.DeliveryAddress)
	}
	if o.Phone != "" {
		fmt.Fprintf(&sb, "\nPhone: %s", o.Phone)
	}
	return sb.String()
}
