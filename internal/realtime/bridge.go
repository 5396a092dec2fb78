package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"storedesk/internal/models"
)

const (
	EventJoinStore = "join_store"
	EventNewOrder  = "new_order"
)

// Room is the channel a store's orders are pushed to.
func Room(storeID int64) string {
	return fmt.Sprintf("restaurant:%d", storeID)
}

// OrderBridge subscribes a store to its order channel.
type OrderBridge struct {
	socket *Socket
}

func NewOrderBridge(s *Socket) *OrderBridge {
	return &OrderBridge{socket: s}
}

// Watch connects, joins the store's room and calls onNewOrder for every
// new_order event until ctx ends or the server drops the connection. It
// returns after the read loop has exited. onNewOrder runs on the read
// goroutine.
func (b *OrderBridge) Watch(ctx context.Context, storeID int64, onNewOrder func(models.Order)) error {
	off := b.socket.On(EventNewOrder, func(args []json.RawMessage) {
		if len(args) == 0 {
			slog.Warn("new_order without payload")
			return
		}
		var o models.Order
		if err := json.Unmarshal(args[0], &o); err != nil {
			slog.Warn("Dropping undecodable order", "error", err)
			return
		}
		onNewOrder(o)
	})
	defer off()

	if err := b.socket.Connect(ctx); err != nil {
		return err
	}

	room := Room(storeID)
	if err := b.socket.Emit(EventJoinStore, room); err != nil {
		_ = b.socket.Close()
		return fmt.Errorf("join %s: %w", room, err)
	}
	slog.Info("Watching store orders", "room", room)

	select {
	case <-ctx.Done():
		return b.socket.Close()
	case <-b.socket.Done():
		return b.socket.Err()
	}
}
