// Package notify keeps the notification list behind the bell badge.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"storedesk/internal/models"
	"storedesk/internal/telemetry"
)

// API is the part of the backend client the badge calls.
type API interface {
	Notifications(ctx context.Context, notifiableID int64, typ models.NotifiableType) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
}

// Badge holds the notifications of one notifiable target.
type Badge struct {
	api  API
	id   int64
	kind models.NotifiableType

	mu        sync.RWMutex
	items     []models.Notification
	connected bool
}

func NewBadge(api API, notifiableID int64, kind models.NotifiableType) *Badge {
	return &Badge{api: api, id: notifiableID, kind: kind}
}

// Refresh refetches the list. On error the previous list is kept.
func (b *Badge) Refresh(ctx context.Context) error {
	list, err := b.api.Notifications(ctx, b.id, b.kind)
	if err != nil {
		return fmt.Errorf("refresh notifications: %w", err)
	}
	b.mu.Lock()
	b.items = list
	unread := countUnread(list)
	b.mu.Unlock()

	telemetry.UnreadNotifications(unread)
	return nil
}

// MarkRead marks one notification read on the server, then refetches.
func (b *Badge) MarkRead(ctx context.Context, id int64) error {
	if err := b.api.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return b.Refresh(ctx)
}

func (b *Badge) Items() []models.Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Notification(nil), b.items...)
}

// Count is the number shown on the badge: every notification, read or not.
func (b *Badge) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

func (b *Badge) Unread() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return countUnread(b.items)
}

func (b *Badge) SetConnected(up bool) {
	b.mu.Lock()
	b.connected = up
	b.mu.Unlock()
	slog.Info("Notification channel", "connected", up)
}

func (b *Badge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func countUnread(list []models.Notification) int {
	n := 0
	for _, item := range list {
		if !item.IsRead {
			n++
		}
	}
	return n
}
