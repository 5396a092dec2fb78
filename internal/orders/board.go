package orders

import (
	"fmt"
	"sync"

	"storedesk/internal/models"
)

// Tab selects a subset of the board.
type Tab string

const (
	TabAll       Tab = "all"
	TabActive    Tab = "active"
	TabCompleted Tab = "completed"
)

// Tabs lists every tab in display order.
func Tabs() []Tab {
	return []Tab{
		TabAll,
		Tab(models.StatusPending),
		TabActive,
		Tab(models.StatusAccepted),
		Tab(models.StatusPreparing),
		Tab(models.StatusReady),
		Tab(models.StatusOnTheWay),
		TabCompleted,
		Tab(models.StatusDelivered),
		Tab(models.StatusCancelled),
	}
}

func ParseTab(s string) (Tab, error) {
	if s == "" {
		return TabAll, nil
	}
	for _, t := range Tabs() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Match reports whether an order with status s belongs on tab t.
func (t Tab) Match(s models.OrderStatus) bool {
	switch t {
	case TabAll:
		return true
	case TabActive:
		return s == models.StatusAccepted || s == models.StatusPreparing || s == models.StatusReady
	case TabCompleted:
		return Terminal(s)
	default:
		return models.OrderStatus(t) == s
	}
}

// Board is the in-memory order list of one store, newest first.
type Board struct {
	mu     sync.RWMutex
	orders []models.Order
}

func NewBoard() *Board {
	return &Board{}
}

// Replace swaps in a freshly fetched list.
func (b *Board) Replace(list []models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append([]models.Order(nil), list...)
}

// Upsert puts o at the front, or updates the entry with the same id in place.
// It reports whether o was new.
func (b *Board) Upsert(o models.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ID == o.ID {
			b.orders[i] = o
			return false
		}
	}
	b.orders = append([]models.Order{o}, b.orders...)
	return true
}

func (b *Board) Get(id int64) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

func (b *Board) Filter(t Tab) []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if t.Match(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

func (b *Board) Counts() map[Tab]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[Tab]int, len(Tabs()))
	for _, t := range Tabs() {
		counts[t] = 0
		for _, o := range b.orders {
			if t.Match(o.Status) {
				counts[t]++
			}
		}
	}
	return counts
}
