package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storedesk/internal/models"
	"storedesk/internal/query"
)

var ErrNotFound = errors.New("order not found")

// API is the part of the backend client the order service calls.
type API interface {
	Orders(ctx context.Context, storeID int64) ([]models.Order, error)
	AcceptOrder(ctx context.Context, id int64) (*models.Order, error)
	CancelOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
}

type Service struct {
	api   API
	cache *query.Client
}

func NewService(api API, cache *query.Client) *Service {
	return &Service{api: api, cache: cache}
}

func Key(storeID int64) query.Key {
	return query.Key{"orders", storeID}
}

// List returns the store's orders through the query cache.
func (s *Service) List(ctx context.Context, storeID int64) ([]models.Order, error) {
	return query.Fetch(ctx, s.cache, Key(storeID), func(ctx context.Context) ([]models.Order, error) {
		return s.api.Orders(ctx, storeID)
	})
}

// Get finds one order of the store.
func (s *Service) Get(ctx context.Context, storeID, id int64) (models.Order, error) {
	list, err := s.List(ctx, storeID)
	if err != nil {
		return models.Order{}, err
	}
	for _, o := range list {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Order{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

func (s *Service) Accept(ctx context.Context, storeID int64, o models.Order) (*models.Order, error) {
	return s.Advance(ctx, storeID, o, models.StatusAccepted)
}

func (s *Service) Cancel(ctx context.Context, storeID int64, o models.Order) (*models.Order, error) {
	return s.Advance(ctx, storeID, o, models.StatusCancelled)
}

// Advance moves o to status to and invalidates the order list of storeID.
// The transition is checked before any request is sent; accept and cancel
// use their dedicated endpoints.
func (s *Service) Advance(ctx context.Context, storeID int64, o models.Order, to models.OrderStatus) (*models.Order, error) {
	if err := checkTransition(o, to); err != nil {
		return nil, err
	}

	updated, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (*models.Order, error) {
		switch to {
		case models.StatusAccepted:
			return s.api.AcceptOrder(ctx, o.ID)
		case models.StatusCancelled:
			return s.api.CancelOrder(ctx, o.ID)
		default:
			return s.api.UpdateOrderStatus(ctx, o.ID, to)
		}
	}, Key(storeID))
	if err != nil {
		return nil, fmt.Errorf("order %d to %s: %w", o.ID, to, err)
	}

	slog.Info("Order status changed", "order_id", o.ID, "from", o.Status, "to", to)
	return updated, nil
}
