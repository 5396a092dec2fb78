package api

import (
	"context"
	"fmt"
	"net/http"

	"storedesk/internal/models"
)

func (c *Client) Orders(ctx context.Context, storeID int64) ([]models.Order, error) {
	return getData[[]models.Order](ctx, c, fmt.Sprintf("/orders/store/%d", storeID))
}

func (c *Client) AcceptOrder(ctx context.Context, id int64) (*models.Order, error) {
	return c.patchOrder(ctx, fmt.Sprintf("/orders/%d/accept", id), nil)
}

func (c *Client) CancelOrder(ctx context.Context, id int64) (*models.Order, error) {
	return c.patchOrder(ctx, fmt.Sprintf("/orders/%d/cancel", id), nil)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	return c.patchOrder(ctx, fmt.Sprintf("/orders/%d/status", id), map[string]models.OrderStatus{"status": status})
}

func (c *Client) patchOrder(ctx context.Context, path string, body any) (*models.Order, error) {
	o, err := sendData[models.Order](ctx, c, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
