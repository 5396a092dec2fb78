package api

import (
	"context"
	"fmt"
	"net/http"

	"storedesk/internal/forms"
	"storedesk/internal/models"
)

func (c *Client) Categories(ctx context.Context, storeID int64) ([]models.Category, error) {
	return getData[[]models.Category](ctx, c, fmt.Sprintf("/categories/store/%d", storeID))
}

func (c *Client) CreateCategory(ctx context.Context, in forms.CategoryInput) (*models.Category, error) {
	cat, err := sendData[models.Category](ctx, c, http.MethodPost, "/categories/create", in)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, in forms.CategoryInput) (*models.Category, error) {
	cat, err := sendData[models.Category](ctx, c, http.MethodPut, fmt.Sprintf("/categories/update/%d", id), in)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}
