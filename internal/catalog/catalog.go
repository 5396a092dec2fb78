// Package catalog manages a store's categories and products.
package catalog

import (
	"context"

	"storedesk/internal/forms"
	"storedesk/internal/models"
	"storedesk/internal/query"
)

type API interface {
	Categories(ctx context.Context, storeID int64) ([]models.Category, error)
	CreateCategory(ctx context.Context, in forms.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, in forms.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	Products(ctx context.Context, storeID int64) ([]models.Product, error)
	CreateProduct(ctx context.Context, in forms.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in forms.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Service struct {
	api   API
	cache *query.Client
}

func NewService(api API, cache *query.Client) *Service {
	return &Service{api: api, cache: cache}
}

func CategoriesKey(storeID int64) query.Key {
	return query.Key{"categories", storeID}
}

func ProductsKey(storeID int64) query.Key {
	return query.Key{"products", storeID}
}

func (s *Service) Categories(ctx context.Context, storeID int64) ([]models.Category, error) {
	return query.Fetch(ctx, s.cache, CategoriesKey(storeID), func(ctx context.Context) ([]models.Category, error) {
		return s.api.Categories(ctx, storeID)
	})
}

func (s *Service) CreateCategory(ctx context.Context, in forms.CategoryInput) (*models.Category, error) {
	if err := forms.Validate(in); err != nil {
		return nil, err
	}
	return query.Mutate(ctx, s.cache, func(ctx context.Context) (*models.Category, error) {
		return s.api.CreateCategory(ctx, in)
	}, CategoriesKey(in.StoreID))
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in forms.CategoryInput) (*models.Category, error) {
	if err := forms.Validate(in); err != nil {
		return nil, err
	}
	return query.Mutate(ctx, s.cache, func(ctx context.Context) (*models.Category, error) {
		return s.api.UpdateCategory(ctx, id, in)
	}, CategoriesKey(in.StoreID))
}

func (s *Service) DeleteCategory(ctx context.Context, storeID, id int64) error {
	_, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.DeleteCategory(ctx, id)
	}, CategoriesKey(storeID), ProductsKey(storeID))
	return err
}
