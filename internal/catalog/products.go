package catalog

import (
	"context"

	"storedesk/internal/forms"
	"storedesk/internal/models"
	"storedesk/internal/query"
)

func (s *Service) Products(ctx context.Context, storeID int64) ([]models.Product, error) {
	return query.Fetch(ctx, s.cache, ProductsKey(storeID), func(ctx context.Context) ([]models.Product, error) {
		return s.api.Products(ctx, storeID)
	})
}

// ProductsIn filters the store's products by category.
func (s *Service) ProductsIn(ctx context.Context, storeID, categoryID int64) ([]models.Product, error) {
	all, err := s.Products(ctx, storeID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, in forms.ProductInput) (*models.Product, error) {
	if err := forms.Validate(in); err != nil {
		return nil, err
	}
	return query.Mutate(ctx, s.cache, func(ctx context.Context) (*models.Product, error) {
		return s.api.CreateProduct(ctx, in)
	}, ProductsKey(in.StoreID))
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in forms.ProductInput) (*models.Product, error) {
	if err := forms.Validate(in); err != nil {
		return nil, err
	}
	return query.Mutate(ctx, s.cache, func(ctx context.Context) (*models.Product, error) {
		return s.api.UpdateProduct(ctx, id, in)
	}, ProductsKey(in.StoreID))
}

func (s *Service) DeleteProduct(ctx context.Context, storeID, id int64) error {
	_, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.DeleteProduct(ctx, id)
	}, ProductsKey(storeID))
	return err
}
