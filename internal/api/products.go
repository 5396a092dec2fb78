package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"storedesk/internal/forms"
	"storedesk/internal/models"
)

func (c *Client) Products(ctx context.Context, storeID int64) ([]models.Product, error) {
	return getData[[]models.Product](ctx, c, fmt.Sprintf("/stores/%d/products", storeID))
}

func (c *Client) CreateProduct(ctx context.Context, in forms.ProductInput) (*models.Product, error) {
	return c.submitProduct(ctx, http.MethodPost, "/products/create", in)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in forms.ProductInput) (*models.Product, error) {
	return c.submitProduct(ctx, http.MethodPut, fmt.Sprintf("/products/update/%d", id), in)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil)
}

func (c *Client) submitProduct(ctx context.Context, method, path string, in forms.ProductInput) (*models.Product, error) {
	body, contentType, err := encodeProduct(in)
	if err != nil {
		return nil, fmt.Errorf("encode product: %w", err)
	}
	var env envelope[models.Product]
	err = c.breaker.Execute(func() error {
		return c.do(ctx, method, path, bytes.NewReader(body), contentType, &env)
	})
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// encodeProduct builds the multipart form the product endpoints accept.
// Attribute values go out as values[i][field] and the attribute id as
// attributes[].
func encodeProduct(in forms.ProductInput) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"store_id", strconv.FormatInt(in.StoreID, 10)},
		{"category_id", strconv.FormatInt(in.CategoryID, 10)},
		{"name", in.Name},
		{"description", in.Description},
	}
	if !in.HasAttributes() || in.Price > 0 {
		fields = append(fields, [2]string{"price", formatPrice(in.Price)})
	}
	if in.SalePrice != nil {
		fields = append(fields, [2]string{"sale_price", formatPrice(*in.SalePrice)})
	}
	if in.HasAttributes() {
		fields = append(fields, [2]string{"attributes[]", in.AttributeID})
		for i, v := range in.Values {
			prefix := fmt.Sprintf("values[%d]", i)
			fields = append(fields,
				[2]string{prefix + "[attribute_id]", v.AttributeID},
				[2]string{prefix + "[value]", v.Value},
				[2]string{prefix + "[price]", v.Price},
			)
		}
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if in.ImagePath != "" {
		if err := attachFile(w, "image", in.ImagePath); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
