package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storedesk/internal/apitest"
	"storedesk/internal/config"
	"storedesk/internal/forms"
	"storedesk/internal/models"
	"storedesk/internal/resilience"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		APIURL:        url,
		HTTPTimeout:   5 * time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}
}

// setup starts a fake backend with one signed-in store owner.
func setup(t *testing.T, mutate func(*config.Config)) (*Client, *apitest.Backend, models.Store) {
	t.Helper()
	b := apitest.New()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(cfg)
	}
	c := NewClient(cfg)

	uid := b.AddUser(models.User{Name: "Sara", Email: "sara@example.com", RoleID: models.RoleIDStoreOwner}, "secret1")
	store := b.AttachStore(uid, models.Store{Name: "Pizza Corner"})
	token := b.Token(uid, models.RoleStoreOwner, time.Hour)
	c.SetTokenSource(func() string { return token })
	return c, b, store
}

func TestLogin(t *testing.T) {
	c, b, _ := setup(t, nil)
	ctx := context.Background()

	s, err := c.Login(ctx, forms.LoginInput{Method: forms.MethodEmail, Identifier: "sara@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.Token == "" || s.User.Name != "Sara" || s.User.EffectiveRole() != models.RoleStoreOwner {
		t.Errorf("session = %+v", s)
	}

	req, _ := b.Last(http.MethodPost, "/auth/login")
	var body map[string]string
	_ = json.Unmarshal(req.Body, &body)
	if body["email"] != "sara@example.com" || body["password"] != "secret1" {
		t.Errorf("login body = %s", req.Body)
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	_, err = c.Login(ctx, forms.LoginInput{Method: forms.MethodEmail, Identifier: "sara@example.com", Password: "wrong"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid credentials" {
		t.Errorf("error = %#v", apiErr)
	}
}

func TestRegisterWithPhone(t *testing.T) {
	c, b, _ := setup(t, nil)
	s, err := c.Register(context.Background(), forms.RegisterInput{
		Method: forms.MethodPhone, Name: "Omar", Phone: "0501234567", Password: "secret1", RoleID: models.RoleIDDriver,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if s.User.Phone != "0501234567" || s.User.EffectiveRole() != models.RoleDriver {
		t.Errorf("user = %+v", s.User)
	}
	req, _ := b.Last(http.MethodPost, "/auth/register")
	var body map[string]any
	_ = json.Unmarshal(req.Body, &body)
	if body["email"] != "0501234567" || body["role_id"] != float64(5) {
		t.Errorf("register body = %s", req.Body)
	}
}

func TestBearerToken(t *testing.T) {
	c, b, store := setup(t, nil)
	ctx := context.Background()

	p, err := c.Profile(ctx, store.OwnerID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Store == nil || p.Store.ID != store.ID {
		t.Errorf("profile store = %+v", p.Store)
	}
	req, _ := b.Last(http.MethodGet, "/users/profile/{id}")
	if got := req.Header.Get("Authorization"); got == "" || got[:7] != "Bearer " {
		t.Errorf("Authorization = %q", got)
	}

	c.SetTokenSource(func() string { return "" })
	if _, err := c.Profile(ctx, store.OwnerID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized without a token", err)
	}
}

func TestNotFound(t *testing.T) {
	c, _, _ := setup(t, nil)
	_, err := c.Profile(context.Background(), 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("404 must not match ErrUnauthorized")
	}
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		route     string
		status    int
		failures  int
		call      func(*Client, models.Store) error
		wantErr   bool
		wantCalls int
	}{
		{
			name: "GET retried through server errors", method: http.MethodGet, route: "/orders/store/{storeID}",
			status: http.StatusServiceUnavailable, failures: 2,
			call: func(c *Client, s models.Store) error {
				_, err := c.Orders(context.Background(), s.ID)
				return err
			},
			wantCalls: 3,
		},
		{
			name: "GET not retried on client errors", method: http.MethodGet, route: "/orders/store/{storeID}",
			status: http.StatusForbidden, failures: 1,
			call: func(c *Client, s models.Store) error {
				_, err := c.Orders(context.Background(), s.ID)
				return err
			},
			wantErr: true, wantCalls: 1,
		},
		{
			name: "mutations are sent once", method: http.MethodPatch, route: "/orders/{id}/accept",
			status: http.StatusBadGateway, failures: 1,
			call: func(c *Client, _ models.Store) error {
				_, err := c.AcceptOrder(context.Background(), 1)
				return err
			},
			wantErr: true, wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b, store := setup(t, func(cfg *config.Config) { cfg.RetryAttempts = 3 })
			b.Fail(tt.method, tt.route, tt.status, tt.failures)

			err := tt.call(c, store)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := b.Calls(tt.method, tt.route); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	c, b, store := setup(t, func(cfg *config.Config) {
		cfg.BreakerThreshold = 2
		cfg.BreakerCooldown = time.Minute
	})
	ctx := context.Background()
	b.Fail(http.MethodGet, "/categories/store/{storeID}", http.StatusInternalServerError, 10)

	for i := 0; i < 2; i++ {
		if _, err := c.Categories(ctx, store.ID); err == nil || errors.Is(err, resilience.ErrOpen) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if _, err := c.Categories(ctx, store.ID); !errors.Is(err, resilience.ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if got := b.Calls(http.MethodGet, "/categories/store/{storeID}"); got != 2 {
		t.Errorf("backend saw %d calls, want 2", got)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	c, _, _ := setup(t, func(cfg *config.Config) { cfg.BreakerThreshold = 1 })
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Profile(ctx, 424242); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
}

func TestCategoryCRUD(t *testing.T) {
	c, _, store := setup(t, nil)
	ctx := context.Background()

	created, err := c.CreateCategory(ctx, forms.CategoryInput{StoreID: store.ID, Name: "Pizza"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	updated, err := c.UpdateCategory(ctx, created.ID, forms.CategoryInput{StoreID: store.ID, Name: "Pizzas", Description: "Wood fired"})
	if err != nil || updated.Name != "Pizzas" {
		t.Fatalf("UpdateCategory = %+v, %v", updated, err)
	}

	list, err := c.Categories(ctx, store.ID)
	if err != nil || len(list) != 1 || list[0].Description != "Wood fired" {
		t.Fatalf("Categories = %+v, %v", list, err)
	}

	if err := c.DeleteCategory(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := c.DeleteCategory(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestCreateProductMultipart(t *testing.T) {
	c, b, store := setup(t, nil)
	img := filepath.Join(t.TempDir(), "margherita.png")
	if err := os.WriteFile(img, []byte("\x89PNG fake"), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := c.CreateProduct(context.Background(), forms.ProductInput{
		StoreID:     store.ID,
		CategoryID:  7,
		Name:        "Margherita",
		AttributeID: "size",
		Values: []forms.AttributeValueInput{
			{AttributeID: "size", Value: "small", Price: "8.5"},
			{AttributeID: "size", Value: "large", Price: "12"},
		},
		ImagePath: img,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.Image != "/uploads/margherita.png" || len(p.Values) != 2 || p.Values[1].Price != 12 {
		t.Errorf("product = %+v", p)
	}

	req, _ := b.Last(http.MethodPost, "/products/create")
	form, err := req.Multipart()
	if err != nil {
		t.Fatalf("multipart: %v", err)
	}
	checks := map[string]string{
		"store_id":                "",
		"attributes[]":            "size",
		"values[0][value]":        "small",
		"values[1][price]":        "12",
		"values[1][attribute_id]": "size",
	}
	for k, want := range checks {
		got := form.Value[k]
		if len(got) == 0 || (want != "" && got[0] != want) {
			t.Errorf("%s = %v, want %q", k, got, want)
		}
	}
	if _, ok := form.Value["price"]; ok {
		t.Error("price must be omitted for attribute products without a base price")
	}
	if files := form.File["image"]; len(files) != 1 || files[0].Filename != "margherita.png" {
		t.Errorf("image part = %+v", files)
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	c, _, store := setup(t, nil)
	ctx := context.Background()
	sale := 9.0

	p, err := c.CreateProduct(ctx, forms.ProductInput{StoreID: store.ID, CategoryID: 1, Name: "Calzone", Price: 11})
	if err != nil {
		t.Fatal(err)
	}
	p, err = c.UpdateProduct(ctx, p.ID, forms.ProductInput{StoreID: store.ID, CategoryID: 1, Name: "Calzone", Price: 11, SalePrice: &sale})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if p.SalePrice == nil || *p.SalePrice != 9 || !p.OnSale {
		t.Errorf("product = %+v", p)
	}

	list, _ := c.Products(ctx, store.ID)
	if len(list) != 1 {
		t.Fatalf("Products = %+v", list)
	}
	if err := c.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := c.Products(ctx, store.ID); len(list) != 0 {
		t.Errorf("Products after delete = %+v", list)
	}
}

func TestOrderEndpoints(t *testing.T) {
	c, b, store := setup(t, nil)
	ctx := context.Background()
	o := b.AddOrder(models.Order{StoreID: store.ID, TotalPrice: 25.5})

	orders, err := c.Orders(ctx, store.ID)
	if err != nil || len(orders) != 1 || orders[0].TotalPrice != 25.5 {
		t.Fatalf("Orders = %+v, %v", orders, err)
	}

	got, err := c.AcceptOrder(ctx, o.ID)
	if err != nil || got.Status != models.StatusAccepted {
		t.Fatalf("AcceptOrder = %+v, %v", got, err)
	}

	got, err = c.UpdateOrderStatus(ctx, o.ID, models.StatusPreparing)
	if err != nil || got.Status != models.StatusPreparing {
		t.Fatalf("UpdateOrderStatus = %+v, %v", got, err)
	}
	req, _ := b.Last(http.MethodPatch, "/orders/{id}/status")
	if string(req.Body) != `{"status":"preparing"}` {
		t.Errorf("status body = %s", req.Body)
	}

	got, err = c.CancelOrder(ctx, o.ID)
	if err != nil || got.Status != models.StatusCancelled {
		t.Fatalf("CancelOrder = %+v, %v", got, err)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	c, b, store := setup(t, nil)
	ctx := context.Background()
	n := b.AddNotification(models.Notification{Title: "New order", NotifiableID: store.ID, NotifiableType: models.NotifiableStore})
	b.AddNotification(models.Notification{Title: "Other", NotifiableID: store.ID, NotifiableType: models.NotifiableDriver})

	list, err := c.Notifications(ctx, store.ID, models.NotifiableStore)
	if err != nil || len(list) != 1 || list[0].ID != n.ID {
		t.Fatalf("Notifications = %+v, %v", list, err)
	}
	req, _ := b.Last(http.MethodGet, "/notifications/")
	if req.Query == "" {
		t.Error("query string missing")
	}

	if err := c.MarkNotificationRead(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := b.Notification(n.ID); !got.IsRead {
		t.Error("notification not marked read")
	}
}

func TestStoreAndDriver(t *testing.T) {
	c, b, store := setup(t, nil)
	ctx := context.Background()

	s, err := c.CreateStore(ctx, forms.StoreInput{UserID: store.OwnerID, Name: "Second", Address: "Main St 1", Phone: "0501234567"})
	if err != nil || s.ID == 0 || s.OwnerID != store.OwnerID {
		t.Fatalf("CreateStore = %+v, %v", s, err)
	}

	uid := b.AddUser(models.User{Name: "Omar", Phone: "0509999999", RoleID: models.RoleIDDriver}, "secret1")
	d := b.AttachDriver(uid, models.Driver{})
	got, err := c.ToggleAvailability(ctx, d.ID)
	if err != nil || !got.IsAvailable {
		t.Fatalf("ToggleAvailability = %+v, %v", got, err)
	}
}
