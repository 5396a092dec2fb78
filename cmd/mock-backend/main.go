package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storedesk/internal/apitest"
	"storedesk/internal/models"
	"storedesk/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	addr := getEnv("MOCK_ADDR", ":8080")
	every, err := time.ParseDuration(getEnv("MOCK_ORDER_EVERY", "0"))
	if err != nil {
		slog.Error("Invalid MOCK_ORDER_EVERY", "error", err)
		os.Exit(1)
	}

	backend := apitest.New()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		backend.Secret = secret
	}
	store := seed(backend)
	slog.Info("Seeded demo data", "store_id", store.ID, "owner", "owner@example.com", "driver", "driver@example.com")

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", telemetry.Handler())
	mux.Handle("/", backend)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if every > 0 {
		go placeOrders(ctx, backend, store.ID, every)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Mock backend listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}
}

func seed(b *apitest.Backend) models.Store {
	owner := b.AddUser(models.User{Name: "Demo Owner", Email: "owner@example.com", RoleID: models.RoleIDStoreOwner}, "password")
	store := b.AttachStore(owner, models.Store{Name: "Demo Kitchen", Address: "1 Main St", Phone: "5550100"})

	driver := b.AddUser(models.User{Name: "Demo Driver", Email: "driver@example.com", RoleID: models.RoleIDDriver}, "password")
	d := b.AttachDriver(driver, models.Driver{IsAvailable: true})

	mains := b.AddCategory(models.Category{StoreID: store.ID, Name: "Mains"})
	b.AddProduct(models.Product{StoreID: store.ID, CategoryID: mains.ID, Name: "Burger", Price: 9.5})
	b.AddProduct(models.Product{
		StoreID:    store.ID,
		CategoryID: mains.ID,
		Name:       "Pizza",
		Values: []models.AttributeValue{
			{AttributeID: "size", Value: "small", Price: 8},
			{AttributeID: "size", Value: "large", Price: 12},
		},
	})

	b.AddOrder(models.Order{
		StoreID:    store.ID,
		Items:      []models.OrderItem{{Name: "Burger", Quantity: 2, Price: 9.5}},
		TotalPrice: 19,
		Status:     models.StatusPreparing,
	})
	b.AddNotification(models.Notification{Title: "Welcome", Message: "Your store is live", NotifiableID: store.ID, NotifiableType: models.NotifiableStore})
	b.AddNotification(models.Notification{Title: "Welcome", Message: "You can now take deliveries", NotifiableID: d.ID, NotifiableType: models.NotifiableDriver})
	return store
}

func placeOrders(ctx context.Context, b *apitest.Backend, storeID int64, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o := b.PlaceOrder(models.Order{
				StoreID:         storeID,
				Items:           []models.OrderItem{{Name: "Pizza (large)", Quantity: 1, Price: 12}},
				TotalPrice:      12,
				DeliveryAddress: "42 Side St",
			})
			b.AddNotification(models.Notification{
				Title:          "New order",
				Message:        "You have a new order",
				NotifiableID:   storeID,
				NotifiableType: models.NotifiableStore,
			})
			slog.Info("Placed demo order", "order_id", o.ID)
		}
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
