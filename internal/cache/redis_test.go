package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestMatchPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"storedesk:orders:", "storedesk:orders:*"},
		{"", "*"},
		{"p:a*b:", `p:a\*b:*`},
		{"p:[x]?:", `p:\[x\]\?:*`},
		{`p:\:`, `p:\\:*`},
	}
	for _, tt := range tests {
		if got := matchPrefix(tt.in); got != tt.want {
			t.Errorf("matchPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Integration test. Skips unless REDIS_ADDR points at a running server.
func TestClient_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("skipping redis integration test: REDIS_ADDR not set")
	}
	c, err := NewClient(addr, "storedesk-test:")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	defer func() { _, _ = c.DeletePrefix(ctx, "") }()

	if _, err := c.Get(ctx, "products:1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty cache: err = %v, want ErrMiss", err)
	}

	for _, k := range []string{"products:1", "products:2", "orders:1"} {
		if err := c.Set(ctx, k, []byte(`[]`), time.Minute); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	n, err := c.DeletePrefix(ctx, "products")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d keys, want 2", n)
	}
	if b, err := c.Get(ctx, "orders:1"); err != nil || string(b) != "[]" {
		t.Errorf("orders:1 should survive, got %q, %v", b, err)
	}
}
