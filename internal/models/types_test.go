package models

import (
	"encoding/json"
	"testing"
)

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{`"12.50"`, 12.5},
		{`12.5`, 12.5},
		{`"0"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`7`, 7},
	}
	for _, tt := range tests {
		var a Amount
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if a != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, a, tt.want)
		}
	}

	var a Amount
	if err := json.Unmarshal([]byte(`"abc"`), &a); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestOrderDecodesBackendShape(t *testing.T) {
	raw := `{"id":41,"user_id":2,"restaurant_id":8,"status":"pending","total_price":"23.00",
		"order":[{"name":"Burger","quantity":2,"price":"11.50"}],
		"delivery_address":"Main st","delivered_at":null,"createdAt":"2026-10-01T10:00:00Z","updatedAt":"2026-10-01T10:00:00Z"}`
	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if o.StoreID != 8 || o.Status != StatusPending || o.TotalPrice != 23 {
		t.Errorf("unexpected order: %+v", o)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 || o.Items[0].Price != 11.5 {
		t.Errorf("unexpected items: %+v", o.Items)
	}
	if o.DeliveredAt != nil {
		t.Error("delivered_at should stay nil")
	}
}

func TestRoles(t *testing.T) {
	if RoleFromID(3) != RoleStoreOwner || RoleFromID(5) != RoleDriver || RoleFromID(1) != "" {
		t.Error("RoleFromID mapping mismatch")
	}
	if RoleDriver.ID() != 5 || RoleStoreOwner.ID() != 3 {
		t.Error("Role.ID mapping mismatch")
	}
	u := User{RoleID: 5}
	if u.EffectiveRole() != RoleDriver {
		t.Errorf("EffectiveRole() = %q, want driver", u.EffectiveRole())
	}
	u = User{Phone: "0501234567"}
	if u.Identifier() != "0501234567" {
		t.Errorf("Identifier() = %q", u.Identifier())
	}
}
