package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type Role string

const (
	RoleStoreOwner Role = "store_owner"
	RoleDriver     Role = "driver"
)

// Role ids as the backend expects them on register.
const (
	RoleIDStoreOwner = 3
	RoleIDDriver     = 5
)

func RoleFromID(id int) Role {
	switch id {
	case RoleIDStoreOwner:
		return RoleStoreOwner
	case RoleIDDriver:
		return RoleDriver
	default:
		return ""
	}
}

func (r Role) ID() int {
	switch r {
	case RoleStoreOwner:
		return RoleIDStoreOwner
	case RoleDriver:
		return RoleIDDriver
	default:
		return 0
	}
}

type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Role   Role   `json:"role,omitempty"`
	RoleID int    `json:"role_id,omitempty"`
}

// Identifier is the email or phone the user signed in with.
func (u User) Identifier() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Phone
}

func (u User) EffectiveRole() Role {
	if u.Role != "" {
		return u.Role
	}
	return RoleFromID(u.RoleID)
}

// Session is what login and register return and what gets persisted locally.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Store struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Logo        string `json:"logo,omitempty"`
	OwnerID     int64  `json:"user_id,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Description string `json:"description,omitempty"`
}

type Driver struct {
	ID          int64 `json:"id"`
	IsAvailable bool  `json:"is_available"`
}

type Profile struct {
	User
	Store  *Store  `json:"store,omitempty"`
	Driver *Driver `json:"driver,omitempty"`
}

type Category struct {
	ID          int64  `json:"id"`
	StoreID     int64  `json:"store_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type AttributeValue struct {
	AttributeID string `json:"attribute_id"`
	Value       string `json:"value"`
	Price       Amount `json:"price"`
}

type Product struct {
	ID          int64            `json:"id"`
	StoreID     int64            `json:"store_id"`
	CategoryID  int64            `json:"category_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       Amount           `json:"price"`
	SalePrice   *Amount          `json:"sale_price,omitempty"`
	Image       string           `json:"image,omitempty"`
	OnSale      bool             `json:"on_sale"`
	IsFeatured  bool             `json:"is_featured"`
	Stock       int              `json:"stock"`
	Values      []AttributeValue `json:"values,omitempty"`
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusOnTheWay  OrderStatus = "on_the_way"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    Amount `json:"price"`
}

type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	StoreID         int64       `json:"restaurant_id"`
	Items           []OrderItem `json:"order"`
	Status          OrderStatus `json:"status"`
	TotalPrice      Amount      `json:"total_price"`
	DeliveryAddress string      `json:"delivery_address,omitempty"`
	Phone           string      `json:"phone,omitempty"`
	PlacedAt        *time.Time  `json:"placed_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type NotifiableType string

const (
	NotifiableStore  NotifiableType = "store"
	NotifiableDriver NotifiableType = "driver"
)

type Notification struct {
	ID             int64          `json:"id"`
	Type           string         `json:"type,omitempty"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	IsRead         bool           `json:"is_read"`
	NotifiableID   int64          `json:"notifiable_id"`
	NotifiableType NotifiableType `json:"notifiable_type"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Amount is a money value. The backend sends decimals either as JSON numbers
// or as strings ("12.50"), so both are accepted.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", b, err)
	}
	*a = Amount(f)
	return nil
}

func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}
