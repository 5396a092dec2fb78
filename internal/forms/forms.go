// Package forms holds the input shapes the client sends to the backend and
// the rules each one must pass before a request goes out.
package forms

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	MethodEmail = "email"
	MethodPhone = "phone"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

type LoginInput struct {
	Method     string `validate:"oneof=email phone"`
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

type RegisterInput struct {
	Method   string `validate:"oneof=email phone"`
	Name     string `validate:"required,min=2"`
	Email    string `validate:"required_if=Method email,omitempty,email"`
	Phone    string `validate:"required_if=Method phone,omitempty,phone"`
	Password string `validate:"required,min=6"`
	RoleID   int    `validate:"required,oneof=3 5"`
}

// Identifier is the email or phone, depending on the chosen method.
func (r RegisterInput) Identifier() string {
	if r.Method == MethodPhone {
		return r.Phone
	}
	return r.Email
}

type CategoryInput struct {
	StoreID     int64  `json:"store_id" validate:"gt=0"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

type AttributeValueInput struct {
	AttributeID string `validate:"required"`
	Value       string `validate:"required"`
	Price       string `validate:"omitempty,numeric"`
}

type ProductInput struct {
	StoreID     int64  `validate:"gt=0"`
	CategoryID  int64  `validate:"gt=0"`
	Name        string `validate:"required"`
	Description string
	// Price is required and positive unless the product is sold through
	// attribute values.
	Price     float64  `validate:"required_without=Values,omitempty,gt=0"`
	SalePrice *float64 `validate:"omitempty,gt=0"`
	// AttributeID groups Values; it is sent as attributes[].
	AttributeID string                `validate:"required_with=Values"`
	Values      []AttributeValueInput `validate:"dive"`
	ImagePath   string                `validate:"omitempty,file"`
}

func (p ProductInput) HasAttributes() bool {
	return len(p.Values) > 0
}

type StoreInput struct {
	UserID       int64  `json:"userId" validate:"gt=0"`
	Name         string `json:"name" validate:"required"`
	Address      string `json:"address" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Description  string `json:"description,omitempty"`
	OpeningHours string `json:"opening_hours,omitempty"`
	DeliveryTime string `json:"delivery_time,omitempty"`
	Image        string `json:"image,omitempty"`
}

// Errors maps a field name to a human readable reason.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks v against its rules and returns Errors on failure.
func Validate(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Namespace())
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out[field] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_without", "required_with":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be 10 to 15 digits"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be positive"
	case "numeric":
		return "must be a number"
	case "file":
		return "file does not exist"
	default:
		return "is invalid"
	}
}
