package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("token expired")

type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token has an expiry that lies before now.
// Tokens without exp never expire on the client side.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspector reads session tokens. With a secret it verifies the HMAC
// signature; without one it only decodes the payload.
type Inspector struct {
	secretKey []byte
}

func NewInspector(secret string) *Inspector {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Inspector{secretKey: key}
}

// Verifies reports whether Parse checks signatures.
func (i *Inspector) Verifies() bool {
	return i.secretKey != nil
}

func (i *Inspector) Parse(tokenString string) (Claims, error) {
	claims := jwt.MapClaims{}

	if i.secretKey == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return Claims{}, fmt.Errorf("decode token: %w", err)
		}
		return fromMap(claims), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secretKey, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fromMap(claims), ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	return fromMap(claims), nil
}

func fromMap(m jwt.MapClaims) Claims {
	var c Claims
	if sub, err := m.GetSubject(); err == nil && sub != "" {
		c.Subject = sub
	} else {
		// the backend puts the numeric user id under user_id
		switch v := m["user_id"].(type) {
		case float64:
			c.Subject = strconv.FormatInt(int64(v), 10)
		case string:
			c.Subject = v
		}
	}
	if role, ok := m["role"].(string); ok {
		c.Role = role
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c
}
