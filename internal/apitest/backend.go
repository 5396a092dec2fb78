// Package apitest is an in-memory stand-in for the marketplace backend:
// the REST routes the client calls plus a socket.io hub, with every request
// recorded for assertions.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"storedesk/internal/models"
)

const DefaultSecret = "apitest-secret"

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Route  string
	Query  string
	Header http.Header
	Body   []byte
}

// Multipart parses a recorded multipart body.
func (r Request) Multipart() (*multipart.Form, error) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return multipart.NewReader(bytes.NewReader(r.Body), params["boundary"]).ReadForm(10 << 20)
}

type account struct {
	password string
	userID   int64
}

type failure struct {
	method, route string
	status        int
	remaining     int
}

type Backend struct {
	Secret string
	Hub    *Hub

	router *mux.Router

	mu            sync.Mutex
	nextID        int64
	accounts      map[string]account
	profiles      map[int64]*models.Profile
	categories    map[int64]models.Category
	products      map[int64]models.Product
	orders        map[int64]models.Order
	notifications map[int64]models.Notification
	requests      []Request
	failures      []*failure
}

func New() *Backend {
	b := &Backend{
		Secret:        DefaultSecret,
		Hub:           NewHub(),
		nextID:        100,
		accounts:      make(map[string]account),
		profiles:      make(map[int64]*models.Profile),
		categories:    make(map[int64]models.Category),
		products:      make(map[int64]models.Product),
		orders:        make(map[int64]models.Order),
		notifications: make(map[int64]models.Notification),
	}
	b.routes()
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes() {
	r := mux.NewRouter()
	r.PathPrefix("/socket.io/").Handler(b.Hub)

	rest := r.NewRoute().Subrouter()
	rest.Use(b.record, b.inject)

	rest.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	rest.HandleFunc("/auth/register", b.register).Methods(http.MethodPost)

	authed := rest.NewRoute().Subrouter()
	authed.Use(b.requireToken)

	authed.HandleFunc("/users/profile/{id:[0-9]+}", b.profile).Methods(http.MethodGet)
	authed.HandleFunc("/stores/create", b.createStore).Methods(http.MethodPost)
	authed.HandleFunc("/drivers/{id:[0-9]+}/toggle-availability", b.toggleDriver).Methods(http.MethodPatch)

	authed.HandleFunc("/categories/store/{storeID:[0-9]+}", b.listCategories).Methods(http.MethodGet)
	authed.HandleFunc("/categories/create", b.saveCategory).Methods(http.MethodPost)
	authed.HandleFunc("/categories/update/{id:[0-9]+}", b.saveCategory).Methods(http.MethodPut)
	authed.HandleFunc("/categories/{id:[0-9]+}", b.deleteCategory).Methods(http.MethodDelete)

	authed.HandleFunc("/stores/{storeID:[0-9]+}/products", b.listProducts).Methods(http.MethodGet)
	authed.HandleFunc("/products/create", b.saveProduct).Methods(http.MethodPost)
	authed.HandleFunc("/products/update/{id:[0-9]+}", b.saveProduct).Methods(http.MethodPut)
	authed.HandleFunc("/products/{id:[0-9]+}", b.deleteProduct).Methods(http.MethodDelete)

	authed.HandleFunc("/orders/store/{storeID:[0-9]+}", b.listOrders).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id:[0-9]+}/accept", b.setOrderStatus(models.StatusAccepted)).Methods(http.MethodPatch)
	authed.HandleFunc("/orders/{id:[0-9]+}/cancel", b.setOrderStatus(models.StatusCancelled)).Methods(http.MethodPatch)
	authed.HandleFunc("/orders/{id:[0-9]+}/status", b.setOrderStatus("")).Methods(http.MethodPatch)

	authed.HandleFunc("/notifications/", b.listNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/read/{id:[0-9]+}", b.readNotification).Methods(http.MethodPut)

	b.router = r
}

// Requests returns every recorded REST call, oldest first.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Calls counts recorded calls matching method and route template, for
// example ("GET", "/orders/store/{storeID}").
func (b *Backend) Calls(method, route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Route == route {
			n++
		}
	}
	return n
}

// Last returns the most recent call on route.
func (b *Backend) Last(method, route string) (Request, bool) {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Route == route {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// Fail makes the next n calls on route answer with status.
func (b *Backend) Fail(method, route string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, &failure{method: method, route: route, status: status, remaining: n})
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Route:  routeOf(r),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeOf(r)
		b.mu.Lock()
		for _, f := range b.failures {
			if f.remaining > 0 && f.method == r.Method && f.route == route {
				f.remaining--
				b.mu.Unlock()
				writeError(w, f.status, "injected failure")
				return
			}
		}
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}
		_, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(b.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Token signs a token for userID the way the backend does on login.
func (b *Backend) Token(userID int64, role models.Role, ttl time.Duration) string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(b.Secret))
	return tok
}

func routeOf(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}
	// drop the id patterns: /orders/{id:[0-9]+} reads as /orders/{id}
	for {
		i := strings.Index(tpl, ":[0-9]+}")
		if i < 0 {
			return tpl
		}
		tpl = tpl[:i] + "}" + tpl[i+len(":[0-9]+}"):]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func sortedByID[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func (b *Backend) newID() int64 {
	b.nextID++
	return b.nextID
}
