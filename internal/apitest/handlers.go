package apitest

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"storedesk/internal/models"
	"storedesk/internal/realtime"
)

// AddUser creates an account that can log in with identifier and password.
// It returns the new user's id.
func (b *Backend) AddUser(u models.User, password string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == 0 {
		u.ID = b.newID()
	}
	b.accounts[u.Identifier()] = account{password: password, userID: u.ID}
	b.profiles[u.ID] = &models.Profile{User: u}
	return u.ID
}

// AttachStore gives an existing user a store.
func (b *Backend) AttachStore(userID int64, s models.Store) models.Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.ID == 0 {
		s.ID = b.newID()
	}
	s.OwnerID = userID
	if p := b.profiles[userID]; p != nil {
		p.Store = &s
	}
	return s
}

// AttachDriver gives an existing user a driver record.
func (b *Backend) AttachDriver(userID int64, d models.Driver) models.Driver {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d.ID == 0 {
		d.ID = b.newID()
	}
	if p := b.profiles[userID]; p != nil {
		p.Driver = &d
	}
	return d
}

func (b *Backend) AddCategory(c models.Category) models.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == 0 {
		c.ID = b.newID()
	}
	b.categories[c.ID] = c
	return c
}

func (b *Backend) AddProduct(p models.Product) models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		p.ID = b.newID()
	}
	b.products[p.ID] = p
	return p
}

func (b *Backend) AddOrder(o models.Order) models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.ID == 0 {
		o.ID = b.newID()
	}
	if o.Status == "" {
		o.Status = models.StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
		o.UpdatedAt = o.CreatedAt
	}
	b.orders[o.ID] = o
	return o
}

// PlaceOrder stores o and pushes it to the store's room as new_order.
func (b *Backend) PlaceOrder(o models.Order) models.Order {
	o = b.AddOrder(o)
	b.Hub.Emit(realtime.Room(o.StoreID), realtime.EventNewOrder, o)
	return o
}

func (b *Backend) AddNotification(n models.Notification) models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n.ID == 0 {
		n.ID = b.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	b.notifications[n.ID] = n
	return n
}

func (b *Backend) Order(id int64) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	return o, ok
}

func (b *Backend) Notification(id int64) (models.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.notifications[id]
	return n, ok
}

func (b *Backend) Product(id int64) (models.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	return p, ok
}

func (b *Backend) Profile(userID int64) (models.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[userID]
	if !ok {
		return models.Profile{}, false
	}
	return *p, true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[req.Email]
	var user models.User
	if ok {
		user = b.profiles[acc.userID].User
	}
	b.mu.Unlock()

	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, models.Session{User: user, Token: b.Token(user.ID, user.EffectiveRole(), 24*time.Hour)})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		RoleID   int    `json:"role_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	_, taken := b.accounts[req.Email]
	b.mu.Unlock()
	if taken {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}

	u := models.User{Name: req.Name, RoleID: req.RoleID, Role: models.RoleFromID(req.RoleID)}
	if _, err := strconv.ParseInt(req.Email, 10, 64); err == nil {
		u.Phone = req.Email
	} else {
		u.Email = req.Email
	}
	u.ID = b.AddUser(u, req.Password)
	writeJSON(w, http.StatusCreated, models.Session{User: u, Token: b.Token(u.ID, u.Role, 24*time.Hour)})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	p, ok := b.Profile(pathID(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeData(w, http.StatusOK, p)
}

func (b *Backend) createStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int64  `json:"userId"`
		Name        string `json:"name"`
		Address     string `json:"address"`
		Phone       string `json:"phone"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := b.Profile(req.UserID); !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s := b.AttachStore(req.UserID, models.Store{
		Name: req.Name, Address: req.Address, Phone: req.Phone, Description: req.Description,
	})
	writeData(w, http.StatusCreated, s)
}

func (b *Backend) toggleDriver(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.profiles {
		if p.Driver != nil && p.Driver.ID == id {
			p.Driver.IsAvailable = !p.Driver.IsAvailable
			writeData(w, http.StatusOK, *p.Driver)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Driver not found")
}

func (b *Backend) listCategories(w http.ResponseWriter, r *http.Request) {
	storeID := pathID(r, "storeID")
	b.mu.Lock()
	out := sortedByID(b.categories, func(c models.Category) bool { return c.StoreID == storeID })
	b.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

func (b *Backend) saveCategory(w http.ResponseWriter, r *http.Request) {
	var c models.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	status := http.StatusCreated
	if id := pathID(r, "id"); id != 0 {
		b.mu.Lock()
		_, ok := b.categories[id]
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		c.ID = id
		status = http.StatusOK
	}
	writeData(w, status, b.AddCategory(c))
}

func (b *Backend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	b.mu.Lock()
	_, ok := b.categories[id]
	delete(b.categories, id)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}

func (b *Backend) listProducts(w http.ResponseWriter, r *http.Request) {
	storeID := pathID(r, "storeID")
	b.mu.Lock()
	out := sortedByID(b.products, func(p models.Product) bool { return p.StoreID == storeID })
	b.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

func (b *Backend) saveProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Expected multipart form")
		return
	}
	form := r.MultipartForm.Value
	get := func(k string) string {
		if v := form[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	parseAmount := func(k string) models.Amount {
		f, _ := strconv.ParseFloat(get(k), 64)
		return models.Amount(f)
	}

	p := models.Product{Name: get("name"), Description: get("description"), Price: parseAmount("price")}
	p.StoreID, _ = strconv.ParseInt(get("store_id"), 10, 64)
	p.CategoryID, _ = strconv.ParseInt(get("category_id"), 10, 64)
	if get("sale_price") != "" {
		sale := parseAmount("sale_price")
		p.SalePrice = &sale
		p.OnSale = true
	}
	for i := 0; ; i++ {
		prefix := "values[" + strconv.Itoa(i) + "]"
		if get(prefix+"[value]") == "" {
			break
		}
		p.Values = append(p.Values, models.AttributeValue{
			AttributeID: get(prefix + "[attribute_id]"),
			Value:       get(prefix + "[value]"),
			Price:       parseAmount(prefix + "[price]"),
		})
	}
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		p.Image = "/uploads/" + filepath.Base(files[0].Filename)
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	status := http.StatusCreated
	if id := pathID(r, "id"); id != 0 {
		old, ok := b.Product(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		p.ID = id
		if p.Image == "" {
			p.Image = old.Image
		}
		status = http.StatusOK
	}
	writeData(w, status, b.AddProduct(p))
}

func (b *Backend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	b.mu.Lock()
	_, ok := b.products[id]
	delete(b.products, id)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (b *Backend) listOrders(w http.ResponseWriter, r *http.Request) {
	storeID := pathID(r, "storeID")
	b.mu.Lock()
	out := sortedByID(b.orders, func(o models.Order) bool { return o.StoreID == storeID })
	b.mu.Unlock()
	// newest first, like the backend's createdAt DESC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	writeData(w, http.StatusOK, out)
}

// setOrderStatus handles accept, cancel and the generic status update. An
// empty status means it comes from the request body.
func (b *Backend) setOrderStatus(fixed models.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := fixed
		if status == "" {
			var req struct {
				Status models.OrderStatus `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
				writeError(w, http.StatusBadRequest, "Status is required")
				return
			}
			status = req.Status
		}

		id := pathID(r, "id")
		b.mu.Lock()
		o, ok := b.orders[id]
		if ok {
			o.Status = status
			o.UpdatedAt = time.Now().UTC()
			if status == models.StatusDelivered {
				t := o.UpdatedAt
				o.DeliveredAt = &t
			}
			b.orders[id] = o
		}
		b.mu.Unlock()

		if !ok {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		writeData(w, http.StatusOK, o)
	}
}

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("notifiable_id"), 10, 64)
	typ := models.NotifiableType(r.URL.Query().Get("notifiable_type"))

	b.mu.Lock()
	out := sortedByID(b.notifications, func(n models.Notification) bool {
		return n.NotifiableID == id && n.NotifiableType == typ
	})
	b.mu.Unlock()
	writeData(w, http.StatusOK, out)
}

func (b *Backend) readNotification(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	b.mu.Lock()
	n, ok := b.notifications[id]
	if ok {
		n.IsRead = true
		b.notifications[id] = n
	}
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	writeData(w, http.StatusOK, n)
}
