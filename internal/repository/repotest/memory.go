// Package repotest provides an in-memory repository.Store for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/repository"
)

type state struct {
	users    map[uint]models.User
	profiles map[uint]models.Profile
	products map[uint]models.Product
	images   map[uint]models.ProductImage
	reviews  map[uint]models.Review
	orders   map[uint]models.Order
	items    map[uint]models.OrderItem
	events   map[string]models.WebhookEvent
	seq      map[string]uint
}

func newState() *state {
	return &state{
		users:    map[uint]models.User{},
		profiles: map[uint]models.Profile{},
		products: map[uint]models.Product{},
		images:   map[uint]models.ProductImage{},
		reviews:  map[uint]models.Review{},
		orders:   map[uint]models.Order{},
		items:    map[uint]models.OrderItem{},
		events:   map[string]models.WebhookEvent{},
		seq:      map[string]uint{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		users:    cloneMap(s.users),
		profiles: cloneMap(s.profiles),
		products: cloneMap(s.products),
		images:   cloneMap(s.images),
		reviews:  cloneMap(s.reviews),
		orders:   cloneMap(s.orders),
		items:    cloneMap(s.items),
		events:   cloneMap(s.events),
		seq:      cloneMap(s.seq),
	}
}

func (s *state) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

// Store is a repository.Store held in memory. Transactions snapshot the
// whole state and restore it when the callback fails.
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) Products() repository.ProductRepository           { return &productRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository             { return &reviewRepo{s} }
func (s *Store) Orders() repository.OrderRepository               { return &orderRepo{s} }
func (s *Store) WebhookEvents() repository.WebhookEventRepository { return &eventRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) with(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// SeedUser inserts a user with an empty profile and returns it
func (s *Store) SeedUser(user models.User) models.User {
	_ = s.Users().Create(context.Background(), &user)
	return user
}

// SeedProduct inserts a product and returns it
func (s *Store) SeedProduct(product models.Product) models.Product {
	_ = s.Products().Create(context.Background(), &product)
	return product
}

// ProductStock returns the current stock of a product
func (s *Store) ProductStock(id uint) int {
	var stock int
	s.with(func(st *state) { stock = st.products[id].Stock })
	return stock
}

// ProductRatings returns the stored rating of a product
func (s *Store) ProductRatings(id uint) float64 {
	var ratings float64
	s.with(func(st *state) { ratings = st.products[id].Ratings })
	return ratings
}

// OrderCount returns the number of stored orders
func (s *Store) OrderCount() int {
	var n int
	s.with(func(st *state) { n = len(st.orders) })
	return n
}

// OrderItemCount returns the number of stored order items
func (s *Store) OrderItemCount() int {
	var n int
	s.with(func(st *state) { n = len(st.items) })
	return n
}

// RecordedEvents returns the recorded webhook events keyed by event id
func (s *Store) RecordedEvents() map[string]models.WebhookEvent {
	var out map[string]models.WebhookEvent
	s.with(func(st *state) { out = cloneMap(st.events) })
	return out
}

// Profile returns the profile of a user
func (s *Store) Profile(userID uint) (models.Profile, bool) {
	var (
		out   models.Profile
		found bool
	)
	s.with(func(st *state) {
		for _, p := range st.profiles {
			if p.UserID == userID {
				out, found = p, true
				return
			}
		}
	})
	return out, found
}

// ---- users ----

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	var err error
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				err = repository.ErrDuplicate
				return
			}
		}
		now := r.s.now()
		user.ID = st.next("users")
		user.CreatedAt, user.UpdatedAt = now, now
		profile := models.Profile{}
		if user.Profile != nil {
			profile = *user.Profile
		}
		profile.ID = st.next("profiles")
		profile.UserID = user.ID
		user.Profile = &profile
		stored := *user
		stored.Profile = nil
		st.users[user.ID] = stored
		st.profiles[profile.ID] = profile
	})
	return err
}

func (r *userRepo) load(st *state, u models.User) *models.User {
	for _, p := range st.profiles {
		if p.UserID == u.ID {
			profile := p
			u.Profile = &profile
			break
		}
	}
	return &u
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var out *models.User
	r.s.with(func(st *state) {
		if u, ok := st.users[id]; ok {
			out = r.load(st, u)
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = r.load(st, u)
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *userRepo) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	taken := false
	r.s.with(func(st *state) {
		for _, u := range st.users {
			if u.ID != excludeID && strings.EqualFold(u.Email, email) {
				taken = true
				return
			}
		}
	})
	return taken, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	var err error
	r.s.with(func(st *state) {
		stored, ok := st.users[user.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		for _, u := range st.users {
			if u.ID != user.ID && strings.EqualFold(u.Email, user.Email) {
				err = repository.ErrDuplicate
				return
			}
		}
		stored.FirstName = user.FirstName
		stored.LastName = user.LastName
		stored.Email = user.Email
		stored.PasswordHash = user.PasswordHash
		stored.UpdatedAt = r.s.now()
		st.users[user.ID] = stored
	})
	return err
}

func (r *userRepo) GetProfileByResetToken(ctx context.Context, tokenHash string) (*models.Profile, error) {
	var out *models.Profile
	r.s.with(func(st *state) {
		if tokenHash == "" {
			return
		}
		for _, p := range st.profiles {
			if p.ResetPasswordToken == tokenHash {
				profile := p
				out = &profile
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *userRepo) SetResetToken(ctx context.Context, userID uint, tokenHash string, expire time.Time) error {
	r.s.with(func(st *state) {
		for id, p := range st.profiles {
			if p.UserID == userID {
				p.ResetPasswordToken = tokenHash
				p.ResetPasswordExpire = &expire
				st.profiles[id] = p
				return
			}
		}
		profile := models.Profile{ID: st.next("profiles"), UserID: userID, ResetPasswordToken: tokenHash, ResetPasswordExpire: &expire}
		st.profiles[profile.ID] = profile
	})
	return nil
}

func (r *userRepo) ConsumeResetToken(ctx context.Context, profileID uint, userID uint, tokenHash string, passwordHash string) error {
	var err error
	r.s.with(func(st *state) {
		p, ok := st.profiles[profileID]
		if !ok || tokenHash == "" || p.ResetPasswordToken != tokenHash {
			err = repository.ErrNotFound
			return
		}
		u, ok := st.users[userID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		u.PasswordHash = passwordHash
		st.users[userID] = u
		p.ResetPasswordToken = ""
		p.ResetPasswordExpire = nil
		st.profiles[profileID] = p
	})
	return err
}

// ---- products ----

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	r.s.with(func(st *state) {
		now := r.s.now()
		product.ID = st.next("products")
		product.CreatedAt, product.UpdatedAt = now, now
		stored := *product
		stored.Images, stored.Reviews, stored.User = nil, nil, nil
		st.products[product.ID] = stored
	})
	return nil
}

func (r *productRepo) load(st *state, p models.Product) models.Product {
	p.Images = nil
	for _, img := range sortedValues(st.images) {
		if img.ProductID == p.ID {
			p.Images = append(p.Images, img)
		}
	}
	p.Reviews = nil
	for _, rv := range sortedValues(st.reviews) {
		if rv.ProductID == p.ID {
			p.Reviews = append(p.Reviews, rv)
		}
	}
	return p
}

func (r *productRepo) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var out *models.Product
	r.s.with(func(st *state) {
		if p, ok := st.products[id]; ok {
			loaded := r.load(st, p)
			out = &loaded
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *productRepo) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	var matched []models.Product
	r.s.with(func(st *state) {
		for _, p := range sortedValues(st.products) {
			if filter.Keyword != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Keyword)) {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.Brand != "" && p.Brand != filter.Brand {
				continue
			}
			if filter.MinPrice != nil && p.Price < *filter.MinPrice {
				continue
			}
			if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
				continue
			}
			matched = append(matched, r.load(st, p))
		}
	})
	return paginate(matched, filter.Page, filter.PageSize, 5), int64(len(matched)), nil
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	var err error
	r.s.with(func(st *state) {
		stored, ok := st.products[product.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		stored.Name = product.Name
		stored.Description = product.Description
		stored.Price = product.Price
		stored.Brand = product.Brand
		stored.Category = product.Category
		stored.Stock = product.Stock
		stored.UpdatedAt = r.s.now()
		st.products[product.ID] = stored
	})
	return err
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.products[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		delete(st.products, id)
		for imgID, img := range st.images {
			if img.ProductID == id {
				delete(st.images, imgID)
			}
		}
		for rvID, rv := range st.reviews {
			if rv.ProductID == id {
				delete(st.reviews, rvID)
			}
		}
		for itemID, item := range st.items {
			if item.ProductID != nil && *item.ProductID == id {
				item.ProductID = nil
				st.items[itemID] = item
			}
		}
	})
	return err
}

func (r *productRepo) DecrementStock(ctx context.Context, id uint, quantity int) error {
	var err error
	r.s.with(func(st *state) {
		p, ok := st.products[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		p.Stock -= quantity
		st.products[id] = p
	})
	return err
}

func (r *productRepo) CreateImage(ctx context.Context, image *models.ProductImage) error {
	r.s.with(func(st *state) {
		image.ID = st.next("product_images")
		image.CreatedAt = r.s.now()
		st.images[image.ID] = *image
	})
	return nil
}

func (r *productRepo) GetImage(ctx context.Context, id uint) (*models.ProductImage, error) {
	var out *models.ProductImage
	r.s.with(func(st *state) {
		if img, ok := st.images[id]; ok {
			out = &img
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *productRepo) ListImages(ctx context.Context, productID uint) ([]models.ProductImage, error) {
	var out []models.ProductImage
	r.s.with(func(st *state) {
		for _, img := range sortedValues(st.images) {
			if img.ProductID == productID {
				out = append(out, img)
			}
		}
	})
	return out, nil
}

func (r *productRepo) DeleteImage(ctx context.Context, id uint) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.images[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		delete(st.images, id)
	})
	return err
}

func (r *productRepo) InventorySummary(ctx context.Context, lowStockThreshold int) (*repository.InventorySummary, error) {
	summary := &repository.InventorySummary{}
	r.s.with(func(st *state) {
		for _, p := range st.products {
			summary.Products++
			summary.TotalStock += int64(p.Stock)
			switch {
			case p.Stock <= 0:
				summary.OutOfStock++
			case p.Stock <= lowStockThreshold:
				summary.LowStock++
			}
		}
	})
	return summary, nil
}

// ---- reviews ----

type reviewRepo struct{ s *Store }

func (r *reviewRepo) GetByProductAndUser(ctx context.Context, productID, userID uint) (*models.Review, error) {
	var out *models.Review
	r.s.with(func(st *state) {
		for _, rv := range st.reviews {
			if rv.ProductID == productID && rv.UserID == userID {
				review := rv
				out = &review
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *reviewRepo) Create(ctx context.Context, review *models.Review) error {
	var err error
	r.s.with(func(st *state) {
		for _, rv := range st.reviews {
			if rv.ProductID == review.ProductID && rv.UserID == review.UserID {
				err = repository.ErrDuplicate
				return
			}
		}
		now := r.s.now()
		review.ID = st.next("reviews")
		review.CreatedAt, review.UpdatedAt = now, now
		st.reviews[review.ID] = *review
	})
	return err
}

func (r *reviewRepo) Update(ctx context.Context, review *models.Review) error {
	var err error
	r.s.with(func(st *state) {
		stored, ok := st.reviews[review.ID]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		stored.Rating = review.Rating
		stored.Comment = review.Comment
		stored.UpdatedAt = r.s.now()
		st.reviews[review.ID] = stored
	})
	return err
}

func (r *reviewRepo) Delete(ctx context.Context, id uint) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.reviews[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		delete(st.reviews, id)
	})
	return err
}

func (r *reviewRepo) RecomputeRating(ctx context.Context, productID uint) (float64, error) {
	var ratings float64
	r.s.with(func(st *state) {
		var sum, n int
		for _, rv := range st.reviews {
			if rv.ProductID == productID {
				sum += rv.Rating
				n++
			}
		}
		if n > 0 {
			ratings = float64(sum) / float64(n)
		}
		if p, ok := st.products[productID]; ok {
			p.Ratings = ratings
			st.products[productID] = p
		}
	})
	return ratings, nil
}

// ---- orders ----

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	var err error
	r.s.with(func(st *state) {
		if order.CheckoutSessionID != nil {
			for _, o := range st.orders {
				if o.CheckoutSessionID != nil && *o.CheckoutSessionID == *order.CheckoutSessionID {
					err = repository.ErrDuplicate
					return
				}
			}
		}
		now := r.s.now()
		order.ID = st.next("orders")
		order.CreatedAt, order.UpdatedAt = now, now
		stored := *order
		stored.Items = nil
		st.orders[order.ID] = stored
	})
	return err
}

func (r *orderRepo) CreateItem(ctx context.Context, item *models.OrderItem) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.orders[item.OrderID]; !ok {
			err = repository.ErrNotFound
			return
		}
		item.ID = st.next("order_items")
		item.CreatedAt = r.s.now()
		stored := *item
		stored.Product = nil
		st.items[item.ID] = stored
	})
	return err
}

func (r *orderRepo) load(st *state, o models.Order) models.Order {
	o.Items = nil
	for _, item := range sortedValues(st.items) {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	return o
}

func (r *orderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var out *models.Order
	r.s.with(func(st *state) {
		if o, ok := st.orders[id]; ok {
			loaded := r.load(st, o)
			out = &loaded
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *orderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	var matched []models.Order
	r.s.with(func(st *state) {
		for _, o := range sortedValues(st.orders) {
			if filter.UserID != nil && o.UserID != *filter.UserID {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			if filter.PaymentStatus != "" && string(o.PaymentStatus) != filter.PaymentStatus {
				continue
			}
			if filter.PaymentMode != "" && string(o.PaymentMode) != filter.PaymentMode {
				continue
			}
			matched = append(matched, r.load(st, o))
		}
	})
	return paginate(matched, filter.Page, filter.PageSize, 10), int64(len(matched)), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	var err error
	r.s.with(func(st *state) {
		o, ok := st.orders[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		o.Status = status
		o.UpdatedAt = r.s.now()
		st.orders[id] = o
	})
	return err
}

func (r *orderRepo) Delete(ctx context.Context, id uint) error {
	var err error
	r.s.with(func(st *state) {
		if _, ok := st.orders[id]; !ok {
			err = repository.ErrNotFound
			return
		}
		delete(st.orders, id)
		for itemID, item := range st.items {
			if item.OrderID == id {
				delete(st.items, itemID)
			}
		}
	})
	return err
}

func (r *orderRepo) ExistsByCheckoutSession(ctx context.Context, sessionID string) (bool, error) {
	exists := false
	r.s.with(func(st *state) {
		for _, o := range st.orders {
			if o.CheckoutSessionID != nil && *o.CheckoutSessionID == sessionID {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

// ---- webhook events ----

type eventRepo struct{ s *Store }

func (r *eventRepo) Record(ctx context.Context, event *models.WebhookEvent) error {
	r.s.with(func(st *state) {
		if existing, ok := st.events[event.EventID]; ok {
			existing.Result = event.Result
			existing.ProcessedAt = event.ProcessedAt
			st.events[event.EventID] = existing
			return
		}
		event.ID = st.next("webhook_events")
		st.events[event.EventID] = *event
	})
	return nil
}

// ---- helpers ----

func sortedValues[V any](m map[uint]V) []V {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func paginate[V any](rows []V, page, size, defaultSize int) []V {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []V{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
