package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"commerce-service/internal/cache"
	"commerce-service/internal/email"
	"commerce-service/internal/models"
	"commerce-service/internal/payments/paymentstest"
	"commerce-service/internal/repository/repotest"
	"commerce-service/internal/storage"
)

const testWebhookSecret = "whsec_test_secret"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []email.Message
	err      error
}

func (m *recordingMailer) Send(ctx context.Context, message *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, *message)
	return nil
}

func (m *recordingMailer) GetName() string { return "recording" }

func (m *recordingMailer) last() email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[len(m.messages)-1]
}

type recordedEvent struct {
	Type  string
	Order models.Order
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishOrder(ctx context.Context, eventType string, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Order: *order})
	return nil
}

func (p *recordingPublisher) published() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

// memoryCache is a map backed cache.Cache
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deletes++
	}
	return nil
}

func (c *memoryCache) Ping(ctx context.Context) error { return nil }
func (c *memoryCache) Close() error                   { return nil }

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// testEnv wires every service over one in-memory store
type testEnv struct {
	store     *repotest.Store
	cache     *memoryCache
	mailer    *recordingMailer
	publisher *recordingPublisher
	gateway   *paymentstest.Gateway

	passwords *PasswordService
	jwt       *JWTService
	accounts  *AccountService
	catalog   *CatalogService
	reviews   *ReviewService
	orders    *OrderService
	checkout  *CheckoutService
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) GetProviderName() string { return "fake" }

func newTestEnv() *testEnv {
	return newTestEnvWithStorage(newFakeStorage())
}

func newTestEnvWithStorage(provider storage.Provider) *testEnv {
	logger := quietLogger()
	env := &testEnv{
		store:     repotest.NewStore(),
		cache:     newMemoryCache(),
		mailer:    &recordingMailer{},
		publisher: &recordingPublisher{},
		gateway:   paymentstest.NewGateway(testWebhookSecret),
		passwords: NewPasswordService(bcrypt.MinCost),
		jwt:       NewJWTService("test-secret", "commerce-service", time.Hour),
	}
	env.accounts = NewAccountService(env.store, env.passwords, env.jwt, env.mailer, logger)
	env.catalog = NewCatalogService(env.store, provider, env.cache, time.Minute, logger)
	env.reviews = NewReviewService(env.store, env.catalog, logger)
	env.orders = NewOrderService(env.store, env.catalog, env.publisher, logger)
	env.checkout = NewCheckoutService(env.store, env.gateway, env.orders, CheckoutConfig{
		Currency:    "usd",
		FrontendURL: "https://shop.example.com",
	}, logger)
	return env
}

func (e *testEnv) seedUser(emailAddr string, admin bool) models.User {
	hash, _ := e.passwords.HashPassword("secret123")
	return e.store.SeedUser(models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        emailAddr,
		PasswordHash: hash,
		IsAdmin:      admin,
	})
}

func (e *testEnv) seedProduct(ownerID uint, name string, price int64, stock int) models.Product {
	return e.store.SeedProduct(models.Product{
		Name:        name,
		Description: name + " description",
		Price:       price,
		Brand:       "Acme",
		Category:    "Electronics",
		Stock:       stock,
		UserID:      ownerID,
	})
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func shipping() models.ShippingDetails {
	return models.ShippingDetails{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		PhoneNo: "5551234",
		Country: "US",
	}
}
