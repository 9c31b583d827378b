package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"commerce-service/internal/cache"
	"commerce-service/internal/email"
	"commerce-service/internal/events"
	"commerce-service/internal/middleware"
	"commerce-service/internal/models"
	"commerce-service/internal/payments/paymentstest"
	"commerce-service/internal/repository/repotest"
	"commerce-service/internal/services"
)

const webhookSecret = "whsec_handler_test"

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu       sync.Mutex
	messages []email.Message
}

func (o *outbox) Send(ctx context.Context, message *email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, *message)
	return nil
}

func (o *outbox) GetName() string { return "outbox" }

type memoryBlobs struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryBlobs) Upload(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = contentType
	return "https://media.example.com/" + key, nil
}

func (m *memoryBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memoryBlobs) GetProviderName() string { return "memory" }

type apiEnv struct {
	router    *gin.Engine
	store     *repotest.Store
	gateway   *paymentstest.Gateway
	mail      *outbox
	blobs     *memoryBlobs
	jwt       *services.JWTService
	passwords *services.PasswordService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &apiEnv{
		store:     repotest.NewStore(),
		gateway:   paymentstest.NewGateway(webhookSecret),
		mail:      &outbox{},
		blobs:     &memoryBlobs{keys: map[string]string{}},
		jwt:       services.NewJWTService("handler-secret", "commerce-service", time.Hour),
		passwords: services.NewPasswordService(bcrypt.MinCost),
	}

	accounts := services.NewAccountService(env.store, env.passwords, env.jwt, env.mail, logger)
	catalog := services.NewCatalogService(env.store, env.blobs, cache.NewNoOpCache(), time.Minute, logger)
	reviews := services.NewReviewService(env.store, catalog, logger)
	orders := services.NewOrderService(env.store, catalog, events.NoOpPublisher{}, logger)
	checkout := services.NewCheckoutService(env.store, env.gateway, orders, services.CheckoutConfig{Currency: "usd"}, logger)

	env.router = gin.New()
	api := env.router.Group("/api")
	(&Router{
		Accounts: NewAccountHandler(accounts, logger),
		Products: NewProductHandler(catalog, reviews, logger),
		Orders:   NewOrderHandler(orders, checkout, logger),
		Auth:     middleware.NewAuthMiddleware(env.jwt, accounts),
	}).Register(api)

	health := NewHealthHandler("test", env.store, cache.NewNoOpCache())
	env.router.GET("/health", health.Health)
	env.router.GET("/ready", health.Ready)
	return env
}

func (e *apiEnv) seedUser(t *testing.T, emailAddr string, admin bool) (models.User, string) {
	t.Helper()
	hash, err := e.passwords.HashPassword("secret123")
	require.NoError(t, err)
	user := e.store.SeedUser(models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        emailAddr,
		PasswordHash: hash,
		IsAdmin:      admin,
	})
	token, err := e.jwt.GenerateAccessToken(&user)
	require.NoError(t, err)
	return user, token
}

func (e *apiEnv) seedProduct(ownerID uint, name string, price int64, stock int) models.Product {
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

// do sends a JSON request, authenticated when token is not empty
func (e *apiEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func shippingJSON() map[string]interface{} {
	return map[string]interface{}{
		"street":   "1 Main St",
		"city":     "Springfield",
		"state":    "IL",
		"zip_code": "62701",
		"phone_no": "5551234",
		"country":  "US",
	}
}
