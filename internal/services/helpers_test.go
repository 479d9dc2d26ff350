package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"handoff-client/internal/config"
	"handoff-client/internal/mockapi"
	"handoff-client/internal/models"
	"handoff-client/internal/repository"
	"handoff-client/internal/storage"
	"handoff-client/internal/validation"
)

const (
	adminEmail  = "admin@cse.bubt.edu.bd"
	sellerEmail = "seller@cse.bubt.edu.bd"
)

type testEnv struct {
	api      *mockapi.Server
	kv       storage.KeyValue
	users    *repository.UserRepository
	auth     *AuthStore
	products *ProductStore
	contact  *ContactService
}

func testValidator(t *testing.T) *validation.Validator {
	t.Helper()
	v, err := validation.New(config.DefaultEmailPattern)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return v
}

// newEnv wires every store against a mock backend with one admin and one seller.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	api := mockapi.New(config.MockConfig{JWTSecret: "test-secret", Admins: []string{"admin-1"}})
	mustCreate(t, api, models.User{VarsityID: "admin-1", FullName: "Admin", Email: adminEmail}, "adminpw", true)
	mustCreate(t, api, models.User{VarsityID: "seller-1", FullName: "Seller", Email: sellerEmail, PhoneNumber: "+880 1711-000000"}, "sellerpw", true)

	env := newEnvWithHandler(t, api)
	env.api = api
	return env
}

// newEnvWithHandler wires the stores against an arbitrary backend handler.
func newEnvWithHandler(t *testing.T, h http.Handler) *testEnv {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newEnvAt(t, srv.URL)
}

func newEnvAt(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	client := repository.NewClient(baseURL, 2*time.Second)
	users := repository.NewUserRepository(client, "/api/register")
	kv := storage.NewMemoryStorage()
	v := testValidator(t)
	auth := NewAuthStore(users, kv, v)
	return &testEnv{
		kv:       kv,
		users:    users,
		auth:     auth,
		products: NewProductStore(repository.NewProductRepository(client), auth, v),
		contact:  NewContactService(users),
	}
}

func mustCreate(t *testing.T, api *mockapi.Server, u models.User, password string, verified bool) {
	t.Helper()
	if err := api.CreateAccount(u, password, verified); err != nil {
		t.Fatalf("create account %s: %v", u.Email, err)
	}
}

func (e *testEnv) login(t *testing.T, email, password string) {
	t.Helper()
	if err := e.auth.Login(context.Background(), email, password); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
}

// staticSession is a SessionSource with a fixed session.
type staticSession struct {
	session models.Session
	ok      bool
}

func (s staticSession) Session() (models.Session, bool) {
	return s.session, s.ok
}

func asAdmin() staticSession {
	return staticSession{ok: true, session: models.Session{
		Token: "admin-token",
		User:  models.User{VarsityID: "admin-1", FullName: "Admin", Role: models.RoleAdmin},
	}}
}

func asUser() staticSession {
	return staticSession{ok: true, session: models.Session{
		Token: "user-token",
		User:  models.User{VarsityID: "seller-1", FullName: "Seller", Role: models.RoleUser},
	}}
}

// productStoreFor builds a ProductStore with a fixed session against h.
func productStoreFor(t *testing.T, h http.Handler, session SessionSource) *ProductStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := repository.NewClient(srv.URL, 2*time.Second)
	return NewProductStore(repository.NewProductRepository(client), session, testValidator(t))
}

// countingHandler counts requests and answers each with status.
func countingHandler(calls *atomic.Int32, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func imageForm() models.ProductForm {
	return models.ProductForm{
		Title:       "Mountain bike",
		Description: "21 gears, new tyres",
		Price:       8500,
		Category:    models.CategoryBike,
		Location:    "Mirpur 2",
		Images:      []models.ImageFile{{Name: "bike.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
	}
}
