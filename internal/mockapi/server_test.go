package mockapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"handoff-client/internal/config"
	"handoff-client/internal/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(config.MockConfig{JWTSecret: "test-secret", Admins: []string{"admin-1"}})
	if err := s.CreateAccount(models.User{VarsityID: "admin-1", FullName: "Admin", Email: "admin@cse.bubt.edu.bd"}, "adminpw", true); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := s.CreateAccount(models.User{VarsityID: "user-1", FullName: "Seller", Email: "seller@cse.bubt.edu.bd", PhoneNumber: "+880 1711-000000"}, "sellerpw", true); err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return s
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, s *Server, varsityID string) string {
	t.Helper()
	token, err := s.GenerateJWT(varsityID)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestJWTRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := tokenFor(t, s, "user-1")

	got, err := s.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if got != "user-1" {
		t.Fatalf("expected user-1, got %q", got)
	}

	other := New(config.MockConfig{JWTSecret: "other"})
	if _, err := other.ValidateJWT(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	s := newTestServer(t)
	email := "x@cse.bubt.edu.bd"

	rec := call(t, s, http.MethodPost, "/api/register", "", map[string]string{
		"varsityId": "v-9", "fullName": "New Student", "email": email, "password": "secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	rec = call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "secret"})
	var login loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if rec.Code != http.StatusOK || login.IsVerified || login.Token != "" {
		t.Fatalf("expected unverified login without token, got %d %+v", rec.Code, login)
	}

	code, ok := s.VerificationCode(email)
	if !ok || len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	rec = call(t, s, http.MethodPost, "/api/verify-email", "", map[string]string{"email": email, "code": code})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d", rec.Code)
	}

	rec = call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "secret"})
	login = loginResponse{}
	_ = json.NewDecoder(rec.Body).Decode(&login)
	if !login.IsVerified || login.Token == "" || login.User.Role != models.RoleUser {
		t.Fatalf("expected verified login, got %+v", login)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestServer(t)
	rec := call(t, s, http.MethodPost, "/register", "", map[string]string{
		"varsityId": "other", "fullName": "Dup", "email": "SELLER@cse.bubt.edu.bd", "password": "secret",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	rec := call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": "seller@cse.bubt.edu.bd", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Fatalf("expected message field, got %s", rec.Body)
	}
}

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t)
	email := "seller@cse.bubt.edu.bd"

	if rec := call(t, s, http.MethodPost, "/api/password/forgot", "", map[string]string{"email": email}); rec.Code != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d", rec.Code)
	}
	code, _ := s.ResetCode(email)

	if rec := call(t, s, http.MethodPost, "/api/password/verify-code", "", map[string]string{"email": email, "code": "000000x"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad code: expected 400, got %d", rec.Code)
	}
	if rec := call(t, s, http.MethodPost, "/api/password/verify-code", "", map[string]string{"email": email, "code": code}); rec.Code != http.StatusOK {
		t.Fatalf("verify-code: expected 200, got %d", rec.Code)
	}
	rec := call(t, s, http.MethodPost, "/api/password/reset", "", map[string]string{"email": email, "code": code, "password": "newpass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", rec.Code)
	}

	if rec := call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "newpass"}); rec.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rec.Code)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t)
	if rec := call(t, s, http.MethodPatch, "/api/user/profile", "", map[string]string{"phoneNumber": "123"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec := call(t, s, http.MethodPatch, "/api/user/profile", tokenFor(t, s, "user-1"), map[string]string{"phoneNumber": "01799999999"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = call(t, s, http.MethodGet, "/api/user/varsity/user-1", "", nil)
	if !strings.Contains(rec.Body.String(), "01799999999") {
		t.Fatalf("expected updated phone, got %s", rec.Body)
	}
}

func TestAddProductMultipart(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"title": "Bike", "description": "Good", "price": "5000", "category": "Bike", "location": "Dhaka",
	} {
		_ = mw.WriteField(k, v)
	}
	part, _ := mw.CreateFormFile("images", "bike.png")
	_, _ = part.Write([]byte("png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/products/add", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, s, "user-1"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var p models.Product
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Status != models.StatusPending || p.SellerVarsityID != "user-1" || len(p.Images) != 1 {
		t.Fatalf("unexpected product: %+v", p)
	}

	rec = call(t, s, http.MethodGet, p.Images[0], "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Fatalf("expected stored upload, got %d %q", rec.Code, rec.Body)
	}
}

func TestModerationRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	p := s.AddProduct(models.Product{Title: "Phone", SellerVarsityID: "user-1"})

	rec := call(t, s, http.MethodPatch, "/api/products/approve/"+p.ID, tokenFor(t, s, "user-1"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec = call(t, s, http.MethodPatch, "/api/products/approve/"+p.ID, tokenFor(t, s, "admin-1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
	rec = call(t, s, http.MethodPatch, "/api/products/reject/missing", tokenFor(t, s, "admin-1"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var list []models.Product
	_ = json.NewDecoder(call(t, s, http.MethodGet, "/api/products", "", nil).Body).Decode(&list)
	if len(list) != 1 || list[0].Status != models.StatusApproved {
		t.Fatalf("expected approved product, got %+v", list)
	}
}

func TestDeleteOwnership(t *testing.T) {
	s := newTestServer(t)
	if err := s.CreateAccount(models.User{VarsityID: "user-2", Email: "b@cse.bubt.edu.bd"}, "secret", true); err != nil {
		t.Fatalf("create: %v", err)
	}
	p := s.AddProduct(models.Product{Title: "Book", SellerVarsityID: "user-1"})

	if rec := call(t, s, http.MethodDelete, "/api/products/"+p.ID, tokenFor(t, s, "user-2"), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := call(t, s, http.MethodDelete, "/api/products/"+p.ID, tokenFor(t, s, "user-1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := call(t, s, http.MethodDelete, "/api/products/"+p.ID, tokenFor(t, s, "admin-1"), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestAddRating(t *testing.T) {
	s := newTestServer(t)
	p := s.AddProduct(models.Product{Title: "Laptop", Status: models.StatusApproved})
	token := tokenFor(t, s, "user-1")

	if rec := call(t, s, http.MethodPost, "/api/products/"+p.ID+"/ratings", token, map[string]any{"rating": 6, "comment": "x"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range rating, got %d", rec.Code)
	}
	if rec := call(t, s, http.MethodPost, "/api/products/"+p.ID+"/ratings", token, map[string]any{"rating": 4, "comment": "Nice"}); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var list []models.Product
	_ = json.NewDecoder(call(t, s, http.MethodGet, "/api/products", "", nil).Body).Decode(&list)
	if len(list[0].Ratings) != 1 || list[0].Ratings[0].BuyerName != "Seller" {
		t.Fatalf("expected rating with buyer name, got %+v", list[0].Ratings)
	}
}

func TestSeed(t *testing.T) {
	s := New(config.MockConfig{JWTSecret: "x", Seed: true})
	var list []models.Product
	_ = json.NewDecoder(call(t, s, http.MethodGet, "/api/products", "", nil).Body).Decode(&list)
	if len(list) == 0 {
		t.Fatalf("expected seeded products")
	}
	if rec := call(t, s, http.MethodPost, "/api/login", "", map[string]string{"email": "admin@cse.bubt.edu.bd", "password": "admin123"}); rec.Code != http.StatusOK {
		t.Fatalf("expected seeded admin login, got %d", rec.Code)
	}
}
