package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"handoff-client/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second)
}

func TestLoginDecodesResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "x@cse.bubt.edu.bd" || body["password"] != "secret" {
			t.Errorf("unexpected login body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":       map[string]string{"varsityId": "1", "name": "X", "email": "x@cse.bubt.edu.bd", "role": "admin"},
			"token":      "tok",
			"isVerified": true,
		})
	})

	resp, err := NewUserRepository(client, "").Login(context.Background(), "x@cse.bubt.edu.bd", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "tok" || !resp.IsVerified || resp.User.DisplayName() != "X" || resp.User.Role != models.RoleAdmin {
		t.Fatalf("unexpected login response: %+v", resp)
	}
}

func TestAPIErrorUsesMessageField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	_, err := NewUserRepository(client, "").Login(context.Background(), "a@b.c", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestAPIErrorFallsBackToPlainText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := NewProductRepository(client).List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "upstream down" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestTransportFailureIsMarked(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewProductRepository(NewClient(url, time.Second)).List(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestAddSendsMultipartWithBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/add" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for field, want := range map[string]string{
			"title":           "Bike",
			"price":           "1500.5",
			"category":        "Bike",
			"sellerName":      "John",
			"sellerVarsityId": "22235103001",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("field %s = %q, want %q", field, got, want)
			}
		}
		files := r.MultipartForm.File["images"]
		if len(files) != 2 {
			t.Errorf("expected 2 images, got %d", len(files))
		} else {
			f, _ := files[1].Open()
			data, _ := io.ReadAll(f)
			f.Close()
			if string(data) != "png-bytes" || files[1].Header.Get("Content-Type") != "image/png" {
				t.Errorf("unexpected second image: %q %q", data, files[1].Header.Get("Content-Type"))
			}
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"p1","title":"Bike","status":"pending"}`))
	})

	product, err := NewProductRepository(client).Add(context.Background(), "tok", NewListing{
		Form: models.ProductForm{
			Title:       "Bike",
			Description: "Fast",
			Price:       1500.5,
			Category:    models.CategoryBike,
			Location:    "Dhaka",
			Images: []models.ImageFile{
				{Name: "a.jpg", Data: []byte("jpg-bytes")},
				{Name: "b.png", ContentType: "image/png", Data: []byte("png-bytes")},
			},
		},
		SellerName:      "John",
		SellerVarsityID: "22235103001",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if product.ID != "p1" || product.Status != models.StatusPending {
		t.Fatalf("unexpected product: %+v", product)
	}
}

func TestModerationAndRatingPaths(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	repo := NewProductRepository(client)
	ctx := context.Background()

	if err := repo.Approve(ctx, "tok", "p1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := repo.Reject(ctx, "tok", "p2"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := repo.Delete(ctx, "tok", "p3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.AddRating(ctx, "tok", "p4", RatingRequest{BuyerID: "b", Rating: 4, Comment: "ok"}); err != nil {
		t.Fatalf("rate: %v", err)
	}

	want := []string{
		"PATCH /api/products/approve/p1",
		"PATCH /api/products/reject/p2",
		"DELETE /api/products/p3",
		"POST /api/products/p4/ratings",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("unexpected calls: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestVerifyRequiresVerifiedFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"verified":false,"message":"expired"}`))
	})
	ok, err := NewUserRepository(client, "").VerifyEmail(context.Background(), "x@cse.bubt.edu.bd", "123456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected verified=false")
	}
}
