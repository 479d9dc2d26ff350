// Package mockapi is an in-memory stand-in for the marketplace backend. It
// serves the same REST surface so the client can be exercised offline.
package mockapi

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"handoff-client/internal/config"
	"handoff-client/internal/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeLength = 6
	codeChars  = "0123456789"
)

type account struct {
	user         models.User
	passwordHash []byte
	verified     bool
}

func (a *account) isAdmin() bool {
	return a.user.Role == models.RoleAdmin
}

type upload struct {
	contentType string
	data        []byte
}

// Server holds all backend state in memory
type Server struct {
	router    chi.Router
	jwtSecret string
	admins    map[string]bool
	now       func() time.Time

	mu          sync.RWMutex
	accounts    map[string]*account // key: lower-cased email
	byVarsity   map[string]string   // varsity ID -> email key
	verifyCodes map[string]string   // email key -> registration code
	resetCodes  map[string]string   // email key -> password reset code
	products    []*models.Product
	uploads     map[string]upload
}

// New creates a mock backend from cfg
func New(cfg config.MockConfig) *Server {
	s := &Server{
		jwtSecret:   cfg.JWTSecret,
		admins:      make(map[string]bool, len(cfg.Admins)),
		now:         time.Now,
		accounts:    make(map[string]*account),
		byVarsity:   make(map[string]string),
		verifyCodes: make(map[string]string),
		resetCodes:  make(map[string]string),
		uploads:     make(map[string]upload),
	}
	for _, id := range cfg.Admins {
		s.admins[id] = true
	}
	s.router = s.routes()

	if cfg.Seed {
		if err := s.seed(); err != nil {
			log.Error().Err(err).Msg("Failed to seed mock backend")
		}
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	// The deployed backend served registration without the /api prefix for a
	// while; both paths are accepted.
	r.Post("/register", s.register)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Post("/verify-email", s.verifyEmail)
		r.Post("/password/forgot", s.forgotPassword)
		r.Post("/password/verify-code", s.verifyResetCode)
		r.Post("/password/reset", s.resetPassword)
		r.Get("/user/varsity/{varsityId}", s.phoneByVarsityID)
		r.Get("/products", s.listProducts)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Patch("/user/profile", s.updateProfile)
			r.Post("/products/add", s.addProduct)
			r.Delete("/products/{id}", s.deleteProduct)
			r.Post("/products/{id}/ratings", s.addRating)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Patch("/products/approve/{id}", s.moderate(models.StatusApproved))
				r.Patch("/products/reject/{id}", s.moderate(models.StatusRejected))
			})
		})
	})

	r.Get("/uploads/{name}", s.serveUpload)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// CreateAccount registers an account directly, skipping the email step when
// verified is true. Varsity IDs listed as admins get the admin role.
func (s *Server) CreateAccount(user models.User, password string, verified bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(user.Email)
	if _, ok := s.accounts[key]; ok {
		return fmt.Errorf("email already registered: %s", user.Email)
	}
	if _, ok := s.byVarsity[user.VarsityID]; ok {
		return fmt.Errorf("varsity ID already registered: %s", user.VarsityID)
	}

	switch {
	case s.admins[user.VarsityID]:
		user.Role = models.RoleAdmin
	case user.Role == "":
		user.Role = models.RoleUser
	}
	s.accounts[key] = &account{user: user, passwordHash: hash, verified: verified}
	s.byVarsity[user.VarsityID] = key
	return nil
}

// AddProduct stores p as-is, assigning an ID and timestamp when missing
func (s *Server) AddProduct(p models.Product) models.Product {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	if p.Status == "" {
		p.Status = models.StatusPending
	}
	if p.Ratings == nil {
		p.Ratings = []models.Rating{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := p
	s.products = append(s.products, &stored)
	return p
}

// VerificationCode returns the pending registration code for email
func (s *Server) VerificationCode(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.verifyCodes[emailKey(email)]
	return code, ok
}

// ResetCode returns the pending password reset code for email
func (s *Server) ResetCode(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.resetCodes[emailKey(email)]
	return code, ok
}

func (s *Server) accountByVarsity(id string) (account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byVarsity[id]
	if !ok {
		return account{}, false
	}
	return *s.accounts[key], true
}

func (s *Server) seed() error {
	accounts := []struct {
		user     models.User
		password string
	}{
		{models.User{VarsityID: "22235103001", FullName: "Handoff Admin", Email: "admin@cse.bubt.edu.bd", PhoneNumber: "+8801700000001", Role: models.RoleAdmin}, "admin123"},
		{models.User{VarsityID: "22235103002", FullName: "Rahim Uddin", Email: "rahim@cse.bubt.edu.bd", PhoneNumber: "+8801700000002"}, "secret1"},
	}
	for _, a := range accounts {
		if err := s.CreateAccount(a.user, a.password, true); err != nil {
			return err
		}
	}

	seller := accounts[1].user
	s.AddProduct(models.Product{
		Title: "Casio fx-991EX", Description: "Scientific calculator, barely used",
		Price: 1200, Category: models.CategoryOthers, Location: "Mirpur",
		SellerID: seller.VarsityID, SellerName: seller.FullName, SellerVarsityID: seller.VarsityID,
		Status: models.StatusApproved,
	})
	s.AddProduct(models.Product{
		Title: "Data Structures textbook", Description: "Cormen, 3rd edition",
		Price: 650, Category: models.CategoryBook, Location: "Campus library",
		SellerID: seller.VarsityID, SellerName: seller.FullName, SellerVarsityID: seller.VarsityID,
	})

	log.Info().Int("accounts", len(accounts)).Msg("Mock backend seeded")
	return nil
}

// generateCode generates a random 6-digit code
func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Msg("Request served")
	})
}
