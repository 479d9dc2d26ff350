package services

import (
	"context"
	"strings"
	"sync"

	"handoff-client/internal/models"
	"handoff-client/internal/repository"
	"handoff-client/internal/validation"

	"github.com/rs/zerolog/log"
)

// CategoryAll disables the category filter in Search.
const CategoryAll models.Category = "All"

// ProductStore caches the catalogue and wraps the product endpoints
type ProductStore struct {
	products  *repository.ProductRepository
	session   SessionSource
	validator *validation.Validator

	mu      sync.RWMutex
	catalog []models.Product
	loading bool
	lastErr string
	subs    listeners
}

// NewProductStore creates a store with an empty cache
func NewProductStore(products *repository.ProductRepository, session SessionSource, v *validation.Validator) *ProductStore {
	return &ProductStore{
		products:  products,
		session:   session,
		validator: v,
		catalog:   []models.Product{},
	}
}

// FetchProducts replaces the cache with the server's list. On failure the
// previous cache is kept. Concurrent calls are not coordinated: whichever
// response arrives last wins.
func (s *ProductStore) FetchProducts(ctx context.Context) error {
	s.begin()

	list, err := s.products.List(ctx)
	if err != nil {
		err = classifyPublic(err)
		log.Error().Err(err).Msg("Error fetching products")
		return s.fail(err, "Failed to fetch products")
	}

	s.mu.Lock()
	s.catalog = list
	s.loading = false
	s.mu.Unlock()
	s.subs.notify()

	log.Debug().Int("count", len(list)).Msg("Fetched products")
	return nil
}

// AddProduct submits a listing for moderation, then refetches the catalogue.
// The new product is only visible once that refetch has completed.
func (s *ProductStore) AddProduct(ctx context.Context, form models.ProductForm) error {
	session, ok := s.session.Session()
	if !ok {
		return s.fail(ErrAuthenticationRequired, "User not authenticated")
	}
	if err := s.validator.Struct(form); err != nil {
		return s.fail(invalid(err), "Failed to add product")
	}

	s.begin()
	created, err := s.products.Add(ctx, session.Token, repository.NewListing{
		Form:            form,
		SellerName:      session.User.FullName,
		SellerVarsityID: session.User.VarsityID,
	})
	if err != nil {
		err = classify(err)
		log.Error().Err(err).Str("varsity_id", session.User.VarsityID).Msg("Error adding product")
		return s.fail(err, "Failed to add product")
	}
	log.Info().
		Str("product_id", created.ID).
		Str("varsity_id", session.User.VarsityID).
		Msg("Product submitted")

	// The submission stands even if the refresh fails; LastError shows why
	// the list is stale.
	if err := s.FetchProducts(ctx); err != nil {
		log.Warn().Err(err).Msg("Refresh after add failed")
	}
	s.done()
	return nil
}

// ApproveProduct marks a product approved on the server and in the cache
func (s *ProductStore) ApproveProduct(ctx context.Context, productID string) error {
	return s.moderate(ctx, productID, models.StatusApproved)
}

// RejectProduct marks a product rejected on the server and in the cache
func (s *ProductStore) RejectProduct(ctx context.Context, productID string) error {
	return s.moderate(ctx, productID, models.StatusRejected)
}

func (s *ProductStore) moderate(ctx context.Context, productID string, status models.ProductStatus) error {
	fallback := "Failed to approve product"
	call := s.products.Approve
	if status == models.StatusRejected {
		fallback = "Failed to reject product"
		call = s.products.Reject
	}

	session, ok := s.session.Session()
	if !ok {
		return s.fail(ErrAuthenticationRequired, "Authentication token not found")
	}
	if !session.User.IsAdmin() {
		return s.fail(ErrNotPermitted, fallback)
	}

	s.begin()
	if err := call(ctx, session.Token, productID); err != nil {
		err = classify(err)
		log.Error().Err(err).Str("product_id", productID).Str("status", string(status)).Msg("Moderation failed")
		return s.fail(err, fallback)
	}

	s.mu.Lock()
	matched := false
	for i := range s.catalog {
		if s.catalog[i].ID == productID {
			s.catalog[i].Status = status
			matched = true
		}
	}
	s.loading = false
	s.mu.Unlock()
	s.subs.notify()

	log.Info().
		Str("product_id", productID).
		Str("status", string(status)).
		Bool("cached", matched).
		Msg("Product moderated")
	return nil
}

// DeleteProduct removes a listing. Owners and admins may delete; the server
// enforces which.
func (s *ProductStore) DeleteProduct(ctx context.Context, productID string) error {
	session, ok := s.session.Session()
	if !ok {
		return s.fail(ErrAuthenticationRequired, "Authentication token not found")
	}

	s.begin()
	if err := s.products.Delete(ctx, session.Token, productID); err != nil {
		err = classify(err)
		log.Error().Err(err).Str("product_id", productID).Msg("Delete failed")
		return s.fail(err, "Failed to delete product")
	}

	s.mu.Lock()
	kept := s.catalog[:0:0]
	for _, p := range s.catalog {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	s.catalog = kept
	s.loading = false
	s.mu.Unlock()
	s.subs.notify()

	log.Info().Str("product_id", productID).Msg("Product deleted")
	return nil
}

// AddRating posts a rating and refetches, since ratings are embedded in the
// product and cannot be merged locally without risking duplicates.
func (s *ProductStore) AddRating(ctx context.Context, productID string, form models.RatingForm) error {
	session, ok := s.session.Session()
	if !ok {
		return s.fail(ErrAuthenticationRequired, "Authentication token not found")
	}
	form.Comment = strings.TrimSpace(form.Comment)
	if err := s.validator.Struct(form); err != nil {
		return s.fail(invalid(err), "Failed to add rating")
	}

	s.begin()
	err := s.products.AddRating(ctx, session.Token, productID, repository.RatingRequest{
		BuyerID:   session.User.VarsityID,
		BuyerName: session.User.FullName,
		Rating:    form.Rating,
		Comment:   form.Comment,
	})
	if err != nil {
		err = classify(err)
		log.Error().Err(err).Str("product_id", productID).Msg("Error adding rating")
		return s.fail(err, "Failed to add rating")
	}

	if err := s.FetchProducts(ctx); err != nil {
		log.Warn().Err(err).Msg("Refresh after rating failed")
	}
	s.done()
	return nil
}

// GetProductByID looks a product up in the cache only.
func (s *ProductStore) GetProductByID(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.catalog {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// Products returns a copy of the cache.
func (s *ProductStore) Products() []models.Product {
	return s.filter(func(models.Product) bool { return true })
}

// Pending returns products awaiting moderation.
func (s *ProductStore) Pending() []models.Product {
	return s.filter(func(p models.Product) bool { return p.Status == models.StatusPending })
}

// Approved returns products visible to buyers.
func (s *ProductStore) Approved() []models.Product {
	return s.filter(func(p models.Product) bool { return p.Status == models.StatusApproved })
}

// Mine returns the signed-in user's listings, in any status.
func (s *ProductStore) Mine() []models.Product {
	session, ok := s.session.Session()
	if !ok {
		return []models.Product{}
	}
	return s.filter(func(p models.Product) bool { return p.SellerVarsityID == session.User.VarsityID })
}

// Search matches approved products by title substring (case-insensitive)
// and category. An empty query or CategoryAll disables that filter.
func (s *ProductStore) Search(query string, category models.Category) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.filter(func(p models.Product) bool {
		if p.Status != models.StatusApproved {
			return false
		}
		if category != "" && category != CategoryAll && p.Category != category {
			return false
		}
		return q == "" || strings.Contains(strings.ToLower(p.Title), q)
	})
}

// CanModerate reports whether approve/reject controls should be shown.
func (s *ProductStore) CanModerate() bool {
	session, ok := s.session.Session()
	return ok && session.User.IsAdmin()
}

func (s *ProductStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *ProductStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Subscribe registers fn to run after every state change.
func (s *ProductStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.subs.add(fn)
}

// Reset empties the cache and clears flags. For tests.
func (s *ProductStore) Reset() {
	s.mu.Lock()
	s.catalog = []models.Product{}
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *ProductStore) filter(keep func(models.Product) bool) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.catalog))
	for _, p := range s.catalog {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *ProductStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	s.subs.notify()
}

func (s *ProductStore) done() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	s.subs.notify()
}

func (s *ProductStore) fail(err error, fallback string) error {
	s.mu.Lock()
	s.lastErr = Message(err, fallback)
	s.loading = false
	s.mu.Unlock()
	s.subs.notify()
	return err
}
