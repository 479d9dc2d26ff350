package mockapi

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"handoff-client/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxUploadSize   = 10 << 20
	maxImages       = 2
	defaultMIMEType = "image/jpeg"
)

type ratingRequest struct {
	BuyerID   string `json:"buyerId"`
	BuyerName string `json:"buyerName"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// listProducts handles GET /api/products. Every status is returned; the
// client filters.
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, cloneProduct(p))
	}
	s.mu.RUnlock()

	respondJSON(w, http.StatusOK, out)
}

// addProduct handles POST /api/products/add
func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	location := strings.TrimSpace(r.FormValue("location"))
	category := models.Category(r.FormValue("category"))
	if title == "" || description == "" || location == "" {
		respondError(w, "Please fill in all fields", http.StatusBadRequest)
		return
	}
	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil || price <= 0 {
		respondError(w, "Please enter a valid price", http.StatusBadRequest)
		return
	}
	if !slices.Contains(models.Categories, category) {
		respondError(w, "Please select a category", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, "Please select at least one image", http.StatusBadRequest)
		return
	}
	if len(files) > maxImages {
		respondError(w, "You can only upload 2 images", http.StatusBadRequest)
		return
	}

	images := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(w, "Failed to read image", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, "Failed to read image", http.StatusBadRequest)
			return
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = defaultMIMEType
		}
		name := uuid.New().String() + path.Ext(fh.Filename)
		s.mu.Lock()
		s.uploads[name] = upload{contentType: contentType, data: data}
		s.mu.Unlock()
		images = append(images, "/uploads/"+name)
	}

	id := varsityID(r.Context())
	acc, _ := s.accountByVarsity(id)
	sellerName := strings.TrimSpace(r.FormValue("sellerName"))
	if sellerName == "" {
		sellerName = acc.user.FullName
	}

	product := s.AddProduct(models.Product{
		Title:           title,
		Description:     description,
		Price:           price,
		Category:        category,
		Location:        location,
		Images:          images,
		SellerID:        id,
		SellerName:      sellerName,
		SellerVarsityID: id,
		Status:          models.StatusPending,
	})

	log.Info().
		Str("product_id", product.ID).
		Str("varsity_id", id).
		Int("images", len(images)).
		Msg("Product submitted")
	respondJSON(w, http.StatusCreated, product)
}

// moderate returns the handler for PATCH /api/products/{approve|reject}/{id}
func (s *Server) moderate(status models.ProductStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "id")

		s.mu.Lock()
		p := s.findLocked(productID)
		var out models.Product
		if p != nil {
			p.Status = status
			out = cloneProduct(p)
		}
		s.mu.Unlock()

		if p == nil {
			respondError(w, "Product not found", http.StatusNotFound)
			return
		}

		log.Info().
			Str("product_id", productID).
			Str("status", string(status)).
			Str("admin", varsityID(r.Context())).
			Msg("Product moderated")
		respondJSON(w, http.StatusOK, out)
	}
}

// deleteProduct handles DELETE /api/products/{id}. Sellers may delete their
// own listings; admins may delete any.
func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	id := varsityID(r.Context())
	acc, _ := s.accountByVarsity(id)

	s.mu.Lock()
	idx := slices.IndexFunc(s.products, func(p *models.Product) bool { return p.ID == productID })
	status := http.StatusOK
	switch {
	case idx < 0:
		status = http.StatusNotFound
	case s.products[idx].SellerVarsityID != id && !acc.isAdmin():
		status = http.StatusForbidden
	default:
		s.products = slices.Delete(s.products, idx, idx+1)
	}
	s.mu.Unlock()

	switch status {
	case http.StatusNotFound:
		respondError(w, "Product not found", status)
	case http.StatusForbidden:
		respondError(w, "You can only delete your own products", status)
	default:
		log.Info().Str("product_id", productID).Str("varsity_id", id).Msg("Product deleted")
		respondJSON(w, status, map[string]string{"message": "Product deleted"})
	}
}

// addRating handles POST /api/products/{id}/ratings
func (s *Server) addRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Comment) == "" {
		respondError(w, "Please write a comment", http.StatusBadRequest)
		return
	}

	id := varsityID(r.Context())
	rating := models.Rating{
		ID:        uuid.New().String(),
		BuyerID:   id,
		BuyerName: req.BuyerName,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: s.now().UTC(),
	}
	if rating.BuyerName == "" {
		acc, _ := s.accountByVarsity(id)
		rating.BuyerName = acc.user.FullName
	}

	productID := chi.URLParam(r, "id")
	s.mu.Lock()
	p := s.findLocked(productID)
	if p != nil {
		p.Ratings = append(p.Ratings, rating)
	}
	s.mu.Unlock()

	if p == nil {
		respondError(w, "Product not found", http.StatusNotFound)
		return
	}

	log.Info().
		Str("product_id", productID).
		Int("rating", rating.Rating).
		Msg("Rating added")
	respondJSON(w, http.StatusCreated, map[string]any{"message": "Rating added", "rating": rating})
}

// serveUpload handles GET /uploads/{name}
func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	u, ok := s.uploads[chi.URLParam(r, "name")]
	s.mu.RUnlock()
	if !ok {
		respondError(w, "Image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", u.contentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(u.data)))
	_, _ = w.Write(u.data)
}

func (s *Server) findLocked(id string) *models.Product {
	for _, p := range s.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func cloneProduct(p *models.Product) models.Product {
	out := *p
	out.Images = slices.Clone(p.Images)
	out.Ratings = slices.Clone(p.Ratings)
	if out.Ratings == nil {
		out.Ratings = []models.Rating{}
	}
	return out
}
