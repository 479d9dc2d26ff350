package repository

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"handoff-client/internal/models"
)

// ProductRepository handles product endpoints of the backend
type ProductRepository struct {
	client *Client
}

// NewProductRepository creates a new product repository
func NewProductRepository(client *Client) *ProductRepository {
	return &ProductRepository{client: client}
}

// NewListing is a product submission with the seller fields filled in
type NewListing struct {
	Form            models.ProductForm
	SellerName      string
	SellerVarsityID string
}

// RatingRequest is the body of a rating submission
type RatingRequest struct {
	BuyerID   string `json:"buyerId"`
	BuyerName string `json:"buyerName"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// List handles GET /api/products
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.client.doJSON(ctx, http.MethodGet, "/api/products", "", nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Add handles POST /api/products/add as a multipart upload
func (r *ProductRepository) Add(ctx context.Context, token string, listing NewListing) (*models.Product, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"title", listing.Form.Title},
		{"description", listing.Form.Description},
		{"price", strconv.FormatFloat(listing.Form.Price, 'f', -1, 64)},
		{"category", string(listing.Form.Category)},
		{"location", listing.Form.Location},
		{"sellerName", listing.SellerName},
		{"sellerVarsityId", listing.SellerVarsityID},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}

	for _, img := range listing.Form.Images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, img.Name))
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("failed to write image %s: %w", img.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.client.baseURL+"/api/products/add", body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	addAuthHeader(req, token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var product models.Product
	if err := r.client.do(req, &product); err != nil {
		return nil, fmt.Errorf("add product: %w", err)
	}
	return &product, nil
}

// Approve handles PATCH /api/products/approve/:id
func (r *ProductRepository) Approve(ctx context.Context, token, productID string) error {
	return r.moderate(ctx, token, "approve", productID)
}

// Reject handles PATCH /api/products/reject/:id
func (r *ProductRepository) Reject(ctx context.Context, token, productID string) error {
	return r.moderate(ctx, token, "reject", productID)
}

func (r *ProductRepository) moderate(ctx context.Context, token, action, productID string) error {
	path := fmt.Sprintf("/api/products/%s/%s", action, url.PathEscape(productID))
	if err := r.client.doJSON(ctx, http.MethodPatch, path, token, nil, nil); err != nil {
		return fmt.Errorf("%s product: %w", action, err)
	}
	return nil
}

// Delete handles DELETE /api/products/:id
func (r *ProductRepository) Delete(ctx context.Context, token, productID string) error {
	path := "/api/products/" + url.PathEscape(productID)
	if err := r.client.doJSON(ctx, http.MethodDelete, path, token, nil, nil); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// AddRating handles POST /api/products/:id/ratings
func (r *ProductRepository) AddRating(ctx context.Context, token, productID string, rating RatingRequest) error {
	path := fmt.Sprintf("/api/products/%s/ratings", url.PathEscape(productID))
	if err := r.client.doJSON(ctx, http.MethodPost, path, token, rating, nil); err != nil {
		return fmt.Errorf("add rating: %w", err)
	}
	return nil
}
