package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"handoff-client/internal/models"
)

// UserRepository handles account endpoints of the backend
type UserRepository struct {
	client       *Client
	registerPath string
}

// NewUserRepository creates a new user repository
func NewUserRepository(client *Client, registerPath string) *UserRepository {
	if registerPath == "" {
		registerPath = "/api/register"
	}
	return &UserRepository{client: client, registerPath: registerPath}
}

// AccountUser is the user record as the backend reports it
type AccountUser struct {
	VarsityID   string      `json:"varsityId"`
	Name        string      `json:"name"`
	FullName    string      `json:"fullName"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phoneNumber"`
	Role        models.Role `json:"role"`
}

// DisplayName prefers fullName and falls back to name.
func (u AccountUser) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Name
}

// LoginResponse is the body of a successful login call
type LoginResponse struct {
	User       AccountUser `json:"user"`
	Token      string      `json:"token"`
	IsVerified bool        `json:"isVerified"`
}

// RegisterResponse is the body of a successful registration
type RegisterResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// Login handles POST /api/login
func (r *UserRepository) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := r.client.doJSON(ctx, http.MethodPost, "/api/login", "", payload, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

// Register handles POST on the configured register path
func (r *UserRepository) Register(ctx context.Context, form models.RegisterForm) (*RegisterResponse, error) {
	payload := map[string]string{
		"varsityId":   form.VarsityID,
		"fullName":    form.FullName,
		"email":       form.Email,
		"password":    form.Password,
		"phoneNumber": form.PhoneNumber,
	}
	var resp RegisterResponse
	if err := r.client.doJSON(ctx, http.MethodPost, r.registerPath, "", payload, &resp); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if resp.Email == "" {
		resp.Email = form.Email
	}
	return &resp, nil
}

// UpdateProfile handles PATCH /api/user/profile
func (r *UserRepository) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*AccountUser, error) {
	var resp struct {
		User AccountUser `json:"user"`
	}
	if err := r.client.doJSON(ctx, http.MethodPatch, "/api/user/profile", token, update, &resp); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &resp.User, nil
}

// VerifyEmail handles POST /api/verify-email
func (r *UserRepository) VerifyEmail(ctx context.Context, email, code string) (bool, error) {
	return r.verify(ctx, "/api/verify-email", email, code)
}

// VerifyResetCode handles POST /api/password/verify-code
func (r *UserRepository) VerifyResetCode(ctx context.Context, email, code string) (bool, error) {
	return r.verify(ctx, "/api/password/verify-code", email, code)
}

func (r *UserRepository) verify(ctx context.Context, path, email, code string) (bool, error) {
	payload := map[string]string{"email": email, "code": code}
	var resp verifyResponse
	if err := r.client.doJSON(ctx, http.MethodPost, path, "", payload, &resp); err != nil {
		return false, fmt.Errorf("verify code: %w", err)
	}
	return resp.Verified, nil
}

// ForgotPassword handles POST /api/password/forgot
func (r *UserRepository) ForgotPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	if err := r.client.doJSON(ctx, http.MethodPost, "/api/password/forgot", "", payload, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword handles POST /api/password/reset
func (r *UserRepository) ResetPassword(ctx context.Context, email, code, password string) error {
	payload := map[string]string{"email": email, "code": code, "password": password}
	if err := r.client.doJSON(ctx, http.MethodPost, "/api/password/reset", "", payload, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// GetPhoneByVarsityID handles GET /api/user/varsity/:varsityId
func (r *UserRepository) GetPhoneByVarsityID(ctx context.Context, varsityID string) (string, error) {
	var resp struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	path := "/api/user/varsity/" + url.PathEscape(varsityID)
	if err := r.client.doJSON(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return "", fmt.Errorf("get user phone: %w", err)
	}
	return resp.PhoneNumber, nil
}
