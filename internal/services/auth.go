package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"handoff-client/internal/models"
	"handoff-client/internal/repository"
	"handoff-client/internal/storage"
	"handoff-client/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Persisted session keys. Both are written and removed together.
const (
	storageKeyUser  = "user"
	storageKeyToken = "token"
)

// SessionSource exposes the current session to other stores
type SessionSource interface {
	Session() (models.Session, bool)
}

// RegisterResult carries the identifier to use in the verification step
type RegisterResult struct {
	Email   string
	Message string
}

// AuthStore holds the signed-in user and token and persists them on the device
type AuthStore struct {
	users     *repository.UserRepository
	storage   storage.KeyValue
	validator *validation.Validator

	mu      sync.RWMutex
	user    *models.User
	token   string
	lastErr string
	subs    listeners
}

// NewAuthStore creates an anonymous auth store
func NewAuthStore(users *repository.UserRepository, kv storage.KeyValue, v *validation.Validator) *AuthStore {
	return &AuthStore{
		users:     users,
		storage:   kv,
		validator: v,
	}
}

// Login authenticates and replaces the current session
func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	if err := s.validator.Struct(models.LoginForm{Email: email, Password: password}); err != nil {
		return s.fail(invalid(err), "Login failed")
	}

	resp, err := s.users.Login(ctx, email, password)
	if err != nil {
		err = classifyLogin(err)
		log.Error().Err(err).Str("email", email).Msg("Login failed")
		return s.fail(err, "Login failed")
	}

	if !resp.IsVerified {
		log.Warn().Str("email", email).Msg("Login refused for unverified email")
		return s.fail(ErrUnverified, "Login failed")
	}
	if resp.Token == "" {
		return s.fail(fmt.Errorf("%w: login response has no token", ErrServerRejected), "Login failed")
	}

	user := models.User{
		VarsityID:   resp.User.VarsityID,
		FullName:    resp.User.DisplayName(),
		Email:       resp.User.Email,
		PhoneNumber: resp.User.PhoneNumber,
		Role:        resp.User.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if err := s.persist(ctx, user, resp.Token); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
		return s.fail(err, "Login failed")
	}

	s.mu.Lock()
	s.user = &user
	s.token = resp.Token
	s.lastErr = ""
	s.mu.Unlock()
	s.subs.notify()

	log.Info().
		Str("varsity_id", user.VarsityID).
		Str("role", string(user.Role)).
		Msg("Logged in")
	return nil
}

// Register submits a new account. It does not sign the caller in.
func (s *AuthStore) Register(ctx context.Context, form models.RegisterForm) (*RegisterResult, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, s.fail(invalid(err), "Registration failed")
	}

	resp, err := s.users.Register(ctx, form)
	if err != nil {
		err = classifyPublic(err)
		log.Error().Err(err).Str("varsity_id", form.VarsityID).Msg("Registration failed")
		return nil, s.fail(err, "Registration failed")
	}

	s.clearError()
	log.Info().Str("email", resp.Email).Msg("Registered, awaiting verification")
	return &RegisterResult{Email: resp.Email, Message: resp.Message}, nil
}

// Logout clears the persisted and in-memory session. Calling it without a
// session is a no-op that still succeeds.
func (s *AuthStore) Logout(ctx context.Context) error {
	if err := s.storage.MultiRemove(ctx, storageKeyUser, storageKeyToken); err != nil {
		log.Error().Err(err).Msg("Logout failed")
		return s.fail(fmt.Errorf("failed to clear session: %w", err), "Logout failed")
	}

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.lastErr = ""
	s.mu.Unlock()
	s.subs.notify()

	log.Info().Msg("Logged out")
	return nil
}

// CheckAuthStatus restores the session persisted by a previous run. A user
// without a token, or a token without a user, counts as no session.
func (s *AuthStore) CheckAuthStatus(ctx context.Context) error {
	stored, err := s.storage.MultiGet(ctx, storageKeyUser, storageKeyToken)
	if err != nil {
		log.Error().Err(err).Msg("Check auth status failed")
		return fmt.Errorf("failed to read session: %w", err)
	}

	var user *models.User
	token := stored[storageKeyToken]
	if raw, ok := stored[storageKeyUser]; ok && raw != "" && token != "" {
		var u models.User
		switch err := json.Unmarshal([]byte(raw), &u); {
		case err != nil:
			log.Warn().Err(err).Msg("Ignoring unreadable persisted user")
		case u.VarsityID == "":
			log.Warn().Msg("Ignoring persisted user without a varsity ID")
		default:
			user = &u
		}
	}
	if user == nil {
		token = ""
	}

	s.mu.Lock()
	s.user = user
	s.token = token
	s.mu.Unlock()
	s.subs.notify()

	log.Debug().Bool("authenticated", user != nil).Msg("Auth status checked")
	return nil
}

// UpdateProfile applies a partial profile change and merges the server's reply
func (s *AuthStore) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	session, ok := s.Session()
	if !ok {
		return nil, s.fail(ErrAuthenticationRequired, "User not authenticated")
	}
	if err := s.validator.Struct(update); err != nil {
		return nil, s.fail(invalid(err), "Profile update failed")
	}

	returned, err := s.users.UpdateProfile(ctx, session.Token, update)
	if err != nil {
		err = classify(err)
		log.Error().Err(err).Str("varsity_id", session.User.VarsityID).Msg("Profile update failed")
		return nil, s.fail(err, "Profile update failed")
	}

	merged := session.User
	if name := returned.DisplayName(); name != "" {
		merged.FullName = name
	}
	if returned.Email != "" {
		merged.Email = returned.Email
	}
	if returned.PhoneNumber != "" {
		merged.PhoneNumber = returned.PhoneNumber
	}
	if returned.Role != "" {
		merged.Role = returned.Role
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	s.mu.Lock()
	// A logout or re-login while the request was in flight wins.
	if s.user == nil || s.token != session.Token {
		s.mu.Unlock()
		return nil, ErrAuthenticationRequired
	}
	if err := s.storage.MultiSet(ctx, map[string]string{storageKeyUser: string(data)}); err != nil {
		s.lastErr = "Profile update failed"
		s.mu.Unlock()
		log.Error().Err(err).Msg("Failed to persist profile")
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}
	s.user = &merged
	s.lastErr = ""
	s.mu.Unlock()
	s.subs.notify()

	log.Info().Str("varsity_id", merged.VarsityID).Msg("Profile updated")
	out := merged
	return &out, nil
}

// VerifyEmail confirms a registration with the emailed code
func (s *AuthStore) VerifyEmail(ctx context.Context, email, code string) error {
	return s.verifyCode(ctx, email, code, s.users.VerifyEmail)
}

// VerifyResetCode checks a password-reset code before the new password is chosen
func (s *AuthStore) VerifyResetCode(ctx context.Context, email, code string) error {
	return s.verifyCode(ctx, email, code, s.users.VerifyResetCode)
}

func (s *AuthStore) verifyCode(ctx context.Context, email, code string, call func(context.Context, string, string) (bool, error)) error {
	const fallback = "Invalid or expired code. Please try again."
	if err := s.validator.Struct(models.VerificationForm{Email: email, Code: code}); err != nil {
		return s.fail(invalid(err), fallback)
	}

	verified, err := call(ctx, email, code)
	if err != nil {
		return s.fail(classifyPublic(err), fallback)
	}
	if !verified {
		return s.fail(fmt.Errorf("%w: code not accepted", ErrServerRejected), fallback)
	}

	s.clearError()
	return nil
}

// ForgotPassword asks the backend to email a reset code
func (s *AuthStore) ForgotPassword(ctx context.Context, email string) error {
	if err := s.validator.Struct(models.ForgotPasswordForm{Email: email}); err != nil {
		return s.fail(invalid(err), "Something went wrong. Please try again.")
	}

	if err := s.users.ForgotPassword(ctx, email); err != nil {
		err = classifyPublic(err)
		log.Error().Err(err).Str("email", email).Msg("Forgot password failed")
		return s.fail(err, "Something went wrong. Please try again.")
	}

	s.clearError()
	return nil
}

// ResetPassword sets a new password using a verified reset code
func (s *AuthStore) ResetPassword(ctx context.Context, form models.ResetPasswordForm) error {
	if err := s.validator.Struct(form); err != nil {
		return s.fail(invalid(err), "Failed to reset password")
	}

	if err := s.users.ResetPassword(ctx, form.Email, form.Code, form.Password); err != nil {
		err = classifyPublic(err)
		log.Error().Err(err).Str("email", form.Email).Msg("Reset password failed")
		return s.fail(err, "Failed to reset password")
	}

	s.clearError()
	return nil
}

// Session returns the current user and token, if signed in.
func (s *AuthStore) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || s.token == "" {
		return models.Session{}, false
	}
	return models.Session{User: *s.user, Token: s.token}, true
}

// User returns the signed-in user.
func (s *AuthStore) User() (models.User, bool) {
	session, ok := s.Session()
	return session.User, ok
}

// Token returns the bearer token, or "" when anonymous.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *AuthStore) IsAuthenticated() bool {
	_, ok := s.Session()
	return ok
}

// IsAdmin reports the role claimed by the backend. Display hint only; the
// backend decides what an account may do.
func (s *AuthStore) IsAdmin() bool {
	session, ok := s.Session()
	return ok && session.User.IsAdmin()
}

func (s *AuthStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// TokenExpiry reads the exp claim without verifying the signature.
func (s *AuthStore) TokenExpiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subscribe registers fn to run after every state change.
func (s *AuthStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.subs.add(fn)
}

// Reset drops in-memory state without touching storage. For tests.
func (s *AuthStore) Reset() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *AuthStore) persist(ctx context.Context, user models.User, token string) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.storage.MultiSet(ctx, map[string]string{
		storageKeyUser:  string(data),
		storageKeyToken: token,
	}); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *AuthStore) fail(err error, fallback string) error {
	s.mu.Lock()
	s.lastErr = Message(err, fallback)
	s.mu.Unlock()
	s.subs.notify()
	return err
}

func (s *AuthStore) clearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

var _ SessionSource = (*AuthStore)(nil)
