package mockapi

import (
	"net/http"
	"strings"

	"handoff-client/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User       models.User `json:"user"`
	Token      string      `json:"token,omitempty"`
	IsVerified bool        `json:"isVerified"`
}

type registerRequest struct {
	VarsityID   string `json:"varsityId"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type codeRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

// login handles POST /api/login. Unverified accounts get a 200 without a token.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.RLock()
	acc, ok := s.accounts[emailKey(req.Email)]
	var snapshot account
	if ok {
		snapshot = *acc
	}
	s.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(snapshot.passwordHash, []byte(req.Password)) != nil {
		respondError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	resp := loginResponse{User: snapshot.user, IsVerified: snapshot.verified}
	if snapshot.verified {
		token, err := s.GenerateJWT(snapshot.user.VarsityID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to generate token")
			respondError(w, "Failed to log in", http.StatusInternalServerError)
			return
		}
		resp.Token = token
	}

	log.Info().
		Str("varsity_id", snapshot.user.VarsityID).
		Bool("verified", snapshot.verified).
		Msg("Login")
	respondJSON(w, http.StatusOK, resp)
}

// register handles POST /api/register and POST /register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case strings.TrimSpace(req.VarsityID) == "",
		strings.TrimSpace(req.FullName) == "",
		strings.TrimSpace(req.Email) == "":
		respondError(w, "Please fill in all required fields", http.StatusBadRequest)
		return
	case len(req.Password) < 6:
		respondError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	user := models.User{
		VarsityID:   strings.TrimSpace(req.VarsityID),
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.CreateAccount(user, req.Password, false); err != nil {
		respondError(w, "User already exists", http.StatusConflict)
		return
	}

	code := generateCode()
	s.mu.Lock()
	s.verifyCodes[emailKey(user.Email)] = code
	s.mu.Unlock()

	// There is no mail server; the code is logged instead.
	log.Info().
		Str("email", user.Email).
		Str("code", code).
		Msg("Verification code issued")

	respondJSON(w, http.StatusCreated, map[string]string{
		"email":   user.Email,
		"message": "Registration successful. Please check your email for the verification code.",
	})
}

// verifyEmail handles POST /api/verify-email
func (s *Server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	key := emailKey(req.Email)
	s.mu.Lock()
	code, ok := s.verifyCodes[key]
	if ok && code == req.Code {
		delete(s.verifyCodes, key)
		s.accounts[key].verified = true
	}
	s.mu.Unlock()

	if !ok || code != req.Code {
		respondError(w, "Invalid or expired code", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"verified": true, "message": "Email verified"})
}

// forgotPassword handles POST /api/password/forgot
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	key := emailKey(req.Email)
	code := generateCode()
	s.mu.Lock()
	_, ok := s.accounts[key]
	if ok {
		s.resetCodes[key] = code
	}
	s.mu.Unlock()

	if !ok {
		respondError(w, "No account found with this email", http.StatusNotFound)
		return
	}

	log.Info().
		Str("email", req.Email).
		Str("code", code).
		Msg("Password reset code issued")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Reset code sent"})
}

// verifyResetCode handles POST /api/password/verify-code. The code stays valid
// until the password is reset.
func (s *Server) verifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	code, ok := s.ResetCode(req.Email)
	if !ok || code != req.Code {
		respondError(w, "Invalid or expired code", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"verified": true, "message": "Code verified"})
}

// resetPassword handles POST /api/password/reset
func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Password) < 6 {
		respondError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		respondError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	key := emailKey(req.Email)
	s.mu.Lock()
	code, ok := s.resetCodes[key]
	if ok && code == req.Code {
		delete(s.resetCodes, key)
		s.accounts[key].passwordHash = hash
	}
	s.mu.Unlock()

	if !ok || code != req.Code {
		respondError(w, "Invalid or expired code", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
}

// updateProfile handles PATCH /api/user/profile
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	id := varsityID(r.Context())
	s.mu.Lock()
	acc := s.accounts[s.byVarsity[id]]
	if req.PhoneNumber != nil {
		acc.user.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	user := acc.user
	s.mu.Unlock()

	log.Info().Str("varsity_id", id).Msg("Profile updated")
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

// phoneByVarsityID handles GET /api/user/varsity/{varsityId}
func (s *Server) phoneByVarsityID(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.accountByVarsity(chi.URLParam(r, "varsityId"))
	if !ok {
		respondError(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"phoneNumber": acc.user.PhoneNumber})
}
