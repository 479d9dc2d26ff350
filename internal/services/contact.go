package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"handoff-client/internal/repository"

	"github.com/rs/zerolog/log"
)

var nonDigits = regexp.MustCompile(`\D`)

// SellerContact is how a buyer reaches a seller outside the app
type SellerContact struct {
	PhoneNumber string
	WhatsAppURL string // https://wa.me/<digits>
	AppURL      string // whatsapp://send?phone=<digits>, used when the web link cannot open
}

// ContactService resolves seller phone numbers
type ContactService struct {
	users *repository.UserRepository
}

// NewContactService creates a new contact service
func NewContactService(users *repository.UserRepository) *ContactService {
	return &ContactService{users: users}
}

// SellerContact looks up the phone number registered for varsityID
func (s *ContactService) SellerContact(ctx context.Context, varsityID string) (*SellerContact, error) {
	if strings.TrimSpace(varsityID) == "" {
		return nil, invalid(fmt.Errorf("seller varsity ID is required"))
	}

	phone, err := s.users.GetPhoneByVarsityID(ctx, varsityID)
	if err != nil {
		err = classifyPublic(err)
		log.Error().Err(err).Str("varsity_id", varsityID).Msg("Failed to get seller phone")
		return nil, err
	}

	digits := nonDigits.ReplaceAllString(phone, "")
	if digits == "" {
		return nil, fmt.Errorf("%w: seller has no phone number", ErrServerRejected)
	}

	return &SellerContact{
		PhoneNumber: phone,
		WhatsAppURL: "https://wa.me/" + digits,
		AppURL:      "whatsapp://send?phone=" + digits,
	}, nil
}
