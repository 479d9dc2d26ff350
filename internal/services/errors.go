package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"handoff-client/internal/repository"
	"handoff-client/internal/validation"
)

// Client-observable failure kinds. Store actions return errors that match one
// of these with errors.Is.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotPermitted           = errors.New("not permitted for this account")
	ErrNetworkFailure         = errors.New("network failure")
	ErrServerRejected         = errors.New("server rejected request")
	ErrValidation             = errors.New("validation failed")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnverified             = errors.New("email not verified")
)

// classify maps a repository error onto the taxonomy, keeping the cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *repository.APIError
	switch {
	case errors.Is(err, repository.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
		}
		return fmt.Errorf("%w: %w", ErrServerRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrServerRejected, err)
	}
}

// classifyPublic is classify for requests sent without a token, where a 401
// is an ordinary rejection rather than a missing session.
func classifyPublic(err error) error {
	var apiErr *repository.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrServerRejected, err)
	}
	return classify(err)
}

// classifyLogin is classify with credential failures split out.
func classifyLogin(err error) error {
	var apiErr *repository.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
	}
	return classifyPublic(err)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Message returns the text shown to the user for a store error.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *repository.APIError
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return verrs.Error()
	case errors.Is(err, ErrUnverified):
		return "Please verify your email before logging in"
	case errors.Is(err, ErrNetworkFailure):
		return "Could not reach the server. Please try again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrAuthenticationRequired):
		return "User not authenticated"
	case errors.Is(err, ErrNotPermitted):
		return "Only administrators can moderate products"
	case errors.Is(err, ErrValidation):
		return err.Error()
	}
	return fallback
}
