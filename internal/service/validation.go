package service

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
)

const (
	maxURLLength = 2083
	// bcrypt only reads the first 72 bytes
	maxPasswordLength = 72
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// reservedAliases collide with server routes
var reservedAliases = map[string]bool{
	"api":     true,
	"healthz": true,
	"metrics": true,
}

func validateCreate(req *domain.CreateLinkRequest, ownerID string, now time.Time) error {
	if req == nil {
		return domain.NewValidationError("request", "is required")
	}
	if ownerID == "" {
		return domain.NewValidationError("owner", "is required")
	}
	if err := validateURL(req.OriginalURL); err != nil {
		return err
	}
	if req.CustomAlias != "" {
		if err := validateAlias(req.CustomAlias); err != nil {
			return err
		}
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}
	if req.ExpirationDate != nil && !req.ExpirationDate.After(now) {
		return domain.NewValidationError("expiration_date", "must be in the future")
	}
	return nil
}

func validateUpdate(req *domain.UpdateLinkRequest, now time.Time) error {
	if req == nil {
		return domain.NewValidationError("request", "is required")
	}
	if req.OriginalURL != nil {
		if err := validateURL(*req.OriginalURL); err != nil {
			return err
		}
	}
	if req.CustomAlias != nil && *req.CustomAlias != "" {
		if err := validateAlias(*req.CustomAlias); err != nil {
			return err
		}
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return err
		}
	}
	if req.ClearExpiration && req.ExpirationDate != nil {
		return domain.NewValidationError("expiration_date", "cannot be set and cleared at once")
	}
	if req.ExpirationDate != nil && !req.ExpirationDate.After(now) {
		return domain.NewValidationError("expiration_date", "must be in the future")
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return domain.NewValidationError("original_url", "is required")
	}
	if len(raw) > maxURLLength {
		return domain.NewValidationError("original_url", "exceeds 2083 characters")
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return domain.NewValidationError("original_url", "is not a valid URL")
	}
	// Only allow HTTP and HTTPS schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return domain.NewValidationError("original_url", "only HTTP and HTTPS are supported")
	}
	if parsed.Host == "" {
		return domain.NewValidationError("original_url", "host is required")
	}
	return nil
}

func validateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return domain.NewValidationError("custom_alias", "must be 3-50 letters, digits, '_' or '-'")
	}
	if reservedAliases[strings.ToLower(alias)] {
		return domain.NewValidationError("custom_alias", "is reserved")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) > maxPasswordLength {
		return domain.NewValidationError("password", "exceeds 72 bytes")
	}
	return nil
}
