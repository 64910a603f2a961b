package domain

import (
	"time"
)

// Link represents a shortened URL owned by a principal
type Link struct {
	ID             int64      `json:"id"`
	OriginalURL    string     `json:"original_url"`
	ShortCode      string     `json:"short_code"`
	CustomAlias    *string    `json:"custom_alias,omitempty"`
	PasswordHash   string     `json:"-"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsActive       bool       `json:"is_active"`
	ClickCount     int64      `json:"click_count"`
	OwnerID        string     `json:"owner_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasPassword reports whether the link is password protected
func (l *Link) HasPassword() bool {
	return l.PasswordHash != ""
}

// Codes returns every code the link resolves by
func (l *Link) Codes() []string {
	codes := []string{l.ShortCode}
	if l.CustomAlias != nil && *l.CustomAlias != "" {
		codes = append(codes, *l.CustomAlias)
	}
	return codes
}

// ExpiredAt reports whether the link's expiration date is at or before now
func (l *Link) ExpiredAt(now time.Time) bool {
	return l.ExpirationDate != nil && !l.ExpirationDate.After(now)
}

// Clone returns a deep copy of the link
func (l *Link) Clone() *Link {
	c := *l
	if l.CustomAlias != nil {
		alias := *l.CustomAlias
		c.CustomAlias = &alias
	}
	if l.ExpirationDate != nil {
		exp := *l.ExpirationDate
		c.ExpirationDate = &exp
	}
	return &c
}

// Click is one recorded visit of a link
type Click struct {
	ID            int64     `json:"id"`
	LinkID        int64     `json:"link_id"`
	ClickedAt     time.Time `json:"clicked_at"`
	SourceAddress *string   `json:"source_address,omitempty"`
	AgentString   *string   `json:"agent_string,omitempty"`
}

// Resolution is the outcome of resolving a code for redirect.
// OriginalURL is empty when PasswordRequired is set.
type Resolution struct {
	LinkID           int64  `json:"-"`
	OriginalURL      string `json:"url,omitempty"`
	PasswordRequired bool   `json:"password_required,omitempty"`
}

// CreateLinkRequest represents the request to create a short link
type CreateLinkRequest struct {
	OriginalURL    string     `json:"original_url"`
	CustomAlias    string     `json:"custom_alias,omitempty"`
	Password       string     `json:"password,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// UpdateLinkRequest carries the fields to change; nil fields are left untouched.
// An empty CustomAlias or Password clears the value.
type UpdateLinkRequest struct {
	OriginalURL     *string    `json:"original_url,omitempty"`
	CustomAlias     *string    `json:"custom_alias,omitempty"`
	Password        *string    `json:"password,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	ClearExpiration bool       `json:"clear_expiration,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
}

// LinkResponse is the API view of a link
type LinkResponse struct {
	*Link
	ShortURL    string `json:"short_url"`
	AliasURL    string `json:"alias_url,omitempty"`
	HasPassword bool   `json:"has_password"`
}

// VerifyPasswordRequest carries a password for a protected link
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// RegisterClickRequest represents a click reported by a front end
type RegisterClickRequest struct {
	Code      string `json:"code"`
	UserAgent string `json:"user_agent,omitempty"`
}
