package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// Client represents an HTTP client for the link service API
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client
}

// NewClient creates a new link service client. token authenticates owner
// operations and may be empty for public ones.
func NewClient(serverURL, token string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		token:     token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Redirects are reported, not followed
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// CreateLink creates a short link
func (c *Client) CreateLink(ctx context.Context, req *domain.CreateLinkRequest) (*domain.LinkResponse, error) {
	var result domain.LinkResponse
	if err := c.do(ctx, http.MethodPost, "/api/links", req, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLink retrieves one owned link
func (c *Client) GetLink(ctx context.Context, id int64) (*domain.LinkResponse, error) {
	var result domain.LinkResponse
	if err := c.do(ctx, http.MethodGet, linkPath(id), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListLinks retrieves every owned link
func (c *Client) ListLinks(ctx context.Context) ([]domain.LinkResponse, error) {
	var result []domain.LinkResponse
	if err := c.do(ctx, http.MethodGet, "/api/links", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateLink changes an owned link
func (c *Client) UpdateLink(ctx context.Context, id int64, req *domain.UpdateLinkRequest) (*domain.LinkResponse, error) {
	var result domain.LinkResponse
	if err := c.do(ctx, http.MethodPatch, linkPath(id), req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteLink deletes an owned link
func (c *Client) DeleteLink(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, linkPath(id), nil, http.StatusNoContent, nil)
}

// Resolve maps a code to its destination. A password protected link is
// reported through Resolution.PasswordRequired rather than an error.
func (c *Client) Resolve(ctx context.Context, code string) (*domain.Resolution, error) {
	var result domain.Resolution
	err := c.do(ctx, http.MethodGet, "/api/resolve/"+url.PathEscape(code), nil, http.StatusOK, &result)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return &domain.Resolution{PasswordRequired: true}, nil
		}
		return nil, err
	}
	return &result, nil
}

// VerifyPassword resolves a protected code with its password
func (c *Client) VerifyPassword(ctx context.Context, code, password string) (*domain.Resolution, error) {
	var result domain.Resolution
	body := domain.VerifyPasswordRequest{Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/resolve/"+url.PathEscape(code)+"/verify", body, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterClick records a click against code
func (c *Client) RegisterClick(ctx context.Context, code, userAgent string) (*domain.Click, error) {
	var result domain.Click
	body := domain.RegisterClickRequest{Code: code, UserAgent: userAgent}
	if err := c.do(ctx, http.MethodPost, "/api/clicks", body, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do sends a JSON request and decodes the response into out when it is non-nil
func (c *Client) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return newStatusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func linkPath(id int64) string {
	return "/api/links/" + strconv.FormatInt(id, 10)
}
