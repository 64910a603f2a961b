package http

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/service"
)

const maxBodyBytes = 1 << 20

// Handler holds the HTTP handlers for the link service
type Handler struct {
	shortener  service.Shortener
	serverURL  string
	trustProxy bool
}

// NewHandler creates a new HTTP handler. With trustProxy set, click source addresses
// come from X-Forwarded-For or X-Real-IP when present.
func NewHandler(shortener service.Shortener, serverURL string, trustProxy bool) *Handler {
	return &Handler{
		shortener:  shortener,
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		trustProxy: trustProxy,
	}
}

// CreateLink handles POST /api/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	owner, ok := PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.CreateLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, err := h.shortener.CreateLink(r.Context(), &req, owner)
	if err != nil {
		h.writeError(w, "create link", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(link))
}

// ListLinks handles GET /api/links
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	owner, ok := PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	links, err := h.shortener.ListLinks(r.Context(), owner)
	if err != nil {
		h.writeError(w, "list links", err)
		return
	}

	responses := make([]domain.LinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, h.toResponse(link))
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetLink handles GET /api/links/{id}
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownedLinkTarget(w, r)
	if !ok {
		return
	}

	link, err := h.shortener.GetLink(r.Context(), id, owner)
	if err != nil {
		h.writeError(w, "get link", err)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(link))
}

// UpdateLink handles PATCH /api/links/{id}
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownedLinkTarget(w, r)
	if !ok {
		return
	}

	var req domain.UpdateLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, err := h.shortener.UpdateLink(r.Context(), id, &req, owner)
	if err != nil {
		h.writeError(w, "update link", err)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(link))
}

// DeleteLink handles DELETE /api/links/{id}
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	owner, id, ok := h.ownedLinkTarget(w, r)
	if !ok {
		return
	}

	if err := h.shortener.DeleteLink(r.Context(), id, owner); err != nil {
		h.writeError(w, "delete link", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles GET /api/resolve/{code}
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request, code string) {
	resolution, err := h.shortener.ResolveRedirect(r.Context(), code)
	if err != nil {
		h.writeError(w, "resolve", err)
		return
	}

	if resolution.PasswordRequired {
		writeJSON(w, http.StatusUnauthorized, resolution)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

// VerifyPassword handles POST /api/resolve/{code}/verify
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request, code string) {
	var req domain.VerifyPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resolution, err := h.shortener.VerifyPassword(r.Context(), code, req.Password)
	if err != nil {
		h.writeError(w, "verify password", err)
		return
	}

	writeJSON(w, http.StatusOK, resolution)
}

// RegisterClick handles POST /api/clicks
func (h *Handler) RegisterClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.RegisterClickRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}

	agent := req.UserAgent
	if agent == "" {
		agent = r.UserAgent()
	}

	click, err := h.shortener.RegisterClick(r.Context(), req.Code, optional(h.clientIP(r)), optional(agent))
	if err != nil {
		h.writeError(w, "register click", err)
		return
	}

	writeJSON(w, http.StatusCreated, click)
}

// Redirect handles GET and HEAD /{code}; only GET records a click
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/")
	if code == "" || code == "api" || strings.Contains(code, "/") {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resolution, err := h.shortener.ResolveRedirect(r.Context(), code)
	if err != nil {
		h.writeError(w, "redirect", err)
		return
	}

	if resolution.PasswordRequired {
		writeJSON(w, http.StatusUnauthorized, resolution)
		return
	}

	// HEAD is answered like GET but is not a visit
	if r.Method == http.MethodGet {
		if _, err := h.shortener.RegisterClick(r.Context(), code, optional(h.clientIP(r)), optional(r.UserAgent())); err != nil {
			// The visitor still gets redirected; the click is lost
			log.Printf("[WARN] Failed to record click for code '%s': %v", code, err)
		}
	}

	http.Redirect(w, r, resolution.OriginalURL, http.StatusFound)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.shortener.Ping(r.Context()); err != nil {
		log.Printf("[ERROR] Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LinksHandler handles both POST /api/links and GET /api/links
func (h *Handler) LinksHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateLink(w, r)
	case http.MethodGet:
		h.ListLinks(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// LinksDetailHandler handles GET, PATCH and DELETE on /api/links/{id}
func (h *Handler) LinksDetailHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetLink(w, r)
	case http.MethodPatch:
		h.UpdateLink(w, r)
	case http.MethodDelete:
		h.DeleteLink(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ResolveHandler dispatches /api/resolve/{code} and /api/resolve/{code}/verify
func (h *Handler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/resolve/")
	code, action, _ := strings.Cut(rest, "/")
	if code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.Resolve(w, r, code)
	case action == "verify" && r.Method == http.MethodPost:
		h.VerifyPassword(w, r, code)
	case action == "" || action == "verify":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// ownedLinkTarget extracts the principal and link id for /api/links/{id} requests
func (h *Handler) ownedLinkTarget(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	owner, ok := PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", 0, false
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/links/")
	if raw == "" {
		http.Error(w, "Link id is required", http.StatusBadRequest)
		return "", 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid link id", http.StatusBadRequest)
		return "", 0, false
	}

	return owner, id, true
}

// toResponse builds the API view of a link
func (h *Handler) toResponse(link *domain.Link) domain.LinkResponse {
	response := domain.LinkResponse{
		Link:        link,
		ShortURL:    h.serverURL + "/" + link.ShortCode,
		HasPassword: link.HasPassword(),
	}
	if link.CustomAlias != nil && *link.CustomAlias != "" {
		response.AliasURL = h.serverURL + "/" + *link.CustomAlias
	}
	return response
}

// writeError maps service errors onto HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] Failed to %s: %v", op, err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	log.Printf("[DEBUG] %s rejected: %v", op, err)
	http.Error(w, err.Error(), status)
}

// statusFor returns the HTTP status for a service error
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAliasConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrExhaustedRetries):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("[ERROR] Invalid JSON in %s %s request: %v", r.Method, r.URL.Path, err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// clientIP returns the caller address. Proxy headers are honored only when the
// server is configured to sit behind a trusted proxy.
func (h *Handler) clientIP(r *http.Request) string {
	if !h.trustProxy {
		return remoteHost(r)
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
