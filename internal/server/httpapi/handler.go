package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/logging"
	"github.com/dmitrijs2005/srpkeeper/internal/server/auth"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
	"github.com/dmitrijs2005/srpkeeper/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

// Service is the account service behind the handlers.
type Service interface {
	Register(ctx context.Context, cmd services.RegisterCommand) (*models.Account, error)
	LoginInit(ctx context.Context, username, clientPublic string) (*services.InitResult, error)
	LoginVerify(ctx context.Context, sessionID, clientProof string) (*services.VerifyResult, error)
	Authorize(ctx context.Context, claims *auth.Claims) error
	Me(ctx context.Context, accountID string) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID string, upd services.ProfileUpdate) (*models.Account, error)
	Logout(ctx context.Context, accountID string) error
	DeleteAccount(ctx context.Context, accountID string) error
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type Handler struct {
	svc      Service
	tokens   TokenVerifier
	logger   logging.Logger
	gatherer prometheus.Gatherer
}

// NewHandler builds the handler set. A nil gatherer disables /metrics.
func NewHandler(svc Service, tokens TokenVerifier, l logging.Logger, g prometheus.Gatherer) *Handler {
	return &Handler{
		svc:      svc,
		tokens:   tokens,
		logger:   l.With("module", "http_api"),
		gatherer: g,
	}
}

// Routes returns the complete router, wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.health)
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login/init", h.loginInit)
	mux.HandleFunc("POST /auth/login/verify", h.loginVerify)
	mux.Handle("GET /auth/me", h.requireAuth(http.HandlerFunc(h.me)))
	mux.Handle("PUT /auth/profile", h.requireAuth(http.HandlerFunc(h.updateProfile)))
	mux.Handle("POST /auth/logout", h.requireAuth(http.HandlerFunc(h.logout)))
	mux.Handle("DELETE /auth/account", h.requireAuth(http.HandlerFunc(h.deleteAccount)))
	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", h.notFound)
	return h.logRequests(mux)
}

type HealthResponse struct {
	Message   string    `json:"message"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Message:   "srpkeeper API Server",
		Version:   version,
		Timestamp: time.Now().UTC(),
		Status:    "healthy",
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "Not Found")
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
	Name     string `json:"name,omitempty"`
}

type RegisterResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    UserView `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acc, err := h.svc.Register(r.Context(), services.RegisterCommand{
		Username:    req.Email,
		Salt:        req.Salt,
		Verifier:    req.Verifier,
		DisplayName: req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Success: true,
		Message: "User registered successfully",
		User:    newUserView(acc),
	})
}

type LoginInitRequest struct {
	Email                 string `json:"email"`
	ClientPublicEphemeral string `json:"clientPublicEphemeral"`
}

type LoginInitResponse struct {
	SessionID             string `json:"sessionId"`
	Salt                  string `json:"salt"`
	ServerPublicEphemeral string `json:"serverPublicEphemeral"`
}

func (h *Handler) loginInit(w http.ResponseWriter, r *http.Request) {
	var req LoginInitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.ClientPublicEphemeral == "" {
		writeJSONError(w, http.StatusBadRequest, "Email and clientPublicEphemeral are required")
		return
	}

	res, err := h.svc.LoginInit(r.Context(), req.Email, req.ClientPublicEphemeral)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginInitResponse{
		SessionID:             res.SessionID,
		Salt:                  res.Salt,
		ServerPublicEphemeral: res.ServerPublicEphemeral,
	})
}

type LoginVerifyRequest struct {
	SessionID          string `json:"sessionId"`
	ClientSessionProof string `json:"clientSessionProof"`
}

type LoginVerifyResponse struct {
	Success            bool     `json:"success"`
	Token              string   `json:"token"`
	ServerSessionProof string   `json:"serverSessionProof"`
	User               UserView `json:"user"`
}

func (h *Handler) loginVerify(w http.ResponseWriter, r *http.Request) {
	var req LoginVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.ClientSessionProof == "" {
		writeJSONError(w, http.StatusBadRequest, "SessionId and clientSessionProof are required")
		return
	}

	res, err := h.svc.LoginVerify(r.Context(), req.SessionID, req.ClientSessionProof)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginVerifyResponse{
		Success:            true,
		Token:              res.Token,
		ServerSessionProof: res.ServerSessionProof,
		User:               newUserView(res.Account),
	})
}

type UserResponse struct {
	Message string   `json:"message,omitempty"`
	User    UserView `json:"user"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	acc, err := h.svc.Me(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: newUserView(acc)})
}

type ProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == nil && req.Image == nil {
		writeJSONError(w, http.StatusBadRequest, "At least one field (name, image) is required")
		return
	}

	acc, err := h.svc.UpdateProfile(r.Context(), claims.AccountID, services.ProfileUpdate{
		DisplayName: req.Name,
		Image:       req.Image,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: "Profile updated successfully", User: newUserView(acc)})
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	if err := h.svc.Logout(r.Context(), claims.AccountID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	if err := h.svc.DeleteAccount(r.Context(), claims.AccountID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.logger.Info(r.Context(), "account deleted", "account_id", claims.AccountID)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}
