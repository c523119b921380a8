package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/services"
)

// AuthHandler provides registration, login and identity endpoints.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
	log   logger.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, users *services.UserService, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, log: log}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, users *services.UserService, log logger.Logger) {
	handler := NewAuthHandler(auth, users, log)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(RequireAuth(auth)).Get("/me", handler.Me)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.Get(r.Context(), principal, principal.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
