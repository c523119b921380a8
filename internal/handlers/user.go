package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/services"
	"github.com/worldclock/apiserver/types"
)

// UserHandler provides user administration endpoints.
type UserHandler struct {
	users *services.UserService
	log   logger.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, log logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// UserRouter registers user routes. Listing, creating and role changes are
// admin only; a user may read and delete themselves and manage their own
// timezones through the nested routes.
func UserRouter(r chi.Router, users *services.UserService, timezones *services.TimezoneService, auth Authenticator, log logger.Logger) {
	handler := NewUserHandler(users, log)
	tzHandler := NewTimezoneHandler(timezones, log)

	r.Use(RequireAuth(auth))
	r.With(RequireAdmin).Get("/", handler.List)
	r.With(RequireAdmin).Post("/", handler.Create)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Delete("/", handler.Delete)
		r.With(RequireAdmin).Patch("/role", handler.UpdateRole)
		r.Get("/timezones", tzHandler.ListForUser)
		r.Post("/timezones", tzHandler.CreateForUser)
	})
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.users.List(r.Context(), principal, offset, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.User]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req services.NewUser
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), principal, req)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Get(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := types.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	user, err := h.users.UpdateRole(r.Context(), principal, id, role)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Delete(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
