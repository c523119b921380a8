package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/services"
	"github.com/worldclock/apiserver/types"
)

// TimezoneHandler provides HTTP handlers for timezone records.
type TimezoneHandler struct {
	timezones *services.TimezoneService
	log       logger.Logger
}

// NewTimezoneHandler constructs a TimezoneHandler.
func NewTimezoneHandler(timezones *services.TimezoneService, log logger.Logger) *TimezoneHandler {
	return &TimezoneHandler{timezones: timezones, log: log}
}

// TimezoneRouter registers the principal's own timezone routes.
func TimezoneRouter(r chi.Router, timezones *services.TimezoneService, auth Authenticator, log logger.Logger) {
	handler := NewTimezoneHandler(timezones, log)

	r.Use(RequireAuth(auth))
	r.Get("/", handler.ListOwn)
	r.Post("/", handler.CreateOwn)
	r.Route("/{timezoneID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Patch("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

// AdminRouter registers admin-only routes.
func AdminRouter(r chi.Router, timezones *services.TimezoneService, auth Authenticator, log logger.Logger) {
	handler := NewTimezoneHandler(timezones, log)

	r.Use(RequireAuth(auth), RequireAdmin)
	r.Get("/timezones", handler.ListAll)
}

type CreateTimezoneRequest struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

func (h *TimezoneHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	h.list(w, r, principal, principal.ID)
}

func (h *TimezoneHandler) CreateOwn(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	h.create(w, r, principal, principal.ID)
}

// ListForUser lists the records of the user in the path.
func (h *TimezoneHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	ownerID, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.list(w, r, principal, ownerID)
}

// CreateForUser creates a record for the user in the path.
func (h *TimezoneHandler) CreateForUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	ownerID, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.create(w, r, principal, ownerID)
}

func (h *TimezoneHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.timezones.ListAll(r.Context(), principal, offset, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to list timezones")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.TimezoneView]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *TimezoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, err := parseID(r, "timezoneID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.timezones.Get(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to fetch timezone")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TimezoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, err := parseID(r, "timezoneID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var proposal types.TimezoneProposal
	if err := decodeJSON(w, r, &proposal); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.timezones.Update(r.Context(), principal, id, proposal)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to update timezone")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TimezoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, err := parseID(r, "timezoneID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.timezones.Delete(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to delete timezone")
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (h *TimezoneHandler) list(w http.ResponseWriter, r *http.Request, principal types.Principal, ownerID int) {
	items, err := h.timezones.ListForOwner(r.Context(), principal, ownerID)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to list timezones")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *TimezoneHandler) create(w http.ResponseWriter, r *http.Request, principal types.Principal, ownerID int) {
	var req CreateTimezoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.timezones.Create(r.Context(), principal, ownerID, req.Name, req.City, req.Country)
	if err != nil {
		writeServiceError(w, h.log, err, "failed to create timezone")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
