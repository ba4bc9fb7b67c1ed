package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-app-console/internal/middleware"
	"go-app-console/internal/model"
	"go-app-console/internal/service"
	"go-app-console/pkg/apierror"
)

type ApplicationHandler struct {
	service *service.ApplicationService
}

func NewApplicationHandler(service *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	query := parseListQuery(r)
	apps, total, err := h.service.FindAll(r.Context(), user, query)
	if err != nil {
		writeError(w, err)
		return
	}

	totalPages := 0
	if query.Limit > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}
	meta := &model.Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}
	writeSuccess(w, http.StatusOK, apps, meta)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	app, err := h.service.FindByID(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, app, nil)
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	app, err := h.service.Create(r.Context(), user, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, app, nil)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.UpdateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	app, err := h.service.Update(r.Context(), user, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, app, nil)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	app, err := h.service.Delete(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, app, nil)
}

func (h *ApplicationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	app, err := h.service.InviteUser(r.Context(), user, chi.URLParam(r, "id"), payload.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, app, nil)
}

func (h *ApplicationHandler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	apiKey, err := h.service.GetAPIKey(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"api_key": apiKey}, nil)
}

func (h *ApplicationHandler) RefreshAPIKey(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.RefreshAPIKey(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.Message{Message: "API key refreshed successfully."}, nil)
}

// Current returns the application resolved by the application-key guard.
func (h *ApplicationHandler) Current(w http.ResponseWriter, r *http.Request) {
	app, ok := middleware.ApplicationFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	writeSuccess(w, http.StatusOK, app, nil)
}

func parseListQuery(r *http.Request) model.ListQuery {
	query := model.ListQuery{Order: strings.ToLower(r.URL.Query().Get("order"))}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		query.Limit = limit
	}
	return query.Normalized()
}
