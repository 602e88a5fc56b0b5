package handlers

import (
	"net/http"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	users  *services.UserService
	reader *requestReader
}

func NewUserHandler(users *services.UserService, maxBodyBytes int64) *UserHandler {
	return &UserHandler{users: users, reader: newRequestReader(maxBodyBytes)}
}

// CreateUser registers a user
// @Summary Register a user
// @Description Create a user with an empty balance; the document is a CPF, punctuation allowed
// @Tags users
// @Accept json
// @Produce json
// @Param user body services.CreateUserRequest true "User data"
// @Success 201 {object} models.User
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.CreateUserRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), req)
	if err != nil {
		services.SendServiceError(w, err, "user.create.error")
		return
	}
	services.SendJSON(w, http.StatusCreated, user)
}

// ListUsers returns registered users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page (max 100)"
// @Success 200 {object} object{data=[]models.User,meta=services.PageMeta}
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := h.users.List(r.Context(), services.ParsePagination(r.URL.Query()))
	if err != nil {
		services.SendServiceError(w, err, "user.index.error")
		return
	}
	services.SendJSON(w, http.StatusOK, listResponse[models.User]{Data: users, Meta: meta})
}

// GetUser returns one user
// @Summary Get a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		services.SendServiceError(w, err, "user.show.error")
		return
	}
	services.SendJSON(w, http.StatusOK, user)
}

// UpdateUser changes the authenticated user's name or password
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param user body services.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 403 {object} services.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}

	var req services.UpdateUserRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), id, req)
	if err != nil {
		services.SendServiceError(w, err, "user.update.error")
		return
	}
	services.SendJSON(w, http.StatusOK, user)
}

// DeleteUser removes the authenticated user and everything they own
// @Summary Delete a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} services.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.self(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		services.SendServiceError(w, err, "user.delete.error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// self allows a user to modify only their own record.
func (h *UserHandler) self(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return "", false
	}
	id := chi.URLParam(r, "id")
	if id != userID {
		services.SendErrorResponse(w, "user.forbidden", http.StatusForbidden, nil)
		return "", false
	}
	return id, true
}
