package handlers

import (
	"context"
	"net/http"

	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

type UserService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, filter services.UserFilter) ([]models.User, error)
	Create(ctx context.Context, actor services.Actor, in services.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, actor services.Actor, id int64, in services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, actor services.Actor, id int64) error
}

type UserHandler struct {
	base
	service UserService
}

func NewUserHandler(service UserService, production bool) *UserHandler {
	return &UserHandler{base: newBase("USERS", production), service: service}
}

type CreateUserRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,min=6,max=20" example:"+85291234567"`
	Role        string `json:"role" validate:"omitempty,oneof=super_admin admin leader responsible_one usher member" example:"member"`
	District    string `json:"district" validate:"max=100" example:"North"`
	GroupNumber string `json:"groupNumber" validate:"max=20" example:"3"`
	EnglishName string `json:"englishName" validate:"max=100" example:"Grace Lee"`
	ChineseName string `json:"chineseName" validate:"max=100"`
}

// UpdateUserRequest only changes the fields present in the body.
type UpdateUserRequest struct {
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=super_admin admin leader responsible_one usher member"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended"`
	District    *string `json:"district,omitempty" validate:"omitempty,max=100"`
	GroupNumber *string `json:"groupNumber,omitempty" validate:"omitempty,max=20"`
	EnglishName *string `json:"englishName,omitempty" validate:"omitempty,max=100"`
	ChineseName *string `json:"chineseName,omitempty" validate:"omitempty,max=100"`
}

// List returns users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param status query string false "Filter by status"
// @Param district query string false "Filter by district"
// @Param limit query int false "Maximum rows (default 200)"
// @Success 200 {array} models.User
// @Failure 403 {object} services.ErrorResponse
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intQuery(w, r, "limit")
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := services.UserFilter{District: q.Get("district"), Limit: limit}
	if raw := q.Get("role"); raw != "" {
		role, ok := models.NormalizeRole(raw)
		if !ok {
			services.SendErrorResponse(w, "Invalid role", http.StatusBadRequest, nil)
			return
		}
		filter.Role = role
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseUserStatus(raw)
		if !ok {
			services.SendErrorResponse(w, "Invalid status", http.StatusBadRequest, nil)
			return
		}
		filter.Status = status
	}

	users, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, users)
}

// Get returns one user; members may only fetch themselves
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	if !actor.CanModify(id) {
		services.SendErrorResponse(w, "Insufficient permissions", http.StatusForbidden, nil)
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, user)
}

// Create adds a phone number to the whitelist
// @Summary Create user
// @Description Only a super admin may create admins
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Phone number already registered"
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Create(r.Context(), actor, services.CreateUserInput{
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
		District:    req.District,
		GroupNumber: req.GroupNumber,
		EnglishName: req.EnglishName,
		ChineseName: req.ChineseName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, user)
}

// Update edits a user
// @Summary Update user
// @Description Admins may change every field; members may change their own names
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} models.User
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), actor, id, services.UpdateUserInput{
		Role:        req.Role,
		Status:      req.Status,
		District:    req.District,
		GroupNumber: req.GroupNumber,
		EnglishName: req.EnglishName,
		ChineseName: req.ChineseName,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, user)
}

// Delete removes a user and their sessions
// @Summary Delete user
// @Description Super admin only
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} messageResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, messageResponse{Success: true})
}
