package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/churchapp/backend/internal/middleware"
	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

// base carries what every handler needs: request validation and the error
// writer.
type base struct {
	tag        string
	validator  *services.ValidationHelper
	production bool
}

func newBase(tag string, production bool) base {
	return base{tag: tag, validator: services.NewValidationHelper(), production: production}
}

// decode reads and validates a JSON body, answering 400 on failure.
func (b base) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if msg, err := b.validator.DecodeJSON(w, r, dst); err != nil {
		log.Printf("[%s] %s %s - %s: %v", b.tag, r.Method, r.URL.Path, msg, err)
		services.SendErrorResponse(w, msg, http.StatusBadRequest, err)
		return false
	}
	return true
}

// fail writes err with the status its sentinel maps to. Internal errors are
// logged and, in production, replaced by a generic message.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := services.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s - internal error: %v", b.tag, r.Method, r.URL.Path, err)
		message := err.Error()
		if b.production {
			message = "An Internal Error Occurred"
		}
		services.SendErrorResponse(w, message, status, nil)
		return
	}

	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		services.SendErrorDetails(w, conflict.Message, status, conflict.Details())
		return
	}
	services.SendErrorResponse(w, err.Error(), status, nil)
}

// actor returns the authenticated caller. Routes using it sit behind
// RequireAuth, so a missing user is answered with 401.
func (b base) actor(w http.ResponseWriter, r *http.Request) (services.Actor, *models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return services.Actor{}, nil, false
	}
	return services.ActorFromUser(user), user, true
}

func (b base) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

func (b base) dateQuery(w http.ResponseWriter, r *http.Request, name string) (models.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return models.Date{}, true
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return models.Date{}, false
	}
	return d, true
}

func (b base) intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return n, true
}

type messageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty"`
}
