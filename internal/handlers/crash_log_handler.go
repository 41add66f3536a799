package handlers

import (
	"context"
	"net/http"

	"github.com/churchapp/backend/internal/middleware"
	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

type CrashLogService interface {
	Create(ctx context.Context, userID *int64, in services.CrashLogInput) (*models.CrashLog, error)
	List(ctx context.Context, limit int) ([]models.CrashLog, error)
}

type CrashLogHandler struct {
	base
	service CrashLogService
}

func NewCrashLogHandler(service CrashLogService, production bool) *CrashLogHandler {
	return &CrashLogHandler{base: newBase("CRASH", production), service: service}
}

type CrashLogRequest struct {
	DeviceInfo   string `json:"deviceInfo" validate:"max=500" example:"iPhone 15, iOS 18.1"`
	AppVersion   string `json:"appVersion" validate:"max=50" example:"1.4.0"`
	ErrorMessage string `json:"errorMessage" validate:"required,max=2000" example:"TypeError: undefined is not an object"`
	StackTrace   string `json:"stackTrace"`
}

// Create stores a client crash report
// @Summary Report a crash
// @Description Token optional; the user is attached when one is sent
// @Tags crash-logs
// @Accept json
// @Produce json
// @Param request body CrashLogRequest true "Crash report"
// @Success 201 {object} models.CrashLog
// @Failure 400 {object} services.ErrorResponse
// @Router /crash-logs [post]
func (h *CrashLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CrashLogRequest
	if !h.decode(w, r, &req) {
		return
	}

	var userID *int64
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		userID = &user.ID
	}

	entry, err := h.service.Create(r.Context(), userID, services.CrashLogInput{
		DeviceInfo:   req.DeviceInfo,
		AppVersion:   req.AppVersion,
		ErrorMessage: req.ErrorMessage,
		StackTrace:   req.StackTrace,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusCreated, entry)
}

// List returns recent crash reports
// @Summary List crash reports
// @Tags crash-logs
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows (default 200)"
// @Success 200 {array} models.CrashLog
// @Failure 403 {object} services.ErrorResponse
// @Router /crash-logs [get]
func (h *CrashLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intQuery(w, r, "limit")
	if !ok {
		return
	}

	entries, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, entries)
}
