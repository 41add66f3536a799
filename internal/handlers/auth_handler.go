package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/churchapp/backend/internal/middleware"
	"github.com/churchapp/backend/internal/models"
	"github.com/churchapp/backend/internal/services"
)

// AuthService is the login flow the auth endpoints drive.
type AuthService interface {
	middleware.Authenticator
	CheckPhone(ctx context.Context, phoneNumber string) (services.PhoneStatus, error)
	SendCode(ctx context.Context, phoneNumber string) error
	VerifyCode(ctx context.Context, phoneNumber, code, deviceID string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string, session *models.Session) error
	Sessions(ctx context.Context, userID int64) ([]models.Session, error)
}

type AuthHandler struct {
	base
	service AuthService
}

func NewAuthHandler(service AuthService, production bool) *AuthHandler {
	return &AuthHandler{base: newBase("AUTH", production), service: service}
}

type PhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,min=6,max=20" example:"+85291234567"`
}

type VerifyCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,min=6,max=20" example:"+85291234567"`
	Code        string `json:"code" validate:"required,numeric,min=4,max=8" example:"123456"`
	DeviceID    string `json:"deviceId" validate:"max=128" example:"ios-3F2504E0"`
}

// CheckPhone reports whether a phone number is on the whitelist
// @Summary Check phone number
// @Description Report whether a phone number is registered and active
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PhoneRequest true "Phone number"
// @Success 200 {object} services.PhoneStatus
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/check-phone [post]
func (h *AuthHandler) CheckPhone(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !h.decode(w, r, &req) {
		return
	}

	status, err := h.service.CheckPhone(r.Context(), req.PhoneNumber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, status)
}

// SendCode sends a login code by SMS
// @Summary Send verification code
// @Description Generate a one-time login code and send it by SMS
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PhoneRequest true "Phone number"
// @Success 200 {object} messageResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse "Not registered or inactive"
// @Failure 429 {object} services.ErrorResponse
// @Router /auth/send-code [post]
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.SendCode(r.Context(), req.PhoneNumber); err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Verification code sent"})
}

// VerifyCode exchanges a login code for a session token
// @Summary Verify code and log in
// @Description Verify the SMS code and open a session for the device
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Code verification"
// @Success 200 {object} services.LoginResult
// @Failure 400 {object} services.ErrorResponse "Wrong, expired or missing code"
// @Failure 429 {object} services.ErrorResponse "Too many attempts"
// @Router /auth/verify-code [post]
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = r.UserAgent()
	}

	result, err := h.service.VerifyCode(r.Context(), req.PhoneNumber, req.Code, req.DeviceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	_, user, ok := h.actor(w, r)
	if !ok {
		return
	}
	services.SendJSON(w, http.StatusOK, user)
}

// Sessions lists the caller's active sessions
// @Summary List active sessions
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Session
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/sessions [get]
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.actor(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.Sessions(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services.SendJSON(w, http.StatusOK, sessions)
}

// Logout revokes the current session
// @Summary Logout
// @Description Revoke the session and blacklist the token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} messageResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if err := h.service.Logout(r.Context(), middleware.TokenFromContext(r.Context()), session); err != nil {
		h.fail(w, r, err)
		return
	}
	log.Printf("[AUTH] session %d closed", session.ID)
	services.SendJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logout successful"})
}
