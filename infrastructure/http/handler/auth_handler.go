package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/doara/doara/application/port/inbound"
	"github.com/doara/doara/application/usecase"
	"github.com/doara/doara/infrastructure/http/response"
	"github.com/doara/doara/infrastructure/http/validator"
)

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
}

func NewAuthHandler(authUseCase inbound.AuthUseCase) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.UnprocessableEntity(w, "Invalid email format")
		return
	}
	if !validator.ValidateRequired(req.Password) {
		response.UnprocessableEntity(w, "Password is required")
		return
	}

	loginRes, err := h.authUseCase.Login(r.Context(), inbound.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: getClientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAccountLocked):
			response.Unauthorized(w, "Account temporarily locked due to multiple failed login attempts")
		case errors.Is(err, usecase.ErrInvalidCredentials):
			response.Unauthorized(w, "Invalid email or password")
		case errors.Is(err, usecase.ErrServiceUnavailable):
			response.ServiceUnavailable(w, "Authentication service temporarily unavailable")
		default:
			response.InternalServerError(w, "Internal server error")
		}
		return
	}

	response.Success(w, http.StatusOK, "success", loginRes)
}

func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For may contain multiple IPs, the first one is the client
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
