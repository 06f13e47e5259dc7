package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/doara/doara/application/usecase"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/http/response"
	"github.com/doara/doara/infrastructure/rpc"
)

// AuditHandler exposes the audit trail to administrators. Every route behind
// it requires an admin token.
type AuditHandler struct {
	auditUseCase *usecase.AuditUseCase
}

func NewAuditHandler(auditUseCase *usecase.AuditUseCase) *AuditHandler {
	return &AuditHandler{
		auditUseCase: auditUseCase,
	}
}

func (h *AuditHandler) LogsByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		response.BadRequest(w, "User id is required")
		return
	}

	entries, err := h.auditUseCase.LogsByUser(r.Context(), userID, parseLimit(r))
	if err != nil {
		writeAuditError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", entries)
}

func (h *AuditHandler) LogsByAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	if action == "" {
		response.BadRequest(w, "Action is required")
		return
	}

	entries, err := h.auditUseCase.LogsByAction(r.Context(), entity.AuditAction(action), parseLimit(r))
	if err != nil {
		writeAuditError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", entries)
}

func (h *AuditHandler) LogsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		response.BadRequest(w, "Invalid start date, expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		response.BadRequest(w, "Invalid end date, expected RFC3339")
		return
	}
	if end.Before(start) {
		response.BadRequest(w, "End date must not precede start date")
		return
	}

	entries, err := h.auditUseCase.LogsByDateRange(r.Context(), start, end, parseLimit(r))
	if err != nil {
		writeAuditError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", entries)
}

func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.auditUseCase.Recent(r.Context(), parseLimit(r))
	if err != nil {
		writeAuditError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", entries)
}

func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.auditUseCase.Stats(r.Context())
	if err != nil {
		writeAuditError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", stats)
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

func writeAuditError(w http.ResponseWriter, err error) {
	if remote, ok := rpc.AsRemote(err); ok {
		response.Error(w, remote.Envelope.StatusCode, remote.Envelope.Message)
		return
	}
	if errors.Is(err, rpc.ErrTimeout) || errors.Is(err, rpc.ErrUnavailable) {
		response.ServiceUnavailable(w, "Audit service temporarily unavailable")
		return
	}
	response.InternalServerError(w, "Internal server error")
}
