package handler

import (
	"context"
	"encoding/json"

	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/rpc"
	"github.com/doara/doara/infrastructure/rpc/commands"
	"github.com/doara/doara/infrastructure/service/audit"
)

// AuditHandler serves the audit trail commands: one fire-and-forget write
// and three bounded reads.
type AuditHandler struct {
	recorder *audit.Recorder
}

func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

func (h *AuditHandler) Register(srv *rpc.Server) {
	srv.Register(commands.RecordAuditEvent, h.recordAuditEvent)
	srv.Register(commands.GetAuditLogsByUser, h.logsByUser)
	srv.Register(commands.GetAuditLogsByAction, h.logsByAction)
	srv.Register(commands.GetAuditLogsByDateRange, h.logsByDateRange)
}

// recordAuditEvent never fails toward the caller: the write is best-effort
// and the command arrives without a reply address anyway.
func (h *AuditHandler) recordAuditEvent(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var entry entity.AuditEntry
	if err := decode(payload, &entry); err != nil {
		return nil, err
	}
	h.recorder.Record(ctx, &entry)
	return nil, nil
}

func (h *AuditHandler) logsByUser(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.LogsByUserPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return h.recorder.LogsByUser(ctx, req.UserID, req.Limit)
}

func (h *AuditHandler) logsByAction(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.LogsByActionPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return h.recorder.LogsByAction(ctx, entity.AuditAction(req.Action), req.Limit)
}

func (h *AuditHandler) logsByDateRange(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.LogsByDateRangePayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.End.Before(req.Start) {
		return nil, rpc.NewRemoteError(400, "end must not precede start", "BadRequest")
	}
	return h.recorder.LogsByDateRange(ctx, req.Start, req.End, req.Limit)
}
