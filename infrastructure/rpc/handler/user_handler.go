// Package handler binds the user service's business logic to the command
// dispatcher. Each handler decodes its wire payload, invokes the use case,
// and translates domain errors into the status envelope the gateway expects.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/application/usecase"
	"github.com/doara/doara/infrastructure/rpc"
	"github.com/doara/doara/infrastructure/rpc/commands"
)

// UserHandler serves the user CRUD and account protection commands.
type UserHandler struct {
	users       *usecase.UserUseCase
	credentials outbound.CredentialReader
	lockout     outbound.LockoutClient
}

func NewUserHandler(
	users *usecase.UserUseCase,
	credentials outbound.CredentialReader,
	lockout outbound.LockoutClient,
) *UserHandler {
	return &UserHandler{
		users:       users,
		credentials: credentials,
		lockout:     lockout,
	}
}

// Register installs every user command on the dispatcher.
func (h *UserHandler) Register(srv *rpc.Server) {
	srv.Register(commands.CreateUser, h.createUser)
	srv.Register(commands.FindAllUsers, h.findAllUsers)
	srv.Register(commands.FindUserByID, h.findUserByID)
	srv.Register(commands.FindUserByEmail, h.findUserByEmail)
	srv.Register(commands.FindUserByUsername, h.findUserByUsername)
	srv.Register(commands.UpdateUser, h.updateUser)
	srv.Register(commands.DeleteUser, h.deleteUser)
	srv.Register(commands.HardDeleteUser, h.hardDeleteUser)
	srv.Register(commands.FindUserByEmailWithPassword, h.findUserByEmailWithPassword)
	srv.Register(commands.IsAccountLocked, h.isAccountLocked)
	srv.Register(commands.RecordFailedLogin, h.recordFailedLogin)
	srv.Register(commands.ResetFailedLoginAttempts, h.resetFailedLoginAttempts)
}

func (h *UserHandler) createUser(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req usecase.CreateUserRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	user, err := h.users.Create(ctx, req)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

func (h *UserHandler) findAllUsers(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.PagePayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return h.users.List(ctx, req.Page, req.Limit)
}

func (h *UserHandler) findUserByID(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.IDPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	user, err := h.users.FindByID(ctx, req.ID)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

func (h *UserHandler) findUserByEmail(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.EmailPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return h.users.FindByEmail(ctx, req.Email)
}

func (h *UserHandler) findUserByUsername(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.UsernamePayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return h.users.FindByUsername(ctx, req.Username)
}

func (h *UserHandler) updateUser(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req usecase.UpdateUserRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	user, err := h.users.Update(ctx, req)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

func (h *UserHandler) deleteUser(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.IDPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if err := h.users.SoftDelete(ctx, req.ID, req.ActorID); err != nil {
		return nil, mapUserError(err)
	}
	return nil, nil
}

func (h *UserHandler) hardDeleteUser(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.IDPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if err := h.users.HardDelete(ctx, req.ID, req.ActorID); err != nil {
		return nil, mapUserError(err)
	}
	return nil, nil
}

// findUserByEmailWithPassword is the single command allowed to cross the
// redaction boundary. A null result means the email is unknown.
func (h *UserHandler) findUserByEmailWithPassword(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.EmailPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	cred, err := h.credentials.FindByEmailWithPassword(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (h *UserHandler) isAccountLocked(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.EmailPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	locked, err := h.lockout.IsAccountLocked(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	return commands.LockStatusResult{Locked: locked}, nil
}

func (h *UserHandler) recordFailedLogin(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.EmailPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return nil, h.lockout.RecordFailedLogin(ctx, req.Email)
}

func (h *UserHandler) resetFailedLoginAttempts(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req commands.UserIDPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return nil, h.lockout.ResetFailedLoginAttempts(ctx, req.UserID)
}

func decode(payload json.RawMessage, dst interface{}) error {
	if len(payload) == 0 {
		return rpc.NewRemoteError(400, "missing payload", "BadRequest")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return rpc.NewRemoteError(400, fmt.Sprintf("invalid payload: %v", err), "BadRequest")
	}
	return nil
}

// mapUserError turns repository sentinels into the status envelope. Anything
// unrecognized passes through and is coerced to a generic 500 at the reply
// boundary.
func mapUserError(err error) error {
	switch {
	case errors.Is(err, outbound.ErrUserNotFound):
		return rpc.NewRemoteError(404, "user not found", "NotFound")
	case errors.Is(err, outbound.ErrEmailTaken):
		return rpc.NewRemoteError(409, "email already in use", "Conflict")
	case errors.Is(err, outbound.ErrUsernameTaken):
		return rpc.NewRemoteError(409, "username already in use", "Conflict")
	default:
		return err
	}
}
