// Package directory is the gateway's adapter to the user service. It owns no
// state; every call crosses the message channel and comes back with either a
// result, a status envelope, or a transport fault.
package directory

import (
	"context"
	"time"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/rpc"
	"github.com/doara/doara/infrastructure/rpc/commands"
	"github.com/doara/doara/infrastructure/service/logger"
)

// Client implements the gateway's outbound ports over the RPC shim. Audit
// queries get a larger deadline than command calls; audit writes are emitted
// without waiting.
type Client struct {
	rpc          *rpc.Client
	queryTimeout time.Duration
	log          logger.Logger
}

var (
	_ outbound.CredentialReader = (*Client)(nil)
	_ outbound.LockoutClient    = (*Client)(nil)
	_ outbound.AuditEmitter     = (*Client)(nil)
	_ outbound.AuditQueryClient = (*Client)(nil)
)

func NewClient(rpcClient *rpc.Client, queryTimeout time.Duration, log logger.Logger) *Client {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Client{
		rpc:          rpcClient,
		queryTimeout: queryTimeout,
		log:          log,
	}
}

// FindByEmailWithPassword fetches the credential for an email. A nil
// credential with nil error means the email is unknown; the caller decides
// how to respond without leaking that distinction.
func (c *Client) FindByEmailWithPassword(ctx context.Context, email string) (*entity.Credential, error) {
	var cred *entity.Credential
	err := c.rpc.Call(ctx, commands.FindUserByEmailWithPassword, commands.EmailPayload{Email: email}, &cred)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (c *Client) IsAccountLocked(ctx context.Context, email string) (bool, error) {
	var res commands.LockStatusResult
	err := c.rpc.Call(ctx, commands.IsAccountLocked, commands.EmailPayload{Email: email}, &res)
	if err != nil {
		return false, err
	}
	return res.Locked, nil
}

func (c *Client) RecordFailedLogin(ctx context.Context, email string) error {
	return c.rpc.Call(ctx, commands.RecordFailedLogin, commands.EmailPayload{Email: email}, nil)
}

func (c *Client) ResetFailedLoginAttempts(ctx context.Context, userID string) error {
	return c.rpc.Call(ctx, commands.ResetFailedLoginAttempts, commands.UserIDPayload{UserID: userID}, nil)
}

// Emit ships an audit entry without waiting. A broker fault is logged and
// dropped; audit delivery never gates the login flow.
func (c *Client) Emit(ctx context.Context, entry *entity.AuditEntry) {
	if entry == nil {
		return
	}
	if err := c.rpc.Emit(ctx, commands.RecordAuditEvent, entry); err != nil {
		c.log.Error(ctx, "Failed to emit audit event", err, map[string]interface{}{
			"action": entry.Action,
		})
	}
}

func (c *Client) LogsByUser(ctx context.Context, userID string, limit int) ([]*entity.AuditEntry, error) {
	var entries []*entity.AuditEntry
	err := c.rpc.CallWithTimeout(ctx, commands.GetAuditLogsByUser,
		commands.LogsByUserPayload{UserID: userID, Limit: limit}, &entries, c.queryTimeout)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) LogsByAction(ctx context.Context, action entity.AuditAction, limit int) ([]*entity.AuditEntry, error) {
	var entries []*entity.AuditEntry
	err := c.rpc.CallWithTimeout(ctx, commands.GetAuditLogsByAction,
		commands.LogsByActionPayload{Action: string(action), Limit: limit}, &entries, c.queryTimeout)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) LogsByDateRange(ctx context.Context, start, end time.Time, limit int) ([]*entity.AuditEntry, error) {
	var entries []*entity.AuditEntry
	err := c.rpc.CallWithTimeout(ctx, commands.GetAuditLogsByDateRange,
		commands.LogsByDateRangePayload{Start: start, End: end, Limit: limit}, &entries, c.queryTimeout)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
