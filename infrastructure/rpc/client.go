package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/doara/doara/infrastructure/service/logger"
)

const replyKeyPrefix = "rpc:reply:"

// Client issues commands over the durable request list and waits for the
// per-call reply. The wait suspends only the calling goroutine; a reply that
// arrives after the deadline is left to expire on the broker.
type Client struct {
	redis          *redis.Client
	queue          string
	defaultTimeout time.Duration
	log            logger.Logger
}

func NewClient(rdb *redis.Client, queue string, defaultTimeout time.Duration, log logger.Logger) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	return &Client{
		redis:          rdb,
		queue:          queue,
		defaultTimeout: defaultTimeout,
		log:            log,
	}
}

// Call sends cmd with payload and decodes the reply into result (which may be
// nil for void commands). It returns a *RemoteError for service-raised
// business errors, ErrTimeout when the deadline passes, and ErrUnavailable
// for transport faults.
func (c *Client) Call(ctx context.Context, cmd string, payload, result interface{}) error {
	return c.CallWithTimeout(ctx, cmd, payload, result, c.defaultTimeout)
}

// CallWithTimeout is Call with an explicit per-call deadline, used for call
// classes with a larger budget such as audit queries.
func (c *Client) CallWithTimeout(ctx context.Context, cmd string, payload, result interface{}, timeout time.Duration) error {
	req, err := c.buildRequest(cmd, payload)
	if err != nil {
		return err
	}
	req.ReplyTo = replyKeyPrefix + req.ID

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	if err := c.redis.RPush(ctx, c.queue, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reply, err := c.redis.BLPop(ctx, timeout, req.ReplyTo).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.log.Warn(ctx, "RPC call timed out", map[string]interface{}{
				"cmd":        cmd,
				"timeout":    timeout.String(),
				"request_id": req.ID,
			})
			return fmt.Errorf("%w: %s after %s", ErrTimeout, cmd, timeout)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// BLPop returns [key, value].
	if len(reply) != 2 {
		return fmt.Errorf("%w: malformed reply", ErrUnavailable)
	}

	var resp response
	if err := json.Unmarshal([]byte(reply[1]), &resp); err != nil {
		return fmt.Errorf("%w: decode reply: %v", ErrUnavailable, err)
	}

	if resp.Error != nil {
		return &RemoteError{Envelope: *resp.Error}
	}

	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%w: decode result: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// Emit sends cmd without a reply address and does not wait for an outcome.
// Used for fire-and-forget events such as audit writes.
func (c *Client) Emit(ctx context.Context, cmd string, payload interface{}) error {
	req, err := c.buildRequest(cmd, payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	if err := c.redis.RPush(ctx, c.queue, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) buildRequest(cmd string, payload interface{}) (*request, error) {
	req := &request{
		ID:  uuid.New().String(),
		Cmd: cmd,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal payload: %v", ErrUnavailable, err)
		}
		req.Payload = raw
	}
	return req, nil
}
