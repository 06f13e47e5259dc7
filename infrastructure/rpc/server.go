package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/doara/doara/infrastructure/service/logger"
)

// replyTTL bounds how long an unclaimed reply survives on the broker. A
// caller that already timed out never collects its reply; the key must not
// leak.
const replyTTL = 30 * time.Second

// brpopInterval is the poll window per blocking pop so workers observe
// context cancellation promptly.
const brpopInterval = time.Second

// HandlerFunc processes one command payload and returns the result to encode,
// or an error. Business errors should be *RemoteError so the caller keeps the
// status code; anything else is coerced to a generic internal error.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Server consumes the request list with a bounded worker pool and dispatches
// through an explicit command table validated at startup.
type Server struct {
	redis    *redis.Client
	queue    string
	prefetch int
	log      logger.Logger

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	started  bool
	wg       sync.WaitGroup
}

func NewServer(rdb *redis.Client, queue string, prefetch int, log logger.Logger) *Server {
	if prefetch <= 0 {
		prefetch = 8
	}
	return &Server{
		redis:    rdb,
		queue:    queue,
		prefetch: prefetch,
		log:      log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a command tag to its handler. Registration after Start is a
// programming error.
func (s *Server) Register(cmd string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("rpc: Register called after Start")
	}
	if _, dup := s.handlers[cmd]; dup {
		panic(fmt.Sprintf("rpc: duplicate handler for command %q", cmd))
	}
	s.handlers[cmd] = handler
}

// Start validates the dispatch table against the required command set and
// launches the worker pool. At most prefetch commands are in flight at once.
func (s *Server) Start(ctx context.Context, required []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("rpc: server already started")
	}

	var missing []string
	for _, cmd := range required {
		if _, ok := s.handlers[cmd]; !ok {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("rpc: dispatch table incomplete, missing handlers: %v", missing)
	}

	s.started = true
	for i := 0; i < s.prefetch; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.log.Info(ctx, "RPC server started", map[string]interface{}{
		"queue":    s.queue,
		"prefetch": s.prefetch,
		"commands": len(s.handlers),
	})
	return nil
}

// Wait blocks until every worker has drained after context cancellation.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		reply, err := s.redis.BRPop(ctx, brpopInterval, s.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.log.Error(ctx, "Failed to pop request", err, map[string]interface{}{
				"queue":  s.queue,
				"worker": id,
			})
			time.Sleep(time.Second)
			continue
		}
		if len(reply) != 2 {
			continue
		}

		s.handleMessage(ctx, []byte(reply[1]))
	}
}

func (s *Server) handleMessage(ctx context.Context, raw []byte) {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.log.Error(ctx, "Dropping malformed request", err, map[string]interface{}{
			"queue": s.queue,
		})
		return
	}

	handler, ok := s.handlers[req.Cmd]
	if !ok {
		s.log.Warn(ctx, "Unknown command", map[string]interface{}{
			"cmd":        req.Cmd,
			"request_id": req.ID,
		})
		s.reply(ctx, &req, nil, NewRemoteError(501, fmt.Sprintf("unknown command: %s", req.Cmd), "UnknownCommand"))
		return
	}

	result, err := handler(ctx, req.Payload)
	if err != nil {
		if _, isBusiness := AsRemote(err); !isBusiness {
			s.log.Error(ctx, "Handler failed", err, map[string]interface{}{
				"cmd":        req.Cmd,
				"request_id": req.ID,
			})
		}
		s.reply(ctx, &req, nil, err)
		return
	}
	s.reply(ctx, &req, result, nil)
}

func (s *Server) reply(ctx context.Context, req *request, result interface{}, handlerErr error) {
	// Events carry no reply address; outcomes stay on the service side.
	if req.ReplyTo == "" {
		return
	}

	resp := response{ID: req.ID}
	if handlerErr != nil {
		resp.Error = coerceEnvelope(handlerErr)
	} else if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			s.log.Error(ctx, "Failed to encode result", err, map[string]interface{}{
				"cmd":        req.Cmd,
				"request_id": req.ID,
			})
			resp.Error = coerceEnvelope(err)
		} else {
			resp.Result = raw
		}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error(ctx, "Failed to encode response", err, map[string]interface{}{
			"request_id": req.ID,
		})
		return
	}

	pipe := s.redis.Pipeline()
	pipe.RPush(ctx, req.ReplyTo, data)
	pipe.Expire(ctx, req.ReplyTo, replyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error(ctx, "Failed to deliver reply", err, map[string]interface{}{
			"cmd":        req.Cmd,
			"request_id": req.ID,
		})
	}
}
