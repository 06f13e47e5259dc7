package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doara/doara/infrastructure/service/logger"
)

const testQueue = "rpc:test:requests"

func newTestBroker(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func testLogger() logger.Logger {
	return logger.NewStructuredLogger(logger.Config{Level: "error", Format: "json", ServiceName: "test"})
}

type echoPayload struct {
	Value string `json:"value"`
}

func startTestServer(t *testing.T, rdb *redis.Client, register func(*Server)) {
	t.Helper()

	srv := NewServer(rdb, testQueue, 2, testLogger())
	register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	var required []string
	for cmd := range srv.handlers {
		required = append(required, cmd)
	}
	require.NoError(t, srv.Start(ctx, required))

	t.Cleanup(func() {
		cancel()
		// Unblock any worker parked on BRPop so Wait returns promptly.
		rdb.RPush(context.Background(), testQueue, "shutdown")
		rdb.RPush(context.Background(), testQueue, "shutdown")
		srv.Wait()
	})
}

func TestCallRoundTrip(t *testing.T) {
	_, rdb := newTestBroker(t)

	startTestServer(t, rdb, func(srv *Server) {
		srv.Register("echo", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			var req echoPayload
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, err
			}
			return echoPayload{Value: req.Value + "-pong"}, nil
		})
	})

	client := NewClient(rdb, testQueue, 2*time.Second, testLogger())

	var res echoPayload
	err := client.Call(context.Background(), "echo", echoPayload{Value: "ping"}, &res)

	assert.NoError(t, err)
	assert.Equal(t, "ping-pong", res.Value)
}

func TestCallPreservesErrorEnvelope(t *testing.T) {
	_, rdb := newTestBroker(t)

	startTestServer(t, rdb, func(srv *Server) {
		srv.Register("conflict", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, NewRemoteError(409, "email already in use", "Conflict")
		})
	})

	client := NewClient(rdb, testQueue, 2*time.Second, testLogger())

	err := client.Call(context.Background(), "conflict", echoPayload{}, nil)

	remote, ok := AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 409, remote.StatusCode)
	assert.Equal(t, "email already in use", remote.Message)
	assert.Equal(t, "Conflict", remote.ErrorKind)
}

func TestCallCoercesUnstructuredError(t *testing.T) {
	_, rdb := newTestBroker(t)

	startTestServer(t, rdb, func(srv *Server) {
		srv.Register("boom", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, errors.New("sql: connection refused")
		})
	})

	client := NewClient(rdb, testQueue, 2*time.Second, testLogger())

	err := client.Call(context.Background(), "boom", echoPayload{}, nil)

	remote, ok := AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 500, remote.StatusCode)
	// The raw failure detail must not cross the boundary.
	assert.Equal(t, "internal server error", remote.Message)
	assert.Equal(t, "InternalError", remote.ErrorKind)
}

func TestCallUnknownCommand(t *testing.T) {
	_, rdb := newTestBroker(t)

	startTestServer(t, rdb, func(srv *Server) {
		srv.Register("known", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			return nil, nil
		})
	})

	client := NewClient(rdb, testQueue, 2*time.Second, testLogger())

	err := client.Call(context.Background(), "unknown", echoPayload{}, nil)

	remote, ok := AsRemote(err)
	require.True(t, ok)
	assert.Equal(t, 501, remote.StatusCode)
	assert.Equal(t, "UnknownCommand", remote.ErrorKind)
}

func TestCallTimeoutWithoutServer(t *testing.T) {
	_, rdb := newTestBroker(t)

	client := NewClient(rdb, testQueue, 100*time.Millisecond, testLogger())

	err := client.Call(context.Background(), "echo", echoPayload{Value: "ping"}, nil)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestCallUnavailableBroker(t *testing.T) {
	mr, rdb := newTestBroker(t)
	mr.Close()

	client := NewClient(rdb, testQueue, 100*time.Millisecond, testLogger())

	err := client.Call(context.Background(), "echo", echoPayload{Value: "ping"}, nil)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEmitDoesNotWait(t *testing.T) {
	_, rdb := newTestBroker(t)

	handled := make(chan string, 1)
	startTestServer(t, rdb, func(srv *Server) {
		srv.Register("event", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			var req echoPayload
			_ = json.Unmarshal(payload, &req)
			handled <- req.Value
			return nil, nil
		})
	})

	client := NewClient(rdb, testQueue, 2*time.Second, testLogger())

	err := client.Emit(context.Background(), "event", echoPayload{Value: "fire"})
	assert.NoError(t, err)

	select {
	case v := <-handled:
		assert.Equal(t, "fire", v)
	case <-time.After(2 * time.Second):
		t.Fatal("event was never handled")
	}
}

func TestStartRejectsIncompleteDispatchTable(t *testing.T) {
	_, rdb := newTestBroker(t)

	srv := NewServer(rdb, testQueue, 1, testLogger())
	srv.Register("a", func(ctx context.Context, payload json.RawMessage) (interface{}, error) { return nil, nil })

	err := srv.Start(context.Background(), []string{"a", "b", "c"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	assert.Contains(t, err.Error(), "c")
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	_, rdb := newTestBroker(t)

	srv := NewServer(rdb, testQueue, 1, testLogger())
	srv.Register("a", func(ctx context.Context, payload json.RawMessage) (interface{}, error) { return nil, nil })

	assert.Panics(t, func() {
		srv.Register("a", func(ctx context.Context, payload json.RawMessage) (interface{}, error) { return nil, nil })
	})
}
