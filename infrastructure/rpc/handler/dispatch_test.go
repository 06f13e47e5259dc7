package handler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/doara/doara/infrastructure/rpc"
	"github.com/doara/doara/infrastructure/rpc/commands"
	"github.com/doara/doara/infrastructure/service/logger"
)

// The dispatch table must cover every command in the canonical list, or the
// service refuses to start. Registering both handlers has to be sufficient.
func TestHandlersCoverEveryCommand(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	log := logger.NewStructuredLogger(logger.Config{Level: "error", Format: "json", ServiceName: "test"})
	srv := rpc.NewServer(rdb, commands.UserServiceQueue, 1, log)

	NewUserHandler(nil, nil, nil).Register(srv)
	NewAuditHandler(nil).Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx, commands.UserService()))

	cancel()
	rdb.RPush(context.Background(), commands.UserServiceQueue, "shutdown")
	srv.Wait()
}
