package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/aretw0/canopy"
	httpAdapter "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_ShutdownEndsStreams(t *testing.T) {
	studio := canopy.New()
	t.Cleanup(func() { _ = studio.Close() })
	require.NoError(t, studio.Sessions().Ensure(context.Background(), "s1"))

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := newHTTPServer(baseCtx, cancel, "127.0.0.1:0", httpAdapter.NewHandler(studio))

	ln, err := net.Listen("tcp", srv.Addr)
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	ws, _, err := websocket.Dial(ctx, "ws://"+ln.Addr().String()+"/ws/sessions/s1", nil)
	require.NoError(t, err)
	defer ws.CloseNow()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, srv.Shutdown(shutdownCtx))
	assert.ErrorIs(t, <-served, http.ErrServerClosed)

	var v map[string]any
	err = wsjson.Read(ctx, ws, &v)
	require.Error(t, err)
	assert.NoError(t, ctx.Err(), "the stream ends with the server, not with the client's deadline")
	assert.Error(t, baseCtx.Err())
}
