package ws_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sascheck/internal/domain"
	"sascheck/internal/protocol/auth"
	"sascheck/internal/protocol/fsm"
	"sascheck/internal/transport/ws"
)

func pair(t *testing.T) (*ws.Link, *ws.Link) {
	t.Helper()
	srv, err := ws.Listen("127.0.0.1:0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	cli := ws.Dial(context.Background(), srv.URL())
	t.Cleanup(func() { _ = cli.Close() })

	require.Eventually(t, func() bool { return srv.Connected() && cli.Connected() }, 5*time.Second, 10*time.Millisecond)
	return srv, cli
}

type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (i *inbox) add(b []byte) {
	i.mu.Lock()
	i.msgs = append(i.msgs, string(b))
	i.mu.Unlock()
}

func (i *inbox) all() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.msgs...)
}

func TestSendBeforeConnect(t *testing.T) {
	srv, err := ws.Listen("127.0.0.1:0", "")
	require.NoError(t, err)
	defer srv.Close()

	assert.False(t, srv.Connected())
	assert.ErrorIs(t, srv.Send([]byte("x")), domain.ErrNotConnected)
	assert.True(t, strings.HasPrefix(srv.URL(), "ws://127.0.0.1:"))
}

func TestFramesFlowBothWays(t *testing.T) {
	srv, cli := pair(t)

	var fromCli, fromSrv inbox
	defer srv.OnMessage(fromCli.add)()
	defer cli.OnMessage(fromSrv.add)()

	require.NoError(t, cli.Send([]byte("one")))
	require.NoError(t, cli.Send([]byte("two")))
	require.NoError(t, srv.Send([]byte("three")))

	assert.Eventually(t, func() bool { return len(fromCli.all()) == 2 && len(fromSrv.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, fromCli.all())
	assert.Equal(t, []string{"three"}, fromSrv.all())
}

func TestBacklogReplayedOnSubscribe(t *testing.T) {
	srv, cli := pair(t)
	require.NoError(t, cli.Send([]byte("early")))
	time.Sleep(50 * time.Millisecond)

	var got inbox
	defer srv.OnMessage(got.add)()
	assert.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestSecondPeerRejected(t *testing.T) {
	srv, _ := pair(t)

	resp, err := http.Get("http" + strings.TrimPrefix(srv.URL(), "ws"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCloseNotifiesPeer(t *testing.T) {
	srv, cli := pair(t)

	closed := make(chan error, 1)
	defer srv.OnClose(func(err error) { closed <- err })()
	down := make(chan struct{}, 1)
	defer srv.OnDown(func() { down <- struct{}{} })()

	require.NoError(t, cli.Close())
	select {
	case err := <-closed:
		assert.ErrorIs(t, err, domain.ErrTransportClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("peer close not reported")
	}
	<-down
	assert.ErrorIs(t, srv.Send([]byte("late")), domain.ErrTransportClosed)
	assert.ErrorIs(t, cli.Send([]byte("late")), domain.ErrTransportClosed)
}

func TestAuthenticationOverLink(t *testing.T) {
	srv, err := ws.Listen("127.0.0.1:0", "")
	require.NoError(t, err)
	defer srv.Close()
	cli := ws.Dial(context.Background(), srv.URL())
	defer cli.Close()

	opts := auth.Options{
		RoomID:    "room-ws",
		SessionID: "session-ws",
		Policy:    domain.PolicyLive,
		SendMsg:   []byte("sender key"),
		RecvMsg:   []byte("receiver key"),
	}
	accept := func(context.Context, string) (bool, error) { return true, nil }

	s, err := auth.NewSender(cli, opts, auth.Hooks{WaitConfirm: accept})
	require.NoError(t, err)
	r, err := auth.NewReceiver(srv, opts, auth.Hooks{WaitConfirm: accept})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type out struct {
		res auth.Result
		err error
	}
	sCh, rCh := make(chan out, 1), make(chan out, 1)
	go func() { res, err := s.Run(ctx); sCh <- out{res, err} }()
	go func() { res, err := r.Run(ctx); rCh <- out{res, err} }()

	so, ro := <-sCh, <-rCh
	require.NoError(t, so.err)
	require.NoError(t, ro.err)
	assert.Equal(t, fsm.Ready, so.res.State)
	assert.Equal(t, so.res.SAS, ro.res.SAS)
	assert.Equal(t, []byte("receiver key"), so.res.PeerMsg)
}
