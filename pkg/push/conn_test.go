package push_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api/apitest"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []push.Event
}

func (r *recorder) Handle(ev push.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)

	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func fastSettings() *push.Settings {
	settings := push.DefaultSettings()
	settings.ReconnectDelay = 10 * time.Millisecond

	return settings
}

func TestConnectJoinAndReceive(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv := apitest.NewServer(t)
	user, token := srv.AddUser("Ada", "ada@example.com")
	board := srv.AddBoard(user.ID, "b")

	router := push.NewRouter()
	rec := &recorder{}
	router.Subscribe(push.CardCreated, rec)

	conn := push.NewConn(srv.WSURL(), token, router, fastSettings())
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(conn.Close)

	assert.True(conn.Connected())
	require.NoError(t, conn.JoinBoard(board.ID))
	assert.Equal(board.ID, conn.CurrentBoard())
	assert.Eventually(func() bool { return srv.Joined(board.ID) == 1 }, time.Second, 5*time.Millisecond)

	srv.Emit(board.ID, "card:created", map[string]string{"board_id": board.ID, "list_id": "l", "card_id": "c"})
	srv.Emit(board.ID, "card:teleported", map[string]string{"board_id": board.ID})
	srv.Emit("other", "card:created", map[string]string{"board_id": "other", "list_id": "l", "card_id": "c"})

	assert.Eventually(func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.LeaveBoard(board.ID))
	assert.Eventually(func() bool { return srv.Joined(board.ID) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal("", conn.CurrentBoard())
}

func TestConnectRejectsBadToken(t *testing.T) {
	t.Parallel()

	srv := apitest.NewServer(t)

	conn := push.NewConn(srv.WSURL(), "garbage", push.NewRouter(), fastSettings())
	assert.Error(t, conn.Connect(context.Background()))
	assert.False(t, conn.Connected())
}

func TestReconnectRejoinsBoard(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv := apitest.NewServer(t)
	user, token := srv.AddUser("Ada", "ada@example.com")
	board := srv.AddBoard(user.ID, "b")

	var mu sync.Mutex

	connects, drops := 0, 0

	settings := fastSettings()
	settings.OnConnect = func() {
		mu.Lock()
		connects++
		mu.Unlock()
	}
	settings.OnDisconnect = func(error) {
		mu.Lock()
		drops++
		mu.Unlock()
	}

	conn := push.NewConn(srv.WSURL(), token, push.NewRouter(), settings)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(conn.Close)

	require.NoError(t, conn.JoinBoard(board.ID))
	assert.Eventually(func() bool { return srv.Joined(board.ID) == 1 }, time.Second, 5*time.Millisecond)

	srv.DropPushClients()

	assert.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()

		return connects == 2 && drops == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Eventually(func() bool { return srv.Joined(board.ID) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(conn.Connected())
}

func TestReconnectGivesUp(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	srv := apitest.NewServer(t)
	_, token := srv.AddUser("Ada", "ada@example.com")

	exhausted := make(chan struct{})

	settings := fastSettings()
	settings.ReconnectAttempts = 3
	settings.OnDisconnect = func(err error) {
		if errors.Is(err, push.ErrReconnectExhausted) {
			close(exhausted)
		}
	}

	conn := push.NewConn(srv.WSURL(), token, push.NewRouter(), settings)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(conn.Close)

	srv.Close()

	select {
	case <-exhausted:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect never gave up")
	}

	assert.False(conn.Connected())
}
