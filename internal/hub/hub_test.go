package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/majex-chat/internal/config"
	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/pkg/log"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
		SendTimeout:    20 * time.Millisecond,
		MaxMessageSize: 1024,
		SendBuffer:     4,
	}
}

type recorder struct {
	mu     sync.Mutex
	events []MembershipEvent
}

func (r *recorder) OnMembershipChange(_ context.Context, e MembershipEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []MembershipEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MembershipEvent(nil), r.events...)
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-c.Outbound():
			out = append(out, b)
		default:
			return out
		}
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	h := NewHub()
	rec := &recorder{}
	h.AddListener(rec)

	a := NewClient("a", h, nil, testConfig())
	b := NewClient("b", h, nil, testConfig())

	h.Register(context.Background(), a)
	h.Register(context.Background(), b)
	h.Register(context.Background(), b)
	assert.Equal(t, 2, h.Count())

	assert.True(t, h.Unregister(a))
	assert.False(t, h.Unregister(a), "second unregister is a no-op")
	assert.Equal(t, 1, h.Count())

	select {
	case <-a.Done():
	default:
		t.Fatal("unregistered client should be closed")
	}

	events := rec.all()
	require.Len(t, events, 3)
	assert.Equal(t, EventJoin, events[0].Kind)
	assert.Equal(t, 1, events[0].Count)
	assert.Equal(t, EventJoin, events[1].Kind)
	assert.Equal(t, 2, events[1].Count)
	assert.Equal(t, EventLeave, events[2].Kind)
	assert.Equal(t, 1, events[2].Count)
}

func TestListenerSeesUpdatedCount(t *testing.T) {
	h := NewHub()
	var seen []int
	h.AddListener(ListenerFunc(func(_ context.Context, e MembershipEvent) {
		seen = append(seen, h.Count())
	}))

	a := NewClient("a", h, nil, testConfig())
	h.Register(context.Background(), a)
	h.Unregister(a)

	assert.Equal(t, []int{1, 0}, seen)
}

func TestLeaveEventCarriesSessionLogger(t *testing.T) {
	h := NewHub()
	var buf bytes.Buffer
	h.AddListener(ListenerFunc(func(ctx context.Context, e MembershipEvent) {
		if e.Kind != EventLeave {
			return
		}
		l := log.Ctx(ctx).Output(&buf)
		l.Info().Msg("left")
	}))

	a := NewClient("client-a", h, nil, testConfig())
	h.Register(context.Background(), a)
	require.True(t, h.Unregister(a))

	assert.Contains(t, buf.String(), `"client_id":"client-a"`)
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	h := NewHub()
	clients := []*Client{
		NewClient("a", h, nil, testConfig()),
		NewClient("b", h, nil, testConfig()),
		NewClient("c", h, nil, testConfig()),
	}
	for _, c := range clients {
		h.Register(context.Background(), c)
	}

	n, err := h.Broadcast(context.Background(), domain.NewOnlineCountFrame(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, c := range clients {
		frames := drain(c)
		require.Len(t, frames, 1)
		var got domain.OnlineCountFrame
		require.NoError(t, json.Unmarshal(frames[0], &got))
		assert.Equal(t, domain.FrameTypeOnlineCount, got.Type)
		assert.Equal(t, 3, got.Count)
	}
}

func TestBroadcastEvictsStuckClientsOnce(t *testing.T) {
	h := NewHub()
	rec := &recorder{}

	healthy := NewClient("healthy", h, nil, testConfig())
	stuckA := NewClient("stuck-a", h, nil, testConfig())
	stuckB := NewClient("stuck-b", h, nil, testConfig())
	for _, c := range []*Client{healthy, stuckA, stuckB} {
		h.Register(context.Background(), c)
	}
	h.AddListener(rec)

	// Fill the stuck clients' buffers so the next send times out.
	for i := 0; i < testConfig().SendBuffer; i++ {
		require.NoError(t, stuckA.Enqueue([]byte("x")))
		require.NoError(t, stuckB.Enqueue([]byte("x")))
	}

	delivered := h.BroadcastRaw(context.Background(), []byte(`{"type":"message"}`))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, h.Count())

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventEvict, events[0].Kind)
	assert.Len(t, events[0].Clients, 2)
	assert.Equal(t, 1, events[0].Count)

	assert.Len(t, drain(healthy), 1)
	assert.ErrorIs(t, stuckA.Enqueue([]byte("y")), ErrClientClosed)
}

func TestBroadcastWithNoClients(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.BroadcastRaw(context.Background(), []byte("{}")))
}

func TestEnqueueErrorsAreConnectionErrors(t *testing.T) {
	cfg := testConfig()
	cfg.SendBuffer = 1
	h := NewHub()
	c := NewClient("a", h, nil, cfg)

	require.NoError(t, c.Enqueue([]byte("1")))
	err := c.Enqueue([]byte("2"))
	assert.ErrorIs(t, err, ErrSendTimeout)
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.False(t, domain.IsRecoverable(err))
}

func TestCloseAll(t *testing.T) {
	h := NewHub()
	rec := &recorder{}
	a := NewClient("a", h, nil, testConfig())
	b := NewClient("b", h, nil, testConfig())
	h.Register(context.Background(), a)
	h.Register(context.Background(), b)
	h.AddListener(rec)

	assert.Equal(t, 2, h.CloseAll())
	assert.Equal(t, 0, h.Count())
	assert.Empty(t, rec.all())

	<-a.Done()
	<-b.Done()
	assert.False(t, h.Unregister(a))
}

func TestConcurrentMembershipAndBroadcast(t *testing.T) {
	h := NewHub()
	cfg := testConfig()
	cfg.SendBuffer = 1024

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient("c", h, nil, cfg)
			h.Register(context.Background(), c)
			h.BroadcastRaw(context.Background(), []byte("{}"))
			h.Unregister(c)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.Count())
}
