package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/majex-chat/internal/cache"
	"github.com/weiawesome/majex-chat/internal/config"
	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/events"
	"github.com/weiawesome/majex-chat/internal/hub"
	"github.com/weiawesome/majex-chat/internal/idgen"
	"github.com/weiawesome/majex-chat/internal/presence"
	"github.com/weiawesome/majex-chat/internal/repository"
	"github.com/weiawesome/majex-chat/internal/service"
	"github.com/weiawesome/majex-chat/pkg/pubsub"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// outageRepo fails the next N saves.
type outageRepo struct {
	*repository.MemoryMessageRepository
	mu       sync.Mutex
	failures int
}

func (r *outageRepo) failNext(n int) {
	r.mu.Lock()
	r.failures = n
	r.mu.Unlock()
}

func (r *outageRepo) Save(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	r.mu.Lock()
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	r.mu.Unlock()
	if fail {
		return nil, domain.NewPersistenceError("insert message", errors.New("database unavailable"))
	}
	return r.MemoryMessageRepository.Save(ctx, draft)
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		SendTimeout:    100 * time.Millisecond,
		MaxMessageSize: config.DefaultMaxMessageSize,
		SendBuffer:     64,
		AllowedOrigins: []string{"*"},
	}
}

type chatServer struct {
	*httptest.Server
	hub  *hub.Hub
	repo *outageRepo
}

func newChatServer(t *testing.T, svc func(*hub.Hub, repository.MessageRepository) service.ChatService) *chatServer {
	t.Helper()

	h := hub.NewHub()
	presence.NewBroadcaster(h)
	repo := &outageRepo{MemoryMessageRepository: repository.NewMemoryMessageRepository(idgen.NewULIDGenerator())}

	if svc == nil {
		svc = func(h *hub.Hub, repo repository.MessageRepository) service.ChatService {
			return service.NewChatService(h, repo, cache.NopCache{}, events.NewMessagePublisher(pubsub.NopPublisher{}, ""), time.Second)
		}
	}
	chat := svc(h, repo)

	r := gin.New()
	NewWSHandler(h, chat, testWSConfig()).RegisterRoutes(r)
	NewHTTPHandler(service.NewHistoryService(repo, cache.NopCache{}), chat, nil).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		h.CloseAll()
		srv.Close()
	})
	return &chatServer{Server: srv, hub: h, repo: repo}
}

func (s *chatServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, err := s.connect(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// connect dials without touching t, for use from worker goroutines.
func (s *chatServer) connect(path string) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// wireFrame is the union of every outbound frame.
type wireFrame struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f wireFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func expectCount(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()
	f := readFrame(t, conn)
	require.Equal(t, domain.FrameTypeOnlineCount, f.Type)
	require.Equal(t, want, f.Count)
}

func expectMessage(t *testing.T, conn *websocket.Conn, text string) wireFrame {
	t.Helper()
	f := readFrame(t, conn)
	require.Equal(t, domain.FrameTypeMessage, f.Type)
	require.Equal(t, text, f.Text)
	return f
}
