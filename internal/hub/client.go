package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/weiawesome/majex-chat/internal/config"
	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/pkg/log"
)

var (
	ErrClientClosed = fmt.Errorf("%w: client closed", domain.ErrConnection)
	ErrSendTimeout  = fmt.Errorf("%w: send timed out", domain.ErrConnection)
)

// FrameHandler processes one inbound text frame for a client. Recoverable
// errors (see domain.IsRecoverable) keep the session open; anything else
// ends it.
type FrameHandler func(ctx context.Context, c *Client, data []byte) error

// Client is one registered websocket session.
type Client struct {
	ID         string
	Hub        *Hub
	Conn       *websocket.Conn
	RemoteAddr string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	config    config.WebSocketConfig
	logger    zerolog.Logger
}

func NewClient(id string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}

	c := &Client{
		ID:     id,
		Hub:    hub,
		Conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		config: cfg,
	}
	if conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
	}
	c.logger = log.L().With().
		Str(log.FieldClientID, id).
		Str(log.FieldClientIP, c.RemoteAddr).
		Logger()
	return c
}

// Logger returns the session-scoped logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Done is closed once the client has been removed from its hub.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Outbound exposes queued outbound frames. WritePump is the normal consumer.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Enqueue queues data for delivery, waiting at most the configured send
// timeout for room in the outbound buffer.
func (c *Client) Enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	if c.config.SendTimeout <= 0 {
		select {
		case c.send <- data:
			return nil
		default:
			return ErrSendTimeout
		}
	}

	timer := time.NewTimer(c.config.SendTimeout)
	defer timer.Stop()

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// ReadPump reads frames until the connection fails or handler returns an
// error that cannot be recovered. It always unregisters the client and
// closes the connection on return.
func (c *Client) ReadPump(ctx context.Context, handler FrameHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	ctx = log.WithLogger(ctx, c.logger)

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn().Err(err).Msg("websocket closed unexpectedly")
			} else {
				c.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}

		if err := c.dispatch(ctx, handler, message); err != nil {
			if domain.IsRecoverable(err) {
				c.logger.Warn().Err(err).Msg("frame rejected")
				continue
			}
			c.logger.Error().Err(err).Msg("session terminated")
			return
		}
	}
}

func (c *Client) dispatch(ctx context.Context, handler FrameHandler, message []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in frame handler: %v", domain.ErrUnclassified, r)
		}
	}()
	return handler(ctx, c, message)
}

// WritePump drains the outbound queue onto the connection and keeps the
// peer alive with pings. It returns once the client is closed or a write
// fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			err := c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug().Err(err).Msg("close frame not sent")
			}
			return
		}
	}
}
