package wshub

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

// upgrader performs the HTTP to WebSocket protocol upgrade. CheckOrigin
// always allows: origin validation belongs to a reverse proxy in
// front of this service, outside this repo's scope.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client represents one connected stream peer, subscribed to exactly
// one job's topic (a stream client only ever watches the job id in the
// URL it connected to). id is a time-ordered connection identity, used
// only for log correlation across reconnects on the same job topic.
type Client struct {
	id    uuid.UUID
	hub   *Hub
	conn  *websocket.Conn
	send  chan Message
	topic string

	logger *zap.Logger
}

// NewClient upgrades the HTTP connection to WebSocket and returns a
// Client subscribed to jobID's topic. Caller must call Run.
func NewClient(hub *Hub, w http.ResponseWriter, r *http.Request, jobID string, logger *zap.Logger) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		topic:  JobTopic(jobID),
		logger: logger.With(zap.String("remote_addr", r.RemoteAddr), zap.String("job_id", jobID), zap.String("connection_id", id.String())),
	}, nil
}

// Run registers the client and blocks until the connection closes.
func (c *Client) Run() {
	c.hub.Subscribe(c)

	go c.writePump()
	c.readPump()
}

// readPump's only job is to detect disconnection and keep the read
// deadline alive via pong frames: this protocol is server-push only,
// so application messages from the client are never expected.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("wshub: failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.logger.Warn("wshub: unexpected close", zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only goroutine that writes to conn, since
// gorilla/websocket connections are not safe for concurrent writers.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("wshub: failed to set write deadline", zap.Error(err))
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("wshub: write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("wshub: failed to set write deadline", zap.Error(err))
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("wshub: ping error", zap.Error(err))
				return
			}
		}
	}
}
