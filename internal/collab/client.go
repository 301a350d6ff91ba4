package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 10 * time.Second
	keepalive    = 30 * time.Second

	// Viewers only send presence updates, so inbound frames stay small.
	maxInbound = 8 * 1024
	outboxSize = 32
)

// Client is one websocket viewer attached to a file's room.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// outbox is closed by the hub once the viewer leaves or the hub stops.
	// The read loop may still reply after that, so sends check closed first.
	mu     sync.Mutex
	outbox chan []byte
	closed bool

	FileID   string
	ClientID string
}

func NewClient(hub *Hub, conn *websocket.Conn, fileID, clientID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		outbox:   make(chan []byte, outboxSize),
		FileID:   fileID,
		ClientID: clientID,
	}
}

// ReadPump decodes inbound frames until the connection drops, then leaves the room.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	c.conn.SetReadLimit(maxInbound)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if !closedNormally(err) {
				slog.Debug("viewer read", "error", err, "client", c.ClientID)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}
		// The connection decides who is speaking and about which file.
		msg.ClientID = c.ClientID
		msg.FileID = c.FileID
		c.hub.handleMessage(c, &msg)
	}
}

// WritePump drains the outbox and pings the viewer until the outbox is
// closed by the hub or ctx ends.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(keepalive)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case frame, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.write(ctx, frame); err != nil {
				slog.Debug("viewer write", "error", err, "client", c.ClientID)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg without blocking. A viewer that cannot keep up misses events.
func (c *Client) Send(msg *Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err, "type", msg.Type)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outbox <- frame:
	default:
		slog.Warn("viewer outbox full, dropping", "client", c.ClientID, "type", msg.Type)
	}
}

func (c *Client) closeOutbox() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
}

func (c *Client) sendError(text string) {
	payload, _ := json.Marshal(map[string]string{"error": text})
	c.Send(&Message{Type: TypeError, FileID: c.FileID, Payload: payload})
}

func (c *Client) write(ctx context.Context, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
