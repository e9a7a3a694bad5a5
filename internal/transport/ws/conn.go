package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Frame is the envelope of every message written to a client.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Conn adapts a websocket to hub.Connection. Writes are serialized.
type Conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: writeTimeout,
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Push(ctx context.Context, name string, payload any) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	data, err := json.Marshal(Frame{Event: name, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", name, err)
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.ws.SetWriteDeadline(deadline)
	if err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	err = c.ws.WriteMessage(websocket.TextMessage, data)
	if err != nil {
		return fmt.Errorf("failed to write %s frame: %w", name, err)
	}

	return nil
}

func (c *Conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *Conn) close() error {
	return c.ws.Close()
}
