// Package ws exposes hub subscriptions over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
	"github.com/fleetpulse/fleet-telemetry/internal/hub"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 60 * time.Second
	maxCommandSize      = 4096

	ActionSubscribe = "subscribe"
	ActionPoll      = "poll"
	ActionStop      = "stop"
	ActionList      = "list"

	EventSubscribed    = "subscribed"
	EventStopped       = "stopped"
	EventSubscriptions = "subscriptions"
	EventError         = "error"
)

var errUnknownAction = errors.New("unknown action")

type Hub interface {
	CreateLiveSubscription(conn hub.Connection, predicate hub.Predicate) (string, error)
	CreatePollSubscription(conn hub.Connection, key entity.Key, interval time.Duration) (string, error)
	Stop(conn hub.Connection, id string)
	Release(conn hub.Connection)
	Subscriptions(conn hub.Connection) []hub.Info
}

// Command is a client request. Entities are given by type and id.
type Command struct {
	Action      string              `json:"action"`
	ID          string              `json:"id,omitempty"`
	Entities    []entity.Key        `json:"entities,omitempty"`
	EntityTypes []entity.EntityType `json:"entityTypes,omitempty"`
	Kinds       []entity.Kind       `json:"kinds,omitempty"`
	Entity      entity.Key          `json:"entity"`
	IntervalMS  int64               `json:"intervalMs,omitempty"`
}

type Handler struct {
	hub      Hub
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	pongWait     time.Duration

	logger logr.Logger
}

func NewHandler(h Hub) Handler {
	return Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are authenticated upstream
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: defaultWriteTimeout,
		pongWait:     defaultPongWait,
		logger:       logr.Discard(),
	}
}

func (h Handler) WithLogger(logger logr.Logger) Handler {
	h.logger = logger

	return h
}

func (h Handler) WithTimeouts(write, pong time.Duration) Handler {
	h.writeTimeout = write
	h.pongWait = pong

	return h
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.V(1).Info("Upgrade failed", "remote", r.RemoteAddr, "error", err.Error())

		return
	}

	conn := newConn(socket, h.writeTimeout)

	h.logger.V(1).Info("Client connected", "connection", conn.ID(), "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())

	defer func() {
		cancel()

		h.hub.Release(conn)

		_ = conn.close()

		h.logger.V(1).Info("Client disconnected", "connection", conn.ID())
	}()

	go h.keepAlive(ctx, conn)

	h.readLoop(ctx, conn, socket)
}

func (h Handler) readLoop(ctx context.Context, conn *Conn, socket *websocket.Conn) {
	socket.SetReadLimit(maxCommandSize)

	_ = socket.SetReadDeadline(time.Now().Add(h.pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.V(1).Info("Read failed", "connection", conn.ID(), "error", err.Error())
			}

			return
		}

		var cmd Command

		err = json.Unmarshal(data, &cmd)
		if err != nil {
			h.reply(ctx, conn, EventError, errorData(err))

			continue
		}

		h.execute(ctx, conn, cmd)
	}
}

func (h Handler) execute(ctx context.Context, conn *Conn, cmd Command) {
	switch cmd.Action {
	case ActionSubscribe:
		id, err := h.hub.CreateLiveSubscription(conn, hub.Predicate{Entities: cmd.Entities, EntityTypes: cmd.EntityTypes, Kinds: cmd.Kinds})
		h.replySubscribed(ctx, conn, id, err)
	case ActionPoll:
		id, err := h.hub.CreatePollSubscription(conn, cmd.Entity, time.Duration(cmd.IntervalMS)*time.Millisecond)
		h.replySubscribed(ctx, conn, id, err)
	case ActionStop:
		h.hub.Stop(conn, cmd.ID)
		h.reply(ctx, conn, EventStopped, map[string]string{"id": cmd.ID})
	case ActionList:
		h.reply(ctx, conn, EventSubscriptions, h.hub.Subscriptions(conn))
	default:
		h.reply(ctx, conn, EventError, errorData(errUnknownAction))
	}
}

func (h Handler) replySubscribed(ctx context.Context, conn *Conn, id string, err error) {
	if err != nil {
		h.reply(ctx, conn, EventError, errorData(err))

		return
	}

	h.reply(ctx, conn, EventSubscribed, map[string]string{"id": id})
}

func (h Handler) reply(ctx context.Context, conn *Conn, event string, data any) {
	err := conn.Push(ctx, event, data)
	if err != nil {
		h.logger.V(1).Info("Reply failed", "connection", conn.ID(), "event", event, "error", err.Error())
	}
}

func (h Handler) keepAlive(ctx context.Context, conn *Conn) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.ping()
			if err != nil {
				return
			}
		}
	}
}

func errorData(err error) map[string]string {
	return map[string]string{"message": err.Error()}
}
