package infra

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebsocketHandler process one inbound message, a non-nil error closes the connection
type WebsocketHandler func(ctx context.Context, conn *websocket.Conn) error

// Websocket upgrades echo requests and keeps the connection alive with ping/pong probes
type Websocket struct {
	upgrader     websocket.Upgrader
	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
}

// NewWebsocket create a Websocket with default probe timing
func NewWebsocket() *Websocket {
	pongWait := 30 * time.Second
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
		writeWait:    10 * time.Second,
		pongWait:     pongWait,
		pingInterval: pongWait * 9 / 10,
	}
}

// WithHeartbeat wrap handler function with heartbeat probe
//
// the request context is detached from the http lifecycle and cancelled once the connection closes
func (ws *Websocket) WithHeartbeat(handler WebsocketHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// upgrader already replied with an error status
			return nil
		}

		ctx, cancel := context.WithCancel(detach(c.Request().Context()))
		conn.SetReadDeadline(time.Now().Add(ws.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(ws.pongWait))
		})

		go ws.heartbeatRoutine(ctx, conn)
		go ws.processRoutine(ctx, cancel, conn, handler)
		return nil
	}
}

func (ws *Websocket) heartbeatRoutine(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ws.writeWait)); err != nil {
				return
			}
		}
	}
}

func (ws *Websocket) processRoutine(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, handler WebsocketHandler) {
	defer func() {
		cancel()
		conn.Close()
	}()
	for {
		if err := handler(ctx, conn); err != nil {
			return
		}
	}
}

// detachedContext keeps request scoped values without the parent's cancellation
type detachedContext struct {
	context.Context
	values context.Context
}

func detach(parent context.Context) context.Context {
	return detachedContext{Context: context.Background(), values: parent}
}

func (dc detachedContext) Value(key interface{}) interface{} {
	return dc.values.Value(key)
}
