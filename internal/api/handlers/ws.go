package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
)

// wsChannel adapts a websocket connection to the task.Channel contract.
// Writes are serialized; the orchestrator goroutine and the read loop's
// control replies share the connection.
type wsChannel struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

func (c *wsChannel) Send(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("websocket channel closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsChannel) Open() bool { return !c.closed.Load() }

func (c *wsChannel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

type WSHandler struct {
	tasks    *task.Registry
	subs     *task.Subscribers
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(tasks *task.Registry, subs *task.Subscribers, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		tasks: tasks,
		subs:  subs,
		upgrader: websocket.Upgrader{
			// The UI is served from arbitrary origins in local deployments.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve upgrades the connection and runs the control-message loop for one
// task subscription. An ungraceful disconnect only unregisters the channel;
// it never stops the task. Only an explicit stop_thinking message does.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "task_id", taskID, "error", err)
		return
	}

	ch := &wsChannel{conn: conn}
	h.subs.Register(taskID, ch)
	defer func() {
		h.subs.Unregister(taskID, ch)
		_ = ch.Close()
	}()

	if err := ch.Send(map[string]string{
		"type":    "connection_status",
		"status":  "connected",
		"task_id": taskID,
		"message": "WebSocket connection successful",
	}); err != nil {
		return
	}

	if t, ok := h.tasks.Get(taskID); ok {
		_ = ch.Send(map[string]string{
			"type":      "task_info",
			"task_id":   taskID,
			"task_type": string(t.Kind),
			"message":   fmt.Sprintf("Task %s status: in progress", taskID),
		})
	}

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket closed unexpectedly", "task_id", taskID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			if err := ch.Send(map[string]string{"type": "pong"}); err != nil {
				return
			}
		case "stop_thinking":
			h.tasks.Stop(taskID)
			_ = ch.Send(map[string]string{
				"type":    "stop_thinking_response",
				"status":  "success",
				"message": "Stopped thinking",
			})
			return
		default:
			h.log.Debug("ignoring unknown websocket message", "task_id", taskID, "type", msg.Type)
		}
	}
}
