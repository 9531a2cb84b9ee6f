package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bidtask/bidtask/internal/services"
	"github.com/bidtask/bidtask/pkg/logger"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// TaskFeedHandler streams the open-task board to connected clients so
// taskers see new work without polling.
type TaskFeedHandler struct {
	tasks        *services.TaskService
	upgrader     websocket.Upgrader
	pushInterval time.Duration
}

func NewTaskFeedHandler(tasks *services.TaskService, pushInterval time.Duration) *TaskFeedHandler {
	if pushInterval <= 0 {
		pushInterval = time.Second
	}
	return &TaskFeedHandler{
		tasks: tasks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pushInterval: pushInterval,
	}
}

func (h *TaskFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("task_feed")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("Connection closed")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			tasks, err := h.tasks.ListOpenTasks(r.Context())
			if err != nil {
				log.Error().Err(err).Msg("Open task fetch failed")
				if err := conn.WriteJSON(WSMessage{Type: "error", Payload: "internal server error"}); err != nil {
					return
				}
				continue
			}

			if err := conn.WriteJSON(WSMessage{Type: "open_tasks", Payload: tasks}); err != nil {
				log.Debug().Err(err).Msg("Task push failed")
				return
			}
		}
	}
}
