// Package ws канал реального времени для устройств. Клиент шлет JSON-сообщения
// по одному, сервер отвечает на каждое в порядке получения.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"pxocore/internal/app/server/api/http/middleware/auth"
	syncdomain "pxocore/internal/domain/sync"
)

const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSyncRequest = "sync_request"
	TypeSyncResult  = "sync_result"
	TypeError       = "error"

	maxMessageSize = 8 << 20
)

// Message конверт сообщений канала
type Message struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type Handler struct {
	service  syncdomain.Servicer
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service syncdomain.Servicer, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With("component", "ws_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// TODO: проверять Origin, когда появится список доверенных веб-клиентов
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP ожидает пользователя в контексте запроса (auth.HTTPMiddleware)
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(maxMessageSize)

	h.log.Debug("websocket connected", "user_id", userID)
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				if err := conn.WriteJSON(errorMessage("invalid message format")); err != nil {
					return
				}
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}

		if err := conn.WriteJSON(h.handle(r, userID, msg)); err != nil {
			h.log.Debug("websocket write failed", "user_id", userID, "error", err)
			return
		}
	}
}

func (h *Handler) handle(r *http.Request, userID string, msg Message) Message {
	switch msg.Type {
	case TypePing:
		return Message{Type: TypePong}

	case TypeSyncRequest:
		var req syncdomain.DeltaSyncRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return errorMessage("invalid sync request")
		}

		result, err := h.service.PerformDeltaSync(r.Context(), userID, req)
		if err != nil {
			if !errors.Is(err, syncdomain.ErrInvalidArgument) {
				h.log.Error("delta sync over websocket failed", "user_id", userID, "error", err)
				return errorMessage("sync failed")
			}
			return errorMessage(err.Error())
		}

		data, err := json.Marshal(result)
		if err != nil {
			return errorMessage("sync failed")
		}
		return Message{Type: TypeSyncResult, Data: data}

	default:
		return errorMessage("unknown message type: " + msg.Type)
	}
}

func errorMessage(text string) Message {
	return Message{Type: TypeError, Error: text}
}
