package handlers

import (
	"context"
	"net/http"

	userRepo "subzero/database/repository/user"
	"subzero/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ChatServer runs one upgraded chat connection.
type ChatServer interface {
	ServeWS(ctx context.Context, ws *websocket.Conn, user models.ChatUser)
}

type ChatHandler struct {
	Hub      ChatServer
	UserRepo userRepo.UserRepository
	Upgrader websocket.Upgrader
}

func NewChatHandler(hub ChatServer, repo userRepo.UserRepository) *ChatHandler {
	return &ChatHandler{
		Hub:      hub,
		UserRepo: repo,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /api/chat/ws. Authentication runs before the upgrade.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	usr, ok := authUser(c, h.UserRepo)
	if !ok {
		return
	}

	ws, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		getLogger(c).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.Hub.ServeWS(c.Request.Context(), ws, models.ChatUser{
		UserID:   usr.ID,
		Username: usr.Username,
		IsAdmin:  usr.HasAdminRights(),
		Role:     usr.Role,
	})
}
