package server

import (
	"log"

	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// Handler 信封路由：校验、找房、按类型分发
type Handler struct {
	registry *Registry
}

// NewHandler 创建消息处理器
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Handle 处理一条入站信封
// 单条消息的 panic 在这里兜住，不影响连接和其他房间
func (h *Handler) Handle(c *Client, env *protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("💥 处理消息 panic (type=%s, user=%s): %v", env.Type, env.UserID, r)
		}
	}()

	if env.Type == "" || env.UserID == "" || env.GameID == "" || env.RoomName == "" {
		log.Printf("🗑️ 丢弃字段不全的信封 (type=%q, user=%q)", env.Type, env.UserID)
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	room, err := h.registry.GetRoom(env.GameID, env.RoomName)
	if err != nil {
		log.Printf("🗑️ 丢弃发往不存在房间 %s/%s 的信封 (type=%s)", env.GameID, env.RoomName, env.Type)
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeRoomNotFound))
		return
	}

	switch env.Type {
	case protocol.EnvelopeJoin:
		h.handleJoin(c, room, env)
	case protocol.EnvelopeWaiting:
		h.handleWaiting(c, room, env)
	case protocol.EnvelopeInGame:
		h.handleInGame(c, room, env)
	case protocol.EnvelopeLeave:
		room.Leave(env.UserID)
		c.unbind()
	default:
		log.Printf("❓ 未知信封类型: %s", env.Type)
		c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, "unknown envelope type"))
	}
}

// handleJoin 入座并回发房间快照
func (h *Handler) handleJoin(c *Client, room *Room, env *protocol.Envelope) {
	init, err := room.Join(env.UserID, env.UserName, c)
	if err != nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeRoomNotFound))
		return
	}

	c.bind(room, env.UserID)
	c.SendMessage(protocol.MustNewMessage(protocol.MsgInitialize, init))
}

// handleWaiting 等待大厅动作
func (h *Handler) handleWaiting(c *Client, room *Room, env *protocol.Envelope) {
	if env.Action == nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}
	room.HandleWaiting(env.UserID, env.Action)
}

// handleInGame player:ready 归协调器，其余交给引擎
func (h *Handler) handleInGame(c *Client, room *Room, env *protocol.Envelope) {
	if env.Action == nil {
		c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if env.Action.Type == protocol.ActionPlayerReady {
		ready, err := protocol.ParseAction[protocol.PlayerReadyPayload](env.Action)
		if err != nil {
			c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			return
		}
		room.SetReady(env.UserID, ready.Ready)
		return
	}

	room.HandleGameAction(env.UserID, env.Action)
}
