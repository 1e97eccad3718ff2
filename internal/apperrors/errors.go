package apperrors

import (
	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// GameError 协议层错误（带出站错误码）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomExists   = &GameError{Code: protocol.ErrCodeRoomExists, Message: "room name already exists"}
	ErrRoomNotFound = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "room not found"}
	ErrNotInRoom    = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "you are not in a room"}
	ErrGameNotStart = &GameError{Code: protocol.ErrCodeGameNotStart, Message: "game has not started"}
	ErrInvalidMsg   = &GameError{Code: protocol.ErrCodeInvalidMsg, Message: "invalid message format"}
	ErrUnknownGame  = &GameError{Code: protocol.ErrCodeUnknown, Message: "unknown game type"}
)
