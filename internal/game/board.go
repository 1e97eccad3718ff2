package game

import (
	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// 棋盘双方
const (
	SideBlack = "black"
	SideWhite = "white"
	SideDraw  = "draw"
)

// boardEngine 棋盘类引擎共享的行为：重置和状态快照
type boardEngine interface {
	Engine
	Reset()
}

// sideOf 按座位顺序分配执棋方：先加入者执黑
func sideOf(room Seating, userID string) string {
	for i, id := range room.UserIDs() {
		if id == userID {
			if i == 0 {
				return SideBlack
			}
			return SideWhite
		}
	}
	return ""
}

// opponent 返回黑白对方
func opponent(side string) string {
	if side == SideBlack {
		return SideWhite
	}
	return SideBlack
}

// otherUser 返回房间里除 userID 外的另一名玩家
func otherUser(room Seating, userID string) string {
	for _, id := range room.UserIDs() {
		if id != userID {
			return id
		}
	}
	return ""
}

// handleBoardShared 处理棋盘类引擎共享的动作：重启共识 + player:loaded
// 返回 handled=false 表示不是共享动作，交回引擎自行处理
func handleBoardShared(e boardEngine, action *protocol.Action, userID string, room Seating) (Result, bool) {
	switch action.Type {
	case protocol.ActionRestartRequest:
		rr := room.Restart()
		// 同一请求者重复请求视为无操作
		if rr.Pending && rr.RequesterID == userID {
			return Result{Success: true}, true
		}
		target := otherUser(room, userID)
		if target == "" {
			return Result{Success: false}, true
		}
		rr.RequesterID = userID
		rr.Pending = true
		return Result{
			Success: true,
			Response: protocol.MustNewMessage(protocol.MsgRestartRequested, protocol.RestartRequestedPayload{
				RequesterID:   userID,
				RequesterName: room.UserName(userID),
			}),
			TargetPlayer: target,
		}, true

	case protocol.ActionRestartAccept:
		rr := room.Restart()
		// 接受自己的请求属于共识违规
		if !rr.Pending || rr.RequesterID == userID {
			return Result{Success: false}, true
		}
		e.Reset()
		rr.Clear()
		return Result{
			Success: true,
			Responses: []*protocol.Message{
				protocol.MustNewMessage(protocol.MsgGameUpdateState, e.State()),
				protocol.MustNewMessage(protocol.MsgRestartAccepted, protocol.RestartAcceptedPayload{
					AccepterID: userID,
				}),
			},
			ShouldBroadcast: true,
		}, true

	case protocol.ActionRestartDecline:
		rr := room.Restart()
		if !rr.Pending || rr.RequesterID == userID {
			return Result{Success: false}, true
		}
		rr.Clear()
		return Result{
			Success: true,
			Response: protocol.MustNewMessage(protocol.MsgRestartDeclined, protocol.RestartDeclinedPayload{
				DeclinerID:   userID,
				DeclinerName: room.UserName(userID),
			}),
			ShouldBroadcast: true,
		}, true

	case protocol.ActionPlayerLoaded:
		players := make([]protocol.GamePlayer, 0, len(room.UserIDs()))
		for _, id := range room.UserIDs() {
			players = append(players, protocol.GamePlayer{
				UserID:   id,
				UserName: room.UserName(id),
			})
		}
		return Result{
			Success: true,
			Response: protocol.MustNewMessage(protocol.MsgGameInitialState, protocol.InitialStatePayload{
				GameState: e.State(),
				Players:   players,
			}),
			ShouldBroadcast: false, // 只发给请求的玩家
		}, true
	}

	return Result{}, false
}
