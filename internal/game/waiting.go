package game

import (
	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// WaitingLobby 等待大厅小游戏：玩家在房间里走动，位置按固定频率广播
// 不自带锁，调用方持房间锁串行访问
type WaitingLobby struct {
	players map[string]*protocol.WaitingPlayer
	order   []string
}

// NewWaitingLobby 创建等待大厅
func NewWaitingLobby() *WaitingLobby {
	return &WaitingLobby{players: make(map[string]*protocol.WaitingPlayer)}
}

// Join 玩家进入大厅，初始位置为原点
func (w *WaitingLobby) Join(userID string) {
	if _, ok := w.players[userID]; ok {
		return
	}
	w.players[userID] = &protocol.WaitingPlayer{ID: userID}
	w.order = append(w.order, userID)
}

// Exit 玩家离开大厅
func (w *WaitingLobby) Exit(userID string) {
	if _, ok := w.players[userID]; !ok {
		return
	}
	delete(w.players, userID)
	for i, id := range w.order {
		if id == userID {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Move 更新玩家坐标和速度
func (w *WaitingLobby) Move(userID string, move protocol.WaitingMovePayload) {
	p, ok := w.players[userID]
	if !ok {
		return
	}
	p.X = move.X
	p.Y = move.Y
	p.VelocityX = move.VelocityX
	p.VelocityY = move.VelocityY
}

// Empty 大厅是否无人
func (w *WaitingLobby) Empty() bool {
	return len(w.players) == 0
}

// Snapshot 返回全体玩家当前位置
// 大厅非空期间每个 tick 都广播，客户端不需要做丢帧补偿
func (w *WaitingLobby) Snapshot() protocol.WaitingUpdatePayload {
	players := make([]protocol.WaitingPlayer, 0, len(w.order))
	for _, id := range w.order {
		players = append(players, *w.players[id])
	}
	return protocol.WaitingUpdatePayload{Players: players}
}
