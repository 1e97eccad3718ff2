package game

import (
	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// GomokuBoardSize 五子棋棋盘边长
const GomokuBoardSize = 15

// Gomoku 五子棋引擎：严格轮流落子，任意方向连五即胜
type Gomoku struct {
	board         [][]string // 空格为 ""
	currentPlayer string
	gameOver      bool
	winner        string
	moveCount     int
}

// NewGomoku 创建五子棋引擎
func NewGomoku() *Gomoku {
	g := &Gomoku{}
	g.Reset()
	return g
}

// Reset 重置棋局，黑方先手
func (g *Gomoku) Reset() {
	g.board = make([][]string, GomokuBoardSize)
	for i := range g.board {
		g.board[i] = make([]string, GomokuBoardSize)
	}
	g.currentPlayer = SideBlack
	g.gameOver = false
	g.winner = ""
	g.moveCount = 0
}

// State 返回当前棋局状态
func (g *Gomoku) State() any {
	return protocol.BoardState{
		Board:         g.board,
		CurrentPlayer: g.currentPlayer,
		GameOver:      g.gameOver,
		Winner:        g.winner,
		MoveCount:     g.moveCount,
	}
}

// HandleAction 处理游戏动作
func (g *Gomoku) HandleAction(action *protocol.Action, userID string, room Seating) Result {
	if res, handled := handleBoardShared(g, action, userID, room); handled {
		return res
	}

	side := sideOf(room, userID)

	switch action.Type {
	case protocol.ActionMove:
		move, err := protocol.ParseAction[protocol.MovePayload](action)
		if err != nil {
			return Result{Success: false, Response: protocol.NewGameError("invalid move payload")}
		}
		if !g.placeStone(move.Row, move.Col, side) {
			return Result{Success: false}
		}
		return Result{
			Success:         true,
			Response:        protocol.MustNewMessage(protocol.MsgGameUpdateState, g.State()),
			ShouldBroadcast: true,
		}

	case protocol.ActionSurrender:
		if g.gameOver || side == "" {
			return Result{Success: false}
		}
		g.gameOver = true
		g.winner = opponent(side)
		return Result{
			Success:         true,
			Response:        protocol.MustNewMessage(protocol.MsgGameUpdateState, g.State()),
			ShouldBroadcast: true,
			RoomStatus:      protocol.RoomWaiting,
		}

	default:
		return Result{Success: false}
	}
}

// placeStone 落子，违规时不改动任何状态
func (g *Gomoku) placeStone(row, col int, side string) bool {
	if g.gameOver || side != g.currentPlayer || !g.isValidMove(row, col) {
		return false
	}

	g.board[row][col] = side
	g.moveCount++

	if g.checkWin(row, col) {
		g.gameOver = true
		g.winner = side
	} else if g.moveCount == GomokuBoardSize*GomokuBoardSize {
		g.gameOver = true
		g.winner = SideDraw
	} else {
		g.currentPlayer = opponent(g.currentPlayer)
	}

	return true
}

func (g *Gomoku) isValidMove(row, col int) bool {
	return row >= 0 && row < GomokuBoardSize &&
		col >= 0 && col < GomokuBoardSize &&
		g.board[row][col] == ""
}

// checkWin 从刚落的子出发扫描 4 条轴线，双向计数连子
func (g *Gomoku) checkWin(row, col int) bool {
	side := g.board[row][col]
	if side == "" {
		return false
	}

	// 横、竖、两条对角线
	directions := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

	for _, dir := range directions {
		count := 1
		// 正方向
		for i := 1; i < 5; i++ {
			r, c := row+i*dir[0], col+i*dir[1]
			if r < 0 || r >= GomokuBoardSize || c < 0 || c >= GomokuBoardSize || g.board[r][c] != side {
				break
			}
			count++
		}
		// 反方向
		for i := 1; i < 5; i++ {
			r, c := row-i*dir[0], col-i*dir[1]
			if r < 0 || r >= GomokuBoardSize || c < 0 || c >= GomokuBoardSize || g.board[r][c] != side {
				break
			}
			count++
		}

		if count >= 5 {
			return true
		}
	}

	return false
}
