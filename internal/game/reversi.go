package game

import (
	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// ReversiBoardSize 黑白棋棋盘边长
const ReversiBoardSize = 8

// Reversi 黑白棋引擎：落子须夹住对方棋子，无子可下则轮空
type Reversi struct {
	board         [][]string
	currentPlayer string
	gameOver      bool
	winner        string
}

// NewReversi 创建黑白棋引擎
func NewReversi() *Reversi {
	r := &Reversi{}
	r.Reset()
	return r
}

// Reset 重置棋局，中央四子初始布局
func (r *Reversi) Reset() {
	r.board = make([][]string, ReversiBoardSize)
	for i := range r.board {
		r.board[i] = make([]string, ReversiBoardSize)
	}
	r.board[3][3] = SideWhite
	r.board[3][4] = SideBlack
	r.board[4][3] = SideBlack
	r.board[4][4] = SideWhite
	r.currentPlayer = SideBlack
	r.gameOver = false
	r.winner = ""
}

// State 返回当前棋局状态（含双方棋子数）
func (r *Reversi) State() any {
	black, white := r.countDiscs()
	return protocol.BoardState{
		Board:         r.board,
		CurrentPlayer: r.currentPlayer,
		GameOver:      r.gameOver,
		Winner:        r.winner,
		Scores:        &protocol.DiscScores{Black: black, White: white},
	}
}

// HandleAction 处理游戏动作
func (r *Reversi) HandleAction(action *protocol.Action, userID string, room Seating) Result {
	if res, handled := handleBoardShared(r, action, userID, room); handled {
		return res
	}

	side := sideOf(room, userID)

	switch action.Type {
	case protocol.ActionMove:
		move, err := protocol.ParseAction[protocol.MovePayload](action)
		if err != nil {
			return Result{Success: false, Response: protocol.NewGameError("invalid move payload")}
		}
		if !r.placeStone(move.Row, move.Col, side) {
			return Result{Success: false}
		}
		return Result{
			Success:         true,
			Response:        protocol.MustNewMessage(protocol.MsgGameUpdateState, r.State()),
			ShouldBroadcast: true,
		}

	case protocol.ActionSurrender:
		if r.gameOver || side == "" {
			return Result{Success: false}
		}
		r.gameOver = true
		r.winner = opponent(side)
		return Result{
			Success:         true,
			Response:        protocol.MustNewMessage(protocol.MsgGameUpdateState, r.State()),
			ShouldBroadcast: true,
			RoomStatus:      protocol.RoomWaiting,
		}

	default:
		return Result{Success: false}
	}
}

// placeStone 落子并翻转所有被夹住的对方棋子
// 落子后对方无棋可下则轮空；双方都无棋可下按子数结算
func (r *Reversi) placeStone(row, col int, side string) bool {
	if r.gameOver || side != r.currentPlayer {
		return false
	}

	flips := r.validFlips(row, col, side)
	if len(flips) == 0 {
		return false
	}

	r.board[row][col] = side
	for _, cell := range flips {
		r.board[cell[0]][cell[1]] = side
	}

	r.currentPlayer = opponent(r.currentPlayer)

	if !r.hasValidMove(SideBlack) && !r.hasValidMove(SideWhite) {
		r.endGame()
	} else if !r.hasValidMove(r.currentPlayer) {
		// 新手方无棋可下，轮空
		r.currentPlayer = opponent(r.currentPlayer)
		if !r.hasValidMove(r.currentPlayer) {
			r.endGame()
		}
	}

	return true
}

// validFlips 返回在 (row, col) 落子后会被翻转的所有对方棋子坐标
func (r *Reversi) validFlips(row, col int, side string) [][2]int {
	if row < 0 || row >= ReversiBoardSize || col < 0 || col >= ReversiBoardSize {
		return nil
	}
	if r.board[row][col] != "" {
		return nil
	}

	opp := opponent(side)
	directions := [8][2]int{
		{0, 1}, {1, 1}, {1, 0}, {1, -1},
		{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
	}

	var allFlips [][2]int
	for _, dir := range directions {
		var line [][2]int
		rr, cc := row+dir[0], col+dir[1]

		for rr >= 0 && rr < ReversiBoardSize && cc >= 0 && cc < ReversiBoardSize && r.board[rr][cc] == opp {
			line = append(line, [2]int{rr, cc})
			rr += dir[0]
			cc += dir[1]
		}

		// 对方连续棋子须以己方棋子收尾才构成夹击
		if rr >= 0 && rr < ReversiBoardSize && cc >= 0 && cc < ReversiBoardSize && r.board[rr][cc] == side {
			allFlips = append(allFlips, line...)
		}
	}

	return allFlips
}

func (r *Reversi) hasValidMove(side string) bool {
	for row := 0; row < ReversiBoardSize; row++ {
		for col := 0; col < ReversiBoardSize; col++ {
			if len(r.validFlips(row, col, side)) > 0 {
				return true
			}
		}
	}
	return false
}

// endGame 按子数结算胜负
func (r *Reversi) endGame() {
	r.gameOver = true
	black, white := r.countDiscs()

	switch {
	case black > white:
		r.winner = SideBlack
	case white > black:
		r.winner = SideWhite
	default:
		r.winner = SideDraw
	}
}

func (r *Reversi) countDiscs() (black, white int) {
	for row := 0; row < ReversiBoardSize; row++ {
		for col := 0; col < ReversiBoardSize; col++ {
			switch r.board[row][col] {
			case SideBlack:
				black++
			case SideWhite:
				white++
			}
		}
	}
	return black, white
}
