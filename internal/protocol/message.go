package protocol

import "encoding/json"

// Envelope 客户端入站消息信封
// 身份信息（userId/userName）由上游身份服务保证，这里只信任不认证
type Envelope struct {
	Type     EnvelopeType `json:"type"`
	GameID   string       `json:"gameId"`
	RoomName string       `json:"roomName"`
	UserID   string       `json:"userId"`
	UserName string       `json:"userName,omitempty"`
	Action   *Action      `json:"action,omitempty"`
}

// EnvelopeType 信封类型
type EnvelopeType string

const (
	EnvelopeJoin    EnvelopeType = "join"    // 加入房间（含重连）
	EnvelopeWaiting EnvelopeType = "waiting" // 等待大厅小游戏
	EnvelopeInGame  EnvelopeType = "inGame"  // 游戏内操作
	EnvelopeLeave   EnvelopeType = "leave"   // 主动离开房间
)

// Action 游戏动作（tagged union，payload 由各引擎按类型解析）
type Action struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ActionType 动作类型
type ActionType string

const (
	// 协调器处理
	ActionPlayerReady ActionType = "player:ready"

	// 棋盘类引擎（Gomoku / Reversi）
	ActionPlayerLoaded   ActionType = "player:loaded"
	ActionMove           ActionType = "game:move"
	ActionSurrender      ActionType = "game:surrender"
	ActionRestartRequest ActionType = "game:restart:request"
	ActionRestartAccept  ActionType = "game:restart:accept"
	ActionRestartDecline ActionType = "game:restart:decline"

	// 同时行动引擎（HD2D）
	ActionGameJoin       ActionType = "game:join"
	ActionSelectTeam     ActionType = "game:selectTeam"
	ActionSubmitTurn     ActionType = "game:submitTurn"
	ActionRestartVote    ActionType = "game:restartRequest"
	ActionLeaveMatch     ActionType = "game:leaveMatch"

	// 等待大厅
	ActionWaitingJoin ActionType = "join"
	ActionWaitingExit ActionType = "exit"
	ActionWaitingMove ActionType = "move"
)

// Message 服务端出站消息
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 出站消息类型
type MessageType string

const (
	// 房间 / 在场状态
	MsgInitialize         MessageType = "initialize"         // 加入成功，房间快照
	MsgPlayerJoined       MessageType = "playerJoined"       // 其他玩家加入
	MsgPlayerReconnected  MessageType = "playerReconnected"  // 玩家重连
	MsgPlayerDisconnected MessageType = "playerDisconnected" // 玩家掉线（宽限期内）
	MsgPlayerLeft         MessageType = "playerLeft"         // 玩家永久离开
	MsgRoomDeleted        MessageType = "roomDeleted"        // 房间已删除
	MsgPlayerReady        MessageType = "playerReady"        // 玩家准备状态变更
	MsgGameStart          MessageType = "gameStart"          // 全员准备，游戏开始

	// 游戏通用
	MsgGameUpdateState  MessageType = "game:updateState"
	MsgGameInitialState MessageType = "game:initialState"
	MsgGameError        MessageType = "game:error"

	// 重启共识
	MsgRestartRequested MessageType = "game:restart:requested"
	MsgRestartAccepted  MessageType = "game:restart:accepted"
	MsgRestartDeclined  MessageType = "game:restart:declined"
	MsgRestartCancelled MessageType = "game:restart:cancelled"

	// HD2D
	MsgSelectTeam       MessageType = "game:selectTeam"
	MsgTurnResolved     MessageType = "game:turnResolved"
	MsgRestartVoted     MessageType = "game:restartRequested"
	MsgRestartConfirmed MessageType = "game:restartConfirmed"
	MsgOpponentLeft     MessageType = "game:opponentLeft"

	// 等待大厅
	MsgWaitingUpdate MessageType = "waiting:update"

	// 错误
	MsgError MessageType = "error"
)

// RoomStatus 房间状态
type RoomStatus string

const (
	RoomWaiting     RoomStatus = "waiting"     // 等待玩家准备
	RoomActive      RoomStatus = "active"      // 游戏进行中
	RoomInterrupted RoomStatus = "interrupted" // 有玩家处于重连宽限期
)

// 离开原因
const (
	ReasonPlayerLeft         = "playerLeft"         // 主动离开
	ReasonPlayerDisconnected = "playerDisconnected" // 宽限期超时
	ReasonHostLeft           = "hostLeft"           // 房主离开导致房间删除
	ReasonRoomEmpty          = "roomEmpty"          // 房间已空
)

// --- 房间 / 在场 Payloads ---

// PlayerInfo 座位上的玩家信息
type PlayerInfo struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// InitializePayload 加入成功响应
type InitializePayload struct {
	GameID   string         `json:"gameId"`
	RoomName string         `json:"roomName"`
	Status   RoomStatus     `json:"status"`
	Host     string         `json:"host"`
	HostID   string         `json:"hostId"`
	Settings map[string]any `json:"settings,omitempty"`
	Players  []PlayerInfo   `json:"players"`
}

// PlayerJoinedPayload 其他玩家加入通知
type PlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

// PlayerReconnectedPayload 玩家重连通知
type PlayerReconnectedPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// PlayerDisconnectedPayload 玩家掉线通知（宽限期内可重连）
type PlayerDisconnectedPayload struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	IsTemporary bool   `json:"isTemporary"`
	Timeout     int    `json:"timeout"` // 宽限期（秒）
}

// PlayerLeftPayload 玩家永久离开通知
type PlayerLeftPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Reason   string `json:"reason"`
}

// RoomDeletedPayload 房间删除通知
type RoomDeletedPayload struct {
	Reason string `json:"reason"`
}

// PlayerReadyPayload 准备状态通知 / 请求
type PlayerReadyPayload struct {
	UserID string `json:"userId,omitempty"`
	Ready  bool   `json:"ready"`
}

// GameStartPayload 游戏开始通知
type GameStartPayload struct {
	Players []PlayerInfo `json:"players"` // 按座位顺序
}

// GameErrorPayload 游戏内错误（只发给动作发起者）
type GameErrorPayload struct {
	Message string `json:"message"`
}

// ErrorPayload 协议级错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- 棋盘类引擎 Payloads ---

// MovePayload 落子请求
type MovePayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// BoardState 棋盘类游戏状态（空格为 ""）
type BoardState struct {
	Board         [][]string  `json:"board"`
	CurrentPlayer string      `json:"currentPlayer"`
	GameOver      bool        `json:"gameOver"`
	Winner        string      `json:"winner,omitempty"`
	MoveCount     int         `json:"moveCount,omitempty"`
	Scores        *DiscScores `json:"scores,omitempty"` // 仅 Reversi
}

// DiscScores Reversi 双方棋子数
type DiscScores struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// GamePlayer 引擎视角的玩家
type GamePlayer struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// InitialStatePayload player:loaded 响应（仅发起者）
type InitialStatePayload struct {
	GameState any          `json:"gameState"`
	Players   []GamePlayer `json:"players"`
}

// --- 重启共识 Payloads ---

// RestartRequestedPayload 重启请求通知（发给对手）
type RestartRequestedPayload struct {
	RequesterID   string `json:"requesterId"`
	RequesterName string `json:"requesterName"`
}

// RestartAcceptedPayload 重启被接受
type RestartAcceptedPayload struct {
	AccepterID string `json:"accepterId"`
}

// RestartDeclinedPayload 重启被拒绝
type RestartDeclinedPayload struct {
	DeclinerID   string `json:"declinerId"`
	DeclinerName string `json:"declinerName"`
}

// RestartCancelledPayload 重启投票被取消（有人离开/掉线）
type RestartCancelledPayload struct {
	Reason string `json:"reason"`
}

// RestartVotePayload HD2D N-of-N 重启投票通知
type RestartVotePayload struct {
	UserID string `json:"userId"`
}

// --- HD2D Payloads ---

// SelectTeamPayload 选择阵营请求
type SelectTeamPayload struct {
	Team string `json:"team"`
}

// SelectTeamResultPayload 阵营选择广播
type SelectTeamResultPayload struct {
	SelectedTeams string `json:"selectedTeams"`
	Done          bool   `json:"done,omitempty"` // 全员已选择，同步进入战斗
}

// BattleAction 一次角色行动
type BattleAction struct {
	ActorName    string `json:"actorName"`
	TargetName   string `json:"targetName"`
	SkillType    string `json:"skillType"` // attack / heal / buff
	SkillPower   int    `json:"skillPower"`
	BuffType     string `json:"buffType,omitempty"`
	BuffDuration int    `json:"buffDuration,omitempty"`
}

// Character 客户端上报的权威角色数据
type Character struct {
	Name        string `json:"name"`
	Team        string `json:"team"`
	Health      int    `json:"health"`
	MaxHealth   int    `json:"maxHealth"`
	Damage      int    `json:"damage"`
	Defense     int    `json:"defense"`
	Speed       int    `json:"speed"`
	BaseDamage  int    `json:"baseDamage,omitempty"`
	BaseDefense int    `json:"baseDefense,omitempty"`
}

// SubmitTurnPayload 提交本回合全部行动
type SubmitTurnPayload struct {
	Actions    []BattleAction `json:"actions"`
	Characters []Character    `json:"characters"`
}

// ActionOutcome 单个行动的结算结果
type ActionOutcome struct {
	Type            string `json:"type"` // damage / heal / buff / skipped
	Amount          int    `json:"amount,omitempty"`
	BuffType        string `json:"buffType,omitempty"`
	Duration        int    `json:"duration,omitempty"`
	TargetHealth    int    `json:"targetHealth,omitempty"`
	TargetMaxHealth int    `json:"targetMaxHealth,omitempty"`
	TargetDied      bool   `json:"targetDied,omitempty"`
}

// ResolvedAction 行动 + 结算结果
type ResolvedAction struct {
	BattleAction
	Result ActionOutcome `json:"result"`
}

// CharacterView 结算后的角色快照
type CharacterView struct {
	Name        string `json:"name"`
	Team        string `json:"team"`
	Health      int    `json:"health"`
	MaxHealth   int    `json:"maxHealth"`
	Damage      int    `json:"damage"`
	Defense     int    `json:"defense"`
	Speed       int    `json:"speed"`
	DamageDealt int    `json:"damageDealt"`
	DamageTaken int    `json:"damageTaken"`
}

// BattleSnapshot 全场角色快照
type BattleSnapshot struct {
	Characters []CharacterView `json:"characters"`
}

// TurnResolvedPayload 回合结算广播
type TurnResolvedPayload struct {
	TurnID   int              `json:"turnId"`
	Actions  []ResolvedAction `json:"actions"`
	Snapshot BattleSnapshot   `json:"snapshot"`
	GameOver bool             `json:"gameOver"`
	Winner   string           `json:"winner,omitempty"`
	Loser    string           `json:"loser,omitempty"`
}

// TeamAssignment HD2D 状态里的玩家阵营
type TeamAssignment struct {
	UserID string `json:"userId"`
	Team   string `json:"team,omitempty"`
}

// BattleState HD2D 游戏状态
type BattleState struct {
	Players    []TeamAssignment `json:"players"`
	Characters []CharacterView  `json:"characters"`
	GameOver   bool             `json:"gameOver"`
	Winner     string           `json:"winner,omitempty"`
	TurnCount  int              `json:"turnCount"`
}

// OpponentLeftPayload 对手离开战斗通知
type OpponentLeftPayload struct {
	UserID string `json:"userId"`
}

// --- 等待大厅 Payloads ---

// WaitingMovePayload 大厅内移动请求
type WaitingMovePayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VelocityX float64 `json:"velocityX,omitempty"`
	VelocityY float64 `json:"velocityY,omitempty"`
}

// WaitingPlayer 大厅内玩家坐标
type WaitingPlayer struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VelocityX float64 `json:"velocityX"`
	VelocityY float64 `json:"velocityY"`
}

// WaitingUpdatePayload 大厅位置同步广播（30Hz）
type WaitingUpdatePayload struct {
	Players []WaitingPlayer `json:"players"`
}

// --- 错误码 ---
const (
	ErrCodeUnknown      = 1000
	ErrCodeInvalidMsg   = 1001
	ErrCodeRateLimit    = 1002
	ErrCodeRoomNotFound = 2001
	ErrCodeRoomExists   = 2002
	ErrCodeNotInRoom    = 2003
	ErrCodeGameNotStart = 3001
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:      "unknown error",
	ErrCodeInvalidMsg:   "invalid message format",
	ErrCodeRateLimit:    "too many requests",
	ErrCodeRoomNotFound: "room not found",
	ErrCodeRoomExists:   "room name already exists",
	ErrCodeNotInRoom:    "you are not in a room",
	ErrCodeGameNotStart: "game has not started",
}
