package game

import (
	"github.com/answjddns08/GamingHerb/internal/apperrors"
	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// Seating 引擎可见的房间视图：座位顺序、玩家名、重启请求槽位
// 引擎只通过它读取座位信息，不触碰房间其他状态
type Seating interface {
	// UserIDs 按加入顺序返回座位上的玩家 ID（顺序决定先后手）
	UserIDs() []string
	// UserName 返回玩家昵称，未知玩家返回 ""
	UserName(userID string) string
	// Restart 返回房间的重启请求槽位（两方共识用）
	Restart() *RestartRequest
}

// RestartRequest 两方重启共识的请求槽位
type RestartRequest struct {
	RequesterID string
	Pending     bool
}

// Clear 清空槽位
func (r *RestartRequest) Clear() {
	r.RequesterID = ""
	r.Pending = false
}

// Result 引擎处理动作后的分发指令
// 协调器按优先级应用：TargetPlayer > !ShouldBroadcast > Responses > 广播
type Result struct {
	Success         bool
	Response        *protocol.Message
	Responses       []*protocol.Message
	ShouldBroadcast bool
	TargetPlayer    string              // 只发给该座位
	RoomStatus      protocol.RoomStatus // 非空时在广播前变更房间状态
}

// Engine 各游戏类型的规则/状态对象
// 引擎对预期内的规则违反绝不 panic，只返回 Success=false
type Engine interface {
	HandleAction(action *protocol.Action, userID string, room Seating) Result
	State() any
}

// PresenceAware 引擎可选实现：座位被永久移除时的清理回调
// restartCancelled 表示该移除取消了进行中的重启投票；
// resolved 非 nil 时是按缩小后人数重判屏障得到的回合结算广播
type PresenceAware interface {
	PlayerRemoved(userID string) (restartCancelled bool, resolved *protocol.Message)
}

// Factory 按房间设置创建引擎实例
type Factory func(settings map[string]any) Engine

// Registry 按 gameType 注册的引擎工厂表
type Registry struct {
	factories map[string]Factory
}

// NewRegistry 创建空的引擎注册表
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry 返回注册了全部内置引擎的注册表
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Gomoku", func(settings map[string]any) Engine { return NewGomoku() })
	r.Register("Reversi", func(settings map[string]any) Engine { return NewReversi() })
	r.Register("HD2D", func(settings map[string]any) Engine { return NewHD2D(settings) })
	return r
}

// Register 注册引擎工厂
func (r *Registry) Register(gameID string, factory Factory) {
	r.factories[gameID] = factory
}

// Known 判断游戏类型是否已注册
func (r *Registry) Known(gameID string) bool {
	_, ok := r.factories[gameID]
	return ok
}

// Create 创建指定游戏类型的引擎实例
func (r *Registry) Create(gameID string, settings map[string]any) (Engine, error) {
	factory, ok := r.factories[gameID]
	if !ok {
		return nil, apperrors.ErrUnknownGame
	}
	return factory(settings), nil
}
