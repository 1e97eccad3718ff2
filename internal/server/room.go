package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/answjddns08/GamingHerb/internal/config"
	"github.com/answjddns08/GamingHerb/internal/game"
	"github.com/answjddns08/GamingHerb/internal/protocol"
	"github.com/answjddns08/GamingHerb/internal/server/storage"
)

// Conn 座位持有的连接句柄
type Conn interface {
	SendMessage(msg *protocol.Message)
	Close()
}

// Seat 房间里的一个座位
// 掉线期间座位保留，conn 为 nil，宽限期计时器生效
type Seat struct {
	UserID   string
	UserName string
	Ready    bool

	conn       Conn
	connected  bool
	graceTimer *time.Timer
}

// Room 一个游戏房间：座位、在场状态、游戏引擎和等待大厅
// 房间是并发隔离单元，引擎逻辑全部在房间锁内执行
type Room struct {
	GameID   string
	Name     string
	Host     string
	HostID   string
	Settings map[string]any

	mu           sync.RWMutex
	status       protocol.RoomStatus
	seats        []*Seat
	engine       game.Engine
	restart      game.RestartRequest
	lobby        *game.WaitingLobby
	lobbyTicking bool
	deleted      bool
	createdAt    time.Time
	lastActive   time.Time

	registry *Registry
	engines  *game.Registry
	cfg      *config.GameConfig
	store    storage.RoomStore
}

func newRoom(registry *Registry, gameID, name string, settings map[string]any, host, hostID string) *Room {
	now := time.Now()
	return &Room{
		GameID:     gameID,
		Name:       name,
		Host:       host,
		HostID:     hostID,
		Settings:   settings,
		status:     protocol.RoomWaiting,
		lobby:      game.NewWaitingLobby(),
		createdAt:  now,
		lastActive: now,
		registry:   registry,
		engines:    registry.engines,
		cfg:        registry.cfg,
		store:      registry.store,
	}
}

// Status 返回房间状态
func (r *Room) Status() protocol.RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Players 按座位顺序返回玩家信息
func (r *Room) Players() []protocol.PlayerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playersLocked()
}

func (r *Room) playersLocked() []protocol.PlayerInfo {
	players := make([]protocol.PlayerInfo, 0, len(r.seats))
	for _, seat := range r.seats {
		players = append(players, protocol.PlayerInfo{
			UserID:    seat.UserID,
			UserName:  seat.UserName,
			Ready:     seat.Ready,
			Connected: seat.connected,
		})
	}
	return players
}

func (r *Room) seatLocked(userID string) *Seat {
	for _, seat := range r.seats {
		if seat.UserID == userID {
			return seat
		}
	}
	return nil
}

// Join 入座（upsert）：新玩家加入、在线换连接、宽限期内重连
// 返回发给加入者的房间快照
func (r *Room) Join(userID, userName string, conn Conn) (*protocol.InitializePayload, error) {
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return nil, errRoomGone
	}
	r.lastActive = time.Now()

	seat := r.seatLocked(userID)
	switch {
	case seat == nil:
		seat = &Seat{UserID: userID, UserName: userName, conn: conn, connected: true}
		r.seats = append(r.seats, seat)
		r.broadcastExceptLocked(userID, protocol.MustNewMessage(protocol.MsgPlayerJoined, protocol.PlayerJoinedPayload{
			Player: protocol.PlayerInfo{UserID: userID, UserName: userName, Connected: true},
		}))
		log.Printf("➡️ 玩家 %s 加入房间 %s/%s", userID, r.GameID, r.Name)

	case seat.connected:
		// 同一用户再次连接，旧句柄让位
		old := seat.conn
		seat.conn = conn
		if userName != "" {
			seat.UserName = userName
		}
		if old != nil && old != conn {
			old.Close()
		}
		log.Printf("🔁 玩家 %s 在房间 %s/%s 替换连接", userID, r.GameID, r.Name)

	default:
		// 宽限期内重连：计时器只取消这一次
		if seat.graceTimer != nil {
			seat.graceTimer.Stop()
			seat.graceTimer = nil
		}
		seat.conn = conn
		seat.connected = true
		if userName != "" {
			seat.UserName = userName
		}
		r.broadcastExceptLocked(userID, protocol.MustNewMessage(protocol.MsgPlayerReconnected, protocol.PlayerReconnectedPayload{
			UserID:   userID,
			UserName: seat.UserName,
		}))
		if r.status == protocol.RoomInterrupted && !r.anyDisconnectedLocked() {
			r.status = protocol.RoomActive
		}
		log.Printf("🔌 玩家 %s 重连到房间 %s/%s", userID, r.GameID, r.Name)
	}

	init := &protocol.InitializePayload{
		GameID:   r.GameID,
		RoomName: r.Name,
		Status:   r.status,
		Host:     r.Host,
		HostID:   r.HostID,
		Settings: r.Settings,
		Players:  r.playersLocked(),
	}
	r.mu.Unlock()

	r.persist()
	return init, nil
}

func (r *Room) anyDisconnectedLocked() bool {
	for _, seat := range r.seats {
		if !seat.connected {
			return true
		}
	}
	return false
}

// MarkDisconnected 连接断开：座位进入宽限期，计时器到点永久移除
// from 非 nil 时只在座位仍持有该句柄时生效，避免被顶替的旧连接误触发
func (r *Room) MarkDisconnected(userID string, from Conn) {
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return
	}
	seat := r.seatLocked(userID)
	if seat == nil || !seat.connected {
		r.mu.Unlock()
		return
	}
	if from != nil && seat.conn != from {
		// 旧句柄的迟到关闭
		r.mu.Unlock()
		return
	}

	seat.connected = false
	seat.conn = nil
	seat.graceTimer = time.AfterFunc(r.cfg.GraceTimeoutDuration(), func() {
		r.expireGrace(userID)
	})

	r.broadcastLocked(protocol.MustNewMessage(protocol.MsgPlayerDisconnected, protocol.PlayerDisconnectedPayload{
		UserID:      userID,
		UserName:    seat.UserName,
		IsTemporary: true,
		Timeout:     r.cfg.GraceTimeout,
	}))

	if r.status == protocol.RoomActive {
		r.status = protocol.RoomInterrupted
	}
	log.Printf("⏳ 玩家 %s 掉线，房间 %s/%s 宽限 %ds", userID, r.GameID, r.Name, r.cfg.GraceTimeout)
	r.mu.Unlock()

	r.persist()
}

// expireGrace 宽限期到点回调；先重新确认房间和座位仍然有效
func (r *Room) expireGrace(userID string) {
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return
	}
	seat := r.seatLocked(userID)
	if seat == nil || seat.connected {
		// 已重连或已被移除
		r.mu.Unlock()
		return
	}

	log.Printf("⌛ 玩家 %s 宽限期超时，移出房间 %s/%s", userID, r.GameID, r.Name)
	shouldDelete, deleteReason := r.removeSeatLocked(seat, protocol.ReasonPlayerDisconnected)
	r.mu.Unlock()

	if shouldDelete {
		r.registry.dropRoom(r, deleteReason)
	} else {
		r.persist()
	}
}

// Leave 主动离开：跳过宽限期，同步移除
func (r *Room) Leave(userID string) {
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return
	}
	seat := r.seatLocked(userID)
	if seat == nil {
		r.mu.Unlock()
		return
	}

	log.Printf("⬅️ 玩家 %s 离开房间 %s/%s", userID, r.GameID, r.Name)
	shouldDelete, deleteReason := r.removeSeatLocked(seat, protocol.ReasonPlayerLeft)
	r.mu.Unlock()

	if shouldDelete {
		r.registry.dropRoom(r, deleteReason)
	} else {
		r.persist()
	}
}

// removeSeatLocked 永久移除座位：清计时器、撤销重启共识、通知引擎、广播
// 返回是否应删除整个房间（空房或房主离开）
func (r *Room) removeSeatLocked(seat *Seat, reason string) (shouldDelete bool, deleteReason string) {
	if seat.graceTimer != nil {
		seat.graceTimer.Stop()
		seat.graceTimer = nil
	}

	for i, s := range r.seats {
		if s == seat {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			break
		}
	}

	r.lobby.Exit(seat.UserID)

	// 两方重启共识：任一参与者移除即取消
	if r.restart.Pending {
		r.restart.Clear()
		r.broadcastLocked(protocol.MustNewMessage(protocol.MsgRestartCancelled, protocol.RestartCancelledPayload{
			Reason: reason,
		}))
	}

	// N-of-N 投票和提交屏障由引擎自己维护
	if pa, ok := r.engine.(game.PresenceAware); ok {
		cancelled, resolved := pa.PlayerRemoved(seat.UserID)
		if cancelled {
			r.broadcastLocked(protocol.MustNewMessage(protocol.MsgRestartCancelled, protocol.RestartCancelledPayload{
				Reason: reason,
			}))
		}
		if resolved != nil {
			// 移除让屏障达成，当场广播结算
			r.broadcastLocked(resolved)
		}
	}

	r.broadcastLocked(protocol.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{
		UserID:   seat.UserID,
		UserName: seat.UserName,
		Reason:   reason,
	}))

	if len(r.seats) == 0 {
		return true, protocol.ReasonRoomEmpty
	}
	if seat.UserID == r.HostID {
		return true, protocol.ReasonHostLeft
	}
	return false, ""
}

// SetReady 设置准备状态；至少两人全员准备即开局
func (r *Room) SetReady(userID string, ready bool) {
	r.mu.Lock()
	seat := r.seatLocked(userID)
	if seat == nil || r.deleted {
		r.mu.Unlock()
		return
	}
	r.lastActive = time.Now()

	seat.Ready = ready
	r.broadcastLocked(protocol.MustNewMessage(protocol.MsgPlayerReady, protocol.PlayerReadyPayload{
		UserID: userID,
		Ready:  ready,
	}))

	if r.engine == nil && r.allReadyLocked() {
		engine, err := r.engines.Create(r.GameID, r.Settings)
		if err != nil {
			log.Printf("❗ 房间 %s/%s 创建引擎失败: %v", r.GameID, r.Name, err)
			r.mu.Unlock()
			return
		}
		r.engine = engine
		r.status = protocol.RoomActive
		r.broadcastLocked(protocol.MustNewMessage(protocol.MsgGameStart, protocol.GameStartPayload{
			Players: r.playersLocked(),
		}))
		log.Printf("🎮 房间 %s/%s 开局，%d 名玩家", r.GameID, r.Name, len(r.seats))
	}
	r.mu.Unlock()

	r.persist()
}

func (r *Room) allReadyLocked() bool {
	if len(r.seats) < 2 {
		return false
	}
	for _, seat := range r.seats {
		if !seat.Ready || !seat.connected {
			return false
		}
	}
	return true
}

// HandleGameAction 把游戏动作派发给引擎并按结果分发消息
func (r *Room) HandleGameAction(userID string, action *protocol.Action) {
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return
	}
	seat := r.seatLocked(userID)
	if seat == nil {
		r.mu.Unlock()
		log.Printf("🗑️ 丢弃非房间成员 %s 的动作 %s", userID, action.Type)
		return
	}
	r.lastActive = time.Now()

	if r.engine == nil {
		r.sendToLocked(userID, protocol.NewErrorMessage(protocol.ErrCodeGameNotStart))
		r.mu.Unlock()
		return
	}

	res := r.engine.HandleAction(action, userID, &roomSeating{r})
	r.applyResultLocked(userID, res)
	statusChanged := res.RoomStatus != ""
	r.mu.Unlock()

	if statusChanged {
		r.persist()
	}
}

// applyResultLocked 按优先级分发引擎结果：
// TargetPlayer > 仅回发起者 > Responses 逐条广播 > Response 广播
func (r *Room) applyResultLocked(actorID string, res game.Result) {
	if res.RoomStatus != "" {
		r.status = res.RoomStatus
	}

	if !res.Success {
		// 失败且带响应：只告知发起者
		if res.Response != nil {
			r.sendToLocked(actorID, res.Response)
		}
		return
	}

	switch {
	case res.TargetPlayer != "":
		if res.Response != nil {
			r.sendToLocked(res.TargetPlayer, res.Response)
		}
	case !res.ShouldBroadcast:
		if res.Response != nil {
			r.sendToLocked(actorID, res.Response)
		}
	case len(res.Responses) > 0:
		for _, msg := range res.Responses {
			r.broadcastLocked(msg)
		}
	default:
		if res.Response != nil {
			r.broadcastLocked(res.Response)
		}
	}
}

// HandleWaiting 等待大厅动作：join / exit / move
func (r *Room) HandleWaiting(userID string, action *protocol.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deleted || r.seatLocked(userID) == nil {
		return
	}

	switch action.Type {
	case protocol.ActionWaitingJoin:
		r.lobby.Join(userID)
		r.ensureLobbyLoopLocked()
	case protocol.ActionWaitingExit:
		r.lobby.Exit(userID)
	case protocol.ActionWaitingMove:
		move, err := protocol.ParseAction[protocol.WaitingMovePayload](action)
		if err != nil {
			return
		}
		r.lobby.Move(userID, *move)
	}
}

// ensureLobbyLoopLocked 大厅有人时保证广播协程在跑
func (r *Room) ensureLobbyLoopLocked() {
	if r.lobbyTicking {
		return
	}
	r.lobbyTicking = true
	go r.lobbyLoop()
}

// lobbyLoop 按配置频率广播大厅位置，大厅清空或房间删除时退出
func (r *Room) lobbyLoop() {
	ticker := time.NewTicker(r.cfg.WaitingTickInterval())
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		if r.deleted || r.lobby.Empty() {
			r.lobbyTicking = false
			r.mu.Unlock()
			return
		}
		r.broadcastLocked(protocol.MustNewMessage(protocol.MsgWaitingUpdate, r.lobby.Snapshot()))
		r.mu.Unlock()
	}
}

// --- 广播 ---

// Broadcast 广播给房间内全部在线座位
func (r *Room) Broadcast(msg *protocol.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.broadcastLocked(msg)
}

// BroadcastExcept 广播给除 userID 外的在线座位
func (r *Room) BroadcastExcept(userID string, msg *protocol.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.broadcastExceptLocked(userID, msg)
}

// SendTo 发送给指定座位；不在线或不存在则静默跳过
func (r *Room) SendTo(userID string, msg *protocol.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.sendToLocked(userID, msg)
}

func (r *Room) broadcastLocked(msg *protocol.Message) {
	for _, seat := range r.seats {
		if seat.conn != nil {
			seat.conn.SendMessage(msg)
		}
	}
}

func (r *Room) broadcastExceptLocked(userID string, msg *protocol.Message) {
	for _, seat := range r.seats {
		if seat.UserID != userID && seat.conn != nil {
			seat.conn.SendMessage(msg)
		}
	}
}

func (r *Room) sendToLocked(userID string, msg *protocol.Message) {
	seat := r.seatLocked(userID)
	if seat != nil && seat.conn != nil {
		seat.conn.SendMessage(msg)
	}
}

// shutdown 房间删除：通知剩余玩家并停掉大厅广播
func (r *Room) shutdown(reason string) {
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return
	}
	r.deleted = true
	for _, seat := range r.seats {
		if seat.graceTimer != nil {
			seat.graceTimer.Stop()
			seat.graceTimer = nil
		}
	}
	r.broadcastLocked(protocol.MustNewMessage(protocol.MsgRoomDeleted, protocol.RoomDeletedPayload{
		Reason: reason,
	}))
	r.mu.Unlock()

	log.Printf("🧹 房间 %s/%s 已删除 (%s)", r.GameID, r.Name, reason)
}

// --- 持久化 ---

// persist 异步写入房间快照，失败只记日志
func (r *Room) persist() {
	if r.store == nil {
		return
	}

	snap := r.snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.store.SaveRoom(ctx, snap); err != nil {
			log.Printf("⚠️ 房间 %s/%s 快照保存失败: %v", snap.GameID, snap.RoomName, err)
		}
	}()
}

func (r *Room) snapshot() *storage.RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]storage.PlayerEntry, 0, len(r.seats))
	for _, seat := range r.seats {
		players = append(players, storage.PlayerEntry{
			UserID:    seat.UserID,
			UserName:  seat.UserName,
			Ready:     seat.Ready,
			Connected: seat.connected,
		})
	}

	return &storage.RoomSnapshot{
		GameID:   r.GameID,
		RoomName: r.Name,
		Status:   string(r.status),
		Host:     r.Host,
		HostID:   r.HostID,
		Settings: r.Settings,
		Players:  players,
	}
}

// roomSeating 引擎可见的房间视图；只在房间锁内使用
type roomSeating struct {
	r *Room
}

func (v *roomSeating) UserIDs() []string {
	ids := make([]string, 0, len(v.r.seats))
	for _, seat := range v.r.seats {
		ids = append(ids, seat.UserID)
	}
	return ids
}

func (v *roomSeating) UserName(userID string) string {
	if seat := v.r.seatLocked(userID); seat != nil {
		return seat.UserName
	}
	return ""
}

func (v *roomSeating) Restart() *game.RestartRequest {
	return &v.r.restart
}
