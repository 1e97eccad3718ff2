package game

import (
	"sort"

	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// buff 生效中的增益
type buff struct {
	Type     string
	Amount   int
	Duration int
}

// battleCharacter 战斗中的角色（服务端权威副本）
type battleCharacter struct {
	Name        string
	Team        string
	Health      int
	MaxHealth   int
	Damage      int
	Defense     int
	Speed       int
	BaseDamage  int
	BaseDefense int
	ActiveBuffs []buff
	DamageDealt int
	DamageTaken int
}

// HD2D 同时行动制小队战斗引擎
// 回合屏障：所有在座玩家都提交后才结算，提交覆盖而非追加
type HD2D struct {
	timerEnabled  bool
	turnTimeLimit int

	players     map[string]string // userID -> 阵营，"" 表示未选
	playerOrder []string

	characters map[string]*battleCharacter // 角色名 -> 角色
	charOrder  []string

	pendingActions map[string][]protocol.BattleAction
	pendingRosters map[string][]protocol.Character
	submitOrder    []string // 首次提交顺序，决定同速行动的先后

	restartVotes map[string]struct{}
	left         map[string]struct{}

	turnID    int
	turnCount int
	lastView  []protocol.CharacterView
	gameOver  bool
	winner    string
}

// NewHD2D 创建 HD2D 引擎
func NewHD2D(settings map[string]any) *HD2D {
	h := &HD2D{
		timerEnabled:  true,
		turnTimeLimit: 60,
	}
	if v, ok := settings["timerEnabled"].(bool); ok {
		h.timerEnabled = v
	}
	if v, ok := settings["turnTimeLimit"].(float64); ok && v > 0 {
		h.turnTimeLimit = int(v)
	}
	h.Reset()
	return h
}

// Reset 重置全部战斗状态，回到阵营选择阶段
func (h *HD2D) Reset() {
	h.players = make(map[string]string)
	h.playerOrder = nil
	h.characters = make(map[string]*battleCharacter)
	h.charOrder = nil
	h.pendingActions = make(map[string][]protocol.BattleAction)
	h.pendingRosters = make(map[string][]protocol.Character)
	h.submitOrder = nil
	h.restartVotes = make(map[string]struct{})
	h.left = make(map[string]struct{})
	h.turnID = 0
	h.turnCount = 0
	h.lastView = nil
	h.gameOver = false
	h.winner = ""
}

// State 返回当前战斗状态
func (h *HD2D) State() any {
	players := make([]protocol.TeamAssignment, 0, len(h.playerOrder))
	for _, id := range h.playerOrder {
		players = append(players, protocol.TeamAssignment{UserID: id, Team: h.players[id]})
	}
	return protocol.BattleState{
		Players:    players,
		Characters: h.lastView,
		GameOver:   h.gameOver,
		Winner:     h.winner,
		TurnCount:  h.turnCount,
	}
}

// HandleAction 处理游戏动作
func (h *HD2D) HandleAction(action *protocol.Action, userID string, room Seating) Result {
	switch action.Type {
	case protocol.ActionGameJoin:
		return h.handleJoin(userID)
	case protocol.ActionSelectTeam:
		return h.handleSelectTeam(action, userID)
	case protocol.ActionSubmitTurn:
		return h.handleSubmitTurn(action, userID)
	case protocol.ActionRestartVote:
		return h.handleRestartVote(userID)
	case protocol.ActionLeaveMatch:
		return h.handleLeaveMatch(userID)
	default:
		return Result{Success: false}
	}
}

// handleJoin 登记玩家，暂不回发消息
func (h *HD2D) handleJoin(userID string) Result {
	if _, ok := h.players[userID]; !ok {
		h.playerOrder = append(h.playerOrder, userID)
	}
	h.players[userID] = ""
	return Result{Success: true}
}

// handleSelectTeam 选择阵营，已被占用的阵营拒绝
func (h *HD2D) handleSelectTeam(action *protocol.Action, userID string) Result {
	payload, err := protocol.ParseAction[protocol.SelectTeamPayload](action)
	if err != nil || payload.Team == "" {
		return Result{Success: false, Response: protocol.NewGameError("invalid team payload")}
	}

	for _, team := range h.players {
		if team == payload.Team {
			return Result{Success: false, Response: protocol.NewGameError("team already taken")}
		}
	}

	if _, ok := h.players[userID]; !ok {
		h.playerOrder = append(h.playerOrder, userID)
	}
	h.players[userID] = payload.Team

	allSelected := len(h.players) > 0
	for _, team := range h.players {
		if team == "" {
			allSelected = false
			break
		}
	}

	return Result{
		Success: true,
		Response: protocol.MustNewMessage(protocol.MsgSelectTeam, protocol.SelectTeamResultPayload{
			SelectedTeams: payload.Team,
			Done:          allSelected, // 全员已选，客户端同步进入战斗
		}),
		ShouldBroadcast: true,
	}
}

// handleSubmitTurn 暂存提交，屏障满足时结算整个回合
func (h *HD2D) handleSubmitTurn(action *protocol.Action, userID string) Result {
	if _, ok := h.players[userID]; !ok {
		return Result{Success: false}
	}

	payload, err := protocol.ParseAction[protocol.SubmitTurnPayload](action)
	if err != nil || payload.Actions == nil {
		return Result{Success: false, Response: protocol.NewGameError("invalid actions payload")}
	}
	if payload.Characters == nil {
		return Result{Success: false, Response: protocol.NewGameError("invalid characters payload")}
	}

	// 屏障触发前重复提交以最后一次为准
	if _, submitted := h.pendingActions[userID]; !submitted {
		h.submitOrder = append(h.submitOrder, userID)
	}
	h.pendingActions[userID] = payload.Actions
	h.pendingRosters[userID] = payload.Characters

	if len(h.pendingActions) < len(h.players) {
		return Result{Success: true}
	}

	resolved := h.resolveTurn()
	return Result{
		Success:         true,
		Response:        protocol.MustNewMessage(protocol.MsgTurnResolved, resolved),
		ShouldBroadcast: true,
	}
}

// resolveTurn 屏障满足后的回合结算
func (h *HD2D) resolveTurn() protocol.TurnResolvedPayload {
	// 角色表只初始化一次，伤害和增益跨回合累积
	rosters := make([][]protocol.Character, 0, len(h.submitOrder))
	for _, id := range h.submitOrder {
		rosters = append(rosters, h.pendingRosters[id])
	}
	h.initCharacters(rosters)

	// 按提交顺序合并，再按速度降序稳定排序（同速保持提交序）
	type orderedAction struct {
		action protocol.BattleAction
		speed  int
	}
	var merged []orderedAction
	for _, id := range h.submitOrder {
		for _, a := range h.pendingActions[id] {
			speed := 0
			if actor, ok := h.characters[a.ActorName]; ok {
				speed = actor.Speed
			}
			merged = append(merged, orderedAction{action: a, speed: speed})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].speed > merged[j].speed
	})

	h.pendingActions = make(map[string][]protocol.BattleAction)
	h.pendingRosters = make(map[string][]protocol.Character)
	h.submitOrder = nil
	h.turnID++
	h.turnCount++

	resolvedActions := make([]protocol.ResolvedAction, 0, len(merged))
	for _, item := range merged {
		resolvedActions = append(resolvedActions, protocol.ResolvedAction{
			BattleAction: item.action,
			Result:       h.resolveAction(item.action),
		})
	}

	h.tickBuffs()
	snapshot := h.buildSnapshot()
	h.lastView = snapshot.Characters
	gameOver, winner, loser := h.victoryState()
	h.gameOver = gameOver
	if gameOver {
		h.winner = winner
	}

	return protocol.TurnResolvedPayload{
		TurnID:   h.turnID,
		Actions:  resolvedActions,
		Snapshot: snapshot,
		GameOver: gameOver,
		Winner:   winner,
		Loser:    loser,
	}
}

// initCharacters 以首回合各方上报名单的并集建表
func (h *HD2D) initCharacters(rosters [][]protocol.Character) {
	if len(h.characters) > 0 {
		return
	}
	for _, roster := range rosters {
		for _, c := range roster {
			if c.Name == "" {
				continue
			}
			health := c.Health
			maxHealth := c.MaxHealth
			if health == 0 {
				health = maxHealth
			}
			if maxHealth == 0 {
				maxHealth = health
			}
			baseDamage := c.BaseDamage
			if baseDamage == 0 {
				baseDamage = c.Damage
			}
			baseDefense := c.BaseDefense
			if baseDefense == 0 {
				baseDefense = c.Defense
			}
			if _, exists := h.characters[c.Name]; exists {
				continue
			}
			h.characters[c.Name] = &battleCharacter{
				Name:        c.Name,
				Team:        c.Team,
				Health:      health,
				MaxHealth:   maxHealth,
				Damage:      c.Damage,
				Defense:     c.Defense,
				Speed:       c.Speed,
				BaseDamage:  baseDamage,
				BaseDefense: baseDefense,
			}
			h.charOrder = append(h.charOrder, c.Name)
		}
	}
}

// resolveAction 结算单个行动；行动者或目标已倒下则跳过
func (h *HD2D) resolveAction(a protocol.BattleAction) protocol.ActionOutcome {
	actor := h.characters[a.ActorName]
	target := h.characters[a.TargetName]
	if actor == nil || target == nil || actor.Health <= 0 || target.Health <= 0 {
		return protocol.ActionOutcome{Type: "skipped"}
	}

	switch a.SkillType {
	case "heal":
		amount := max(0, a.SkillPower)
		actualHeal := min(amount, target.MaxHealth-target.Health)
		target.Health += actualHeal
		return protocol.ActionOutcome{
			Type:            "heal",
			Amount:          actualHeal,
			TargetHealth:    target.Health,
			TargetMaxHealth: target.MaxHealth,
		}

	case "buff":
		buffType := a.BuffType
		if buffType == "" {
			buffType = "damage"
		}
		amount := max(0, a.SkillPower)
		duration := a.BuffDuration
		if duration < 1 {
			duration = 2
		}
		h.applyBuff(target, buffType, amount, duration)
		return protocol.ActionOutcome{
			Type:     "buff",
			Amount:   amount,
			BuffType: buffType,
			Duration: duration,
		}

	default: // attack
		damage := max(0, a.SkillPower-target.Defense)
		target.Health = max(0, target.Health-damage)
		actor.DamageDealt += damage
		target.DamageTaken += damage
		return protocol.ActionOutcome{
			Type:            "damage",
			Amount:          damage,
			TargetHealth:    target.Health,
			TargetMaxHealth: target.MaxHealth,
			TargetDied:      target.Health <= 0,
		}
	}
}

// applyBuff 入栈并立即生效
func (h *HD2D) applyBuff(target *battleCharacter, buffType string, amount, duration int) {
	if amount == 0 || duration == 0 {
		return
	}
	target.ActiveBuffs = append(target.ActiveBuffs, buff{Type: buffType, Amount: amount, Duration: duration})

	switch buffType {
	case "damage":
		target.Damage += amount
	case "defense":
		target.Defense += amount
	case "health":
		target.MaxHealth += amount
		target.Health += amount
	}
}

// tickBuffs 每回合递减增益时长，到期回退且不低于无增益基准值
func (h *HD2D) tickBuffs() {
	for _, name := range h.charOrder {
		c := h.characters[name]
		kept := c.ActiveBuffs[:0]
		for i := range c.ActiveBuffs {
			b := c.ActiveBuffs[i]
			b.Duration--
			if b.Duration > 0 {
				kept = append(kept, b)
				continue
			}

			switch b.Type {
			case "damage":
				c.Damage = max(c.BaseDamage, c.Damage-b.Amount)
			case "defense":
				c.Defense = max(c.BaseDefense, c.Defense-b.Amount)
			case "health":
				c.MaxHealth = max(c.MaxHealth-b.Amount, 1)
				c.Health = min(c.Health, c.MaxHealth)
			}
		}
		c.ActiveBuffs = kept
	}
}

// buildSnapshot 生成全场角色快照
func (h *HD2D) buildSnapshot() protocol.BattleSnapshot {
	views := make([]protocol.CharacterView, 0, len(h.charOrder))
	for _, name := range h.charOrder {
		c := h.characters[name]
		views = append(views, protocol.CharacterView{
			Name:        c.Name,
			Team:        c.Team,
			Health:      c.Health,
			MaxHealth:   c.MaxHealth,
			Damage:      c.Damage,
			Defense:     c.Defense,
			Speed:       c.Speed,
			DamageDealt: c.DamageDealt,
			DamageTaken: c.DamageTaken,
		})
	}
	return protocol.BattleSnapshot{Characters: views}
}

// victoryState 只剩一方存活即胜，全灭为平局
func (h *HD2D) victoryState() (gameOver bool, winner, loser string) {
	type teamCount struct{ alive, total int }
	counts := make(map[string]*teamCount)
	var teamOrder []string

	for _, name := range h.charOrder {
		c := h.characters[name]
		tc, ok := counts[c.Team]
		if !ok {
			tc = &teamCount{}
			counts[c.Team] = tc
			teamOrder = append(teamOrder, c.Team)
		}
		tc.total++
		if c.Health > 0 {
			tc.alive++
		}
	}

	if len(teamOrder) == 0 {
		return false, "", ""
	}

	var aliveTeams []string
	for _, team := range teamOrder {
		if counts[team].alive > 0 {
			aliveTeams = append(aliveTeams, team)
		}
	}

	if len(aliveTeams) == 1 && len(teamOrder) > 1 {
		winner = aliveTeams[0]
		for _, team := range teamOrder {
			if team != winner {
				loser = team
				break
			}
		}
		return true, winner, loser
	}
	if len(aliveTeams) == 0 {
		return true, SideDraw, ""
	}
	return false, "", ""
}

// handleRestartVote N-of-N 重启共识：所有在座且未离开的玩家都投票才确认
func (h *HD2D) handleRestartVote(userID string) Result {
	if _, ok := h.players[userID]; !ok {
		return Result{Success: false}
	}
	if _, hasLeft := h.left[userID]; hasLeft {
		return Result{Success: false}
	}

	h.restartVotes[userID] = struct{}{}

	needed := 0
	for id := range h.players {
		if _, hasLeft := h.left[id]; !hasLeft {
			needed++
		}
	}

	if len(h.restartVotes) >= needed {
		h.Reset()
		return Result{
			Success:         true,
			Response:        protocol.MustNewMessage(protocol.MsgRestartConfirmed, struct{}{}),
			ShouldBroadcast: true,
		}
	}

	return Result{
		Success:         true,
		Response:        protocol.MustNewMessage(protocol.MsgRestartVoted, protocol.RestartVotePayload{UserID: userID}),
		ShouldBroadcast: true,
	}
}

// handleLeaveMatch 玩家退出战斗（座位仍在房间里）
func (h *HD2D) handleLeaveMatch(userID string) Result {
	if _, ok := h.players[userID]; !ok {
		return Result{Success: false}
	}

	h.left[userID] = struct{}{}
	return Result{
		Success:         true,
		Response:        protocol.MustNewMessage(protocol.MsgOpponentLeft, protocol.OpponentLeftPayload{UserID: userID}),
		ShouldBroadcast: true,
	}
}

// PlayerRemoved 座位被永久移除时的清理；未结算的提交一并丢弃
// 清理后立即按缩小的人数重判屏障，剩余玩家已全员提交时当场结算
func (h *HD2D) PlayerRemoved(userID string) (restartCancelled bool, resolved *protocol.Message) {
	if _, ok := h.players[userID]; !ok {
		return false, nil
	}

	delete(h.players, userID)
	for i, id := range h.playerOrder {
		if id == userID {
			h.playerOrder = append(h.playerOrder[:i], h.playerOrder[i+1:]...)
			break
		}
	}
	delete(h.pendingActions, userID)
	delete(h.pendingRosters, userID)
	for i, id := range h.submitOrder {
		if id == userID {
			h.submitOrder = append(h.submitOrder[:i], h.submitOrder[i+1:]...)
			break
		}
	}
	delete(h.left, userID)

	if len(h.restartVotes) > 0 {
		h.restartVotes = make(map[string]struct{})
		restartCancelled = true
	}

	// 被移除者可能正是屏障等待的最后一人
	if len(h.players) > 0 && len(h.pendingActions) >= len(h.players) {
		resolved = protocol.MustNewMessage(protocol.MsgTurnResolved, h.resolveTurn())
	}

	return restartCancelled, resolved
}
