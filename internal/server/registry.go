package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/answjddns08/GamingHerb/internal/apperrors"
	"github.com/answjddns08/GamingHerb/internal/config"
	"github.com/answjddns08/GamingHerb/internal/game"
	"github.com/answjddns08/GamingHerb/internal/protocol"
	"github.com/answjddns08/GamingHerb/internal/server/storage"
)

var errRoomGone = apperrors.ErrRoomNotFound

// Registry 房间目录，按 (gameId, roomName) 索引
// 只锁目录本身，房间内部由各自的锁保护
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	engines *game.Registry
	cfg     *config.GameConfig
	store   storage.RoomStore
}

// NewRegistry 创建房间目录
func NewRegistry(engines *game.Registry, cfg *config.GameConfig, store storage.RoomStore) *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		engines: engines,
		cfg:     cfg,
		store:   store,
	}
}

func roomKey(gameID, roomName string) string {
	return gameID + "/" + roomName
}

// CreateRoom 创建房间；同名房间已存在时返回 ErrRoomExists
func (reg *Registry) CreateRoom(gameID, roomName string, settings map[string]any, host, hostID string) (*Room, error) {
	if !reg.engines.Known(gameID) {
		return nil, apperrors.ErrUnknownGame
	}

	reg.mu.Lock()
	key := roomKey(gameID, roomName)
	if _, exists := reg.rooms[key]; exists {
		reg.mu.Unlock()
		return nil, apperrors.ErrRoomExists
	}

	room := newRoom(reg, gameID, roomName, settings, host, hostID)
	reg.rooms[key] = room
	reg.mu.Unlock()

	room.persist()
	log.Printf("🏠 创建房间 %s/%s (房主 %s)", gameID, roomName, hostID)
	return room, nil
}

// GetRoom 查找房间
func (reg *Registry) GetRoom(gameID, roomName string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[roomKey(gameID, roomName)]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

// Rooms 返回某游戏类型的全部房间
func (reg *Registry) Rooms(gameID string) []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var rooms []*Room
	for _, room := range reg.rooms {
		if room.GameID == gameID {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// DeleteRoom 删除房间并通知剩余玩家
func (reg *Registry) DeleteRoom(gameID, roomName, reason string) error {
	room, err := reg.GetRoom(gameID, roomName)
	if err != nil {
		return err
	}
	reg.dropRoom(room, reason)
	return nil
}

// dropRoom 把房间移出目录后再关闭它
// 锁顺序固定为 目录锁 → 房间锁，绝不反向
func (reg *Registry) dropRoom(room *Room, reason string) {
	key := roomKey(room.GameID, room.Name)

	reg.mu.Lock()
	if reg.rooms[key] != room {
		// 已被移除或被同名新房间顶替
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, key)
	reg.mu.Unlock()

	room.shutdown(reason)

	if reg.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := reg.store.DeleteRoom(ctx, room.GameID, room.Name); err != nil {
				log.Printf("⚠️ 房间 %s/%s 快照删除失败: %v", room.GameID, room.Name, err)
			}
		}()
	}
}

// Janitor 周期清理从未有人加入的闲置空房间
func (reg *Registry) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.sweepIdleRooms()
		}
	}
}

func (reg *Registry) sweepIdleRooms() {
	timeout := reg.cfg.RoomTimeoutDuration()

	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	for _, room := range rooms {
		room.mu.RLock()
		idle := len(room.seats) == 0 && time.Since(room.lastActive) > timeout
		room.mu.RUnlock()

		if idle {
			log.Printf("🧹 清理闲置房间 %s/%s", room.GameID, room.Name)
			reg.dropRoom(room, protocol.ReasonRoomEmpty)
		}
	}
}

// RoomCount 当前房间总数（监控用）
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// ActiveRoomCount 游戏进行中的房间数
func (reg *Registry) ActiveRoomCount() int {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	count := 0
	for _, room := range rooms {
		status := room.Status()
		if status == protocol.RoomActive || status == protocol.RoomInterrupted {
			count++
		}
	}
	return count
}
