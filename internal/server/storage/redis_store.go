package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀：room:{gameId}:{roomName}
	roomKeyPrefix = "room:"

	// 房间快照过期时间
	roomExpiration = 2 * time.Hour
)

// RoomSnapshot 房间快照（用于 Redis 序列化）
// 只存展示层数据，游戏内状态不落盘
type RoomSnapshot struct {
	GameID    string         `json:"gameId"`
	RoomName  string         `json:"roomName"`
	Status    string         `json:"status"`
	Host      string         `json:"host"`
	HostID    string         `json:"hostId"`
	Settings  map[string]any `json:"settings,omitempty"`
	Players   []PlayerEntry  `json:"players"`
	UpdatedAt int64          `json:"updatedAt"`
}

// PlayerEntry 快照里的座位
type PlayerEntry struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// RoomStore 房间快照存储
type RoomStore interface {
	SaveRoom(ctx context.Context, snapshot *RoomSnapshot) error
	DeleteRoom(ctx context.Context, gameID, roomName string) error
}

// RedisStore Redis 存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func roomKey(gameID, roomName string) string {
	return roomKeyPrefix + gameID + ":" + roomName
}

// SaveRoom 保存房间快照
func (rs *RedisStore) SaveRoom(ctx context.Context, snapshot *RoomSnapshot) error {
	snapshot.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化房间快照失败: %w", err)
	}

	key := roomKey(snapshot.GameID, snapshot.RoomName)
	return rs.client.Set(ctx, key, data, roomExpiration).Err()
}

// LoadRoom 加载房间快照；不存在时返回 (nil, nil)
func (rs *RedisStore) LoadRoom(ctx context.Context, gameID, roomName string) (*RoomSnapshot, error) {
	data, err := rs.client.Get(ctx, roomKey(gameID, roomName)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snapshot RoomSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("反序列化房间快照失败: %w", err)
	}

	return &snapshot, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, gameID, roomName string) error {
	return rs.client.Del(ctx, roomKey(gameID, roomName)).Err()
}

// ListRooms 列出某游戏类型的全部房间快照
func (rs *RedisStore) ListRooms(ctx context.Context, gameID string) ([]*RoomSnapshot, error) {
	var (
		cursor    uint64
		snapshots []*RoomSnapshot
	)

	pattern := roomKeyPrefix + gameID + ":*"
	for {
		keys, next, err := rs.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := rs.client.Get(ctx, key).Bytes()
			if err != nil {
				if err == redis.Nil {
					continue // 扫描期间过期
				}
				return nil, err
			}

			var snapshot RoomSnapshot
			if err := json.Unmarshal(data, &snapshot); err != nil {
				continue
			}
			snapshots = append(snapshots, &snapshot)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return snapshots, nil
}
