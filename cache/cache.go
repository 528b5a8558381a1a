// Package cache persists conversation history, reading sessions and audio in
// Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/redis/go-redis/v9"
)

const (
	maxHistory = 50
	keyPrefix  = "dex-assistant-service:"
)

// HistoryEntry is one conversation turn stored per channel or client.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Cache is the interface for the persistence layer.
type Cache interface {
	AddHistoryEntry(key string, e HistoryEntry) error
	GetHistory(key string, limit int64) ([]HistoryEntry, error)
	ClearHistory(key string) error
	SaveAudio(key string, data []byte, ttl time.Duration) error
	LoadAudio(key string) ([]byte, error)
	CleanAllAudio() (int64, error)
	SaveReadingSession(session *reading.Session) error
	LoadReadingSession(id string) (*reading.Session, error)
	DeleteReadingSession(id string) error
	GetAllReadingSessionIDs() ([]string, error)
	Ping() error
	Close() error
}

// DB is the Redis-backed Cache implementation.
type DB struct {
	rdb *redis.Client
	ctx context.Context
}

// New connects to Redis using the given config. A nil config or empty address
// disables the cache and returns nil without error.
func New(cfg *config.RedisConfig) (*DB, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to cache at %s: %w", cfg.Addr, err)
	}
	return &DB{rdb: rdb, ctx: ctx}, nil
}

// Client exposes the underlying Redis client for collaborators that keep
// their own key namespace, like the profile store.
func (db *DB) Client() *redis.Client {
	return db.rdb
}

func (db *DB) Ping() error {
	return db.rdb.Ping(db.ctx).Err()
}

func (db *DB) Close() error {
	return db.rdb.Close()
}

// AddHistoryEntry appends a conversation turn, trimming the list to the most
// recent maxHistory entries.
func (db *DB) AddHistoryEntry(key string, e HistoryEntry) error {
	prefixedKey := keyPrefix + "history:" + key
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not marshal history entry: %w", err)
	}
	pipe := db.rdb.Pipeline()
	pipe.LPush(db.ctx, prefixedKey, data)
	pipe.LTrim(db.ctx, prefixedKey, 0, maxHistory-1)
	_, err = pipe.Exec(db.ctx)
	return err
}

// GetHistory returns up to limit conversation turns, oldest first.
func (db *DB) GetHistory(key string, limit int64) ([]HistoryEntry, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	prefixedKey := keyPrefix + "history:" + key
	raw, err := db.rdb.LRange(db.ctx, prefixedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("could not load history for %s: %w", key, err)
	}
	// Entries are LPushed newest-first; reverse into chronological order.
	entries := make([]HistoryEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var e HistoryEntry
		if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ClearHistory drops the conversation history for a key.
func (db *DB) ClearHistory(key string) error {
	return db.rdb.Del(db.ctx, keyPrefix+"history:"+key).Err()
}

// SaveAudio stores synthesized audio with a TTL so abandoned clips expire on
// their own.
func (db *DB) SaveAudio(key string, data []byte, ttl time.Duration) error {
	return db.rdb.Set(db.ctx, keyPrefix+"audio:"+key, data, ttl).Err()
}

// LoadAudio fetches a synthesized clip. Missing keys return nil data.
func (db *DB) LoadAudio(key string) ([]byte, error) {
	data, err := db.rdb.Get(db.ctx, keyPrefix+"audio:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// CleanAllAudio finds and deletes all audio entries from the cache.
func (db *DB) CleanAllAudio() (int64, error) {
	pattern := keyPrefix + "audio:*"
	var keys []string
	iter := db.rdb.Scan(db.ctx, 0, pattern, 0).Iterator()
	for iter.Next(db.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return db.rdb.Del(db.ctx, keys...).Result()
}

// SaveReadingSession snapshots a reading session so it survives a restart.
// The session is copied under its mutex before marshaling so a concurrent
// playback loop cannot mutate it mid-serialization.
func (db *DB) SaveReadingSession(session *reading.Session) error {
	snap := session.Snapshot()
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("could not marshal reading session: %w", err)
	}
	key := fmt.Sprintf("%sreading:%s:state", keyPrefix, snap.ID)
	return db.rdb.Set(db.ctx, key, data, 0).Err()
}

// LoadReadingSession restores a snapshot. A missing key returns nil.
func (db *DB) LoadReadingSession(id string) (*reading.Session, error) {
	key := fmt.Sprintf("%sreading:%s:state", keyPrefix, id)
	data, err := db.rdb.Get(db.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load reading session %s: %w", id, err)
	}
	var session reading.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("could not unmarshal reading session %s: %w", id, err)
	}
	return &session, nil
}

// DeleteReadingSession removes a snapshot.
func (db *DB) DeleteReadingSession(id string) error {
	key := fmt.Sprintf("%sreading:%s:state", keyPrefix, id)
	return db.rdb.Del(db.ctx, key).Err()
}

// GetAllReadingSessionIDs lists the ids of every persisted reading session.
func (db *DB) GetAllReadingSessionIDs() ([]string, error) {
	var ids []string
	pattern := keyPrefix + "reading:*:state"
	iter := db.rdb.Scan(db.ctx, 0, pattern, 0).Iterator()
	for iter.Next(db.ctx) {
		trimmed := strings.TrimPrefix(iter.Val(), keyPrefix+"reading:")
		trimmed = strings.TrimSuffix(trimmed, ":state")
		if trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
