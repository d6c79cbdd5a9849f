// Package cache хранит результаты поиска пользователей в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Dosada05/fair-measure/models"
	"github.com/redis/go-redis/v9"
)

const searchKeyPrefix = "cache:user_search:"

// SearchCache - кэш выдачи поиска по email. Промах возвращает ok=false без ошибки.
type SearchCache interface {
	Get(ctx context.Context, query string, limit int) ([]*models.User, bool, error)
	Set(ctx context.Context, query string, limit int, users []*models.User) error
}

type RedisSearchCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSearchCache подключается к Redis по URL и проверяет соединение.
func NewRedisSearchCache(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisSearchCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSearchCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisSearchCache) Get(ctx context.Context, query string, limit int) ([]*models.User, bool, error) {
	data, err := c.client.Get(ctx, searchKey(query, limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read search cache: %w", err)
	}

	var entries []cachedUser
	if err := json.Unmarshal(data, &entries); err != nil {
		// Битая запись: считаем промахом и перезапишем при следующем Set.
		c.logger.Warn("discarding malformed search cache entry", slog.String("query", query), slog.Any("error", err))
		return nil, false, nil
	}
	return fromCached(entries), true, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, query string, limit int, users []*models.User) error {
	data, err := json.Marshal(toCached(users))
	if err != nil {
		return fmt.Errorf("failed to encode search cache entry: %w", err)
	}
	if err := c.client.Set(ctx, searchKey(query, limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}
	return nil
}

func (c *RedisSearchCache) Close() error {
	return c.client.Close()
}

func searchKey(query string, limit int) string {
	return searchKeyPrefix + strconv.Itoa(limit) + ":" + query
}

// cachedUser - подмножество полей пользователя, которое безопасно класть в кэш (без хэша пароля).
type cachedUser struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarKey *string   `json:"avatar_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCached(users []*models.User) []cachedUser {
	out := make([]cachedUser, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		out = append(out, cachedUser{
			ID:        u.ID,
			FullName:  u.FullName,
			Email:     u.Email,
			AvatarKey: u.AvatarKey,
			CreatedAt: u.CreatedAt,
		})
	}
	return out
}

func fromCached(entries []cachedUser) []*models.User {
	users := make([]*models.User, 0, len(entries))
	for _, e := range entries {
		users = append(users, &models.User{
			ID:        e.ID,
			FullName:  e.FullName,
			Email:     e.Email,
			AvatarKey: e.AvatarKey,
			CreatedAt: e.CreatedAt,
		})
	}
	return users
}
