package roster

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

const (
	// MinQueryLength - минимальная длина запроса в символах после обрезки пробелов.
	MinQueryLength = 3
	// SearchLimit - максимум кандидатов, запрашиваемых у каталога.
	SearchLimit = 5
	// searchTimeout ограничивает общий запрос к каталогу, который не зависит от отмены
	// контекста отдельного вызывающего.
	searchTimeout = 10 * time.Second
)

// SearchEngine подбирает пользователей для добавления. Ошибки каталога дают пустой результат.
type SearchEngine struct {
	dir    Directory
	logger *slog.Logger
	limit  int
	group  singleflight.Group
}

func NewSearchEngine(dir Directory, logger *slog.Logger) *SearchEngine {
	return &SearchEngine{
		dir:    dir,
		logger: loggerOrDiscard(logger),
		limit:  SearchLimit,
	}
}

// Search возвращает пользователей, подходящих под запрос и отсутствующих в составе current.
// Порядок каталога сохраняется.
func (e *SearchEngine) Search(ctx context.Context, query string, current Roster) []User {
	q, ok := normalizeQuery(query)
	if !ok {
		return []User{}
	}

	// Одинаковые одновременные запросы разделяют один вызов каталога, поэтому отмена
	// первого вызывающего не должна обрывать его для остальных.
	shared := context.WithoutCancel(ctx)
	ch := e.group.DoChan(q, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(shared, searchTimeout)
		defer cancel()
		return e.dir.SearchUsers(callCtx, q, e.limit)
	})

	select {
	case <-ctx.Done():
		e.logger.Debug("user search abandoned", slog.String("query", q), slog.Any("error", ctx.Err()))
		return []User{}
	case res := <-ch:
		if res.Err != nil {
			e.logger.Warn("user search failed", slog.String("query", q), slog.Any("error", classify(res.Err)))
			return []User{}
		}
		return excludeMembers(res.Val.([]User), current)
	}
}

func normalizeQuery(query string) (string, bool) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return "", false
	}
	return q, true
}

// excludeMembers фильтрует по user id (не по member id) и убирает повторы.
func excludeMembers(users []User, current Roster) []User {
	members := current.userIDs()
	seen := make(map[string]struct{}, len(users))
	out := make([]User, 0, len(users))
	for _, u := range users {
		if _, isMember := members[u.ID]; isMember {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}
