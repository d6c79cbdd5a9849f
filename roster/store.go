package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store - единственный писатель загруженных составов. Состав заменяется целиком.
type Store struct {
	dir    Directory
	logger *slog.Logger

	mu      sync.RWMutex
	rosters map[string]Roster
	// issued - номер последней начатой загрузки, applied - номер загрузки, чей состав сохранен.
	issued  map[string]uint64
	applied map[string]uint64
}

func NewStore(dir Directory, logger *slog.Logger) *Store {
	return &Store{
		dir:     dir,
		logger:  loggerOrDiscard(logger),
		rosters: make(map[string]Roster),
		issued:  make(map[string]uint64),
		applied: make(map[string]uint64),
	}
}

// Load загружает полный состав и заменяет им сохраненный. При ошибке прежний состав сохраняется.
// Ответ загрузки, начатой раньше уже сохраненной, отбрасывается: возвращается сохраненный состав.
func (s *Store) Load(ctx context.Context, competitionID string) (Roster, error) {
	s.mu.Lock()
	s.issued[competitionID]++
	seq := s.issued[competitionID]
	s.mu.Unlock()

	members, err := s.dir.ListMembers(ctx, competitionID)
	if err != nil {
		err = classify(err)
		s.logger.Warn("roster load failed", slog.String("competition_id", competitionID), slog.Any("error", err))
		return Roster{}, fmt.Errorf("load roster %s: %w", competitionID, err)
	}

	roster := Roster{CompetitionID: competitionID, Members: s.dedupe(competitionID, members)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied[competitionID] {
		s.logger.Debug("discarding stale roster load",
			slog.String("competition_id", competitionID),
			slog.Uint64("load", seq),
		)
		return s.rosters[competitionID].clone(), nil
	}
	s.rosters[competitionID] = roster
	s.applied[competitionID] = seq

	return roster.clone(), nil
}

// Current возвращает последний успешно загруженный состав.
func (s *Store) Current(competitionID string) (Roster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rosters[competitionID]
	if !ok {
		return Roster{CompetitionID: competitionID}, false
	}
	return r.clone(), true
}

// dedupe отбрасывает записи с повторным user id или member id, сохраняя первую.
func (s *Store) dedupe(competitionID string, members []Member) []Member {
	seenUsers := make(map[string]struct{}, len(members))
	seenMembers := make(map[string]struct{}, len(members))
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if _, dup := seenUsers[m.User.ID]; dup {
			s.logger.Warn("dropping duplicate roster entry",
				slog.String("competition_id", competitionID),
				slog.String("member_id", m.ID),
				slog.String("user_id", m.User.ID),
			)
			continue
		}
		if _, dup := seenMembers[m.ID]; dup {
			continue
		}
		seenUsers[m.User.ID] = struct{}{}
		seenMembers[m.ID] = struct{}{}
		if m.CompetitionID == "" {
			m.CompetitionID = competitionID
		}
		out = append(out, m)
	}
	return out
}
