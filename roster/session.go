package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateMutating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateMutating:
		return "mutating"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Identity - текущий пользователь сессии.
type Identity interface {
	UserID() string
}

// StaticIdentity - Identity с фиксированным user id.
type StaticIdentity string

func (s StaticIdentity) UserID() string { return string(s) }

// View - снимок состояния сессии для слоя представления.
type View struct {
	State         State
	CompetitionID string
	Roster        Roster
	Query         string
	Results       []User
	Pending       bool
	Error         string
	CanManage     bool
}

// Session связывает Store, SearchEngine и MutationGate для одного соревнования.
// Мьютекс сессии никогда не удерживается во время вызовов каталога.
type Session struct {
	competitionID string
	identity      Identity
	store         *Store
	search        *SearchEngine
	gate          *MutationGate
	logger        *slog.Logger

	mu       sync.Mutex
	state    State
	roster   Roster
	loaded   bool
	query    string
	querySeq uint64
	results  []User
	errMsg   string

	// loadSeq выдается каждой загрузке и перезагрузке после мутации;
	// rosterVersion - номер, с которым получен текущий состав.
	loadSeq       uint64
	rosterVersion uint64
}

func NewSession(dir Directory, competitionID string, identity Identity, logger *slog.Logger) *Session {
	logger = loggerOrDiscard(logger).With(slog.String("competition_id", competitionID))
	store := NewStore(dir, logger)
	s := &Session{
		competitionID: competitionID,
		identity:      identity,
		store:         store,
		search:        NewSearchEngine(dir, logger),
		gate:          NewMutationGate(dir, store, logger),
		logger:        logger,
		state:         StateIdle,
		roster:        Roster{CompetitionID: competitionID},
		results:       []User{},
	}
	s.gate.Subscribe(s.applyChange)
	return s
}

// OnChange регистрирует наблюдателя успешных мутаций (например, счетчик участников).
func (s *Session) OnChange(fn func(Change)) {
	s.gate.Subscribe(fn)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]User, len(s.results))
	copy(results, s.results)
	return View{
		State:         s.state,
		CompetitionID: s.competitionID,
		Roster:        s.roster.clone(),
		Query:         s.query,
		Results:       results,
		Pending:       s.state == StateMutating,
		Error:         s.errMsg,
		CanManage:     s.canManageLocked(),
	}
}

// Load загружает состав. Неудачная первая загрузка оставляет сессию в Loading;
// неудачное обновление уже загруженного состава возвращает Ready с ошибкой.
// Результат загрузки, обогнанной более новой загрузкой или мутацией, не применяется.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateMutating {
		s.mu.Unlock()
		return ErrMutationPending
	}
	s.state = StateLoading
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	roster, err := s.store.Load(ctx, s.competitionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	stale := seq < s.rosterVersion
	if s.state == StateLoading && s.loaded {
		s.state = StateReady
	}
	if err != nil {
		if !stale {
			s.errMsg = err.Error()
		}
		return err
	}
	if stale {
		s.logger.Debug("discarding stale roster load")
		return nil
	}
	s.rosterVersion = seq
	s.setRosterLocked(roster)
	if s.state == StateLoading {
		s.state = StateReady
	}
	return nil
}

// SetQuery обновляет строку поиска и возвращает примененные результаты (пустые для устаревшего ответа).
// Ответ, пришедший после более нового запроса, отбрасывается.
func (s *Session) SetQuery(ctx context.Context, query string) []User {
	s.mu.Lock()
	s.querySeq++
	seq := s.querySeq
	s.query = query
	if _, ok := normalizeQuery(query); !ok {
		s.results = []User{}
		s.mu.Unlock()
		return []User{}
	}
	roster := s.roster.clone()
	s.mu.Unlock()

	results := s.search.Search(ctx, query, roster)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.querySeq {
		s.logger.Debug("discarding stale search results", slog.String("query", query))
		return []User{}
	}
	// Состав мог обновиться, пока шел поиск.
	s.results = excludeMembers(results, s.roster)
	out := make([]User, len(s.results))
	copy(out, s.results)
	return out
}

// Add добавляет пользователя в состав. Только владелец, только из состояния Ready.
func (s *Session) Add(ctx context.Context, userID string) (Member, error) {
	if err := s.beginMutation(); err != nil {
		return Member{}, err
	}

	member, err := s.gate.AddMember(ctx, s.competitionID, userID)

	s.mu.Lock()
	s.state = StateReady
	if err == nil || errors.Is(err, ErrReloadFailed) {
		s.querySeq++
		s.query = ""
		s.results = []User{}
	}
	if err != nil {
		s.errMsg = err.Error()
	}
	s.mu.Unlock()
	return member, err
}

// Remove удаляет участника после подтверждения confirm.
func (s *Session) Remove(ctx context.Context, memberID string, confirm ConfirmFunc) error {
	if err := s.beginMutation(); err != nil {
		return err
	}

	err := s.gate.RemoveMember(ctx, s.competitionID, memberID, confirm)

	s.mu.Lock()
	s.state = StateReady
	if err != nil && !errors.Is(err, ErrNotConfirmed) {
		s.errMsg = err.Error()
	}
	s.mu.Unlock()
	return err
}

func (s *Session) DismissError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Session) beginMutation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateMutating:
		return ErrMutationPending
	case StateReady:
	default:
		return ErrNotReady
	}
	if !s.canManageLocked() {
		return fmt.Errorf("%w: only the competition owner can manage members", ErrValidationFailure)
	}
	s.state = StateMutating
	s.errMsg = ""
	return nil
}

// applyChange вызывается гейтом после мутации, до возврата из Add/Remove.
func (s *Session) applyChange(change Change) {
	if !change.Reloaded {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadSeq++
	s.rosterVersion = s.loadSeq
	s.setRosterLocked(change.Roster)
}

func (s *Session) setRosterLocked(roster Roster) {
	s.roster = roster
	s.loaded = true
	s.results = excludeMembers(s.results, roster)
}

func (s *Session) canManageLocked() bool {
	if s.identity == nil || !s.loaded {
		return false
	}
	owner, ok := s.roster.Owner()
	return ok && owner.User.ID == s.identity.UserID()
}
