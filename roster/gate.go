package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	}
	return "unknown"
}

// Change описывает успешную мутацию состава. Roster - состав после перезагрузки
// (пустой, если перезагрузка не удалась).
type Change struct {
	Kind          ChangeKind
	CompetitionID string
	Member        Member
	Roster        Roster
	Reloaded      bool
}

// ConfirmFunc запрашивает подтверждение удаления. false отменяет операцию.
type ConfirmFunc func(ctx context.Context, member Member) bool

// MutationGate выполняет add/remove не более одного за раз на соревнование.
type MutationGate struct {
	dir    Directory
	store  *Store
	logger *slog.Logger

	mu        sync.Mutex
	inFlight  map[string]struct{}
	observers []func(Change)
}

func NewMutationGate(dir Directory, store *Store, logger *slog.Logger) *MutationGate {
	return &MutationGate{
		dir:      dir,
		store:    store,
		logger:   loggerOrDiscard(logger),
		inFlight: make(map[string]struct{}),
	}
}

// Subscribe регистрирует наблюдателя изменений состава.
func (g *MutationGate) Subscribe(fn func(Change)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

// Pending сообщает, выполняется ли мутация для соревнования.
func (g *MutationGate) Pending(competitionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[competitionID]
	return ok
}

// AddMember добавляет пользователя с ролью member и перезагружает состав.
func (g *MutationGate) AddMember(ctx context.Context, competitionID, userID string) (Member, error) {
	release, err := g.acquire(competitionID)
	if err != nil {
		return Member{}, err
	}
	defer release()

	if current, ok := g.store.Current(competitionID); ok && current.HasUser(userID) {
		return Member{}, fmt.Errorf("%w: user %s is already a member", ErrValidationFailure, userID)
	}

	member, err := g.dir.AddMember(ctx, competitionID, userID, RoleMember)
	if err != nil {
		err = classify(err)
		g.logger.Warn("add member failed",
			slog.String("competition_id", competitionID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return Member{}, fmt.Errorf("add member: %w", err)
	}
	if member.CompetitionID == "" {
		member.CompetitionID = competitionID
	}

	return member, g.reloadAndNotify(ctx, ChangeAdded, competitionID, member)
}

// RemoveMember удаляет запись из загруженного состава после подтверждения.
// Владельца удалить нельзя: отказ происходит до запроса подтверждения.
func (g *MutationGate) RemoveMember(ctx context.Context, competitionID, memberID string, confirm ConfirmFunc) error {
	release, err := g.acquire(competitionID)
	if err != nil {
		return err
	}
	defer release()

	current, _ := g.store.Current(competitionID)
	member, ok := current.Member(memberID)
	if !ok {
		return fmt.Errorf("%w: member %s is not in the roster", ErrNotFoundFailure, memberID)
	}
	if member.Role == RoleOwner {
		return fmt.Errorf("%w: the competition owner cannot be removed", ErrValidationFailure)
	}
	if confirm == nil || !confirm(ctx, member) {
		return ErrNotConfirmed
	}

	if err := g.dir.RemoveMember(ctx, memberID); err != nil {
		err = classify(err)
		g.logger.Warn("remove member failed",
			slog.String("competition_id", competitionID),
			slog.String("member_id", memberID),
			slog.Any("error", err),
		)
		return fmt.Errorf("remove member: %w", err)
	}

	return g.reloadAndNotify(ctx, ChangeRemoved, competitionID, member)
}

func (g *MutationGate) acquire(competitionID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[competitionID]; busy {
		return nil, ErrMutationPending
	}
	g.inFlight[competitionID] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inFlight, competitionID)
		g.mu.Unlock()
	}, nil
}

// reloadAndNotify перезагружает состав после успешной мутации. Наблюдатели уведомляются
// и при неудачной перезагрузке: сама мутация уже применена.
func (g *MutationGate) reloadAndNotify(ctx context.Context, kind ChangeKind, competitionID string, member Member) error {
	change := Change{Kind: kind, CompetitionID: competitionID, Member: member}

	roster, err := g.store.Load(ctx, competitionID)
	if err == nil {
		change.Roster = roster
		change.Reloaded = true
	}

	g.mu.Lock()
	observers := make([]func(Change), len(g.observers))
	copy(observers, g.observers)
	g.mu.Unlock()
	for _, fn := range observers {
		fn(change)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}
