// Package roster keeps a competition's member list, the user search results and the
// add/remove mutations consistent while calls to the member directory are in flight.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Ошибки каталога участников. Реализации Directory возвращают ошибки, для которых
// errors.Is срабатывает на одну из трех первых.
var (
	ErrNetworkFailure    = errors.New("roster: network failure")
	ErrValidationFailure = errors.New("roster: validation failure")
	ErrNotFoundFailure   = errors.New("roster: not found")

	ErrMutationPending = errors.New("roster: another mutation is in progress")
	ErrNotConfirmed    = errors.New("roster: removal was not confirmed")
	ErrReloadFailed    = errors.New("roster: reload after mutation failed")
	ErrNotReady        = errors.New("roster: session is not ready")
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

type User struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

type Member struct {
	ID            string
	CompetitionID string
	Role          Role
	JoinedAt      time.Time
	User          User
}

// Directory - внешний каталог участников (REST API или прямой доступ к сервисам).
type Directory interface {
	ListMembers(ctx context.Context, competitionID string) ([]Member, error)
	SearchUsers(ctx context.Context, email string, limit int) ([]User, error)
	AddMember(ctx context.Context, competitionID, userID string, role Role) (Member, error)
	RemoveMember(ctx context.Context, memberID string) error
}

// classify приводит ошибку каталога к таксономии. Неизвестные ошибки считаются сетевыми.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNetworkFailure),
		errors.Is(err, ErrValidationFailure),
		errors.Is(err, ErrNotFoundFailure):
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
