package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/roster"
	"github.com/Dosada05/fair-measure/services"
)

// LocalDirectory - roster.Directory поверх сервисного слоя в том же процессе.
// Мутации выполняются от имени actorID.
type LocalDirectory struct {
	members  services.MemberService
	profiles services.ProfileService
	actorID  string
}

func NewLocalDirectory(members services.MemberService, profiles services.ProfileService, actorID string) *LocalDirectory {
	return &LocalDirectory{members: members, profiles: profiles, actorID: actorID}
}

func (d *LocalDirectory) ListMembers(ctx context.Context, competitionID string) ([]roster.Member, error) {
	list, err := d.members.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return toRosterMembers(list), nil
}

func (d *LocalDirectory) SearchUsers(ctx context.Context, email string, limit int) ([]roster.User, error) {
	users, err := d.profiles.SearchByEmail(ctx, email, limit)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return toRosterUsers(users), nil
}

func (d *LocalDirectory) AddMember(ctx context.Context, competitionID, userID string, role roster.Role) (roster.Member, error) {
	m, err := d.members.Add(ctx, d.actorID, competitionID, services.AddMemberInput{
		UserID: userID,
		Role:   models.MemberRole(role),
	})
	if err != nil {
		return roster.Member{}, mapServiceError(err)
	}
	return toRosterMember(m), nil
}

func (d *LocalDirectory) RemoveMember(ctx context.Context, memberID string) error {
	if err := d.members.Remove(ctx, d.actorID, memberID); err != nil {
		return mapServiceError(err)
	}
	return nil
}

// mapServiceError сопоставляет ошибки сервисов с таксономией roster так же, как это
// делает HTTP API через статусы ответа.
func mapServiceError(err error) error {
	var kind error
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrCompetitionNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		kind = roster.ErrNotFoundFailure
	case errors.Is(err, services.ErrMemberConflict),
		errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrMemberRoleInvalid),
		errors.Is(err, services.ErrCannotRemoveOwner),
		errors.Is(err, services.ErrForbiddenOperation):
		kind = roster.ErrValidationFailure
	default:
		kind = roster.ErrNetworkFailure
	}
	return fmt.Errorf("%w: %w", kind, err)
}
