package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/fair-measure/metrics"
	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/realtime"
	"github.com/Dosada05/fair-measure/repositories"
	"github.com/Dosada05/fair-measure/storage"
)

const (
	operationAdd    = "add"
	operationRemove = "remove"
)

// MembershipNotifier получает события изменения состава. Реализуется realtime.Hub.
type MembershipNotifier interface {
	PublishMembershipChange(event realtime.MembershipEvent)
}

type MemberService interface {
	ListByCompetition(ctx context.Context, competitionID string) ([]*models.Member, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Member, error)
	Add(ctx context.Context, actorID, competitionID string, input AddMemberInput) (*models.Member, error)
	Remove(ctx context.Context, actorID, memberID string) error
	Check(ctx context.Context, competitionID, userID string) (*models.MembershipCheck, error)
}

type AddMemberInput struct {
	UserID string            `json:"user_id"`
	Role   models.MemberRole `json:"role"`
}

type memberService struct {
	memberRepo      repositories.MemberRepository
	competitionRepo repositories.CompetitionRepository
	userRepo        repositories.UserRepository
	uploader        storage.FileUploader
	notifier        MembershipNotifier
	logger          *slog.Logger
}

func NewMemberService(
	memberRepo repositories.MemberRepository,
	competitionRepo repositories.CompetitionRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	notifier MembershipNotifier,
	logger *slog.Logger,
) MemberService {
	return &memberService{
		memberRepo:      memberRepo,
		competitionRepo: competitionRepo,
		userRepo:        userRepo,
		uploader:        uploader,
		notifier:        notifier,
		logger:          loggerOrDiscard(logger),
	}
}

// ListByCompetition возвращает состав в порядке вступления, с данными пользователей.
func (s *memberService) ListByCompetition(ctx context.Context, competitionID string) ([]*models.Member, error) {
	if _, err := s.getCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	members, err := s.memberRepo.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of competition %s: %w", competitionID, err)
	}
	populateMembersAvatarURLs(members, s.uploader)
	return members, nil
}

func (s *memberService) ListByUser(ctx context.Context, userID string) ([]*models.Member, error) {
	members, err := s.memberRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships of user %s: %w", userID, err)
	}
	populateMembersAvatarURLs(members, s.uploader)
	return members, nil
}

// Add добавляет пользователя в состав. Только владелец соревнования, только роль member.
func (s *memberService) Add(ctx context.Context, actorID, competitionID string, input AddMemberInput) (member *models.Member, err error) {
	defer func() { metrics.ObserveMutation(operationAdd, err) }()

	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidationFailed)
	}
	if input.Role == "" {
		input.Role = models.RoleMember
	}
	if input.Role != models.RoleMember {
		return nil, ErrMemberRoleInvalid
	}

	competition, err := s.getCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if competition.OwnerID != actorID {
		return nil, ErrForbiddenOperation
	}

	if _, err := s.userRepo.GetByID(ctx, input.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", input.UserID, err)
	}

	created := &models.Member{
		CompetitionID: competitionID,
		UserID:        input.UserID,
		Role:          input.Role,
	}
	if err := s.memberRepo.Create(ctx, nil, created); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMemberConflict), errors.Is(err, repositories.ErrMemberOwnerConflict):
			return nil, ErrMemberConflict
		case errors.Is(err, repositories.ErrMemberUserInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrMemberCompetitionInvalid):
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	member, err = s.memberRepo.GetByID(ctx, created.ID)
	if err != nil {
		s.logger.Warn("failed to reload created member", slog.String("member_id", created.ID), slog.Any("error", err))
		member, err = created, nil
	}
	populateUserAvatarURL(member.User, s.uploader)

	s.logger.Info("member added",
		slog.String("competition_id", competitionID),
		slog.String("member_id", member.ID),
		slog.String("user_id", member.UserID),
	)
	s.publish(realtime.MembershipEvent{
		CompetitionID: competitionID,
		Action:        "added",
		MemberID:      member.ID,
		UserID:        member.UserID,
	})
	return member, nil
}

// Remove удаляет запись участника. Запись владельца удалить нельзя.
func (s *memberService) Remove(ctx context.Context, actorID, memberID string) (err error) {
	defer func() { metrics.ObserveMutation(operationRemove, err) }()

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to get member %s: %w", memberID, err)
	}
	if member.Role == models.RoleOwner {
		return ErrCannotRemoveOwner
	}

	competition, err := s.getCompetition(ctx, member.CompetitionID)
	if err != nil {
		return err
	}
	if competition.OwnerID != actorID {
		return ErrForbiddenOperation
	}

	if err := s.memberRepo.Delete(ctx, memberID); err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to remove member %s: %w", memberID, err)
	}

	s.logger.Info("member removed",
		slog.String("competition_id", member.CompetitionID),
		slog.String("member_id", memberID),
	)
	s.publish(realtime.MembershipEvent{
		CompetitionID: member.CompetitionID,
		Action:        "removed",
		MemberID:      memberID,
		UserID:        member.UserID,
	})
	return nil
}

func (s *memberService) Check(ctx context.Context, competitionID, userID string) (*models.MembershipCheck, error) {
	member, err := s.memberRepo.FindByCompetitionAndUser(ctx, competitionID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMemberNotFound) {
			return &models.MembershipCheck{IsMember: false}, nil
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	role := member.Role
	return &models.MembershipCheck{IsMember: true, Role: &role}, nil
}

func (s *memberService) getCompetition(ctx context.Context, competitionID string) (*models.Competition, error) {
	competition, err := s.competitionRepo.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %s: %w", competitionID, err)
	}
	return competition, nil
}

func (s *memberService) publish(event realtime.MembershipEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishMembershipChange(event)
}
