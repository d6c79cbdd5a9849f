package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/repositories"
	"github.com/Dosada05/fair-measure/storage"
	"golang.org/x/sync/errgroup"
)

type CompetitionService interface {
	Create(ctx context.Context, ownerID string, input CreateCompetitionInput) (*models.Competition, error)
	GetByID(ctx context.Context, id string) (*models.Competition, error)
	List(ctx context.Context, userID string, filter models.CompetitionFilter) ([]*models.Competition, error)
}

type CreateCompetitionInput struct {
	Name      string                 `json:"name"`
	Type      models.CompetitionType `json:"type"`
	IsPrivate bool                   `json:"is_private"`
}

type competitionService struct {
	inTx            TxRunner
	competitionRepo repositories.CompetitionRepository
	memberRepo      repositories.MemberRepository
	userRepo        repositories.UserRepository
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewCompetitionService(
	inTx TxRunner,
	competitionRepo repositories.CompetitionRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) CompetitionService {
	return &competitionService{
		inTx:            inTx,
		competitionRepo: competitionRepo,
		memberRepo:      memberRepo,
		userRepo:        userRepo,
		uploader:        uploader,
		logger:          loggerOrDiscard(logger),
	}
}

// Create создает соревнование и единственную запись владельца в одной транзакции.
func (s *competitionService) Create(ctx context.Context, ownerID string, input CreateCompetitionInput) (*models.Competition, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrCompetitionNameEmpty
	}
	if input.Type == "" {
		input.Type = models.CompetitionOther
	}
	if !input.Type.Valid() {
		return nil, ErrCompetitionTypeBad
	}

	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load competition owner %s: %w", ownerID, err)
	}

	competition := &models.Competition{
		Name:      name,
		Type:      input.Type,
		IsPrivate: input.IsPrivate,
		OwnerID:   owner.ID,
		Author:    owner.DisplayName(),
	}

	err = s.inTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.competitionRepo.Create(ctx, exec, competition); err != nil {
			return err
		}
		ownerMember := &models.Member{
			CompetitionID: competition.ID,
			UserID:        owner.ID,
			Role:          models.RoleOwner,
		}
		return s.memberRepo.Create(ctx, exec, ownerMember)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCompetitionOwnerInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrCompetitionTypeInvalid):
			return nil, ErrCompetitionTypeBad
		}
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}

	s.logger.Info("competition created",
		slog.String("competition_id", competition.ID),
		slog.String("owner_id", owner.ID),
	)

	owner.PasswordHash = ""
	populateUserAvatarURL(owner, s.uploader)
	competition.Owner = owner
	competition.MemberCount = 1
	return competition, nil
}

// GetByID загружает соревнование и его состав параллельно, владелец берется из состава.
func (s *competitionService) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	var (
		competition *models.Competition
		members     []*models.Member
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.competitionRepo.GetByID(gCtx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrCompetitionNotFound) {
				return ErrCompetitionNotFound
			}
			return fmt.Errorf("failed to get competition %s: %w", id, err)
		}
		competition = c
		return nil
	})
	g.Go(func() error {
		list, err := s.memberRepo.ListByCompetition(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to list members of competition %s: %w", id, err)
		}
		members = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	competition.MemberCount = len(members)
	for _, m := range members {
		if m.Role == models.RoleOwner && m.User != nil {
			populateUserAvatarURL(m.User, s.uploader)
			competition.Owner = m.User
			break
		}
	}
	return competition, nil
}

func (s *competitionService) List(ctx context.Context, userID string, filter models.CompetitionFilter) ([]*models.Competition, error) {
	switch filter {
	case "":
		filter = models.FilterAll
	case models.FilterAll, models.FilterOwned, models.FilterMember:
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrValidationFailed, filter)
	}
	competitions, err := s.competitionRepo.List(ctx, filter, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	return competitions, nil
}
