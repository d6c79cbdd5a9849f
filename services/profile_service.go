package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/fair-measure/cache"
	"github.com/Dosada05/fair-measure/metrics"
	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/repositories"
	"github.com/Dosada05/fair-measure/storage"
	"golang.org/x/text/cases"
)

// DefaultSearchLimit используется, когда клиент не передал limit.
const DefaultSearchLimit = repositories.MaxSearchLimit

type ProfileService interface {
	SearchByEmail(ctx context.Context, query string, limit int) ([]*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UploadAvatar(ctx context.Context, userID string, contentType string, file io.Reader) (*models.User, error)
}

type profileService struct {
	userRepo    repositories.UserRepository
	searchCache cache.SearchCache
	uploader    storage.FileUploader
	logger      *slog.Logger
}

// NewProfileService создает сервис профилей. searchCache и uploader могут быть nil.
func NewProfileService(
	userRepo repositories.UserRepository,
	searchCache cache.SearchCache,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ProfileService {
	return &profileService{
		userRepo:    userRepo,
		searchCache: searchCache,
		uploader:    uploader,
		logger:      loggerOrDiscard(logger),
	}
}

// SearchByEmail ищет пользователей по подстроке email без учета регистра.
// Пустой запрос возвращает пустой список.
func (s *profileService) SearchByEmail(ctx context.Context, query string, limit int) ([]*models.User, error) {
	normalized := normalizeEmailQuery(query)
	if normalized == "" {
		return []*models.User{}, nil
	}
	if limit <= 0 || limit > repositories.MaxSearchLimit {
		limit = DefaultSearchLimit
	}

	if s.searchCache != nil {
		users, ok, err := s.searchCache.Get(ctx, normalized, limit)
		if err != nil {
			s.logger.Warn("search cache read failed", slog.String("query", normalized), slog.Any("error", err))
		} else if ok {
			metrics.UserSearchesTotal.WithLabelValues(metrics.ResultHit).Inc()
			s.populateAvatars(users)
			return users, nil
		}
	}
	metrics.UserSearchesTotal.WithLabelValues(metrics.ResultMiss).Inc()

	users, err := s.userRepo.SearchByEmail(ctx, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users by email: %w", err)
	}

	if s.searchCache != nil {
		if err := s.searchCache.Set(ctx, normalized, limit, users); err != nil {
			s.logger.Warn("search cache write failed", slog.String("query", normalized), slog.Any("error", err))
		}
	}
	s.populateAvatars(users)
	return users, nil
}

func (s *profileService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	user.PasswordHash = ""
	populateUserAvatarURL(user, s.uploader)
	return user, nil
}

// UploadAvatar загружает новый аватар и удаляет предыдущий объект.
func (s *profileService) UploadAvatar(ctx context.Context, userID string, contentType string, file io.Reader) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrAvatarStorageDisabled
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	key, err := storage.AvatarKey(userID, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to clean up uploaded avatar", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save avatar key: %w", err)
	}

	if old := user.AvatarKey; old != nil && *old != "" && *old != key {
		if err := s.uploader.Delete(ctx, *old); err != nil {
			s.logger.Warn("failed to delete previous avatar", slog.String("key", *old), slog.Any("error", err))
		}
	}

	user.AvatarKey = &key
	user.PasswordHash = ""
	populateUserAvatarURL(user, s.uploader)
	return user, nil
}

func (s *profileService) populateAvatars(users []*models.User) {
	for _, u := range users {
		populateUserAvatarURL(u, s.uploader)
	}
}

// normalizeEmailQuery приводит запрос к виду ключа кэша. Caser не потокобезопасен, создаем на вызов.
func normalizeEmailQuery(query string) string {
	return cases.Fold().String(strings.TrimSpace(query))
}
