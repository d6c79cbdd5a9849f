package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrCompetitionNameEmpty  = errors.New("competition name is required")
	ErrCompetitionTypeBad    = errors.New("invalid competition type")
	ErrMemberRoleInvalid     = errors.New("member role must be 'member'")
	ErrCannotRemoveOwner     = errors.New("cannot remove the competition owner")
	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")

	// Ошибки конфликтов
	ErrMemberConflict = errors.New("user is already a member of this competition")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound        = errors.New("user not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrMemberNotFound      = errors.New("member not found")
)
