package services

import "errors"

// Ошибки сервисного слоя, используемые при маппинге в HTTP-ответы.
var (
	ErrValidationFailed = errors.New("validation failed")

	// Не найдено
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrNotRegistered        = errors.New("user does not hold a slot in this tournament")
	ErrNotificationNotFound = errors.New("notification not found")

	// Аутентификация и авторизация
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Бизнес-правила
	ErrRegistrationNotOpen     = errors.New("tournament registration is not open")
	ErrAlreadyRegistered       = errors.New("user already holds a slot in this tournament")
	ErrInvalidSlotNumber       = errors.New("slot number must be positive")
	ErrInvalidCapacity         = errors.New("tournament total slots must be positive")
	ErrInvalidSlotStatus       = errors.New("invalid slot status provided")
	ErrInvalidStatusTransition = errors.New("invalid slot status transition")
	ErrInvalidImage            = errors.New("schedule image must be a jpeg, png or webp file up to 5MB")

	// Конфликты конкурентных изменений
	ErrPromotionConflict      = errors.New("waitlist promotion kept conflicting with concurrent changes")
	ErrSlotAllocationConflict = errors.New("slot allocation kept conflicting with concurrent registrations")
	ErrScheduleImageConflict  = errors.New("schedule image attach kept conflicting with concurrent updates")

	ErrUploadsDisabled = errors.New("file uploads are not configured")
)
