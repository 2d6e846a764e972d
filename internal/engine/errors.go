package engine

import "errors"

// Ошибки валидации последовательности этапов.
var (
	// ErrEmptySequence — последовательность не содержит этапов.
	ErrEmptySequence = errors.New("stage sequence is empty")

	// ErrUnknownStage — последовательность содержит неизвестный этап.
	ErrUnknownStage = errors.New("unknown stage in sequence")

	// ErrDuplicateStage — этап встречается в последовательности дважды.
	ErrDuplicateStage = errors.New("duplicate stage in sequence")

	// ErrUnknownDependency — граф зависимостей ссылается на неизвестный этап.
	ErrUnknownDependency = errors.New("dependency on unknown stage")
)

// Ошибки контрактов результатов этапов.
var (
	// ErrMissingResultField — в результатах этапа нет обязательного поля.
	ErrMissingResultField = errors.New("missing required result field")

	// ErrResultContract — результаты этапа нарушают контракт (схему).
	ErrResultContract = errors.New("stage result contract violation")
)

// ValidationError — ошибка валидации с контекстом этапа.
type ValidationError struct {
	Stage   string // этап, к которому относится ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Stage != "" {
		return "stage " + e.Stage + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stage, field, message string, err error) *ValidationError {
	return &ValidationError{
		Stage:   stage,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
