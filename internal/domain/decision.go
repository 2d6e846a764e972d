package domain

import "time"

// DecisionType — тип решения, которое требуется от внешнего актора.
type DecisionType string

const (
	// DecisionQualityFailure — качество данных ниже допустимого.
	DecisionQualityFailure DecisionType = "quality_failure"

	// DecisionDependencyFailure — зависимости следующего этапа не выполнены.
	DecisionDependencyFailure DecisionType = "dependency_failure"

	// DecisionValidationFailure — результат этапа не прошёл пост-валидацию.
	DecisionValidationFailure DecisionType = "validation_failure"

	// DecisionStageFailure — этап упал после исчерпания retry.
	DecisionStageFailure DecisionType = "stage_failure"

	// DecisionConfirmation — этап принятия решений требует подтверждения.
	DecisionConfirmation DecisionType = "decision_confirmation"

	// DecisionResourceDenial — запрошенный ресурс не выделен.
	DecisionResourceDenial DecisionType = "resource_denial"
)

// Варианты разрешения decision gate.
const (
	OptionRetry            = "retry"
	OptionIgnore           = "ignore"
	OptionAbort            = "abort"
	OptionWaitAndRetry     = "wait_and_retry"
	OptionSkipDependencies = "skip_dependencies"
	OptionSkip             = "skip"
	OptionCustomResolution = "custom_resolution"
	OptionConfirm          = "confirm"
	OptionReject           = "reject"
	OptionProceedWithout   = "proceed_without"
)

// PendingDecision — открытый decision gate.
//
// Существует тогда и только тогда, когда pipeline в статусе AWAITING_DECISION.
// Пока gate открыт, orchestrator принимает для этого pipeline только
// сообщение разрешения (и отмену).
type PendingDecision struct {
	// Type — тип требуемого решения.
	Type DecisionType `json:"type"`

	// Stage — этап, к которому относится решение.
	Stage Stage `json:"stage,omitempty"`

	// Payload — контекст для принимающего решение (ошибка, результаты и т.д.).
	Payload map[string]any `json:"payload,omitempty"`

	// Options — допустимые варианты разрешения.
	Options []string `json:"options"`

	// CreatedAt — время открытия gate.
	CreatedAt time.Time `json:"created_at"`
}

// HasOption проверяет, допустим ли вариант разрешения.
func (d *PendingDecision) HasOption(option string) bool {
	for _, o := range d.Options {
		if o == option {
			return true
		}
	}
	return false
}
