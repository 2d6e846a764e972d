package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrPipelineNotFound — pipeline нет в активном реестре.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrPipelineAlreadyExists — pipeline с таким id уже зарегистрирован.
	ErrPipelineAlreadyExists = errors.New("pipeline already exists")

	// ErrPipelineTerminal — pipeline в терминальном статусе.
	ErrPipelineTerminal = errors.New("pipeline is in terminal state")

	// ErrAwaitingDecision — pipeline ждёт разрешения decision gate.
	ErrAwaitingDecision = errors.New("pipeline is awaiting decision")

	// ErrStageMismatch — сообщение относится не к текущему этапу.
	ErrStageMismatch = errors.New("stage does not match current stage")

	// ErrStageNotInSequence — этап не входит в последовательность запуска.
	ErrStageNotInSequence = errors.New("stage not in pipeline sequence")

	// ErrNoPendingDecision — нет открытого decision gate.
	ErrNoPendingDecision = errors.New("no pending decision")

	// ErrInvalidDecisionOption — вариант не входит в options открытого gate.
	ErrInvalidDecisionOption = errors.New("invalid decision option")

	// ErrInvalidState — операция недопустима в текущем статусе.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
)
