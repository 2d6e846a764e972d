package domain

// PipelineStatus — статус выполнения pipeline.
//
// Жизненный цикл:
//
//	INITIALIZING → RUNNING → COMPLETED
//	                       ↘ FAILED
//	         RUNNING ⇄ PAUSED
//	         RUNNING ⇄ AWAITING_DECISION
//	         (любой нетерминальный) → CANCELLED
type PipelineStatus string

const (
	// StatusInitializing — контекст создан, выполнение не начато.
	StatusInitializing PipelineStatus = "INITIALIZING"

	// StatusRunning — pipeline выполняется.
	StatusRunning PipelineStatus = "RUNNING"

	// StatusPaused — выполнение приостановлено (оператором или по ресурсам).
	StatusPaused PipelineStatus = "PAUSED"

	// StatusAwaitingDecision — открыт decision gate, требуется внешнее решение.
	StatusAwaitingDecision PipelineStatus = "AWAITING_DECISION"

	// StatusCompleted — все этапы успешно завершены.
	StatusCompleted PipelineStatus = "COMPLETED"

	// StatusCancelled — pipeline отменён.
	StatusCancelled PipelineStatus = "CANCELLED"

	// StatusFailed — pipeline завершился с ошибкой (abort на gate).
	StatusFailed PipelineStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s PipelineStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление PipelineStatus.
func (s PipelineStatus) String() string {
	return string(s)
}
