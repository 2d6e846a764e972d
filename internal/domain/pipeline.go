package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageError — запись об ошибке этапа в error history.
type StageError struct {
	// Stage — этап, на котором произошла ошибка.
	Stage Stage `json:"stage"`

	// Message — текст ошибки.
	Message string `json:"message"`

	// Details — произвольные детали ошибки.
	Details map[string]any `json:"details,omitempty"`

	// Timestamp — время регистрации ошибки.
	Timestamp time.Time `json:"timestamp"`
}

// PipelineMetrics — метрики выполнения pipeline.
type PipelineMetrics struct {
	// Progress — взвешенный прогресс выполнения, 0..100.
	Progress float64 `json:"progress"`

	// StagesCompleted — количество завершённых этапов.
	StagesCompleted int `json:"stages_completed"`

	// RetriesTotal — суммарное количество retry по всем этапам.
	RetriesTotal int `json:"retries_total"`

	// LastResourceUsage — последние полученные значения ресурсных метрик.
	LastResourceUsage map[string]float64 `json:"last_resource_usage,omitempty"`
}

// PipelineContext — состояние одного запуска pipeline в памяти.
//
// Контекст создаётся на PIPELINE_CREATE_REQUEST, мутируется исключительно
// orchestrator'ом (через actor-горутину этого pipeline) и удаляется из
// активных при COMPLETED, CANCELLED или явном cleanup.
type PipelineContext struct {
	// PipelineID — идентификатор запуска.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// CorrelationID — идентификатор, связывающий все сообщения запуска.
	CorrelationID uuid.UUID `json:"correlation_id"`

	// Status — текущий статус.
	Status PipelineStatus `json:"status"`

	// StageSequence — упорядоченный список этапов этого запуска.
	StageSequence []Stage `json:"stage_sequence"`

	// StageDependencies — этап → этапы, которые должны быть завершены
	// до его старта.
	StageDependencies map[Stage][]Stage `json:"stage_dependencies"`

	// CompletedStages — множество завершённых этапов.
	CompletedStages map[Stage]bool `json:"completed_stages"`

	// CurrentStage — этап, выполняющийся внешним компонентом.
	// Пустой, пока выполнение не начато.
	CurrentStage Stage `json:"current_stage,omitempty"`

	// LastResults — payload последнего принятого завершения этапа.
	LastResults map[string]any `json:"last_results,omitempty"`

	// RetryCounts — этап → количество попыток. Монотонно неубывающий
	// до завершения запуска.
	RetryCounts map[Stage]int `json:"retry_counts"`

	// PendingDecision — открытый decision gate.
	// Не-nil тогда и только тогда, когда Status == AWAITING_DECISION.
	PendingDecision *PendingDecision `json:"pending_decision,omitempty"`

	// ResourceAllocation — тип ресурса → выделенный resource id.
	ResourceAllocation map[string]string `json:"resource_allocation,omitempty"`

	// Metrics — метрики выполнения.
	Metrics PipelineMetrics `json:"metrics"`

	// ErrorHistory — все зарегистрированные ошибки, append-only.
	ErrorHistory []StageError `json:"error_history,omitempty"`

	// PauseReason — причина приостановки (для Status == PAUSED).
	PauseReason string `json:"pause_reason,omitempty"`

	// Error — текст ошибки для Status == FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания контекста.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последней мутации.
	UpdatedAt time.Time `json:"updated_at"`

	// CompletedAt — время перехода в терминальный статус.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewPipelineContext создаёт контекст в статусе INITIALIZING.
// Пустые sequence/dependencies заменяются значениями по умолчанию.
func NewPipelineContext(pipelineID, correlationID uuid.UUID, sequence []Stage, deps map[Stage][]Stage) *PipelineContext {
	if len(sequence) == 0 {
		sequence = DefaultSequence()
	}
	if deps == nil {
		deps = DefaultDependencies()
	}

	now := time.Now()
	return &PipelineContext{
		PipelineID:        pipelineID,
		CorrelationID:     correlationID,
		Status:            StatusInitializing,
		StageSequence:     sequence,
		StageDependencies: deps,
		CompletedStages:   make(map[Stage]bool),
		RetryCounts:       make(map[Stage]int),
		ResourceAllocation: make(map[string]string),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// InSequence проверяет, входит ли этап в последовательность этого запуска.
func (p *PipelineContext) InSequence(stage Stage) bool {
	for _, s := range p.StageSequence {
		if s == stage {
			return true
		}
	}
	return false
}

// IsFinished возвращает true, если pipeline в терминальном статусе.
func (p *PipelineContext) IsFinished() bool {
	return p.Status.IsTerminal()
}

// Touch обновляет UpdatedAt.
func (p *PipelineContext) Touch() {
	p.UpdatedAt = time.Now()
}

// MarkRunning переводит pipeline в RUNNING и сбрасывает причину паузы.
func (p *PipelineContext) MarkRunning() {
	p.Status = StatusRunning
	p.PauseReason = ""
	p.Touch()
}

// MarkPaused переводит pipeline в PAUSED с причиной.
func (p *PipelineContext) MarkPaused(reason string) {
	p.Status = StatusPaused
	p.PauseReason = reason
	p.Touch()
}

// MarkCompleted переводит pipeline в COMPLETED.
func (p *PipelineContext) MarkCompleted() {
	now := time.Now()
	p.Status = StatusCompleted
	p.CurrentStage = ""
	p.CompletedAt = &now
	p.UpdatedAt = now
}

// MarkCancelled переводит pipeline в CANCELLED.
func (p *PipelineContext) MarkCancelled() {
	now := time.Now()
	p.Status = StatusCancelled
	p.CompletedAt = &now
	p.UpdatedAt = now
}

// MarkFailed переводит pipeline в FAILED с текстом ошибки.
func (p *PipelineContext) MarkFailed(err string) {
	now := time.Now()
	p.Status = StatusFailed
	p.Error = err
	p.CompletedAt = &now
	p.UpdatedAt = now
}

// OpenDecision открывает decision gate: устанавливает PendingDecision
// и переводит pipeline в AWAITING_DECISION. Инвариант "gate и статус
// ставятся вместе" обеспечивается только этим методом.
func (p *PipelineContext) OpenDecision(d *PendingDecision) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	p.PendingDecision = d
	p.Status = StatusAwaitingDecision
	p.Touch()
}

// CloseDecision закрывает decision gate и возвращает его.
// Статус остаётся AWAITING_DECISION до следующего Mark* — вызывающий
// обязан сразу применить эффект выбранного варианта.
func (p *PipelineContext) CloseDecision() *PendingDecision {
	d := p.PendingDecision
	p.PendingDecision = nil
	p.Touch()
	return d
}

// AddError добавляет запись в error history.
func (p *PipelineContext) AddError(stage Stage, message string, details map[string]any) {
	p.ErrorHistory = append(p.ErrorHistory, StageError{
		Stage:     stage,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	})
	p.Touch()
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если pipeline ещё не завершён.
func (p *PipelineContext) Duration() time.Duration {
	if p.CompletedAt == nil {
		return 0
	}
	return p.CompletedAt.Sub(p.CreatedAt)
}
