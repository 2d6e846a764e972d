package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
	"github.com/shaiso/Analytica/internal/engine"
)

// createRequest — содержимое PIPELINE_CREATE_REQUEST.
type createRequest struct {
	// StageSequence — кастомная последовательность этапов (опционально).
	StageSequence []string `json:"stage_sequence,omitempty"`

	// StageDependencies — кастомный граф зависимостей (опционально).
	StageDependencies map[string][]string `json:"stage_dependencies,omitempty"`

	// ResourceRequirements — тип ресурса → требование; на старте
	// по каждому публикуется RESOURCE_ACCESS_REQUEST.
	ResourceRequirements map[string]any `json:"resource_requirements,omitempty"`

	// AllowSequenceFallback — при невалидной последовательности
	// подставить дефолтную с warning вместо отказа в создании.
	AllowSequenceFallback bool `json:"allow_sequence_fallback,omitempty"`
}

// handleCreate создаёт PipelineContext и actor для него.
// Единственный обработчик уровня реестра — остальные выполняются
// на actor-горутине pipeline.
func (o *Orchestrator) handleCreate(msg *bus.Message) error {
	req, err := bus.ParseContent[createRequest](msg)
	if err != nil {
		o.logger.Error("failed to parse create request", "error", err)
		o.notifyCreateFailure(msg, fmt.Sprintf("malformed create request: %v", err))
		return err
	}

	pipelineID := msg.PipelineID
	if pipelineID == uuid.Nil {
		pipelineID = uuid.New()
	}
	correlationID := msg.CorrelationID
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	// Кастомная последовательность: невалидная — это ошибка создания.
	// Fallback на дефолтную допускается только явным флагом запроса.
	sequence := toStages(req.StageSequence)
	if len(sequence) > 0 {
		if err := engine.ValidateSequence(sequence); err != nil {
			if !req.AllowSequenceFallback {
				o.logger.Warn("invalid stage sequence, rejecting pipeline",
					"pipeline_id", pipelineID,
					"error", err,
				)
				o.notifyCreateFailure(msg, fmt.Sprintf("invalid stage sequence: %v", err))
				return err
			}
			o.logger.Warn("invalid stage sequence, falling back to default",
				"pipeline_id", pipelineID,
				"error", err,
			)
			sequence = nil
		}
	}

	deps := toDependencies(req.StageDependencies)
	if deps != nil {
		if err := engine.ValidateDependencies(deps); err != nil {
			o.logger.Warn("invalid stage dependencies, rejecting pipeline",
				"pipeline_id", pipelineID,
				"error", err,
			)
			o.notifyCreateFailure(msg, fmt.Sprintf("invalid stage dependencies: %v", err))
			return err
		}
	}

	pc := domain.NewPipelineContext(pipelineID, correlationID, sequence, deps)
	w := newPipelineWorker(o, pc, req.ResourceRequirements)

	if err := o.addWorker(w); err != nil {
		o.logger.Warn("pipeline already exists", "pipeline_id", pipelineID)
		o.notifyCreateFailure(msg, err.Error())
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		w.run(o.ctx)
	}()

	o.logger.Info("pipeline created",
		"pipeline_id", pipelineID,
		"correlation_id", correlationID,
		"stages", len(pc.StageSequence),
	)

	ack := bus.NewMessage(bus.TypePipelineCreateComplete, pipelineID, correlationID, map[string]any{
		"status":         string(pc.Status),
		"stage_sequence": stageStrings(pc.StageSequence),
	})
	ack.Metadata.SourceComponent = ComponentID
	o.publish(ack)

	w.statusUpdate()
	return nil
}

// notifyCreateFailure отвечает на неудавшееся создание pipeline.
func (o *Orchestrator) notifyCreateFailure(msg *bus.Message, reason string) {
	notify := bus.NewMessage(bus.TypePipelineErrorNotify, msg.PipelineID, msg.CorrelationID, map[string]any{
		"error":             reason,
		"requires_decision": false,
		"rejected_type":     string(msg.Type),
	})
	notify.Metadata.SourceComponent = ComponentID
	o.publish(notify)
}

// handleStart запускает выполнение: RUNNING и инициация первого этапа.
func (w *pipelineWorker) handleStart(msg *bus.Message) {
	if w.pc.Status != domain.StatusInitializing {
		w.rejectMessage(msg, fmt.Sprintf("%s: start in status %s", ErrInvalidState, w.pc.Status))
		return
	}

	w.pc.MarkRunning()
	w.logger.Info("pipeline started", "stages", len(w.pc.StageSequence))

	w.publish(bus.TypePipelineStartComplete, map[string]any{
		"status": string(w.pc.Status),
	}, bus.Metadata{})

	w.requestResources()

	first := w.pc.StageSequence[0]
	w.initiateStage(first)
	w.statusUpdate()
}

// handlePause приостанавливает pipeline по явному запросу.
func (w *pipelineWorker) handlePause(msg *bus.Message) {
	if w.pc.Status != domain.StatusRunning {
		w.rejectMessage(msg, fmt.Sprintf("%s: pause in status %s", ErrInvalidState, w.pc.Status))
		return
	}

	reason, _ := msg.Content["reason"].(string)
	if reason == "" {
		reason = "paused by request"
	}

	w.pc.MarkPaused(reason)
	w.logger.Info("pipeline paused", "reason", reason)

	if w.orch.metrics != nil {
		w.orch.metrics.PipelinesPaused.WithLabelValues("manual").Inc()
	}

	w.publish(bus.TypePipelinePauseComplete, map[string]any{
		"pause_reason": reason,
	}, bus.Metadata{})
	w.statusUpdate()
}

// handleResume возобновляет выполнение: RUNNING и ровно один повторный
// выпуск start-сообщения текущего этапа.
func (w *pipelineWorker) handleResume(msg *bus.Message) {
	if w.pc.Status != domain.StatusPaused {
		w.rejectMessage(msg, fmt.Sprintf("%s: resume in status %s", ErrInvalidState, w.pc.Status))
		return
	}

	w.pc.MarkRunning()
	w.logger.Info("pipeline resumed", "current_stage", w.pc.CurrentStage)

	w.publish(bus.TypePipelineResumeComplete, map[string]any{
		"status":        string(w.pc.Status),
		"current_stage": string(w.pc.CurrentStage),
	}, bus.Metadata{})

	if w.pc.CurrentStage != "" {
		w.issueStageStart(w.pc.CurrentStage, false)
	}
	w.statusUpdate()
}

// handleCancel отменяет pipeline из любого нетерминального статуса.
// Освобождает каждый выделенный ресурс — ровно один release request
// на запись в resource_allocation.
func (w *pipelineWorker) handleCancel(msg *bus.Message) {
	// Gate и AWAITING_DECISION ставятся и снимаются только вместе:
	// отмена из-под открытого gate закрывает его.
	if w.pc.PendingDecision != nil {
		gate := w.pc.CloseDecision()
		if w.orch.metrics != nil {
			w.orch.metrics.DecisionGatesOpen.Dec()
		}
		w.logger.Info("decision gate closed by cancellation",
			"decision_type", gate.Type,
		)
	}

	w.pc.MarkCancelled()
	w.logger.Info("pipeline cancelled")

	w.releaseResources()

	if w.orch.metrics != nil {
		w.orch.metrics.PipelinesTotal.WithLabelValues(string(domain.StatusCancelled)).Inc()
	}

	w.publish(bus.TypePipelineCancelComplete, map[string]any{
		"status": string(w.pc.Status),
	}, bus.Metadata{})
	w.statusUpdate()

	// Отмена кооперативная: уже делегированный этап не прерывается,
	// stage-компонент проверит флаг отмены в следующем сообщении.
	w.finish()
}

// handleCleanup убирает терминальный контекст из активного множества.
func (w *pipelineWorker) handleCleanup(msg *bus.Message) {
	if !w.pc.IsFinished() {
		w.rejectMessage(msg, fmt.Sprintf("%s: cleanup requires terminal status, got %s", ErrInvalidState, w.pc.Status))
		return
	}

	w.logger.Info("pipeline cleaned up", "status", w.pc.Status)
	w.publish(bus.TypePipelineCleanupComplete, map[string]any{
		"status": string(w.pc.Status),
	}, bus.Metadata{})

	w.finish()
}

// --- Конвертация входных структур ---

func toStages(names []string) []domain.Stage {
	if len(names) == 0 {
		return nil
	}
	stages := make([]domain.Stage, len(names))
	for i, name := range names {
		stages[i] = domain.Stage(name)
	}
	return stages
}

func toDependencies(raw map[string][]string) map[domain.Stage][]domain.Stage {
	if raw == nil {
		return nil
	}
	deps := make(map[domain.Stage][]domain.Stage, len(raw))
	for stage, prereqs := range raw {
		list := make([]domain.Stage, len(prereqs))
		for i, p := range prereqs {
			list[i] = domain.Stage(p)
		}
		deps[domain.Stage(stage)] = list
	}
	return deps
}

func stageStrings(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
