package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
)

// pipelineWorker — actor одного pipeline.
//
// Все мутации PipelineContext происходят только в горутине run(),
// читающей mailbox. Это даёт single-writer-per-key дисциплину из
// модели конкурентности: ни два сообщения одного pipeline не
// обрабатываются одновременно, разные pipelines — параллельно.
type pipelineWorker struct {
	orch   *Orchestrator
	pc     *domain.PipelineContext
	logger *slog.Logger

	mailbox chan *bus.Message
	done    chan struct{}

	// resourceRequirements — тип ресурса → требование из create request.
	resourceRequirements map[string]any

	// stopping ставится обработчиком при снятии pipeline с реестра.
	// Читается только в run().
	stopping bool
}

// newPipelineWorker создаёт actor для контекста.
func newPipelineWorker(o *Orchestrator, pc *domain.PipelineContext, requirements map[string]any) *pipelineWorker {
	return &pipelineWorker{
		orch:                 o,
		pc:                   pc,
		logger:               o.logger.With("pipeline_id", pc.PipelineID.String()),
		mailbox:              make(chan *bus.Message, o.mailboxSize),
		done:                 make(chan struct{}),
		resourceRequirements: requirements,
	}
}

// enqueue ставит сообщение в mailbox actor'а.
// Блокируется при переполнении, но не зависает на завершённом actor'е.
func (w *pipelineWorker) enqueue(msg *bus.Message) {
	select {
	case w.mailbox <- msg:
	case <-w.done:
		w.logger.Debug("dropping message for finished pipeline", "type", msg.Type)
	}
}

// run — цикл actor'а.
func (w *pipelineWorker) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.mailbox:
			w.handle(ctx, msg)
			if w.stopping {
				return
			}
		}
	}
}

// handle диспетчеризует сообщение. Исчерпывающий switch по закрытому
// enum типов: новый тип без ветки здесь — ошибка уровня review,
// default отвечает error notification, не молчит.
func (w *pipelineWorker) handle(ctx context.Context, msg *bus.Message) {
	// Терминальный контекст: принимается только cleanup.
	if w.pc.IsFinished() && msg.Type != bus.TypePipelineCleanupRequest {
		w.rejectMessage(msg, ErrPipelineTerminal.Error())
		return
	}

	// Открытый decision gate: до разрешения принимаются только само
	// разрешение, отмена и cleanup. Остальное отклоняется явно —
	// молчаливого прогресса быть не должно.
	if w.pc.Status == domain.StatusAwaitingDecision && !allowedWhileGated(msg.Type) {
		w.rejectMessage(msg, ErrAwaitingDecision.Error())
		return
	}

	switch msg.Type {
	case bus.TypePipelineStartRequest:
		w.handleStart(msg)
	case bus.TypePipelinePauseRequest:
		w.handlePause(msg)
	case bus.TypePipelineResumeRequest:
		w.handleResume(msg)
	case bus.TypePipelineCancelRequest:
		w.handleCancel(msg)
	case bus.TypePipelineCleanupRequest:
		w.handleCleanup(msg)
	case bus.TypePipelineDecisionResolution:
		w.handleDecision(msg)

	case bus.TypePipelineStageComplete,
		bus.TypeQualityProcessComplete,
		bus.TypeInsightGenerateComplete,
		bus.TypeAnalyticsProcessComplete,
		bus.TypeDecisionProcessComplete,
		bus.TypeRecommendationProcessComplete,
		bus.TypeReportProcessComplete:
		stage, results, err := completionPayload(msg)
		if err != nil {
			w.rejectMessage(msg, err.Error())
			return
		}
		w.handleStageComplete(stage, results)

	case bus.TypePipelineStageError:
		w.handleStageError(msg)
	case bus.TypePipelineStageRetry:
		w.handleStageRetry(msg)

	case bus.TypeMonitoringMetricsUpdate:
		w.handleMetrics(msg)
	case bus.TypeMonitoringAlertGenerate:
		w.handleAlert(msg)

	case bus.TypeResourceAccessGrant:
		w.handleResourceGrant(msg)
	case bus.TypeResourceAccessDeny:
		w.handleResourceDeny(msg)

	default:
		w.rejectMessage(msg, "unsupported message type")
	}
}

// allowedWhileGated — типы, принимаемые при открытом decision gate.
func allowedWhileGated(t bus.MessageType) bool {
	switch t {
	case bus.TypePipelineDecisionResolution,
		bus.TypePipelineCancelRequest,
		bus.TypePipelineCleanupRequest:
		return true
	default:
		return false
	}
}

// rejectMessage отвечает error notification, не меняя состояние.
func (w *pipelineWorker) rejectMessage(msg *bus.Message, reason string) {
	w.logger.Debug("message rejected",
		"type", msg.Type,
		"status", w.pc.Status,
		"reason", reason,
	)
	w.errorNotify(map[string]any{
		"error":         reason,
		"rejected_type": string(msg.Type),
	}, false, nil)
}

// finish снимает pipeline с реестра и останавливает actor.
func (w *pipelineWorker) finish() {
	w.orch.removeWorker(w.pc.PipelineID)
	w.stopping = true
}

// --- Публикация исходящих сообщений ---

// publish публикует сообщение с идентификаторами этого pipeline.
// После отмены все исходящие несут кооперативный флаг отмены.
func (w *pipelineWorker) publish(t bus.MessageType, content map[string]any, md bus.Metadata) {
	msg := bus.NewMessage(t, w.pc.PipelineID, w.pc.CorrelationID, content)
	md.SourceComponent = ComponentID
	if w.pc.Status == domain.StatusCancelled {
		md.CancellationRequested = true
	}
	msg.Metadata = md
	w.orch.publish(msg)
}

// statusUpdate публикует снимок состояния pipeline.
// Персистентность снимков — ответственность подписчика (recorder).
func (w *pipelineWorker) statusUpdate() {
	content, err := toContent(domain.NewSnapshot(w.pc))
	if err != nil {
		w.logger.Error("failed to encode snapshot", "error", err)
		return
	}
	w.publish(bus.TypePipelineStageStatusUpdate, content, bus.Metadata{
		ProcessingStage: string(w.pc.CurrentStage),
	})
}

// metricsUpdate публикует метрики выполнения.
func (w *pipelineWorker) metricsUpdate() {
	w.publish(bus.TypePipelineMetricsUpdate, map[string]any{
		"progress":         w.pc.Metrics.Progress,
		"stages_completed": w.pc.Metrics.StagesCompleted,
		"retries_total":    w.pc.Metrics.RetriesTotal,
	}, bus.Metadata{})
}

// errorNotify публикует PIPELINE_ERROR_NOTIFY.
// При requiresDecision=true сообщение несёт options открытого gate.
func (w *pipelineWorker) errorNotify(content map[string]any, requiresDecision bool, options []string) {
	if content == nil {
		content = map[string]any{}
	}
	content["requires_decision"] = requiresDecision
	if len(options) > 0 {
		content["options"] = options
	}
	w.publish(bus.TypePipelineErrorNotify, content, bus.Metadata{
		ProcessingStage: string(w.pc.CurrentStage),
	})
}

// toContent кодирует значение в map[string]any через JSON round-trip.
func toContent(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
