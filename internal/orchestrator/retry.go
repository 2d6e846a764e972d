package orchestrator

import (
	"fmt"
	"time"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
)

// handleStageError — ошибка этапа от внешнего компонента.
//
// Retry-политика: счётчик попыток этапа инкрементируется; пока он не
// превысил max_retries, планируется отложенный повторный выпуск
// команды старта (таймер, не блокирующий sleep — actor свободен для
// других сообщений). После исчерпания открывается gate stage_failure,
// current_stage не меняется до разрешения.
func (w *pipelineWorker) handleStageError(msg *bus.Message) {
	stage, errMsg, details := errorPayload(msg)
	if stage == "" {
		w.rejectMessage(msg, "stage error without stage name")
		return
	}

	w.pc.AddError(stage, errMsg, details)

	if stage != w.pc.CurrentStage {
		// Ошибка не текущего этапа регистрируется, но retry не планируется.
		w.logger.Warn("error for non-current stage recorded",
			"stage", stage,
			"current_stage", w.pc.CurrentStage,
		)
		return
	}

	w.pc.RetryCounts[stage]++
	count := w.pc.RetryCounts[stage]

	if count > w.orch.maxRetries {
		w.logger.Warn("stage retries exhausted",
			"stage", stage,
			"retry_count", count-1,
		)
		w.openGate(&domain.PendingDecision{
			Type:  domain.DecisionStageFailure,
			Stage: stage,
			Payload: map[string]any{
				"error":       errMsg,
				"retry_count": count - 1,
			},
			Options: []string{domain.OptionSkip, domain.OptionAbort, domain.OptionCustomResolution},
		})
		return
	}

	w.pc.Metrics.RetriesTotal++
	delay := w.orch.retryDelay(count)

	w.logger.Info("stage retry scheduled",
		"stage", stage,
		"attempt", count,
		"delay", delay,
	)

	if w.orch.metrics != nil {
		w.orch.metrics.StageRetries.WithLabelValues(string(stage)).Inc()
	}

	w.errorNotify(map[string]any{
		"error":          errMsg,
		"stage":          string(stage),
		"retry_count":    count,
		"retry_delay_ms": delay.Milliseconds(),
	}, false, nil)

	w.scheduleRetry(stage, delay)
	w.statusUpdate()
}

// scheduleRetry ставит таймер повторного выпуска команды старта.
// Таймер публикует внутреннее сообщение на шину — повтор проходит
// через actor и учитывает состояние на момент срабатывания.
func (w *pipelineWorker) scheduleRetry(stage domain.Stage, delay time.Duration) {
	pipelineID := w.pc.PipelineID
	correlationID := w.pc.CorrelationID
	orch := w.orch

	time.AfterFunc(delay, func() {
		if orch.IsStopped() {
			return
		}
		retry := bus.NewMessage(bus.TypePipelineStageRetry, pipelineID, correlationID, map[string]any{
			"stage": string(stage),
		})
		retry.Metadata.SourceComponent = ComponentID
		retry.Metadata.ProcessingStage = string(stage)
		retry.Metadata.IsRetry = true
		orch.publish(retry)
	})
}

// handleStageRetry — срабатывание retry-таймера.
// Повтор выпускается только если pipeline всё ещё выполняет этот этап.
func (w *pipelineWorker) handleStageRetry(msg *bus.Message) {
	name, _ := msg.Content["stage"].(string)
	stage := domain.Stage(name)

	if w.pc.Status != domain.StatusRunning || stage != w.pc.CurrentStage {
		w.logger.Debug("stale retry dropped",
			"stage", stage,
			"status", w.pc.Status,
			"current_stage", w.pc.CurrentStage,
		)
		return
	}

	w.issueStageStart(stage, true)
}

// errorPayload извлекает этап, текст и детали из PIPELINE_STAGE_ERROR.
func errorPayload(msg *bus.Message) (domain.Stage, string, map[string]any) {
	name, _ := msg.Content["stage"].(string)
	if name == "" {
		name = msg.Metadata.ProcessingStage
	}

	errMsg, _ := msg.Content["error"].(string)
	if errMsg == "" {
		errMsg = fmt.Sprintf("stage %s failed", name)
	}

	details, _ := msg.Content["details"].(map[string]any)
	return domain.Stage(name), errMsg, details
}
