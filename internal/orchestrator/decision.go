package orchestrator

import (
	"fmt"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
	"github.com/shaiso/Analytica/internal/engine"
)

// openGate открывает decision gate и уведомляет внешних акторов.
// Gate и статус AWAITING_DECISION ставятся атомарно (один вызов
// мутатора на actor-горутине).
func (w *pipelineWorker) openGate(d *domain.PendingDecision) {
	w.pc.OpenDecision(d)

	if w.orch.metrics != nil {
		w.orch.metrics.DecisionGatesOpen.Inc()
	}

	w.logger.Info("decision gate opened",
		"decision_type", d.Type,
		"stage", d.Stage,
		"options", d.Options,
	)

	w.errorNotify(map[string]any{
		"decision_type": string(d.Type),
		"stage":         string(d.Stage),
		"payload":       d.Payload,
	}, true, d.Options)
	w.statusUpdate()
}

// handleDecision применяет разрешение открытого decision gate.
//
// Gate закрывается вместе с выходом из AWAITING_DECISION: каждый
// вариант сразу переводит pipeline в следующий статус.
func (w *pipelineWorker) handleDecision(msg *bus.Message) {
	if w.pc.PendingDecision == nil {
		w.rejectMessage(msg, ErrNoPendingDecision.Error())
		return
	}

	option, _ := msg.Content["option"].(string)
	if option == "" {
		option, _ = msg.Content["decision"].(string)
	}

	if !w.pc.PendingDecision.HasOption(option) {
		w.rejectMessage(msg, fmt.Sprintf("%s: %q (allowed: %v)",
			ErrInvalidDecisionOption, option, w.pc.PendingDecision.Options))
		return
	}

	gate := w.pc.CloseDecision()

	if w.orch.metrics != nil {
		w.orch.metrics.DecisionGatesOpen.Dec()
	}

	w.logger.Info("decision gate resolved",
		"decision_type", gate.Type,
		"option", option,
	)

	switch option {
	case domain.OptionRetry:
		// Повторный прогон этапа, результаты которого не прошли валидацию.
		w.pc.MarkRunning()
		w.issueStageStart(w.pc.CurrentStage, true)

	case domain.OptionIgnore:
		// Результаты принимаются как есть, движение продолжается.
		w.pc.MarkRunning()
		w.advance(w.pc.CurrentStage)

	case domain.OptionConfirm:
		w.pc.MarkRunning()
		w.advance(w.pc.CurrentStage)

	case domain.OptionReject:
		w.failPipeline(fmt.Sprintf("decision rejected at %s gate", gate.Type))

	case domain.OptionWaitAndRetry:
		w.pc.MarkRunning()
		if gate.Type == domain.DecisionResourceDenial {
			w.retryResourceRequest(gate)
		} else {
			// Повторная проверка зависимостей; при прежнем нарушении
			// gate откроется снова.
			w.advance(w.pc.CurrentStage)
		}

	case domain.OptionSkipDependencies:
		w.pc.MarkRunning()
		if next, ok := engine.NextStage(w.pc.StageSequence, w.pc.CurrentStage); ok {
			w.initiateStage(next)
		} else {
			w.completePipeline()
			return
		}

	case domain.OptionSkip:
		// Упавший этап помечается завершённым, чтобы зависимости
		// последующих этапов считались выполненными.
		w.pc.MarkRunning()
		engine.CompleteStage(w.pc, w.pc.CurrentStage)
		w.advance(w.pc.CurrentStage)

	case domain.OptionCustomResolution:
		w.pc.MarkRunning()
		if results, ok := msg.Content["results"].(map[string]any); ok {
			// Операторские результаты принимаются без контрактной валидации.
			engine.CompleteStage(w.pc, w.pc.CurrentStage)
			w.pc.LastResults = results
		} else {
			engine.CompleteStage(w.pc, w.pc.CurrentStage)
		}
		w.advance(w.pc.CurrentStage)

	case domain.OptionProceedWithout:
		// Ресурс не выделен, выполнение продолжается без него.
		w.pc.MarkRunning()

	case domain.OptionAbort:
		w.failPipeline(fmt.Sprintf("aborted at %s gate", gate.Type))

	default:
		// HasOption выше гарантирует известный вариант; ветка на случай
		// расширения options без обработчика.
		w.logger.Error("decision option without effect", "option", option)
		w.pc.MarkRunning()
	}

	if !w.stopping && w.pc.Status != domain.StatusAwaitingDecision {
		w.statusUpdate()
	}
}

// failPipeline переводит pipeline в FAILED.
// Контекст остаётся в реестре до явного cleanup — статус и история
// ошибок доступны для разбора.
func (w *pipelineWorker) failPipeline(reason string) {
	w.pc.MarkFailed(reason)
	w.logger.Warn("pipeline failed", "reason", reason)

	if w.orch.metrics != nil {
		w.orch.metrics.PipelinesTotal.WithLabelValues(string(domain.StatusFailed)).Inc()
	}

	w.releaseResources()
	w.errorNotify(map[string]any{
		"error": reason,
		"final": true,
	}, false, nil)
}
