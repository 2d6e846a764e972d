package orchestrator

import (
	"fmt"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
	"github.com/shaiso/Analytica/internal/engine"
)

// lowQualityScore — порог приёмки quality score: результат в [0,100],
// но ниже порога, открывает gate quality_failure.
const lowQualityScore = 50.0

// startTypes — этап → тип команды старта для внешнего компонента.
var startTypes = map[domain.Stage]bus.MessageType{
	domain.StageQualityCheck:      bus.TypeQualityProcessStart,
	domain.StageInsightGeneration: bus.TypeInsightGenerateStart,
	domain.StageAdvancedAnalytics: bus.TypeAnalyticsProcessStart,
	domain.StageDecisionMaking:    bus.TypeDecisionProcessStart,
	domain.StageRecommendation:    bus.TypeRecommendationProcessStart,
	domain.StageReportGeneration:  bus.TypeReportProcessStart,
}

// completeStages — типизированное завершение → этап.
var completeStages = map[bus.MessageType]domain.Stage{
	bus.TypeQualityProcessComplete:        domain.StageQualityCheck,
	bus.TypeInsightGenerateComplete:       domain.StageInsightGeneration,
	bus.TypeAnalyticsProcessComplete:      domain.StageAdvancedAnalytics,
	bus.TypeDecisionProcessComplete:       domain.StageDecisionMaking,
	bus.TypeRecommendationProcessComplete: domain.StageRecommendation,
	bus.TypeReportProcessComplete:         domain.StageReportGeneration,
}

// stageComponents — этап → target component команды старта.
var stageComponents = map[domain.Stage]string{
	domain.StageQualityCheck:      "quality-service",
	domain.StageInsightGeneration: "insight-service",
	domain.StageAdvancedAnalytics: "analytics-service",
	domain.StageDecisionMaking:    "decision-service",
	domain.StageRecommendation:    "recommendation-service",
	domain.StageReportGeneration:  "report-service",
}

// completionPayload извлекает этап и результаты из сообщения о
// завершении. Типизированные *_COMPLETE несут результаты прямо в
// content; generic PIPELINE_STAGE_COMPLETE — в content.results с
// этапом в content.stage или metadata.
func completionPayload(msg *bus.Message) (domain.Stage, map[string]any, error) {
	if stage, ok := completeStages[msg.Type]; ok {
		return stage, msg.Content, nil
	}

	name, _ := msg.Content["stage"].(string)
	if name == "" {
		name = msg.Metadata.ProcessingStage
	}
	if name == "" {
		return "", nil, fmt.Errorf("stage completion without stage name")
	}

	results, _ := msg.Content["results"].(map[string]any)
	if results == nil {
		results = msg.Content
	}
	return domain.Stage(name), results, nil
}

// handleStageComplete обрабатывает завершение этапа.
//
// Порядок фиксирован:
//  1. Отклонение невалидного завершения (не тот этап, этап вне
//     последовательности, нет обязательных полей) — ошибка в history,
//     состояние не меняется.
//  2. Этап помечается завершённым, прогресс и метрики обновляются.
//  3. Пост-валидация контракта результатов; нарушение — decision gate
//     validation_failure, никогда не молчаливое принятие.
//  4. Переход к следующему этапу, завершение pipeline или gate
//     dependency_failure.
func (w *pipelineWorker) handleStageComplete(stage domain.Stage, results map[string]any) {
	// 1. Невалидное завершение.
	if !w.pc.InSequence(stage) {
		w.invalidCompletion(stage, fmt.Sprintf("%s: %s", ErrStageNotInSequence, stage))
		return
	}
	if stage != w.pc.CurrentStage {
		w.invalidCompletion(stage, fmt.Sprintf("%s: completion for %s, current is %s", ErrStageMismatch, stage, w.pc.CurrentStage))
		return
	}
	if err := engine.CheckRequiredFields(stage, results); err != nil {
		w.invalidCompletion(stage, err.Error())
		return
	}

	// 2. Принятие завершения.
	engine.CompleteStage(w.pc, stage)
	w.pc.LastResults = results

	if w.orch.metrics != nil {
		w.orch.metrics.StagesCompleted.WithLabelValues(string(stage)).Inc()
	}

	w.logger.Info("stage completed",
		"stage", stage,
		"progress", w.pc.Metrics.Progress,
	)

	// 3. Пост-валидация контракта результатов.
	if err := engine.ValidateResults(stage, results); err != nil {
		w.logger.Warn("stage results failed validation", "stage", stage, "error", err)
		w.openGate(&domain.PendingDecision{
			Type:  domain.DecisionValidationFailure,
			Stage: stage,
			Payload: map[string]any{
				"error":   err.Error(),
				"results": results,
			},
			Options: []string{domain.OptionRetry, domain.OptionIgnore, domain.OptionAbort},
		})
		return
	}

	// Формально валидный, но низкий quality score — решение оператора:
	// дальше по pipeline такие данные идут только явно.
	if stage == domain.StageQualityCheck {
		if score, ok := numericField(results, "quality_score"); ok && score < lowQualityScore {
			w.logger.Warn("quality score below acceptance threshold",
				"quality_score", score,
			)
			w.openGate(&domain.PendingDecision{
				Type:  domain.DecisionQualityFailure,
				Stage: stage,
				Payload: map[string]any{
					"quality_score": score,
					"issues":        results["issues"],
				},
				Options: []string{domain.OptionRetry, domain.OptionIgnore, domain.OptionAbort},
			})
			return
		}
	}

	// Этап принятия решений может требовать человеческого подтверждения.
	if stage == domain.StageDecisionMaking {
		if confirm, _ := results["requires_confirmation"].(bool); confirm {
			w.openGate(&domain.PendingDecision{
				Type:  domain.DecisionConfirmation,
				Stage: stage,
				Payload: map[string]any{
					"decisions": results["decisions"],
				},
				Options: []string{domain.OptionConfirm, domain.OptionReject},
			})
			return
		}
	}

	// 4. Переход дальше.
	w.advance(stage)
	if !w.stopping && w.pc.Status != domain.StatusAwaitingDecision {
		w.statusUpdate()
	}
}

// numericField извлекает числовое поле результатов.
// Локальная шина несёт Go-значения (int), AMQP после JSON — float64.
func numericField(results map[string]any, name string) (float64, bool) {
	switch value := results[name].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	}
	return 0, false
}

// invalidCompletion регистрирует невалидное завершение.
// Состояние pipeline не меняется.
func (w *pipelineWorker) invalidCompletion(stage domain.Stage, reason string) {
	w.logger.Warn("invalid stage completion", "stage", stage, "reason", reason)
	w.pc.AddError(stage, reason, map[string]any{
		"kind": "invalid_completion",
	})
	w.errorNotify(map[string]any{
		"error": reason,
		"stage": string(stage),
	}, false, nil)
}

// advance вычисляет следующий этап после from и либо инициирует его,
// либо завершает pipeline, либо открывает dependency gate.
func (w *pipelineWorker) advance(from domain.Stage) {
	next, ok := engine.NextStage(w.pc.StageSequence, from)
	if !ok {
		w.completePipeline()
		return
	}

	if !engine.CanProceedTo(w.pc.StageDependencies, w.pc.CompletedStages, next) {
		unmet := engine.UnmetDependencies(w.pc.StageDependencies, w.pc.CompletedStages, next)
		w.logger.Warn("dependency gate blocked next stage",
			"next_stage", next,
			"unmet", unmet,
		)
		w.openGate(&domain.PendingDecision{
			Type:  domain.DecisionDependencyFailure,
			Stage: next,
			Payload: map[string]any{
				"stage":              string(next),
				"unmet_dependencies": stageStrings(unmet),
			},
			Options: []string{domain.OptionWaitAndRetry, domain.OptionSkipDependencies, domain.OptionAbort},
		})
		return
	}

	w.initiateStage(next)
}

// initiateStage переводит CurrentStage на stage и выпускает команду
// старта. В PAUSED команда не выпускается — её выпустит resume.
func (w *pipelineWorker) initiateStage(stage domain.Stage) {
	w.pc.CurrentStage = stage
	w.pc.Touch()

	if w.pc.Status != domain.StatusRunning {
		w.logger.Debug("stage initiation deferred", "stage", stage, "status", w.pc.Status)
		return
	}
	w.issueStageStart(stage, false)
}

// issueStageStart публикует команду старта этапа внешнему компоненту.
// Retry несёт is_retry и накопленную историю ошибок.
func (w *pipelineWorker) issueStageStart(stage domain.Stage, isRetry bool) {
	startType, ok := startTypes[stage]
	if !ok {
		w.logger.Error("no start command for stage", "stage", stage)
		return
	}

	content := map[string]any{
		"stage":   string(stage),
		"attempt": w.pc.RetryCounts[stage] + 1,
		"input":   w.pc.LastResults,
	}
	if isRetry {
		history, err := toContent(map[string]any{"errors": w.pc.ErrorHistory})
		if err == nil {
			content["error_history"] = history["errors"]
		}
	}

	w.publish(startType, content, bus.Metadata{
		TargetComponent: stageComponents[stage],
		ProcessingStage: string(stage),
		IsRetry:         isRetry,
	})

	w.logger.Info("stage start issued",
		"stage", stage,
		"is_retry", isRetry,
	)
}

// completePipeline — все этапы последовательности завершены.
func (w *pipelineWorker) completePipeline() {
	w.pc.MarkCompleted()

	w.logger.Info("pipeline completed",
		"progress", w.pc.Metrics.Progress,
		"duration", w.pc.Duration(),
	)

	if w.orch.metrics != nil {
		w.orch.metrics.PipelinesTotal.WithLabelValues(string(domain.StatusCompleted)).Inc()
	}

	w.releaseResources()
	w.metricsUpdate()
	w.statusUpdate()

	w.finish()
}
