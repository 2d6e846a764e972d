package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
)

// requestResources публикует RESOURCE_ACCESS_REQUEST по каждому
// требованию из create request.
func (w *pipelineWorker) requestResources() {
	for resourceType, requirement := range w.resourceRequirements {
		w.publish(bus.TypeResourceAccessRequest, map[string]any{
			"resource_type": resourceType,
			"requirement":   requirement,
		}, bus.Metadata{TargetComponent: "resource-manager"})

		w.logger.Debug("resource access requested", "resource_type", resourceType)
	}
}

// releaseResources публикует ровно один RESOURCE_RELEASE_REQUEST на
// каждую запись resource_allocation и очищает её — повторный вызов
// ничего не освобождает дважды.
func (w *pipelineWorker) releaseResources() {
	for resourceType, resourceID := range w.pc.ResourceAllocation {
		w.publish(bus.TypeResourceReleaseRequest, map[string]any{
			"resource_type": resourceType,
			"resource_id":   resourceID,
		}, bus.Metadata{TargetComponent: "resource-manager"})

		w.logger.Debug("resource release requested",
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
	w.pc.ResourceAllocation = make(map[string]string)
}

// retryResourceRequest повторяет запрос ресурса после wait_and_retry
// на gate resource_denial.
func (w *pipelineWorker) retryResourceRequest(gate *domain.PendingDecision) {
	resourceType, _ := gate.Payload["resource_type"].(string)
	if resourceType == "" {
		return
	}
	w.publish(bus.TypeResourceAccessRequest, map[string]any{
		"resource_type": resourceType,
		"requirement":   w.resourceRequirements[resourceType],
	}, bus.Metadata{TargetComponent: "resource-manager"})
}

// handleResourceGrant фиксирует выделенный ресурс.
func (w *pipelineWorker) handleResourceGrant(msg *bus.Message) {
	resourceType, _ := msg.Content["resource_type"].(string)
	resourceID, _ := msg.Content["resource_id"].(string)
	if resourceType == "" || resourceID == "" {
		w.rejectMessage(msg, "resource grant without resource_type/resource_id")
		return
	}

	w.pc.ResourceAllocation[resourceType] = resourceID
	w.pc.Touch()

	w.logger.Info("resource granted",
		"resource_type", resourceType,
		"resource_id", resourceID,
	)
	w.statusUpdate()
}

// handleResourceDeny открывает gate resource_denial.
// Отказ в ресурсе не валит pipeline — решает внешний актор.
func (w *pipelineWorker) handleResourceDeny(msg *bus.Message) {
	resourceType, _ := msg.Content["resource_type"].(string)
	reason, _ := msg.Content["reason"].(string)

	w.pc.AddError(w.pc.CurrentStage, fmt.Sprintf("resource access denied: %s", resourceType), map[string]any{
		"resource_type": resourceType,
		"reason":        reason,
	})

	w.openGate(&domain.PendingDecision{
		Type:  domain.DecisionResourceDenial,
		Stage: w.pc.CurrentStage,
		Payload: map[string]any{
			"resource_type": resourceType,
			"reason":        reason,
		},
		Options: []string{domain.OptionWaitAndRetry, domain.OptionProceedWithout, domain.OptionAbort},
	})
}

// handleMetrics — периодическое мониторинговое сообщение.
//
// Нарушение порога не валит pipeline: RUNNING принудительно
// переводится в PAUSED с причиной, перечисляющей нарушившие метрики.
// Автоматического возобновления при нормализации метрик нет —
// только явный resume.
func (w *pipelineWorker) handleMetrics(msg *bus.Message) {
	usage := resourceUsage(msg.Content)
	if len(usage) > 0 {
		w.pc.Metrics.LastResourceUsage = usage
		w.pc.Touch()
	}

	if w.pc.Status != domain.StatusRunning {
		return
	}

	violations := w.violations(usage)
	if len(violations) == 0 {
		return
	}

	reason := "resource constraint: " + strings.Join(violations, "; ")
	w.pc.MarkPaused(reason)

	w.logger.Warn("pipeline paused by resource constraint", "reason", reason)

	if w.orch.metrics != nil {
		w.orch.metrics.PipelinesPaused.WithLabelValues("resource_constraint").Inc()
	}

	w.publish(bus.TypeMonitoringAlertGenerate, map[string]any{
		"alert":  "resource_constraint",
		"reason": reason,
		"usage":  msg.Content,
	}, bus.Metadata{TargetComponent: "monitoring"})
	w.statusUpdate()
}

// handleAlert — внешний алерт мониторинга, адресованный оркестратору.
// Для RUNNING pipeline работает как принудительная пауза.
func (w *pipelineWorker) handleAlert(msg *bus.Message) {
	if w.pc.Status != domain.StatusRunning {
		return
	}
	if source, _ := msg.Content["alert"].(string); source == "resource_constraint" {
		// Эхо собственного алерта через внешний контур.
		return
	}

	reason, _ := msg.Content["reason"].(string)
	if reason == "" {
		reason = "monitoring alert"
	}

	w.pc.MarkPaused(reason)
	w.logger.Warn("pipeline paused by monitoring alert", "reason", reason)

	if w.orch.metrics != nil {
		w.orch.metrics.PipelinesPaused.WithLabelValues("monitoring_alert").Inc()
	}
	w.statusUpdate()
}

// violations возвращает описания метрик, превысивших пороги.
// Порядок детерминированный (по имени метрики).
func (w *pipelineWorker) violations(usage map[string]float64) []string {
	var out []string
	for name, value := range usage {
		threshold, ok := w.orch.thresholds[name]
		if !ok {
			continue
		}
		if value > threshold {
			out = append(out, fmt.Sprintf("%s=%.1f (threshold %.1f)", name, value, threshold))
		}
	}
	sort.Strings(out)
	return out
}

// resourceUsage извлекает числовые метрики из content.
func resourceUsage(content map[string]any) map[string]float64 {
	usage := make(map[string]float64, len(content))
	for name, v := range content {
		switch value := v.(type) {
		case float64:
			usage[name] = value
		case int:
			usage[name] = float64(value)
		}
	}
	return usage
}
