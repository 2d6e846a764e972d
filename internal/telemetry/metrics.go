package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — Prometheus-метрики оркестрации.
//
// Регистрируются в default registry; каждый daemon отдаёт их
// на /metrics через promhttp.
type Metrics struct {
	// PipelinesActive — количество pipeline в активном реестре.
	PipelinesActive prometheus.Gauge

	// PipelinesTotal — счётчик терминальных исходов по статусу.
	PipelinesTotal *prometheus.CounterVec

	// StagesCompleted — счётчик принятых завершений этапов.
	StagesCompleted *prometheus.CounterVec

	// StageRetries — счётчик retry по этапам.
	StageRetries *prometheus.CounterVec

	// DecisionGatesOpen — количество открытых decision gates.
	DecisionGatesOpen prometheus.Gauge

	// PipelinesPaused — счётчик принудительных и ручных пауз.
	PipelinesPaused *prometheus.CounterVec

	// MessagesPublished — счётчик опубликованных сообщений по типу.
	MessagesPublished *prometheus.CounterVec
}

// NewMetrics создаёт и регистрирует метрики оркестрации.
func NewMetrics() *Metrics {
	return &Metrics{
		PipelinesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "analytica_pipelines_active",
			Help: "Number of pipelines currently in the active registry.",
		}),
		PipelinesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytica_pipelines_total",
			Help: "Terminal pipeline outcomes by status.",
		}, []string{"status"}),
		StagesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytica_stages_completed_total",
			Help: "Accepted stage completions by stage.",
		}, []string{"stage"}),
		StageRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytica_stage_retries_total",
			Help: "Scheduled stage retries by stage.",
		}, []string{"stage"}),
		DecisionGatesOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "analytica_decision_gates_open",
			Help: "Decision gates currently awaiting resolution.",
		}),
		PipelinesPaused: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytica_pipelines_paused_total",
			Help: "Pipeline pauses by cause (manual, resource_constraint).",
		}, []string{"cause"}),
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytica_messages_published_total",
			Help: "Messages published by the orchestrator, by type.",
		}, []string{"type"}),
	}
}
