package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot — срез состояния pipeline для status-update сообщений.
//
// Orchestrator публикует snapshot в PIPELINE_STAGE_STATUS_UPDATE;
// recorder сохраняет его в БД. Сам orchestrator с БД не работает.
type Snapshot struct {
	PipelineID      uuid.UUID        `json:"pipeline_id"`
	CorrelationID   uuid.UUID        `json:"correlation_id"`
	Status          PipelineStatus   `json:"status"`
	CurrentStage    Stage            `json:"current_stage,omitempty"`
	CompletedStages []Stage          `json:"completed_stages"`
	Progress        float64          `json:"progress"`
	PendingDecision *PendingDecision `json:"pending_decision,omitempty"`
	RetryCounts     map[Stage]int    `json:"retry_counts,omitempty"`
	ErrorHistory    []StageError     `json:"error_history,omitempty"`
	PauseReason     string           `json:"pause_reason,omitempty"`
	Error           string           `json:"error,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewSnapshot строит snapshot из текущего состояния контекста.
func NewSnapshot(p *PipelineContext) *Snapshot {
	completed := make([]Stage, 0, len(p.CompletedStages))
	for _, s := range p.StageSequence {
		if p.CompletedStages[s] {
			completed = append(completed, s)
		}
	}

	return &Snapshot{
		PipelineID:      p.PipelineID,
		CorrelationID:   p.CorrelationID,
		Status:          p.Status,
		CurrentStage:    p.CurrentStage,
		CompletedStages: completed,
		Progress:        p.Metrics.Progress,
		PendingDecision: p.PendingDecision,
		RetryCounts:     p.RetryCounts,
		ErrorHistory:    p.ErrorHistory,
		PauseReason:     p.PauseReason,
		Error:           p.Error,
		UpdatedAt:       p.UpdatedAt,
	}
}
