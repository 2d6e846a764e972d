package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewPipelineContext_Defaults(t *testing.T) {
	pc := NewPipelineContext(uuid.New(), uuid.New(), nil, nil)

	if pc.Status != StatusInitializing {
		t.Errorf("expected INITIALIZING, got %s", pc.Status)
	}
	if len(pc.StageSequence) != 6 {
		t.Errorf("expected default sequence of 6 stages, got %d", len(pc.StageSequence))
	}
	if pc.StageSequence[0] != StageQualityCheck {
		t.Errorf("expected QUALITY_CHECK first, got %s", pc.StageSequence[0])
	}
	if pc.CompletedStages == nil || pc.RetryCounts == nil || pc.ResourceAllocation == nil {
		t.Error("maps should be initialized")
	}
	if pc.CurrentStage != "" {
		t.Errorf("current stage should be empty before start, got %s", pc.CurrentStage)
	}
}

func TestNewPipelineContext_CustomSequence(t *testing.T) {
	seq := []Stage{StageQualityCheck, StageReportGeneration}
	pc := NewPipelineContext(uuid.New(), uuid.New(), seq, nil)

	if len(pc.StageSequence) != 2 {
		t.Errorf("expected custom sequence of 2 stages, got %d", len(pc.StageSequence))
	}
	if !pc.InSequence(StageReportGeneration) {
		t.Error("REPORT_GENERATION should be in sequence")
	}
	if pc.InSequence(StageDecisionMaking) {
		t.Error("DECISION_MAKING should not be in sequence")
	}
}

func TestStatusTransitions(t *testing.T) {
	pc := NewPipelineContext(uuid.New(), uuid.New(), nil, nil)

	pc.MarkRunning()
	if pc.Status != StatusRunning {
		t.Errorf("expected RUNNING, got %s", pc.Status)
	}

	pc.MarkPaused("resource constraint: cpu_usage=95.0")
	if pc.Status != StatusPaused {
		t.Errorf("expected PAUSED, got %s", pc.Status)
	}
	if pc.PauseReason == "" {
		t.Error("pause reason should be set")
	}

	pc.MarkRunning()
	if pc.PauseReason != "" {
		t.Error("pause reason should be cleared on resume")
	}

	pc.MarkCompleted()
	if pc.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", pc.Status)
	}
	if !pc.IsFinished() {
		t.Error("COMPLETED should be terminal")
	}
	if pc.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
	if pc.Duration() < 0 {
		t.Error("duration should be non-negative")
	}
}

func TestMarkFailed(t *testing.T) {
	pc := NewPipelineContext(uuid.New(), uuid.New(), nil, nil)
	pc.MarkFailed("aborted at stage_failure gate")

	if pc.Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", pc.Status)
	}
	if pc.Error == "" {
		t.Error("error text should be set")
	}
	if !pc.IsFinished() {
		t.Error("FAILED should be terminal")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []PipelineStatus{StatusCompleted, StatusCancelled, StatusFailed}
	active := []PipelineStatus{StatusInitializing, StatusRunning, StatusPaused, StatusAwaitingDecision}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOpenCloseDecision(t *testing.T) {
	pc := NewPipelineContext(uuid.New(), uuid.New(), nil, nil)
	pc.MarkRunning()

	gate := &PendingDecision{
		Type:    DecisionValidationFailure,
		Stage:   StageQualityCheck,
		Options: []string{OptionRetry, OptionIgnore, OptionAbort},
	}
	pc.OpenDecision(gate)

	// Gate и статус ставятся вместе.
	if pc.Status != StatusAwaitingDecision {
		t.Errorf("expected AWAITING_DECISION, got %s", pc.Status)
	}
	if pc.PendingDecision == nil {
		t.Fatal("pending decision should be set")
	}
	if pc.PendingDecision.CreatedAt.IsZero() {
		t.Error("gate CreatedAt should be stamped")
	}

	if !gate.HasOption(OptionRetry) {
		t.Error("retry should be an allowed option")
	}
	if gate.HasOption(OptionSkip) {
		t.Error("skip should not be an allowed option")
	}

	closed := pc.CloseDecision()
	if closed != gate {
		t.Error("CloseDecision should return the open gate")
	}
	if pc.PendingDecision != nil {
		t.Error("pending decision should be cleared")
	}
}

func TestAddError(t *testing.T) {
	pc := NewPipelineContext(uuid.New(), uuid.New(), nil, nil)

	pc.AddError(StageQualityCheck, "connection refused", map[string]any{"attempt": 1})
	pc.AddError(StageQualityCheck, "connection refused", map[string]any{"attempt": 2})

	if len(pc.ErrorHistory) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(pc.ErrorHistory))
	}
	if pc.ErrorHistory[0].Stage != StageQualityCheck {
		t.Errorf("unexpected stage %s", pc.ErrorHistory[0].Stage)
	}
	if pc.ErrorHistory[1].Timestamp.Before(pc.ErrorHistory[0].Timestamp) {
		t.Error("error history should be append-only in time order")
	}
}

func TestProgressWeightsSumTo100(t *testing.T) {
	var sum int
	for _, s := range DefaultSequence() {
		sum += ProgressWeight(s)
	}
	if sum != 100 {
		t.Errorf("default stage weights should sum to 100, got %d", sum)
	}
}

func TestParseStage(t *testing.T) {
	if s, ok := ParseStage("ADVANCED_ANALYTICS"); !ok || s != StageAdvancedAnalytics {
		t.Errorf("expected ADVANCED_ANALYTICS, got %s (%v)", s, ok)
	}
	if _, ok := ParseStage("DATA_MINING"); ok {
		t.Error("unknown stage should not parse")
	}
}

func TestNewSnapshot(t *testing.T) {
	pc := NewPipelineContext(uuid.New(), uuid.New(), nil, nil)
	pc.MarkRunning()
	pc.CurrentStage = StageAdvancedAnalytics
	pc.CompletedStages[StageInsightGeneration] = true
	pc.CompletedStages[StageQualityCheck] = true
	pc.Metrics.Progress = 35

	snap := NewSnapshot(pc)

	if snap.PipelineID != pc.PipelineID {
		t.Error("snapshot should carry pipeline id")
	}
	if snap.Status != StatusRunning {
		t.Errorf("expected RUNNING, got %s", snap.Status)
	}
	// Завершённые этапы — в порядке последовательности, не map-порядке.
	want := []Stage{StageQualityCheck, StageInsightGeneration}
	if len(snap.CompletedStages) != len(want) {
		t.Fatalf("expected %d completed stages, got %d", len(want), len(snap.CompletedStages))
	}
	for i, s := range want {
		if snap.CompletedStages[i] != s {
			t.Errorf("completed[%d] = %s, want %s", i, snap.CompletedStages[i], s)
		}
	}
}
