package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Analytica/internal/domain"
)

// --- NextStage Tests ---

func TestNextStage_DefaultSequence(t *testing.T) {
	seq := domain.DefaultSequence()

	next, ok := NextStage(seq, domain.StageQualityCheck)
	if !ok {
		t.Fatal("expected a next stage after QUALITY_CHECK")
	}
	if next != domain.StageInsightGeneration {
		t.Errorf("expected INSIGHT_GENERATION, got %s", next)
	}
}

func TestNextStage_LastStage(t *testing.T) {
	seq := domain.DefaultSequence()

	if _, ok := NextStage(seq, domain.StageReportGeneration); ok {
		t.Error("last stage should have no next stage")
	}
}

func TestNextStage_NotInSequence(t *testing.T) {
	seq := []domain.Stage{domain.StageQualityCheck, domain.StageReportGeneration}

	if _, ok := NextStage(seq, domain.StageDecisionMaking); ok {
		t.Error("stage outside the sequence should have no next stage")
	}
}

// --- CanProceedTo Tests ---

func TestCanProceedTo_DependenciesMet(t *testing.T) {
	deps := domain.DefaultDependencies()
	completed := map[domain.Stage]bool{
		domain.StageQualityCheck:      true,
		domain.StageInsightGeneration: true,
		domain.StageAdvancedAnalytics: true,
	}

	if !CanProceedTo(deps, completed, domain.StageDecisionMaking) {
		t.Error("DECISION_MAKING should be allowed with both prerequisites completed")
	}
}

func TestCanProceedTo_DependenciesUnmet(t *testing.T) {
	deps := domain.DefaultDependencies()
	completed := map[domain.Stage]bool{
		domain.StageQualityCheck:      true,
		domain.StageInsightGeneration: true,
	}

	if CanProceedTo(deps, completed, domain.StageDecisionMaking) {
		t.Error("DECISION_MAKING should be blocked without ADVANCED_ANALYTICS")
	}

	unmet := UnmetDependencies(deps, completed, domain.StageDecisionMaking)
	if len(unmet) != 1 || unmet[0] != domain.StageAdvancedAnalytics {
		t.Errorf("expected unmet [ADVANCED_ANALYTICS], got %v", unmet)
	}
}

func TestCanProceedTo_NoDependencies(t *testing.T) {
	deps := domain.DefaultDependencies()

	if !CanProceedTo(deps, map[domain.Stage]bool{}, domain.StageQualityCheck) {
		t.Error("QUALITY_CHECK has no prerequisites and should always be allowed")
	}
}

// --- Progress Tests ---

func TestProgress_DefaultSequence(t *testing.T) {
	seq := domain.DefaultSequence()
	completed := map[domain.Stage]bool{
		domain.StageQualityCheck:      true,
		domain.StageInsightGeneration: true,
	}

	// 15 + 20 из 100
	got := Progress(seq, completed)
	if got != 35 {
		t.Errorf("expected progress 35, got %v", got)
	}
}

func TestProgress_CustomSequenceNormalized(t *testing.T) {
	// Веса нормализуются: укороченная последовательность тоже
	// доходит ровно до 100.
	seq := []domain.Stage{domain.StageQualityCheck, domain.StageReportGeneration}

	half := Progress(seq, map[domain.Stage]bool{domain.StageQualityCheck: true})
	if half <= 0 || half >= 100 {
		t.Errorf("partial progress should be strictly between 0 and 100, got %v", half)
	}

	full := Progress(seq, map[domain.Stage]bool{
		domain.StageQualityCheck:     true,
		domain.StageReportGeneration: true,
	})
	if full != 100 {
		t.Errorf("expected progress 100 for fully completed custom sequence, got %v", full)
	}
}

func TestProgress_EmptySequence(t *testing.T) {
	if got := Progress(nil, nil); got != 0 {
		t.Errorf("expected 0 for empty sequence, got %v", got)
	}
}

// --- CompleteStage Tests ---

func TestCompleteStage(t *testing.T) {
	pc := domain.NewPipelineContext(uuid.New(), uuid.New(), nil, nil)

	CompleteStage(pc, domain.StageQualityCheck)

	if !pc.CompletedStages[domain.StageQualityCheck] {
		t.Error("stage should be marked as completed")
	}
	if pc.Metrics.StagesCompleted != 1 {
		t.Errorf("expected 1 completed stage, got %d", pc.Metrics.StagesCompleted)
	}
	if pc.Metrics.Progress != 15 {
		t.Errorf("expected progress 15, got %v", pc.Metrics.Progress)
	}
}

func TestCompleteStage_Monotonic(t *testing.T) {
	pc := domain.NewPipelineContext(uuid.New(), uuid.New(), nil, nil)

	var prev float64
	for _, s := range pc.StageSequence {
		CompleteStage(pc, s)
		if pc.Metrics.Progress < prev {
			t.Fatalf("progress went backwards at %s: %v < %v", s, pc.Metrics.Progress, prev)
		}
		prev = pc.Metrics.Progress
	}

	if prev != 100 {
		t.Errorf("expected final progress 100, got %v", prev)
	}
}
