package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Analytica/internal/domain"
)

// --- CheckRequiredFields Tests ---

func TestCheckRequiredFields_AllPresent(t *testing.T) {
	results := map[string]any{
		"quality_score": 87.5,
		"issues":        []any{},
	}

	if err := CheckRequiredFields(domain.StageQualityCheck, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckRequiredFields_Missing(t *testing.T) {
	results := map[string]any{
		"quality_score": 87.5,
	}

	err := CheckRequiredFields(domain.StageQualityCheck, results)
	if err == nil {
		t.Fatal("expected error for missing issues field")
	}
	if !errors.Is(err, ErrMissingResultField) {
		t.Errorf("expected ErrMissingResultField, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("expected ValidationError")
	}
	if verr.Field != "issues" {
		t.Errorf("expected field issues, got %q", verr.Field)
	}
}

// --- ValidateResults Tests ---

func TestValidateResults_QualityCheckValid(t *testing.T) {
	results := map[string]any{
		"quality_score": 92,
		"issues":        []any{"minor gaps in series"},
	}

	if err := ValidateResults(domain.StageQualityCheck, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateResults_QualityScoreOutOfRange(t *testing.T) {
	results := map[string]any{
		"quality_score": 150,
		"issues":        []any{},
	}

	err := ValidateResults(domain.StageQualityCheck, results)
	if err == nil {
		t.Fatal("expected contract violation for quality_score 150")
	}
	if !errors.Is(err, ErrResultContract) {
		t.Errorf("expected ErrResultContract, got %v", err)
	}
}

func TestValidateResults_InsightConfidenceOutOfRange(t *testing.T) {
	results := map[string]any{
		"insights": []any{
			map[string]any{
				"type":        "trend",
				"description": "upward trend in Q3",
				"confidence":  1.7,
			},
		},
	}

	err := ValidateResults(domain.StageInsightGeneration, results)
	if err == nil {
		t.Fatal("expected contract violation for confidence above 1")
	}
	if !errors.Is(err, ErrResultContract) {
		t.Errorf("expected ErrResultContract, got %v", err)
	}
}

func TestValidateResults_NormalizesGoInts(t *testing.T) {
	// Локальные публикации несут int, схема работает с JSON-числами.
	results := map[string]any{
		"quality_score": int(100),
		"issues":        []string{},
	}

	if err := ValidateResults(domain.StageQualityCheck, results); err != nil {
		t.Fatalf("unexpected error for int score: %v", err)
	}
}

func TestValidateResults_ReportGeneration(t *testing.T) {
	ok := map[string]any{"report_url": "https://reports.local/r/42"}
	if err := ValidateResults(domain.StageReportGeneration, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := map[string]any{"report_url": 42}
	if err := ValidateResults(domain.StageReportGeneration, bad); err == nil {
		t.Fatal("expected contract violation for numeric report_url")
	}
}

// --- ValidateSequence Tests ---

func TestValidateSequence_Default(t *testing.T) {
	if err := ValidateSequence(domain.DefaultSequence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSequence_Empty(t *testing.T) {
	if err := ValidateSequence(nil); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("expected ErrEmptySequence, got %v", err)
	}
}

func TestValidateSequence_UnknownStage(t *testing.T) {
	seq := []domain.Stage{domain.StageQualityCheck, "DATA_MINING"}

	if err := ValidateSequence(seq); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestValidateSequence_Duplicate(t *testing.T) {
	seq := []domain.Stage{
		domain.StageQualityCheck,
		domain.StageInsightGeneration,
		domain.StageQualityCheck,
	}

	if err := ValidateSequence(seq); !errors.Is(err, ErrDuplicateStage) {
		t.Errorf("expected ErrDuplicateStage, got %v", err)
	}
}

// --- ValidateDependencies Tests ---

func TestValidateDependencies_Default(t *testing.T) {
	if err := ValidateDependencies(domain.DefaultDependencies()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDependencies_UnknownStage(t *testing.T) {
	deps := map[domain.Stage][]domain.Stage{
		"DATA_MINING": {domain.StageQualityCheck},
	}

	if err := ValidateDependencies(deps); !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestValidateDependencies_UnknownPrerequisite(t *testing.T) {
	deps := map[domain.Stage][]domain.Stage{
		domain.StageReportGeneration: {"DATA_MINING"},
	}

	if err := ValidateDependencies(deps); !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("expected ErrUnknownDependency, got %v", err)
	}
}
