package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/shaiso/Analytica/internal/domain"
)

// requiredResultFields — обязательные поля результатов для каждого этапа.
// Проверяются до принятия завершения: отсутствие поля — это invalid
// completion (ошибка без смены состояния), а не validation failure.
var requiredResultFields = map[domain.Stage][]string{
	domain.StageQualityCheck:      {"quality_score", "issues"},
	domain.StageInsightGeneration: {"insights"},
	domain.StageAdvancedAnalytics: {"analysis_results", "metrics", "model_performance"},
	domain.StageDecisionMaking:    {"decisions"},
	domain.StageRecommendation:    {"recommendations"},
	domain.StageReportGeneration:  {"report_url"},
}

// RequiredResultFields возвращает обязательные поля результатов этапа.
func RequiredResultFields(stage domain.Stage) []string {
	return requiredResultFields[stage]
}

// CheckRequiredFields проверяет наличие обязательных полей результатов.
func CheckRequiredFields(stage domain.Stage, results map[string]any) error {
	for _, field := range requiredResultFields[stage] {
		if _, ok := results[field]; !ok {
			return NewValidationError(string(stage), field,
				fmt.Sprintf("missing required field %q", field), ErrMissingResultField)
		}
	}
	return nil
}

// Контракты результатов этапов как JSON Schema.
//
// Проверяют диапазоны и структуру после принятия завершения:
// нарушение контракта — это validation failure (decision gate),
// не invalid completion.
var resultContracts = map[domain.Stage]string{
	domain.StageQualityCheck: `{
		"type": "object",
		"required": ["quality_score", "issues"],
		"properties": {
			"quality_score": {"type": "number", "minimum": 0, "maximum": 100},
			"issues": {"type": "array"}
		}
	}`,
	domain.StageInsightGeneration: `{
		"type": "object",
		"required": ["insights"],
		"properties": {
			"insights": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["type", "description", "confidence"],
					"properties": {
						"type": {"type": "string"},
						"description": {"type": "string"},
						"confidence": {"type": "number", "minimum": 0, "maximum": 1}
					}
				}
			}
		}
	}`,
	domain.StageAdvancedAnalytics: `{
		"type": "object",
		"required": ["analysis_results", "metrics", "model_performance"]
	}`,
	domain.StageDecisionMaking: `{
		"type": "object",
		"required": ["decisions"],
		"properties": {
			"decisions": {"type": "array"},
			"requires_confirmation": {"type": "boolean"}
		}
	}`,
	domain.StageRecommendation: `{
		"type": "object",
		"required": ["recommendations"],
		"properties": {
			"recommendations": {"type": "array"}
		}
	}`,
	domain.StageReportGeneration: `{
		"type": "object",
		"required": ["report_url"],
		"properties": {
			"report_url": {"type": "string"}
		}
	}`,
}

// compiledContracts — скомпилированные схемы (этап → schema).
var compiledContracts = mustCompileContracts()

func mustCompileContracts() map[domain.Stage]*jsonschema.Schema {
	compiled := make(map[domain.Stage]*jsonschema.Schema, len(resultContracts))
	c := jsonschema.NewCompiler()

	for stage, src := range resultContracts {
		url := fmt.Sprintf("urn:analytica:contract:%s.json", strings.ToLower(string(stage)))

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			panic(fmt.Sprintf("contract for %s: %v", stage, err))
		}
		if err := c.AddResource(url, doc); err != nil {
			panic(fmt.Sprintf("contract for %s: %v", stage, err))
		}
		sch, err := c.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("contract for %s: %v", stage, err))
		}
		compiled[stage] = sch
	}
	return compiled
}

// ValidateResults проверяет результаты этапа по контракту.
// Результаты нормализуются через JSON round-trip: локальные публикации
// могут нести int вместо float64, схема работает с JSON-типами.
func ValidateResults(stage domain.Stage, results map[string]any) error {
	sch, ok := compiledContracts[stage]
	if !ok {
		return nil
	}

	normalized, err := normalizeJSON(results)
	if err != nil {
		return NewValidationError(string(stage), "", "results are not JSON-serializable", ErrResultContract)
	}

	if err := sch.Validate(normalized); err != nil {
		return NewValidationError(string(stage), "", err.Error(), ErrResultContract)
	}
	return nil
}

// normalizeJSON приводит значение к канонической JSON-форме
// (map[string]any, []any, float64, string, bool, nil).
func normalizeJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateSequence проверяет кастомную последовательность этапов.
func ValidateSequence(sequence []domain.Stage) error {
	if len(sequence) == 0 {
		return ErrEmptySequence
	}

	seen := make(map[domain.Stage]bool, len(sequence))
	for _, s := range sequence {
		if _, ok := domain.ParseStage(string(s)); !ok {
			return NewValidationError(string(s), "stage_sequence",
				fmt.Sprintf("unknown stage %q", s), ErrUnknownStage)
		}
		if seen[s] {
			return NewValidationError(string(s), "stage_sequence",
				fmt.Sprintf("stage %q appears twice", s), ErrDuplicateStage)
		}
		seen[s] = true
	}
	return nil
}

// ValidateDependencies проверяет, что граф зависимостей ссылается
// только на известные этапы.
func ValidateDependencies(deps map[domain.Stage][]domain.Stage) error {
	for stage, prereqs := range deps {
		if _, ok := domain.ParseStage(string(stage)); !ok {
			return NewValidationError(string(stage), "stage_dependencies",
				fmt.Sprintf("unknown stage %q", stage), ErrUnknownDependency)
		}
		for _, dep := range prereqs {
			if _, ok := domain.ParseStage(string(dep)); !ok {
				return NewValidationError(string(stage), "stage_dependencies",
					fmt.Sprintf("dependency on unknown stage %q", dep), ErrUnknownDependency)
			}
		}
	}
	return nil
}
