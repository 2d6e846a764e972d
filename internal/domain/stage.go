package domain

// Stage — этап аналитического pipeline.
type Stage string

// Шесть этапов pipeline в порядке выполнения по умолчанию.
const (
	// StageQualityCheck — проверка качества исходных данных.
	StageQualityCheck Stage = "QUALITY_CHECK"

	// StageInsightGeneration — извлечение инсайтов.
	StageInsightGeneration Stage = "INSIGHT_GENERATION"

	// StageAdvancedAnalytics — продвинутая аналитика (модели, метрики).
	StageAdvancedAnalytics Stage = "ADVANCED_ANALYTICS"

	// StageDecisionMaking — принятие решений на основе аналитики.
	StageDecisionMaking Stage = "DECISION_MAKING"

	// StageRecommendation — формирование рекомендаций.
	StageRecommendation Stage = "RECOMMENDATION"

	// StageReportGeneration — генерация итогового отчёта.
	StageReportGeneration Stage = "REPORT_GENERATION"
)

// DefaultSequence возвращает последовательность этапов по умолчанию.
// Каждый вызов возвращает новый slice — вызывающий может его модифицировать.
func DefaultSequence() []Stage {
	return []Stage{
		StageQualityCheck,
		StageInsightGeneration,
		StageAdvancedAnalytics,
		StageDecisionMaking,
		StageRecommendation,
		StageReportGeneration,
	}
}

// DefaultDependencies возвращает граф зависимостей этапов по умолчанию.
//
// Граф не совпадает с линейной последовательностью: зависимость — это
// независимый гейт, который может заблокировать следующий по порядку этап,
// если кастомная последовательность нарушает граф.
func DefaultDependencies() map[Stage][]Stage {
	return map[Stage][]Stage{
		StageQualityCheck:      {},
		StageInsightGeneration: {StageQualityCheck},
		StageAdvancedAnalytics: {StageQualityCheck},
		StageDecisionMaking:    {StageInsightGeneration, StageAdvancedAnalytics},
		StageRecommendation:    {StageDecisionMaking},
		StageReportGeneration:  {StageRecommendation},
	}
}

// progressWeights — веса этапов для расчёта прогресса (сумма = 100).
var progressWeights = map[Stage]int{
	StageQualityCheck:      15,
	StageInsightGeneration: 20,
	StageAdvancedAnalytics: 25,
	StageDecisionMaking:    15,
	StageRecommendation:    15,
	StageReportGeneration:  10,
}

// ProgressWeight возвращает вес этапа для расчёта прогресса.
// Для неизвестного этапа возвращает 0.
func ProgressWeight(s Stage) int {
	return progressWeights[s]
}

// ParseStage парсит строку в Stage.
// Возвращает false, если этап неизвестен.
func ParseStage(s string) (Stage, bool) {
	switch Stage(s) {
	case StageQualityCheck, StageInsightGeneration, StageAdvancedAnalytics,
		StageDecisionMaking, StageRecommendation, StageReportGeneration:
		return Stage(s), true
	default:
		return "", false
	}
}

// String возвращает строковое представление Stage.
func (s Stage) String() string {
	return string(s)
}
