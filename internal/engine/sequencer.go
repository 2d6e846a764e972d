package engine

import (
	"github.com/shaiso/Analytica/internal/domain"
)

// NextStage возвращает этап, следующий за current в sequence.
// Возвращает false, если current — последний этап или не входит в sequence.
func NextStage(sequence []domain.Stage, current domain.Stage) (domain.Stage, bool) {
	for i, s := range sequence {
		if s == current {
			if i+1 < len(sequence) {
				return sequence[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// CanProceedTo проверяет гейт зависимостей: этап может стартовать,
// только если все его prerequisites завершены.
func CanProceedTo(deps map[domain.Stage][]domain.Stage, completed map[domain.Stage]bool, stage domain.Stage) bool {
	for _, dep := range deps[stage] {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// UnmetDependencies возвращает незавершённые prerequisites этапа.
// Порядок соответствует порядку объявления зависимостей.
func UnmetDependencies(deps map[domain.Stage][]domain.Stage, completed map[domain.Stage]bool, stage domain.Stage) []domain.Stage {
	var unmet []domain.Stage
	for _, dep := range deps[stage] {
		if !completed[dep] {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// Progress вычисляет взвешенный прогресс, 0..100.
//
// Веса нормализуются по этапам последовательности, поэтому прогресс
// равен ровно 100, когда завершены все этапы sequence — в том числе
// для кастомных (укороченных) последовательностей.
func Progress(sequence []domain.Stage, completed map[domain.Stage]bool) float64 {
	var total, done int
	for _, s := range sequence {
		w := domain.ProgressWeight(s)
		total += w
		if completed[s] {
			done += w
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// CompleteStage помечает этап завершённым и пересчитывает прогресс.
func CompleteStage(p *domain.PipelineContext, stage domain.Stage) {
	p.CompletedStages[stage] = true
	p.Metrics.StagesCompleted = len(p.CompletedStages)
	p.Metrics.Progress = Progress(p.StageSequence, p.CompletedStages)
	p.Touch()
}
