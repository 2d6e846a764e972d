// Package engine содержит чистую логику секвенирования pipeline.
//
// Включает:
//   - sequencer.go — следующий этап, гейт зависимостей, взвешенный прогресс
//   - validate.go — валидация последовательности и контрактов результатов этапов
//
// Пакет не делает I/O и не знает про сообщения — orchestrator вызывает
// его из обработчиков.
package engine
