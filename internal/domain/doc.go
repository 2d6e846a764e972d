// Package domain содержит доменные типы pipeline-оркестрации.
//
// Здесь нет I/O и бизнес-логики переходов — только данные, статусные
// enum'ы и мутаторы контекста. Логика секвенирования живёт в engine,
// state machine — в orchestrator.
package domain
