// Package orchestrator реализует state machine аналитического pipeline.
//
// Оркестратор полностью событийный: вся входящая информация — сообщения
// локальной шины (создание/управление, завершения и ошибки этапов,
// мониторинг, решения по ресурсам). Он отвечает за:
//   - Реестр активных PipelineContext (actor на каждый pipeline)
//   - Секвенирование этапов и гейт зависимостей
//   - Retry с экспоненциальным backoff через таймеры
//   - Decision gates: validation/dependency/stage failure, подтверждения
//   - Принудительную паузу по ресурсным порогам
//
// Оркестратор не вызывает stage-компоненты и не трогает БД: наружу
// уходят только сообщения, персистентность снимков — забота recorder.
package orchestrator
