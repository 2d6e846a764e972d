// Package bus реализует локальную pub/sub шину сообщений.
//
// Шина связывает orchestrator с остальными компонентами процесса.
// Внешняя нога (RabbitMQ) подключается через internal/mq.Gateway,
// который ретранслирует выбранные топики в обе стороны.
//
// Гарантии: FIFO на пару (топик, подписчик), fire-and-forget publish,
// изоляция ошибок и паник обработчиков. Durability нет.
package bus
