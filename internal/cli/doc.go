// Package cli реализует инструмент командной строки Analytica.
//
// # Обзор
//
// CLI — клиентская утилита для управления пайплайнами. Команды
// публикуются в RabbitMQ (оркестратор получает их через свой
// gateway), состояние читается из снимков recorder в PostgreSQL.
// HTTP API между CLI и оркестратором нет.
//
// # Ключевые компоненты
//
// ## Client
//
// Инкапсулирует публикацию командных сообщений и чтение снимков.
// Соединения открываются на время одного вызова.
//
//	client := cli.NewClient(amqpURL)
//	pipelineID, err := client.SendCommand(ctx, bus.TypePipelineStartRequest, id, nil)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success) — в stderr.
// Это позволяет использовать pipe: analytica pipeline list --json | jq .
//
// ## Commands
//
// Cobra-команды:
//   - pipeline: create, start, pause, resume, cancel, decide,
//     cleanup, status, list
//
// Группа создаётся через фабричную функцию NewPipelineCmd,
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
