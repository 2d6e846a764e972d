// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, queues, bindings
//   - publisher.go  — публикация сообщений пайплайнов
//   - consumer.go   — потребление сообщений из очередей
//   - gateway.go    — ретрансляция между локальной шиной и AMQP
//
// Exchange:
//   - analytica.events — topic exchange, routing key = топик сообщения
//
// Очереди:
//   - orchestrator.inbound — команды и результаты стадий для оркестратора
//   - stage.commands       — команды запуска стадий для внешних обработчиков
//   - pipeline.status      — статусы, метрики и ошибки пайплайнов
//   - resource.requests    — запросы на выделение и освобождение ресурсов
package mq
