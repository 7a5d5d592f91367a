// Package mq зеркалирует события выполнения флоу в RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий запусков и лог-записей
//   - consumer.go   — потребление потока (команда tail)
//
// Типы сообщений:
//   - run.started   — запуск флоу начат
//   - run.finished  — запуск флоу завершён
//   - log.entry     — лог-запись выполнения
//
// Зеркалирование опционально и best-effort: движок выполняет флоу
// одинаково с брокером и без него.
package mq
