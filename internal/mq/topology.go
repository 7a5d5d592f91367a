package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeRuns — события жизненного цикла запусков.
	ExchangeRuns Exchange = "flowline.runs"

	// ExchangeLogs — поток лог-записей выполнения.
	ExchangeLogs Exchange = "flowline.logs"
)

// Queues — имена очередей.
const (
	QueueRunEvents Queue = "runs.events"
	QueueLogStream Queue = "logs.stream"
)

// Routing keys.
const (
	RoutingKeyStarted  RoutingKey = "started"
	RoutingKeyFinished RoutingKey = "finished"
	RoutingKeyEntry    RoutingKey = "entry"
)

// SetupTopology объявляет обменники, очереди и привязки.
// Идемпотентна: повторный вызов на живом брокере — no-op.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeRuns, ExchangeLogs} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// runs.events — события started/finished, долгоживущие
		{QueueRunEvents, nil},

		// logs.stream — поток лог-записей; TTL ограничивает рост
		// очереди, если её никто не читает
		{QueueLogStream, amqp.Table{"x-message-ttl": int32(600_000)}},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueRunEvents, RoutingKeyStarted, ExchangeRuns},
		{QueueRunEvents, RoutingKeyFinished, ExchangeRuns},
		{QueueLogStream, RoutingKeyEntry, ExchangeLogs},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Flowline RabbitMQ Topology:

    flowline.runs (direct)
    └── runs.events [routing: started, finished]
            Consumer: внешние интеграции

    flowline.logs (direct)
    └── logs.stream [routing: entry, TTL 10m]
            Consumer: flowline tail
  `
}
