package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/Analytica/internal/bus"
)

// gatewayComponentID — идентификатор шлюза на локальной шине.
const gatewayComponentID = "mq-gateway"

// Gateway связывает локальную шину с RabbitMQ.
//
// Наружу уходят только сообщения, исходящие от оркестратора; сообщения,
// пришедшие из AMQP, публикуются на локальную шину. Оба направления
// фильтруются по Metadata.SourceComponent, чтобы сообщение не ходило
// по кругу bus → AMQP → bus.
type Gateway struct {
	bus    *bus.Bus
	pub    *Publisher
	conn   *Connection
	logger *slog.Logger

	// relaySource — компонент, чьи сообщения ретранслируются в AMQP.
	relaySource string

	// queues — очереди, из которых шлюз читает входящие сообщения.
	queues []string

	consumers []*Consumer
	wg        sync.WaitGroup
}

// GatewayConfig — конфигурация шлюза.
type GatewayConfig struct {
	// Bus — локальная шина сообщений.
	Bus *bus.Bus

	// Connection — соединение с RabbitMQ.
	Connection *Connection

	// RelaySource — SourceComponent исходящих сообщений (обычно "orchestrator").
	RelaySource string

	// Queues — очереди для входящих сообщений.
	Queues []string

	// Logger — логгер.
	Logger *slog.Logger
}

// NewGateway создаёт новый Gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("nil bus")
	}
	if cfg.Connection == nil {
		return nil, fmt.Errorf("nil connection")
	}
	if cfg.RelaySource == "" {
		return nil, fmt.Errorf("empty relay source")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		bus:         cfg.Bus,
		pub:         NewPublisher(cfg.Connection, logger),
		conn:        cfg.Connection,
		logger:      logger,
		relaySource: cfg.RelaySource,
		queues:      cfg.Queues,
	}, nil
}

// Start подписывает шлюз на локальную шину и запускает consumers.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.bus.Subscribe(gatewayComponentID, "*", g.relayOutbound); err != nil {
		return fmt.Errorf("subscribe gateway: %w", err)
	}

	for _, queue := range g.queues {
		consumer := NewConsumer(g.conn, g.logger, ConsumerConfig{
			Queue:   queue,
			Handler: g.relayInbound,
		})
		g.consumers = append(g.consumers, consumer)

		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				g.logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	g.logger.Info("gateway started", "queues", g.queues)
	return nil
}

// relayOutbound ретранслирует сообщение с локальной шины в AMQP.
func (g *Gateway) relayOutbound(ctx context.Context, msg *bus.Message) error {
	// Наружу уходят только сообщения оркестратора; всё остальное
	// пришло из AMQP и уже есть у брокера.
	if msg.Metadata.SourceComponent != g.relaySource {
		return nil
	}
	// Внутреннее сообщение, снаружи никому не нужно.
	if msg.Type == bus.TypePipelineStageRetry {
		return nil
	}

	if err := g.pub.Publish(ctx, msg); err != nil {
		g.logger.Error("failed to relay message to AMQP",
			"type", msg.Type,
			"pipeline_id", msg.PipelineID,
			"error", err,
		)
		return err
	}
	return nil
}

// relayInbound публикует сообщение из AMQP на локальную шину.
func (g *Gateway) relayInbound(_ context.Context, msg *bus.Message) error {
	// Эхо собственных сообщений оркестратора не возвращаем на шину.
	if msg.Metadata.SourceComponent == g.relaySource {
		return nil
	}

	g.bus.Publish(msg)
	return nil
}

// Stop останавливает consumers и отписывает шлюз от шины.
func (g *Gateway) Stop() {
	for _, consumer := range g.consumers {
		consumer.Stop()
	}
	g.wg.Wait()
	g.bus.UnsubscribeAll(gatewayComponentID)

	g.logger.Info("gateway stopped")
}
