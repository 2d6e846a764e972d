package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Analytica/internal/bus"
)

// Exchange — topic exchange, через который ходят все события пайплайнов.
const Exchange = "analytica.events"

// Имена очередей.
const (
	QueueOrchestratorInbound = "orchestrator.inbound"
	QueueStageCommands       = "stage.commands"
	QueuePipelineStatus      = "pipeline.status"
	QueueResourceRequests    = "resource.requests"
)

// queueBindings описывает привязки каждой очереди к routing keys.
// pipeline.stage.retry намеренно отсутствует: это внутреннее сообщение
// оркестратора, оно не должно приходить извне.
var queueBindings = map[string][]bus.MessageType{
	QueueOrchestratorInbound: {
		bus.TypePipelineCreateRequest,
		bus.TypePipelineStartRequest,
		bus.TypePipelinePauseRequest,
		bus.TypePipelineResumeRequest,
		bus.TypePipelineCancelRequest,
		bus.TypePipelineCleanupRequest,
		bus.TypePipelineDecisionResolution,
		bus.TypeQualityProcessComplete,
		bus.TypeInsightGenerateComplete,
		bus.TypeAnalyticsProcessComplete,
		bus.TypeDecisionProcessComplete,
		bus.TypeRecommendationProcessComplete,
		bus.TypeReportProcessComplete,
		bus.TypePipelineStageComplete,
		bus.TypePipelineStageError,
		bus.TypeResourceAccessGrant,
		bus.TypeResourceAccessDeny,
		bus.TypeMonitoringMetricsUpdate,
		bus.TypeMonitoringAlertGenerate,
	},
	QueueStageCommands: {
		bus.TypeQualityProcessStart,
		bus.TypeInsightGenerateStart,
		bus.TypeAnalyticsProcessStart,
		bus.TypeDecisionProcessStart,
		bus.TypeRecommendationProcessStart,
		bus.TypeReportProcessStart,
	},
	QueuePipelineStatus: {
		bus.TypePipelineStageStatusUpdate,
		bus.TypePipelineMetricsUpdate,
		bus.TypePipelineErrorNotify,
		bus.TypePipelineCreateComplete,
		bus.TypePipelineStartComplete,
		bus.TypePipelinePauseComplete,
		bus.TypePipelineResumeComplete,
		bus.TypePipelineCancelComplete,
		bus.TypePipelineCleanupComplete,
	},
	QueueResourceRequests: {
		bus.TypeResourceAccessRequest,
		bus.TypeResourceReleaseRequest,
	},
}

// DeclareTopology объявляет exchange, очереди и их привязки.
// Операция идемпотентна, её безопасно вызывать при каждом старте.
func DeclareTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(
			Exchange,
			"topic",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare exchange %s: %w", Exchange, err)
		}

		for queue, types := range queueBindings {
			if _, err := ch.QueueDeclare(
				queue,
				true,  // durable
				false, // auto-delete
				false, // exclusive
				false, // no-wait
				nil,
			); err != nil {
				return fmt.Errorf("declare queue %s: %w", queue, err)
			}

			for _, mt := range types {
				if err := ch.QueueBind(queue, mt.Topic(), Exchange, false, nil); err != nil {
					return fmt.Errorf("bind %s to %s: %w", queue, mt.Topic(), err)
				}
			}
		}

		return nil
	})
}
