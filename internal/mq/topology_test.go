package mq

import (
	"testing"

	"github.com/shaiso/Analytica/internal/bus"
)

func TestQueueBindings_RetryIsInternalOnly(t *testing.T) {
	// Retry — внутреннее сообщение оркестратора: таймер публикует его
	// на локальную шину, наружу оно не уходит и ниоткуда не приходит.
	for queue, types := range queueBindings {
		for _, mt := range types {
			if mt == bus.TypePipelineStageRetry {
				t.Errorf("queue %s must not bind %s", queue, mt)
			}
		}
	}
}

func TestQueueBindings_NoDuplicates(t *testing.T) {
	for queue, types := range queueBindings {
		seen := make(map[bus.MessageType]bool)
		for _, mt := range types {
			if seen[mt] {
				t.Errorf("queue %s binds %s twice", queue, mt)
			}
			seen[mt] = true
		}
	}
}

func TestQueueBindings_AllQueuesPresent(t *testing.T) {
	for _, queue := range []string{
		QueueOrchestratorInbound,
		QueueStageCommands,
		QueuePipelineStatus,
		QueueResourceRequests,
	} {
		if len(queueBindings[queue]) == 0 {
			t.Errorf("queue %s has no bindings", queue)
		}
	}
}

func TestQueueBindings_InboundCoversControlPlane(t *testing.T) {
	inbound := make(map[bus.MessageType]bool)
	for _, mt := range queueBindings[QueueOrchestratorInbound] {
		inbound[mt] = true
	}

	// Всё, что оркестратор потребляет, кроме внутреннего retry,
	// должно доставляться через orchestrator.inbound.
	want := []bus.MessageType{
		bus.TypePipelineCreateRequest,
		bus.TypePipelineStartRequest,
		bus.TypePipelinePauseRequest,
		bus.TypePipelineResumeRequest,
		bus.TypePipelineCancelRequest,
		bus.TypePipelineCleanupRequest,
		bus.TypePipelineDecisionResolution,
		bus.TypePipelineStageComplete,
		bus.TypePipelineStageError,
		bus.TypeQualityProcessComplete,
		bus.TypeInsightGenerateComplete,
		bus.TypeAnalyticsProcessComplete,
		bus.TypeDecisionProcessComplete,
		bus.TypeRecommendationProcessComplete,
		bus.TypeReportProcessComplete,
		bus.TypeMonitoringMetricsUpdate,
		bus.TypeMonitoringAlertGenerate,
		bus.TypeResourceAccessGrant,
		bus.TypeResourceAccessDeny,
	}
	for _, mt := range want {
		if !inbound[mt] {
			t.Errorf("orchestrator.inbound is missing binding for %s", mt)
		}
	}
}

func TestQueueBindings_StageCommands(t *testing.T) {
	types := queueBindings[QueueStageCommands]
	if len(types) != 6 {
		t.Fatalf("expected 6 stage start commands, got %d", len(types))
	}
	for _, mt := range types {
		if mt.Topic() == "" {
			t.Errorf("binding %s has empty topic", mt)
		}
	}
}
