package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип сообщения. Закрытый enum: диспетчеризация в
// orchestrator идёт исчерпывающим switch по этим константам, без
// строковых таблиц обработчиков.
type MessageType string

// Управляющие сообщения (входящие в orchestrator).
const (
	TypePipelineCreateRequest      MessageType = "PIPELINE_CREATE_REQUEST"
	TypePipelineStartRequest       MessageType = "PIPELINE_START_REQUEST"
	TypePipelinePauseRequest       MessageType = "PIPELINE_PAUSE_REQUEST"
	TypePipelineResumeRequest      MessageType = "PIPELINE_RESUME_REQUEST"
	TypePipelineCancelRequest      MessageType = "PIPELINE_CANCEL_REQUEST"
	TypePipelineCleanupRequest     MessageType = "PIPELINE_CLEANUP_REQUEST"
	TypePipelineDecisionResolution MessageType = "PIPELINE_DECISION_RESOLUTION"
)

// События этапов (входящие в orchestrator).
const (
	TypePipelineStageComplete MessageType = "PIPELINE_STAGE_COMPLETE"
	TypePipelineStageError    MessageType = "PIPELINE_STAGE_ERROR"

	TypeQualityProcessComplete        MessageType = "QUALITY_PROCESS_COMPLETE"
	TypeInsightGenerateComplete       MessageType = "INSIGHT_GENERATE_COMPLETE"
	TypeAnalyticsProcessComplete      MessageType = "ANALYTICS_PROCESS_COMPLETE"
	TypeDecisionProcessComplete       MessageType = "DECISION_PROCESS_COMPLETE"
	TypeRecommendationProcessComplete MessageType = "RECOMMENDATION_PROCESS_COMPLETE"
	TypeReportProcessComplete         MessageType = "REPORT_PROCESS_COMPLETE"
)

// Мониторинг и ресурсы (входящие в orchestrator).
const (
	TypeMonitoringMetricsUpdate MessageType = "MONITORING_METRICS_UPDATE"
	TypeMonitoringAlertGenerate MessageType = "MONITORING_ALERT_GENERATE"
	TypeResourceAccessGrant     MessageType = "RESOURCE_ACCESS_GRANT"
	TypeResourceAccessDeny      MessageType = "RESOURCE_ACCESS_DENY"
)

// Исходящие из orchestrator.
const (
	TypePipelineCreateComplete  MessageType = "PIPELINE_CREATE_COMPLETE"
	TypePipelineStartComplete   MessageType = "PIPELINE_START_COMPLETE"
	TypePipelinePauseComplete   MessageType = "PIPELINE_PAUSE_COMPLETE"
	TypePipelineResumeComplete  MessageType = "PIPELINE_RESUME_COMPLETE"
	TypePipelineCancelComplete  MessageType = "PIPELINE_CANCEL_COMPLETE"
	TypePipelineCleanupComplete MessageType = "PIPELINE_CLEANUP_COMPLETE"

	TypePipelineStageStatusUpdate MessageType = "PIPELINE_STAGE_STATUS_UPDATE"
	TypePipelineErrorNotify       MessageType = "PIPELINE_ERROR_NOTIFY"
	TypePipelineMetricsUpdate     MessageType = "PIPELINE_METRICS_UPDATE"

	TypeResourceAccessRequest  MessageType = "RESOURCE_ACCESS_REQUEST"
	TypeResourceReleaseRequest MessageType = "RESOURCE_RELEASE_REQUEST"
)

// Команды старта этапов (исходящие к внешним stage-компонентам).
const (
	TypeQualityProcessStart        MessageType = "QUALITY_PROCESS_START"
	TypeInsightGenerateStart       MessageType = "INSIGHT_GENERATE_START"
	TypeAnalyticsProcessStart      MessageType = "ANALYTICS_PROCESS_START"
	TypeDecisionProcessStart       MessageType = "DECISION_PROCESS_START"
	TypeRecommendationProcessStart MessageType = "RECOMMENDATION_PROCESS_START"
	TypeReportProcessStart         MessageType = "REPORT_PROCESS_START"
)

// Внутреннее сообщение таймера retry: не пересекает границу процесса.
const (
	TypePipelineStageRetry MessageType = "PIPELINE_STAGE_RETRY"
)

// Topic возвращает топик сообщения: нижний регистр, "_" → ".".
// Например, PIPELINE_STAGE_COMPLETE → "pipeline.stage.complete".
func (t MessageType) Topic() string {
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", ".")
}

// Metadata — служебные поля сообщения.
type Metadata struct {
	// SourceComponent — компонент-отправитель.
	SourceComponent string `json:"source_component,omitempty"`

	// TargetComponent — компонент-получатель (информативно, не маршрутизация).
	TargetComponent string `json:"target_component,omitempty"`

	// ProcessingStage — этап, к которому относится сообщение.
	ProcessingStage string `json:"processing_stage,omitempty"`

	// IsRetry — сообщение выпущено повторно по retry-политике.
	IsRetry bool `json:"is_retry,omitempty"`

	// CancellationRequested — кооперативный флаг отмены: stage-компонент
	// обязан проверить его перед применением дальнейших side effects.
	CancellationRequested bool `json:"cancellation_requested,omitempty"`
}

// Message — конверт сообщения.
//
// Все взаимодействия — orchestrator, stage-компоненты, мониторинг,
// recorder, CLI — используют этот конверт, локально и через AMQP.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID uuid.UUID `json:"id"`

	// PipelineID — идентификатор pipeline. Нулевой UUID — broadcast
	// (используется мониторинговыми сообщениями для всех pipeline).
	PipelineID uuid.UUID `json:"pipeline_id"`

	// CorrelationID — идентификатор, связывающий сообщения одного запуска.
	CorrelationID uuid.UUID `json:"correlation_id"`

	// Type — тип сообщения.
	Type MessageType `json:"message_type"`

	// Content — полезная нагрузка.
	Content map[string]any `json:"content,omitempty"`

	// Metadata — служебные поля.
	Metadata Metadata `json:"metadata"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с заполненными ID и timestamp.
func NewMessage(t MessageType, pipelineID, correlationID uuid.UUID, content map[string]any) *Message {
	return &Message{
		ID:            uuid.New(),
		PipelineID:    pipelineID,
		CorrelationID: correlationID,
		Type:          t,
		Content:       content,
		Timestamp:     time.Now(),
	}
}

// Topic возвращает топик сообщения.
func (m *Message) Topic() string {
	return m.Type.Topic()
}

// IsBroadcast возвращает true, если сообщение адресовано всем pipeline.
func (m *Message) IsBroadcast() bool {
	return m.PipelineID == uuid.Nil
}

// ParseContent парсит content сообщения в указанный тип.
func ParseContent[T any](msg *Message) (T, error) {
	var result T

	raw, err := json.Marshal(msg.Content)
	if err != nil {
		return result, fmt.Errorf("marshal content: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("unmarshal content: %w", err)
	}
	return result, nil
}
