package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/telemetry"
)

// ComponentID — идентификатор оркестратора на шине.
const ComponentID = "orchestrator"

// Default configuration values.
const (
	defaultMaxRetries   = 3
	defaultRetryUnit    = time.Second
	defaultMailboxSize  = 64
	maxRetryDelayFactor = 30
)

// defaultThresholds — пороги ресурсных метрик для принудительной паузы.
func defaultThresholds() map[string]float64 {
	return map[string]float64{
		"cpu_usage":    90,
		"memory_usage": 85,
		"disk_usage":   90,
	}
}

// Orchestrator управляет выполнением pipelines.
//
// Orchestrator — центральный state machine системы, который:
//   - Реагирует на входящие сообщения с шины (create/start/pause/…)
//   - Держит реестр активных PipelineContext
//   - Секвенирует этапы с учётом графа зависимостей
//   - Ведёт retry с экспоненциальным backoff через таймеры
//   - Открывает decision gates и применяет их разрешения
//   - Приостанавливает pipelines при нарушении ресурсных порогов
//
// Вся мутация контекста одного pipeline сериализована: у каждого
// pipeline своя actor-горутина с mailbox. Разные pipelines
// обрабатываются полностью параллельно.
type Orchestrator struct {
	bus     *bus.Bus
	logger  *slog.Logger
	metrics *telemetry.Metrics

	// Retry policy
	maxRetries int
	retryUnit  time.Duration

	// Resource thresholds (metric name → порог)
	thresholds map[string]float64

	// Active pipelines — pipelineID → actor
	mu        sync.RWMutex
	pipelines map[uuid.UUID]*pipelineWorker

	mailboxSize int

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopped   bool
	stoppedMu sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Bus — локальная шина сообщений.
	Bus *bus.Bus

	// MaxRetries — максимум retry на этап (default: 3).
	MaxRetries int

	// RetryUnit — единица backoff-задержки (default: 1s).
	// delay = min(2^count, 30) * RetryUnit. В тестах уменьшается.
	RetryUnit time.Duration

	// MailboxSize — размер mailbox actor-горутины (default: 64).
	MailboxSize int

	// Thresholds — пороги ресурсных метрик
	// (default: cpu_usage 90, memory_usage 85, disk_usage 90).
	Thresholds map[string]float64

	// Metrics — Prometheus метрики (опционально).
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	retryUnit := cfg.RetryUnit
	if retryUnit <= 0 {
		retryUnit = defaultRetryUnit
	}

	mailboxSize := cfg.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = defaultMailboxSize
	}

	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = defaultThresholds()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		bus:         cfg.Bus,
		logger:      logger,
		metrics:     cfg.Metrics,
		maxRetries:  maxRetries,
		retryUnit:   retryUnit,
		thresholds:  thresholds,
		pipelines:   make(map[uuid.UUID]*pipelineWorker),
		mailboxSize: mailboxSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// inboundTypes — все типы, которые оркестратор потребляет с шины.
// Подписка идёт по точным топикам: wildcard зацепил бы собственные
// исходящие pipeline.* сообщения.
var inboundTypes = []bus.MessageType{
	bus.TypePipelineCreateRequest,
	bus.TypePipelineStartRequest,
	bus.TypePipelinePauseRequest,
	bus.TypePipelineResumeRequest,
	bus.TypePipelineCancelRequest,
	bus.TypePipelineCleanupRequest,
	bus.TypePipelineDecisionResolution,
	bus.TypePipelineStageComplete,
	bus.TypePipelineStageError,
	bus.TypePipelineStageRetry,
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

// Start подписывает оркестратор на входящие топики шины.
func (o *Orchestrator) Start() error {
	o.logger.Info("starting orchestrator",
		"max_retries", o.maxRetries,
		"thresholds", o.thresholds,
	)

	for _, t := range inboundTypes {
		if err := o.bus.Subscribe(ComponentID, t.Topic(), o.route); err != nil {
			return err
		}
	}

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает оркестратор: снимает подписки и ждёт завершения
// actor-горутин. Контексты не финализируются — остановка процесса не
// меняет состояния pipelines.
func (o *Orchestrator) Stop() {
	o.stoppedMu.Lock()
	if o.stopped {
		o.stoppedMu.Unlock()
		return
	}
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator...")

	o.bus.UnsubscribeAll(ComponentID)
	o.cancel()
	o.wg.Wait()

	o.logger.Info("orchestrator stopped",
		"active_pipelines", o.ActivePipelinesCount(),
	)
}

// IsStopped проверяет, остановлен ли оркестратор.
func (o *Orchestrator) IsStopped() bool {
	o.stoppedMu.RLock()
	defer o.stoppedMu.RUnlock()
	return o.stopped
}

// route — обработчик шины: маршрутизирует сообщение в actor нужного
// pipeline. Выполняется на горутине подписки, контекст не трогает.
func (o *Orchestrator) route(ctx context.Context, msg *bus.Message) error {
	if o.IsStopped() {
		return ErrOrchestratorStopped
	}

	// Создание — единственная операция уровня реестра.
	if msg.Type == bus.TypePipelineCreateRequest {
		return o.handleCreate(msg)
	}

	// Broadcast-мониторинг раздаётся всем активным pipelines.
	if msg.IsBroadcast() {
		if msg.Type == bus.TypeMonitoringMetricsUpdate || msg.Type == bus.TypeMonitoringAlertGenerate {
			o.fanOut(msg)
			return nil
		}
		o.logger.Warn("broadcast not allowed for message type", "type", msg.Type)
		return nil
	}

	w := o.getWorker(msg.PipelineID)
	if w == nil {
		o.logger.Warn("message for unknown pipeline",
			"pipeline_id", msg.PipelineID,
			"type", msg.Type,
		)
		o.notifyUnknownPipeline(msg)
		return ErrPipelineNotFound
	}

	w.enqueue(msg)
	return nil
}

// fanOut раздаёт broadcast-сообщение всем активным pipelines.
func (o *Orchestrator) fanOut(msg *bus.Message) {
	o.mu.RLock()
	workers := make([]*pipelineWorker, 0, len(o.pipelines))
	for _, w := range o.pipelines {
		workers = append(workers, w)
	}
	o.mu.RUnlock()

	for _, w := range workers {
		w.enqueue(msg)
	}
}

// notifyUnknownPipeline отвечает error notification на сообщение
// для неизвестного pipeline.
func (o *Orchestrator) notifyUnknownPipeline(msg *bus.Message) {
	notify := bus.NewMessage(bus.TypePipelineErrorNotify, msg.PipelineID, msg.CorrelationID, map[string]any{
		"error":             "pipeline not found",
		"requires_decision": false,
		"rejected_type":     string(msg.Type),
	})
	notify.Metadata.SourceComponent = ComponentID
	o.publish(notify)
}

// publish публикует сообщение на шину с учётом метрик.
func (o *Orchestrator) publish(msg *bus.Message) {
	if o.metrics != nil {
		o.metrics.MessagesPublished.WithLabelValues(string(msg.Type)).Inc()
	}
	o.bus.Publish(msg)
}

// getWorker возвращает actor pipeline или nil.
func (o *Orchestrator) getWorker(pipelineID uuid.UUID) *pipelineWorker {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pipelines[pipelineID]
}

// addWorker регистрирует actor нового pipeline.
func (o *Orchestrator) addWorker(w *pipelineWorker) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.pipelines[w.pc.PipelineID]; exists {
		return ErrPipelineAlreadyExists
	}
	o.pipelines[w.pc.PipelineID] = w

	if o.metrics != nil {
		o.metrics.PipelinesActive.Set(float64(len(o.pipelines)))
	}
	return nil
}

// removeWorker удаляет pipeline из активного реестра.
func (o *Orchestrator) removeWorker(pipelineID uuid.UUID) {
	o.mu.Lock()
	delete(o.pipelines, pipelineID)
	count := len(o.pipelines)
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.PipelinesActive.Set(float64(count))
	}
}

// ActivePipelinesCount возвращает количество активных pipelines.
func (o *Orchestrator) ActivePipelinesCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.pipelines)
}

// retryDelay возвращает backoff-задержку для попытки count.
// delay = min(2^count, 30) единиц.
func (o *Orchestrator) retryDelay(count int) time.Duration {
	factor := 1 << count
	if factor > maxRetryDelayFactor {
		factor = maxRetryDelayFactor
	}
	return time.Duration(factor) * o.retryUnit
}
