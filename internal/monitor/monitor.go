package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/mq"
)

// componentID — идентификатор монитора в metadata сообщений.
const componentID = "monitoring"

// defaultSchedule — частота снятия метрик по умолчанию.
const defaultSchedule = "@every 30s"

// Monitor периодически снимает метрики хоста и публикует
// MONITORING_METRICS_UPDATE широковещательно для всех пайплайнов.
type Monitor struct {
	collector *Collector
	publisher *mq.Publisher
	schedule  string
	logger    *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// Config — конфигурация Monitor.
type Config struct {
	// Publisher — публикатор в RabbitMQ.
	Publisher *mq.Publisher

	// Schedule — cron-выражение или descriptor (default: "@every 30s").
	Schedule string

	// Collector — сборщик метрик (опционально; если nil — NewCollector()).
	Collector *Collector

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт новый Monitor.
func New(cfg Config) *Monitor {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	collector := cfg.Collector
	if collector == nil {
		collector = NewCollector()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		collector: collector,
		publisher: cfg.Publisher,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start запускает периодическое снятие метрик.
func (m *Monitor) Start(ctx context.Context) error {
	m.cron = cron.New()

	entryID, err := m.cron.AddFunc(m.schedule, func() {
		if err := m.Tick(ctx); err != nil {
			m.logger.Error("monitoring tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add cron entry %q: %w", m.schedule, err)
	}
	m.entryID = entryID

	m.cron.Start()
	m.logger.Info("monitor started", "schedule", m.schedule)
	return nil
}

// Stop останавливает Monitor и дожидается завершения текущего тика.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.logger.Info("monitor stopped")
}

// Tick снимает метрики и публикует одно широковещательное сообщение.
func (m *Monitor) Tick(ctx context.Context) error {
	usage, err := m.collector.Collect()
	if err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	msg := bus.NewMessage(bus.TypeMonitoringMetricsUpdate, uuid.Nil, uuid.Nil, map[string]any{
		"cpu_usage":    usage.CPU,
		"memory_usage": usage.Memory,
		"disk_usage":   usage.Disk,
	})
	msg.Metadata = bus.Metadata{SourceComponent: componentID}

	if err := m.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish metrics: %w", err)
	}

	m.logger.Debug("metrics published",
		"cpu_usage", usage.CPU,
		"memory_usage", usage.Memory,
		"disk_usage", usage.Disk,
	)
	return nil
}
