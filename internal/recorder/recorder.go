package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
	"github.com/shaiso/Analytica/internal/mq"
	"github.com/shaiso/Analytica/internal/repo"
)

const defaultPrefetch = 10

// Recorder сохраняет снимки состояний пайплайнов в БД.
//
// Recorder — stateless компонент системы, который:
//   - Потребляет сообщения из очереди pipeline.status
//   - Сохраняет снимок из PIPELINE_STAGE_STATUS_UPDATE в pipeline_snapshots
//   - Остальные сообщения очереди подтверждает без обработки
//
// Оркестратор с БД не работает: вся персистентность живёт здесь,
// сбой recorder не влияет на выполнение пайплайнов.
type Recorder struct {
	snapshots *repo.SnapshotRepo

	conn     *mq.Connection
	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Recorder.
type Config struct {
	// SnapshotRepo — репозиторий снимков.
	SnapshotRepo *repo.SnapshotRepo

	// Conn — соединение с RabbitMQ.
	Conn *mq.Connection

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт новый Recorder.
func New(cfg Config) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		snapshots: cfg.SnapshotRepo,
		conn:      cfg.Conn,
		logger:    logger,
	}
}

// Start запускает потребление очереди статусов.
func (r *Recorder) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	r.consumer = mq.NewConsumer(r.conn, r.logger, mq.ConsumerConfig{
		Queue:    mq.QueuePipelineStatus,
		Handler:  r.handleStatusMessage,
		Prefetch: defaultPrefetch,
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("status consumer error", "error", err)
		}
	}()

	r.logger.Info("recorder started")
	return nil
}

// Stop останавливает Recorder.
func (r *Recorder) Stop() {
	r.logger.Info("stopping recorder...")

	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	if r.consumer != nil {
		r.consumer.Stop()
	}
	r.wg.Wait()

	r.logger.Info("recorder stopped")
}

// handleStatusMessage обрабатывает одно сообщение очереди статусов.
func (r *Recorder) handleStatusMessage(ctx context.Context, msg *bus.Message) error {
	// В очередь привязаны и ack/metrics/error сообщения: они нужны
	// внешним наблюдателям, recorder сохраняет только снимки.
	if msg.Type != bus.TypePipelineStageStatusUpdate {
		return nil
	}

	snap, err := bus.ParseContent[domain.Snapshot](msg)
	if err != nil {
		r.logger.Error("failed to parse snapshot",
			"message_id", msg.ID,
			"pipeline_id", msg.PipelineID,
			"error", err,
		)
		// Некорректный снимок не станет корректным после requeue.
		return nil
	}

	if err := r.snapshots.Upsert(ctx, &snap); err != nil {
		r.logger.Error("failed to store snapshot",
			"pipeline_id", snap.PipelineID,
			"status", snap.Status,
			"error", err,
		)
		return err
	}

	r.logger.Debug("snapshot stored",
		"pipeline_id", snap.PipelineID,
		"status", snap.Status,
		"progress", snap.Progress,
	)
	return nil
}
