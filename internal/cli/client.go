package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/domain"
	"github.com/shaiso/Analytica/internal/mq"
	"github.com/shaiso/Analytica/internal/repo"
)

// componentID — идентификатор CLI в metadata сообщений.
const componentID = "cli"

// Client отправляет команды пайплайнам через RabbitMQ и читает
// их состояние из снимков recorder в БД.
//
// Соединения открываются на время одного вызова: CLI — одноразовый
// процесс, держать соединение между командами незачем.
type Client struct {
	amqpURL string
	logger  *slog.Logger
}

// NewClient создаёт новый Client.
func NewClient(amqpURL string) *Client {
	// Команды печатают результат сами, служебные логи не нужны.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &Client{
		amqpURL: amqpURL,
		logger:  logger,
	}
}

// SendCommand публикует командное сообщение и возвращает pipeline ID
// (сгенерированный, если передан uuid.Nil).
func (c *Client) SendCommand(ctx context.Context, msgType bus.MessageType, pipelineID uuid.UUID, content map[string]any) (uuid.UUID, error) {
	if pipelineID == uuid.Nil {
		pipelineID = uuid.New()
	}

	conn, err := mq.NewConnection(c.amqpURL, c.logger)
	if err != nil {
		return uuid.Nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	if err := mq.DeclareTopology(conn); err != nil {
		return uuid.Nil, fmt.Errorf("declare topology: %w", err)
	}

	msg := bus.NewMessage(msgType, pipelineID, uuid.New(), content)
	msg.Metadata = bus.Metadata{
		SourceComponent: componentID,
		TargetComponent: "orchestrator",
	}

	pub := mq.NewPublisher(conn, c.logger)
	if err := pub.Publish(ctx, msg); err != nil {
		return uuid.Nil, fmt.Errorf("publish %s: %w", msgType, err)
	}

	return pipelineID, nil
}

// Status возвращает последний снимок пайплайна.
func (c *Client) Status(ctx context.Context, pipelineID uuid.UUID) (*domain.Snapshot, error) {
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	return repo.NewSnapshotRepo(pool).GetByID(ctx, pipelineID)
}

// List возвращает снимки пайплайнов с фильтрацией по статусу.
func (c *Client) List(ctx context.Context, status string, limit int) ([]domain.Snapshot, error) {
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	return repo.NewSnapshotRepo(pool).List(ctx, repo.SnapshotFilter{
		Status: domain.PipelineStatus(status),
		Limit:  limit,
	})
}
