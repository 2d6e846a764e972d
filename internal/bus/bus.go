package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// defaultMailboxSize — размер буфера очереди подписчика.
const defaultMailboxSize = 256

// Handler — функция обработки сообщения.
// Ошибка логируется шиной и никогда не доходит до публикующего.
type Handler func(ctx context.Context, msg *Message) error

// subscription — одна подписка: собственная очередь и горутина-доставщик.
// Доставка через одну горутину даёт FIFO для пары (топик, подписчик).
//
// done закрывается при снятии подписки. Mailbox никогда не закрывается:
// Publish может блокироваться на полной очереди в момент снятия, и
// закрытие канала из-под отправителя уронило бы публикующую горутину.
type subscription struct {
	component string
	pattern   string
	handler   Handler
	mailbox   chan *Message
	done      chan struct{}
}

// Bus — локальная (process-scoped) pub/sub шина.
//
// Контракт:
//   - Publish — fire-and-forget: возврат не ждёт обработки, ошибки и
//     паники обработчиков гасятся и логируются
//   - FIFO на пару (топик, подписчик); глобального порядка нет
//   - никакой durability — это не персистентный лог
//
// Топик-паттерны: точное совпадение, "*" (всё) или префикс с
// завершающим "*", например "pipeline.*".
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]*subscription // componentID → подписки
	closed bool

	mailboxSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config — конфигурация шины.
type Config struct {
	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger

	// MailboxSize — размер буфера очереди подписчика (default: 256).
	// При переполнении Publish блокируется до освобождения места.
	MailboxSize int
}

// New создаёт новую шину.
func New(cfg Config) *Bus {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mailboxSize := cfg.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = defaultMailboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bus{
		logger:      logger,
		subs:        make(map[string][]*subscription),
		mailboxSize: mailboxSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe регистрирует обработчик компонента на топик-паттерн.
// Один компонент может держать несколько подписок.
func (b *Bus) Subscribe(componentID, topicPattern string, handler Handler) error {
	if componentID == "" {
		return fmt.Errorf("empty component id")
	}
	if handler == nil {
		return fmt.Errorf("nil handler for component %s", componentID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	sub := &subscription{
		component: componentID,
		pattern:   topicPattern,
		handler:   handler,
		mailbox:   make(chan *Message, b.mailboxSize),
		done:      make(chan struct{}),
	}
	b.subs[componentID] = append(b.subs[componentID], sub)

	b.wg.Add(1)
	go b.deliverLoop(sub)

	b.logger.Debug("subscribed",
		"component", componentID,
		"pattern", topicPattern,
	)

	return nil
}

// Publish публикует сообщение всем подходящим подпискам.
// Возвращается, не дожидаясь обработки.
func (b *Bus) Publish(msg *Message) {
	topic := msg.Topic()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	var matched []*subscription
	for _, subs := range b.subs {
		for _, sub := range subs {
			if MatchTopic(sub.pattern, topic) {
				matched = append(matched, sub)
			}
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		select {
		case sub.mailbox <- msg:
		case <-sub.done:
			// Подписка снята, пока отправитель ждал места в очереди.
		case <-b.ctx.Done():
			return
		}
	}
}

// UnsubscribeAll снимает все подписки компонента.
// Уже принятые в очередь сообщения дорабатываются доставщиком.
func (b *Bus) UnsubscribeAll(componentID string) {
	b.mu.Lock()
	subs := b.subs[componentID]
	delete(b.subs, componentID)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}

	if len(subs) > 0 {
		b.logger.Debug("unsubscribed", "component", componentID, "count", len(subs))
	}
}

// Close останавливает шину и ждёт завершения горутин-доставщиков.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string][]*subscription)
	b.mu.Unlock()

	b.cancel()
	for _, list := range subs {
		for _, sub := range list {
			close(sub.done)
		}
	}
	b.wg.Wait()
}

// deliverLoop — горутина-доставщик одной подписки.
func (b *Bus) deliverLoop(sub *subscription) {
	defer b.wg.Done()

	for {
		select {
		case msg := <-sub.mailbox:
			b.invoke(sub, msg)
		case <-sub.done:
			// Дренаж уже принятых сообщений, затем выход.
			for {
				select {
				case msg := <-sub.mailbox:
					b.invoke(sub, msg)
				default:
					return
				}
			}
		}
	}
}

// invoke вызывает обработчик, гася ошибки и паники.
func (b *Bus) invoke(sub *subscription, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				"component", sub.component,
				"topic", msg.Topic(),
				"message_id", msg.ID,
				"panic", r,
			)
		}
	}()

	if err := sub.handler(b.ctx, msg); err != nil {
		b.logger.Error("handler failed",
			"component", sub.component,
			"topic", msg.Topic(),
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
	}
}

// MatchTopic проверяет соответствие топика паттерну.
//
// Поддерживается точное совпадение, "*" и префиксный паттерн с
// завершающим "*" ("pipeline.*" матчит "pipeline.stage.complete").
func MatchTopic(pattern, topic string) bool {
	if pattern == "*" {
		return true
	}
	if suffix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(topic, suffix)
	}
	return pattern == topic
}
