// Analytica Orchestrator — управляет выполнением аналитических пайплайнов.
//
// Orchestrator:
//   - Принимает команды и результаты этапов через локальную шину
//   - Ведёт state machine каждого pipeline (actor на pipeline)
//   - Выполняет retry с exponential backoff и decision gates
//   - Ставит RUNNING пайплайны на паузу при превышении порогов ресурсов
//
// RabbitMQ подключается через gateway: без брокера оркестратор
// работает только с локальной шиной (полезно в тестах и при отладке).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Analytica/internal/bus"
	"github.com/shaiso/Analytica/internal/mq"
	"github.com/shaiso/Analytica/internal/orchestrator"
	"github.com/shaiso/Analytica/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting analytica-orchestrator")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Локальная шина сообщений
	messageBus := bus.New(bus.Config{Logger: logger})
	defer messageBus.Close()

	// Prometheus метрики
	metrics := telemetry.NewMetrics()

	// Создаём orchestrator
	orch := orchestrator.New(orchestrator.Config{
		Bus:     messageBus,
		Metrics: metrics,
		Logger:  logger,
	})

	if err := orch.Start(); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// RabbitMQ gateway
	var gateway *mq.Gateway
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running with local bus only", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.DeclareTopology(mqConn); err != nil {
			logger.Warn("failed to declare topology", "error", err)
		}

		gateway, err = mq.NewGateway(mq.GatewayConfig{
			Bus:         messageBus,
			Connection:  mqConn,
			RelaySource: orchestrator.ComponentID,
			Queues:      []string{mq.QueueOrchestratorInbound},
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to create gateway", "error", err)
			os.Exit(1)
		}
		if err := gateway.Start(ctx); err != nil {
			logger.Error("failed to start gateway", "error", err)
			os.Exit(1)
		}
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCH_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	if gateway != nil {
		gateway.Stop()
	}
	orch.Stop()
	logger.Info("analytica-orchestrator stopped")
}
