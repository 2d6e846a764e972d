// Analytica Monitor — публикует метрики ресурсов хоста.
//
// Monitor по cron-расписанию снимает cpu/memory/disk и публикует
// MONITORING_METRICS_UPDATE в RabbitMQ широковещательно. Оркестратор
// сверяет значения с порогами и ставит пайплайны на паузу.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Analytica/internal/monitor"
	"github.com/shaiso/Analytica/internal/mq"
	"github.com/shaiso/Analytica/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting analytica-monitor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.DeclareTopology(mqConn); err != nil {
		logger.Warn("failed to declare topology", "error", err)
	}

	// Создаём monitor
	mon := monitor.New(monitor.Config{
		Publisher: mq.NewPublisher(mqConn, logger),
		Schedule:  os.Getenv("MONITOR_CRON"),
		Logger:    logger,
	})

	if err := mon.Start(ctx); err != nil {
		logger.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8084"
	if v := os.Getenv("MONITOR_PORT"); v != "" {
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

	mon.Stop()
	logger.Info("analytica-monitor stopped")
}
