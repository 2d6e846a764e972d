// Analytica CLI — инструмент командной строки для управления
// аналитическими пайплайнами.
//
// Использование:
//
//	analytica [--amqp-url URL] [--json] pipeline <subcommand> [flags]
//
// Команды публикуются в RabbitMQ; состояние читается из снимков
// recorder в PostgreSQL (DB_URL).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Analytica/internal/cli"
	"github.com/shaiso/Analytica/internal/mq"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var amqpURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "analytica",
		Short:         "Analytica CLI — analytics pipeline control tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("RABBITMQ_URL")
	if defaultURL == "" {
		defaultURL = mq.DefaultURL()
	}

	rootCmd.PersistentFlags().StringVar(&amqpURL, "amqp-url", defaultURL, "RabbitMQ URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(amqpURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewPipelineCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
