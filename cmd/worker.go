/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume translation commands from RabbitMQ",
	Long: `Run as a queue worker: consume JSON translation commands
{id, text, source_lang, target_lang} from the command queue, translate them one
at a time and publish {id, status, target_lang, translated_text, failed_chunks,
error} to the result queue.

Malformed messages are rejected. On SIGINT/SIGTERM the worker stops taking new
messages and gives the in-flight job a short grace period before requeueing it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := buildPipeline(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer p.Close()

		consumer, err := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.CommandQueue)
		if err != nil {
			return err
		}
		defer consumer.Close()

		producer, err := queue.NewProducer(cfg.Queue.URL)
		if err != nil {
			return err
		}
		defer producer.Close()

		deliveries, err := consumer.Deliveries()
		if err != nil {
			return fmt.Errorf("failed to start consuming: %w", err)
		}

		log := logger.WithName("worker")
		w := queue.NewWorker(p.svc, producer, cfg.Queue.ResultQueue, log, queue.WithGrace(cfg.ShutdownGrace()))

		log.Info("waiting for commands", "queue", cfg.Queue.CommandQueue, "results", cfg.Queue.ResultQueue, "backend", cfg.Backend.Name)
		err = w.Serve(ctx, deliveries)
		if errors.Is(err, queue.ErrDeliveriesClosed) && ctx.Err() != nil {
			err = nil
		}
		log.Info("worker stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().String("amqp-url", "", "RabbitMQ URL (default $RABBITMQ_URL)")
	workerCmd.Flags().String("command-queue", "", "Queue to consume commands from")
	workerCmd.Flags().String("result-queue", "", "Queue to publish results to")

	bindFlag(workerCmd, "queue.url", "amqp-url")
	bindFlag(workerCmd, "queue.command_queue", "command-queue")
	bindFlag(workerCmd, "queue.result_queue", "result-queue")
}
