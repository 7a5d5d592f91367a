package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/mq"
)

// NewTailCmd создаёт команду живого просмотра потока логов из брокера.
func NewTailCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Follow the mirrored execution log stream",
		Long: `Follow the execution log stream mirrored to RabbitMQ.

Показывает записи, которые публикуют запуски с флагом --mirror.
Завершается по Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFn()
			out := outputFn()

			conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
			if err != nil {
				return fmt.Errorf("connect broker: %w", err)
			}
			defer conn.Close()

			if err := mq.SetupTopology(conn); err != nil {
				return fmt.Errorf("setup topology: %w", err)
			}

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Queue: string(mq.QueueLogStream),
				Handler: func(ctx context.Context, msg *mq.Delivery) error {
					entry, err := mq.ParsePayload[domain.LogEntry](&msg.Message)
					if err != nil {
						return err
					}
					out.LogEntry(&entry)
					return nil
				},
			})

			out.Success("Waiting for log entries... (Ctrl+C to stop)")
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
