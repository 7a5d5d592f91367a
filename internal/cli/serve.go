package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Flowline/internal/mq"
	"github.com/shaiso/Flowline/internal/scheduler"
)

// NewServeCmd создаёт команду длительного режима: /healthz + /metrics
// и, при наличии файла расписаний, периодический запуск флоу.
func NewServeCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	var schedulesPath string
	var listenAddr string
	var mirror bool
	var tickInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics endpoint and the flow scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFn()
			out := outputFn()

			app, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			var publisher *mq.Publisher
			if mirror {
				conn, err := mq.NewConnection(mq.URLFromEnv(), logger)
				if err != nil {
					return fmt.Errorf("connect broker: %w", err)
				}
				defer conn.Close()
				if err := mq.SetupTopology(conn); err != nil {
					return fmt.Errorf("setup topology: %w", err)
				}
				publisher = mq.NewPublisher(conn, logger)
				logger.Info("mirroring run events", "topology", mq.TopologyInfo())
			}

			if schedulesPath != "" {
				schedules, err := scheduler.LoadSchedules(schedulesPath)
				if err != nil {
					return err
				}

				sched := scheduler.New(scheduler.Config{
					Schedules: schedules,
					Run:       scheduledRunFunc(app, out, publisher),
					Logger:    logger,
				})

				logger.Info("scheduler enabled",
					"schedules", len(schedules),
					"tick", tickInterval,
				)
				go func() {
					if err := sched.RunLoop(ctx, tickInterval); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("scheduler loop stopped", "error", err)
					}
				}()
			}

			return serveHTTP(ctx, logger, listenAddr)
		},
	}

	cmd.Flags().StringVar(&schedulesPath, "schedules", "", "Path to a JSON schedules file")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default :8080 or FLOWLINE_PORT)")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "Mirror run events to RabbitMQ")
	cmd.Flags().DurationVar(&tickInterval, "tick", time.Second, "Scheduler tick interval")

	return cmd
}

// scheduledRunFunc адаптирует executeFlow под RunFunc планировщика.
func scheduledRunFunc(app *App, out *Output, publisher *mq.Publisher) scheduler.RunFunc {
	return func(ctx context.Context, specPath string, inputs map[string]map[string]any) error {
		spec, err := loadGraphSpec(specPath)
		if err != nil {
			return err
		}

		// Входы расписания накладываются поверх входов файла
		for nodeID, ports := range inputs {
			if spec.Inputs == nil {
				spec.Inputs = make(map[string]map[string]any)
			}
			if spec.Inputs[nodeID] == nil {
				spec.Inputs[nodeID] = make(map[string]any)
			}
			for portID, value := range ports {
				spec.Inputs[nodeID][portID] = value
			}
		}

		return executeFlow(ctx, app, out, publisher, spec, true)
	}
}

// serveHTTP поднимает /healthz и /metrics и живёт до отмены контекста.
func serveHTTP(ctx context.Context, logger *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	if addr == "" {
		addr = ":8080"
		if v := os.Getenv("FLOWLINE_PORT"); v != "" {
			addr = ":" + v
		}
	}

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
