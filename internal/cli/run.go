package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/mq"
)

// NewRunCmd создаёт команду запуска флоу.
func NewRunCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	var inputs []string
	var onError string
	var mirror bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run FLOW.json",
		Short: "Execute a flow",
		Long: `Execute a flow from a JSON file.

Начальные значения входов передаются через --input NODE.PORT=VALUE;
значение парсится как JSON, при неудаче остаётся строкой.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFn()
			out := outputFn()

			spec, err := loadGraphSpec(args[0])
			if err != nil {
				return err
			}

			if err := applyInputOverrides(spec, inputs); err != nil {
				return err
			}
			if err := applyErrorMode(spec, onError); err != nil {
				return err
			}

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
			}

			return executeFlow(ctx, app, out, publisher, spec, quiet)
		},
	}

	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Initial input as NODE.PORT=VALUE (repeatable)")
	cmd.Flags().StringVar(&onError, "on-error", "", "Override the error mode: stop, continue or retry")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "Mirror run events to RabbitMQ")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress log stream, print results only")

	return cmd
}

// executeFlow запускает граф и отдаёт поток логов и результаты в Output.
func executeFlow(ctx context.Context, app *App, out *Output, publisher *mq.Publisher, spec *domain.GraphSpec, quiet bool) error {
	var entries []domain.LogEntry
	onLog := func(entry domain.LogEntry) {
		entries = append(entries, entry)
		if !quiet {
			out.LogEntry(&entry)
		}
		if publisher != nil {
			if err := publisher.PublishLogEntry(ctx, &entry); err != nil {
				app.Logger.Warn("failed to mirror log entry", "error", err)
			}
		}
	}

	startedAt := time.Now()
	if publisher != nil {
		payload := mq.RunStartedPayload{Flow: spec.Name, Nodes: len(spec.Nodes)}
		if err := publisher.PublishRunStarted(ctx, payload); err != nil {
			app.Logger.Warn("failed to mirror run.started", "error", err)
		}
	}

	results, err := app.Runner.Execute(ctx, spec, onLog)
	if err != nil {
		return err
	}

	if publisher != nil {
		failed := countFailed(results)
		payload := mq.RunFinishedPayload{
			Flow:       spec.Name,
			Succeeded:  len(results) - failed,
			Failed:     failed,
			DurationMs: time.Since(startedAt).Milliseconds(),
		}
		// run ID движок раздаёт сам; берём его из потока логов.
		if len(entries) > 0 {
			payload.RunID = entries[0].RunID
		}
		if err := publisher.PublishRunFinished(ctx, payload); err != nil {
			app.Logger.Warn("failed to mirror run.finished", "error", err)
		}
	}

	printResults(out, results)

	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("flow finished with %d failed node(s)", failed)
	}
	return nil
}

// printResults печатает итоговую карту результатов по узлам.
func printResults(out *Output, results map[string]*domain.ExecutionResult) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	headers := []string{"NODE", "STATUS", "ATTEMPT", "DURATION", "ERROR"}
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		r := results[id]
		errText := r.Error
		if r.ErrorKind != "" {
			errText = r.ErrorKind + ": " + r.Error
		}
		rows = append(rows, []string{
			id,
			string(r.Status),
			strconv.Itoa(r.Attempt),
			r.Duration().Round(time.Millisecond).String(),
			errText,
		})
	}

	out.Print(headers, rows, results)
}

// countFailed считает узлы со статусом FAILED.
func countFailed(results map[string]*domain.ExecutionResult) int {
	failed := 0
	for _, r := range results {
		if r.Status == domain.NodeStatusFailed {
			failed++
		}
	}
	return failed
}

// applyInputOverrides накладывает --input NODE.PORT=VALUE на spec.Inputs.
func applyInputOverrides(spec *domain.GraphSpec, overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}

	if spec.Inputs == nil {
		spec.Inputs = make(map[string]map[string]any)
	}

	for _, raw := range overrides {
		target, value, found := strings.Cut(raw, "=")
		if !found {
			return fmt.Errorf("invalid input %q, expected NODE.PORT=VALUE", raw)
		}

		nodeID, portID, found := strings.Cut(target, ".")
		if !found || nodeID == "" || portID == "" {
			return fmt.Errorf("invalid input target %q, expected NODE.PORT", target)
		}

		if spec.Inputs[nodeID] == nil {
			spec.Inputs[nodeID] = make(map[string]any)
		}
		spec.Inputs[nodeID][portID] = parseValue(value)
	}

	return nil
}

// applyErrorMode накладывает --on-error поверх политики файла.
func applyErrorMode(spec *domain.GraphSpec, mode string) error {
	if mode == "" {
		return nil
	}

	switch m := domain.ErrorMode(mode); m {
	case domain.ErrorModeStop, domain.ErrorModeContinue, domain.ErrorModeRetry:
		if spec.OnError == nil {
			spec.OnError = &domain.ErrorPolicy{}
		}
		spec.OnError.Mode = m
		return nil
	default:
		return fmt.Errorf("invalid error mode %q, expected stop, continue or retry", mode)
	}
}

// parseValue пробует JSON, иначе оставляет строку как есть.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// NewValidateCmd создаёт команду статической проверки флоу.
func NewValidateCmd(loggerFn func() *slog.Logger, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FLOW.json",
		Short: "Validate a flow without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := loadGraphSpec(args[0])
			if err != nil {
				return err
			}

			dag, err := engine.BuildDAG(spec.Nodes, spec.Connections)
			if err != nil {
				return err
			}

			headers := []string{"#", "NODE", "TYPE", "DEPENDS_ON"}
			rows := make([][]string, len(dag.Order))
			for i, node := range dag.Order {
				deps := make([]string, 0, len(node.DependsOn))
				for _, dep := range node.DependsOn {
					deps = append(deps, dep.Def.ID)
				}
				sort.Strings(deps)
				rows[i] = []string{
					strconv.Itoa(i + 1),
					node.Def.ID,
					node.Def.Type,
					strings.Join(deps, ","),
				}
			}

			out.Print(headers, rows, map[string]any{
				"name":  spec.Name,
				"nodes": len(spec.Nodes),
				"order": nodeIDs(dag.Order),
			})
			out.Success(fmt.Sprintf("Flow %q is valid: %d node(s), no cycles", spec.Name, len(spec.Nodes)))
			return nil
		},
	}
}

func nodeIDs(order []*engine.Node) []string {
	ids := make([]string, len(order))
	for i, node := range order {
		ids[i] = node.Def.ID
	}
	return ids
}
