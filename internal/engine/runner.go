package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/builtin"
	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/sandbox"
	"github.com/shaiso/Flowline/internal/telemetry"
)

// Runner — движок выполнения графа.
//
// Ведёт узлы по одному, в топологическом порядке, одной горутиной.
// Результат узла записывается ровно один раз; конкурирующих писателей
// нет, поэтому карты produced/results не требуют блокировок.
type Runner struct {
	builtins *builtin.Registry
	sandbox  *sandbox.Registry
	executor *sandbox.Executor
	fetch    domain.FetchFunc
	logger   *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Builtins — реестр встроенных handler'ов.
	Builtins *builtin.Registry

	// Sandbox — реестр пользовательских определений (может быть nil).
	Sandbox *sandbox.Registry

	// Executor — исполнитель sandbox-тел (обязателен при Sandbox != nil).
	Executor *sandbox.Executor

	// Fetch — сетевой доступ для узлов. nil — доступ закрыт.
	Fetch domain.FetchFunc

	// Logger — структурный логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builtins := cfg.Builtins
	if builtins == nil {
		builtins = builtin.NewRegistry()
	}

	return &Runner{
		builtins: builtins,
		sandbox:  cfg.Sandbox,
		executor: cfg.Executor,
		fetch:    cfg.Fetch,
		logger:   logger,
	}
}

// OnLogFunc вызывается синхронно, в порядке выполнения,
// один раз на каждую произведённую запись лога.
type OnLogFunc func(domain.LogEntry)

// Execute выполняет граф и возвращает карту node ID → результат.
//
// Ошибки уровня графа (цикл, висящее соединение) прерывают run
// до выполнения первого узла и возвращаются как GraphError.
// Ошибки отдельных узлов записываются в их ExecutionResult;
// дальнейшее поведение определяет spec.OnError (stop/continue/retry).
// Узлы, так и не ставшие готовыми (невыбранная ветка, упавший
// источник), пропускаются без записи в карту результатов.
func (r *Runner) Execute(ctx context.Context, spec *domain.GraphSpec, onLog OnLogFunc) (map[string]*domain.ExecutionResult, error) {
	dag, err := BuildDAG(spec.Nodes, spec.Connections)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	run := &flowRun{
		id:     runID,
		runner: r,
		dag:    dag,
		spec:   spec,
		onLog:  onLog,
		logger: telemetry.WithRunID(r.logger, runID.String()),
	}

	results := run.execute(ctx)
	return results, nil
}

// flowRun — состояние одного выполнения графа.
type flowRun struct {
	id     uuid.UUID
	runner *Runner
	dag    *DAG
	spec   *domain.GraphSpec
	onLog  OnLogFunc
	logger *slog.Logger

	seq int // порядковый номер записи лога
}

func (fr *flowRun) execute(ctx context.Context) map[string]*domain.ExecutionResult {
	started := time.Now()
	results := make(map[string]*domain.ExecutionResult, fr.dag.Size())
	produced := make(map[string]map[string]any, fr.dag.Size())

	mode := domain.ErrorModeStop
	var retry *domain.RetryPolicy
	if fr.spec.OnError != nil {
		if fr.spec.OnError.Mode != "" {
			mode = fr.spec.OnError.Mode
		}
		retry = fr.spec.OnError.Retry
	}

	fr.log("", domain.LogLevelInfo, "flow execution started", 0, map[string]any{
		"nodes":       fr.dag.Size(),
		"connections": len(fr.spec.Connections),
	})

	var failed int
	halted := false

	for _, node := range fr.dag.Order {
		if halted {
			break
		}
		if err := ctx.Err(); err != nil {
			fr.log("", domain.LogLevelWarning, "flow execution cancelled", 0, nil)
			break
		}

		initial := fr.spec.Inputs[node.Def.ID]

		ready := fr.dag.CheckReady(node, produced, initial)
		if !ready.Ready {
			if len(ready.UnconnectedPorts) > 0 {
				// Порт не закрыт ни соединением, ни значением — ошибка узла.
				result := fr.failNode(node, domain.ErrorKindUnresolvedInput,
					fmt.Sprintf("required inputs have no connection and no value: %v", ready.UnconnectedPorts))
				results[node.Def.ID] = result
				failed++
				if mode == domain.ErrorModeStop {
					halted = true
				}
				continue
			}

			// Источник пропущен, упал или ветка не выбрана —
			// узел просто не выполняется в этом run'е.
			fr.log(node.Def.ID, domain.LogLevelInfo, "node skipped: upstream produced no value", 0, map[string]any{
				"waiting_ports": ready.WaitingPorts,
			})
			continue
		}

		result := fr.executeNode(ctx, node, produced, initial, mode, retry)
		results[node.Def.ID] = result

		if result.Status == domain.NodeStatusSucceeded {
			produced[node.Def.ID] = result.Outputs
			continue
		}

		failed++
		if mode == domain.ErrorModeStop {
			halted = true
		}
	}

	durMs := time.Since(started).Milliseconds()
	status := "SUCCEEDED"
	level := domain.LogLevelSuccess
	if failed > 0 {
		status = "FAILED"
		level = domain.LogLevelError
	}
	telemetry.RunsTotal.WithLabelValues(status).Inc()

	fr.log("", level, "flow execution finished", durMs, map[string]any{
		"executed": len(results),
		"failed":   failed,
	})

	return results
}

// executeNode выполняет один узел с учётом политики retry.
func (fr *flowRun) executeNode(ctx context.Context, node *Node, produced map[string]map[string]any, initial map[string]any, mode domain.ErrorMode, retry *domain.RetryPolicy) *domain.ExecutionResult {
	now := time.Now()
	result := &domain.ExecutionResult{NodeID: node.Def.ID, StartedAt: &now}

	maxAttempts := 1
	if mode == domain.ErrorModeRetry {
		maxAttempts = 2
		if retry != nil && retry.MaxAttempts > 0 {
			maxAttempts = retry.MaxAttempts
		}
	}

	fr.log(node.Def.ID, domain.LogLevelInfo, fmt.Sprintf("executing node %q (%s)", nodeLabel(node.Def), node.Def.Type), 0, nil)

	var outputs map[string]any
	var kind, msg string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempt = attempt
		outputs, kind, msg = fr.dispatch(ctx, node, produced, initial)
		if kind == "" {
			break
		}

		// Неизвестный тип и незакрытый вход не лечатся повтором.
		if kind == domain.ErrorKindNotFound || kind == domain.ErrorKindUnresolvedInput {
			break
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(attempt, retry)
		fr.log(node.Def.ID, domain.LogLevelWarning,
			fmt.Sprintf("node failed (attempt %d/%d), retrying in %s: %s", attempt, maxAttempts, delay, msg), 0, nil)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			kind = domain.ErrorKindExecution
			msg = ctx.Err().Error()
			attempt = maxAttempts
		}
	}

	durMs := time.Since(now).Milliseconds()

	if kind != "" {
		result.MarkFailed(kind, msg)
		telemetry.NodeExecutionsTotal.WithLabelValues(node.Def.Type, "FAILED").Inc()
		fr.log(node.Def.ID, domain.LogLevelError, fmt.Sprintf("node failed: %s", msg), durMs, map[string]any{
			"error_kind": kind,
			"attempt":    result.Attempt,
		})
		return result
	}

	result.MarkSucceeded(outputs)
	telemetry.NodeExecutionsTotal.WithLabelValues(node.Def.Type, "SUCCEEDED").Inc()
	telemetry.NodeDurationSeconds.WithLabelValues(node.Def.Type).Observe(time.Since(now).Seconds())
	fr.log(node.Def.ID, domain.LogLevelSuccess, fmt.Sprintf("node %q completed", nodeLabel(node.Def)), durMs, nil)

	return result
}

// dispatch направляет узел встроенному handler'у или sandbox-исполнителю.
func (fr *flowRun) dispatch(ctx context.Context, node *Node, produced map[string]map[string]any, initial map[string]any) (outputs map[string]any, errKind, errMsg string) {
	inputs, err := ResolveInputs(fr.dag, node, produced, initial)
	if err != nil {
		return nil, domain.ErrorKindUnresolvedInput, err.Error()
	}

	ec := fr.execContext(node.Def.ID)

	if handler, ok := fr.runner.builtins.Get(node.Def.Type); ok {
		outputs, err := handler.Execute(ctx, node.Def, inputs, ec)
		if err != nil {
			return nil, domain.ErrorKindExecution, err.Error()
		}
		return outputs, "", ""
	}

	if fr.runner.sandbox != nil {
		if def, ok := fr.runner.sandbox.Get(node.Def.Type); ok {
			return fr.runSandboxed(ctx, node, def, inputs, ec)
		}
	}

	return nil, domain.ErrorKindNotFound,
		fmt.Sprintf("%s: %q is neither a built-in nor a registered custom type", ErrUnknownNodeType, node.Def.Type)
}

// runSandboxed выполняет пользовательский узел: переводит входы
// на имена переменных, собирает свойства, запускает тело и
// переводит результат обратно на ID портов.
func (fr *flowRun) runSandboxed(ctx context.Context, node *Node, def *domain.CustomNodeDefinition, inputs map[string]any, ec *domain.ExecContext) (map[string]any, string, string) {
	named := IDsToNames(inputs, def.Inputs)
	props := ResolveProperties(def.Properties, node.Def.Config)

	raw, err := fr.runner.executor.Run(ctx, def, named, props, ec)
	if err != nil {
		switch {
		case errors.Is(err, sandbox.ErrTimeout):
			telemetry.SandboxTimeoutsTotal.Inc()
			return nil, domain.ErrorKindTimeout, err.Error()
		case errors.Is(err, sandbox.ErrSandboxRuntime):
			return nil, domain.ErrorKindSandbox, err.Error()
		default:
			return nil, domain.ErrorKindExecution, err.Error()
		}
	}

	fr.runner.sandbox.Touch(def.Type)

	outputs := NamesToIDs(raw, def.Outputs, func(name string) {
		fr.log(node.Def.ID, domain.LogLevelWarning,
			fmt.Sprintf("sandbox output %q does not match any declared output port, value dropped", name), 0, nil)
	})
	return outputs, "", ""
}

// failNode записывает ошибку узла, не запуская его.
func (fr *flowRun) failNode(node *Node, kind, msg string) *domain.ExecutionResult {
	now := time.Now()
	result := &domain.ExecutionResult{NodeID: node.Def.ID, StartedAt: &now}
	result.MarkFailed(kind, msg)
	telemetry.NodeExecutionsTotal.WithLabelValues(node.Def.Type, "FAILED").Inc()
	fr.log(node.Def.ID, domain.LogLevelError, fmt.Sprintf("node failed: %s", msg), 0, map[string]any{
		"error_kind": kind,
	})
	return result
}

// execContext собирает капабилити-набор для вызова узла.
func (fr *flowRun) execContext(nodeID string) *domain.ExecContext {
	return &domain.ExecContext{
		RunID:  fr.id,
		NodeID: nodeID,
		Log: func(level domain.LogLevel, message string, data map[string]any) {
			fr.log(nodeID, level, message, 0, data)
		},
		Fetch: fr.runner.fetch,
		Now:   time.Now,
	}
}

// log добавляет запись в поток логов run'а и синхронно доставляет её
// вызывающей стороне.
func (fr *flowRun) log(nodeID string, level domain.LogLevel, message string, durMs int64, data map[string]any) {
	fr.seq++
	entry := domain.LogEntry{
		ID:         uuid.New(),
		RunID:      fr.id,
		NodeID:     nodeID,
		Level:      level,
		Message:    message,
		Timestamp:  time.Now(),
		DurationMs: durMs,
		Data:       data,
	}

	logger := fr.logger
	if nodeID != "" {
		logger = telemetry.WithNodeID(logger, nodeID)
	}
	logger.Debug(message, "level", string(level), "seq", fr.seq)

	if fr.onLog != nil {
		fr.onLog(entry)
	}
}

// backoffDelay вычисляет задержку перед повтором узла.
func backoffDelay(attempt int, policy *domain.RetryPolicy) time.Duration {
	if policy == nil {
		return time.Second
	}

	initialDelay := time.Duration(policy.InitialDelayMs) * time.Millisecond
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := time.Duration(policy.MaxDelayMs) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var delay time.Duration
	switch policy.Backoff {
	case "exponential":
		// delay = initialDelay * 2^(attempt-1)
		delay = initialDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				break
			}
		}
	default:
		// "fixed" или неизвестная стратегия — initialDelay
		delay = initialDelay
	}

	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func nodeLabel(def *domain.Node) string {
	if def.Name != "" {
		return def.Name
	}
	return def.ID
}
