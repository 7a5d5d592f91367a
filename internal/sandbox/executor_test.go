package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Flowline/internal/domain"
)

type logRecord struct {
	level   domain.LogLevel
	message string
}

func testExecContext(logs *[]logRecord) *domain.ExecContext {
	return &domain.ExecContext{
		NodeID: "node-1",
		Log: func(level domain.LogLevel, message string, _ map[string]any) {
			if logs != nil {
				*logs = append(*logs, logRecord{level, message})
			}
		},
		Now: time.Now,
	}
}

func runCode(t *testing.T, code string, inputs, properties map[string]any, ec *domain.ExecContext) (map[string]any, error) {
	t.Helper()

	executor := NewExecutor(ExecutorConfig{Timeout: 2 * time.Second})
	def := validDefinition("test")
	def.ExecutionCode = code

	return executor.Run(context.Background(), def, inputs, properties, ec)
}

func TestExecutor_SimpleResult(t *testing.T) {
	outputs, err := runCode(t, `function execute(inputs, properties, context) {
		return { result: inputs.value * 2, label: properties.prefix + "!" };
	}`, map[string]any{"value": 21}, map[string]any{"prefix": "done"}, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outputs["result"] != int64(42) {
		t.Errorf("expected 42, got %v (%T)", outputs["result"], outputs["result"])
	}
	if outputs["label"] != "done!" {
		t.Errorf("expected done!, got %v", outputs["label"])
	}
}

func TestExecutor_UndefinedResultIsEmpty(t *testing.T) {
	outputs, err := runCode(t, `function execute() {}`, nil, nil, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outputs) != 0 {
		t.Errorf("expected empty outputs, got %v", outputs)
	}
}

func TestExecutor_NonObjectResult(t *testing.T) {
	_, err := runCode(t, `function execute() { return 42; }`, nil, nil, testExecContext(nil))
	if !errors.Is(err, ErrBadResult) {
		t.Fatalf("expected ErrBadResult, got %v", err)
	}
}

func TestExecutor_ThrowBecomesRuntimeError(t *testing.T) {
	_, err := runCode(t, `function execute() {
		throw new Error("boom");
	}`, nil, nil, testExecContext(nil))
	if !errors.Is(err, ErrSandboxRuntime) {
		t.Fatalf("expected ErrSandboxRuntime, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected error text to mention boom, got %q", err)
	}
}

func TestExecutor_InfiniteLoopInterrupted(t *testing.T) {
	executor := NewExecutor(ExecutorConfig{Timeout: 100 * time.Millisecond})
	def := validDefinition("spin")
	def.ExecutionCode = `function execute() { while (true) {} }`

	start := time.Now()
	_, err := executor.Run(context.Background(), def, nil, nil, testExecContext(nil))

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	// Снятие преемптивное: занятый цикл не живёт заметно дольше бюджета
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("interrupt took too long: %s", elapsed)
	}
}

func TestExecutor_PendingPromiseTimesOut(t *testing.T) {
	executor := NewExecutor(ExecutorConfig{Timeout: 100 * time.Millisecond})
	def := validDefinition("stuck")
	def.ExecutionCode = `function execute() {
		return new Promise(function(resolve) {}); // никогда не settled
	}`

	_, err := executor.Run(context.Background(), def, nil, nil, testExecContext(nil))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExecutor_PromiseWithTimer(t *testing.T) {
	outputs, err := runCode(t, `function execute(inputs) {
		return new Promise(function(resolve) {
			setTimeout(function() { resolve({ result: inputs.value + 1 }); }, 10);
		});
	}`, map[string]any{"value": 1}, nil, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outputs["result"] != int64(2) {
		t.Errorf("expected 2, got %v", outputs["result"])
	}
}

func TestExecutor_AsyncAwait(t *testing.T) {
	outputs, err := runCode(t, `
		function delay(ms) {
			return new Promise(function(resolve) { setTimeout(resolve, ms); });
		}
		async function execute(inputs) {
			await delay(5);
			return { result: "after await" };
		}
	`, nil, nil, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outputs["result"] != "after await" {
		t.Errorf("expected after await, got %v", outputs["result"])
	}
}

func TestExecutor_ContextSleep(t *testing.T) {
	outputs, err := runCode(t, `async function execute(inputs, properties, context) {
		await context.sleep(10);
		return { done: true };
	}`, nil, nil, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outputs["done"] != true {
		t.Errorf("expected done=true, got %v", outputs["done"])
	}
}

func TestExecutor_RejectedPromise(t *testing.T) {
	_, err := runCode(t, `function execute() {
		return Promise.reject(new Error("nope"));
	}`, nil, nil, testExecContext(nil))
	if !errors.Is(err, ErrSandboxRuntime) {
		t.Fatalf("expected ErrSandboxRuntime, got %v", err)
	}
}

func TestExecutor_ConsoleRoutedToLog(t *testing.T) {
	var logs []logRecord

	_, err := runCode(t, `function execute() {
		console.log("hello", 42);
		console.warn("careful");
		console.error("bad");
		return {};
	}`, nil, nil, testExecContext(&logs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(logs) != 3 {
		t.Fatalf("expected 3 log records, got %d", len(logs))
	}
	if logs[0].level != domain.LogLevelInfo || logs[0].message != "hello 42" {
		t.Errorf("unexpected first record: %+v", logs[0])
	}
	if logs[1].level != domain.LogLevelWarning {
		t.Errorf("expected warning level, got %s", logs[1].level)
	}
	if logs[2].level != domain.LogLevelError {
		t.Errorf("expected error level, got %s", logs[2].level)
	}
}

func TestExecutor_ContextLog(t *testing.T) {
	var logs []logRecord

	_, err := runCode(t, `function execute(inputs, properties, context) {
		context.log("progress", { step: 1 });
		return {};
	}`, nil, nil, testExecContext(&logs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(logs) != 1 || logs[0].message != "progress" {
		t.Fatalf("expected progress record, got %v", logs)
	}
}

func TestExecutor_FetchCapability(t *testing.T) {
	var gotURL string
	ec := testExecContext(nil)
	ec.Fetch = func(_ context.Context, req domain.FetchRequest) (*domain.FetchResponse, error) {
		gotURL = req.URL
		return &domain.FetchResponse{
			StatusCode: 200,
			Body:       map[string]any{"ok": true},
		}, nil
	}

	outputs, err := runCode(t, `function execute(inputs, properties, context) {
		var resp = context.fetch("https://api.example.com/data", { method: "GET" });
		return { status: resp.status, ok: resp.body.ok };
	}`, nil, nil, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotURL != "https://api.example.com/data" {
		t.Errorf("unexpected fetch URL %q", gotURL)
	}
	if outputs["status"] != int64(200) || outputs["ok"] != true {
		t.Errorf("unexpected outputs: %v", outputs)
	}
}

func TestExecutor_FetchAbsentWithoutCapability(t *testing.T) {
	// Без капабилити context.fetch в scope отсутствует
	outputs, err := runCode(t, `function execute(inputs, properties, context) {
		return { has_fetch: typeof context.fetch !== "undefined" };
	}`, nil, nil, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outputs["has_fetch"] != false {
		t.Error("fetch must not be exposed without the capability")
	}
}

func TestExecutor_NoHostObjectsInScope(t *testing.T) {
	outputs, err := runCode(t, `function execute() {
		return {
			has_require: typeof require !== "undefined",
			has_process: typeof process !== "undefined",
			has_fs: typeof fs !== "undefined"
		};
	}`, nil, nil, testExecContext(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for key, val := range outputs {
		if val != false {
			t.Errorf("%s: host object leaked into scope", key)
		}
	}
}

func TestExecutor_ParentContextCancel(t *testing.T) {
	executor := NewExecutor(ExecutorConfig{Timeout: 10 * time.Second})
	def := validDefinition("spin")
	def.ExecutionCode = `function execute() { while (true) {} }`

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := executor.Run(ctx, def, nil, nil, testExecContext(nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
