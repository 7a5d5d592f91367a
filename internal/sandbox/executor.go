package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/shaiso/Flowline/internal/domain"
)

// DefaultTimeout — wall-clock бюджет одного sandbox-вызова.
const DefaultTimeout = 30 * time.Second

// Executor выполняет тела пользовательских узлов.
//
// Каждый вызов получает свежий goja-runtime: в scope есть только
// стандартные ECMAScript-объекты (Math, JSON, Date, Promise и т.д.)
// и явно переданные капабилити — console, context.log, context.sleep,
// context.fetch.
// Доступ к процессу, файловой системе и окружению отсутствует
// by construction: таких объектов в runtime просто нет.
//
// Таймаут преемптивный: по истечении бюджета runtime прерывается
// через goja.Runtime.Interrupt, так что снимается даже тело,
// крутящее синхронный бесконечный цикл.
type Executor struct {
	timeout time.Duration
	logger  *slog.Logger
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Timeout — wall-clock бюджет вызова (default: 30s).
	Timeout time.Duration

	// Logger — структурный логгер.
	Logger *slog.Logger
}

// NewExecutor создаёт Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{timeout: timeout, logger: logger}
}

// errInterrupted — сигнальное значение для Runtime.Interrupt.
var errInterrupted = errors.New("interrupted")

// Run выполняет execute(inputs, properties, context) определения.
//
// inputs и properties уже переведены на имена переменных (resolver).
// Результат — карта значений по именам выходов; nil/undefined
// трактуется как пустой результат. Исключение тела — ErrSandboxRuntime,
// превышение бюджета — ErrTimeout.
func (e *Executor) Run(ctx context.Context, def *domain.CustomNodeDefinition, inputs, properties map[string]any, ec *domain.ExecContext) (map[string]any, error) {
	program, err := goja.Compile("node.js", def.ExecutionCode, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vm := goja.New()
	timers := &timerQueue{}

	if err := e.setupScope(vm, timers, runCtx, ec); err != nil {
		return nil, fmt.Errorf("setup scope: %w", err)
	}

	// Watchdog: по дедлайну прерываем runtime — даже busy loop
	// не переживёт таймаут.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-runCtx.Done():
			vm.Interrupt(errInterrupted)
		case <-done:
		}
	}()
	defer vm.ClearInterrupt()

	outputs, err := e.invoke(runCtx, vm, timers, program, inputs, properties)
	if err != nil {
		return nil, e.mapError(ctx, runCtx, err)
	}
	return outputs, nil
}

// invoke запускает программу, вызывает execute и доводит результат
// до settled-состояния.
func (e *Executor) invoke(runCtx context.Context, vm *goja.Runtime, timers *timerQueue, program *goja.Program, inputs, properties map[string]any) (map[string]any, error) {
	if _, err := vm.RunProgram(program); err != nil {
		return nil, err
	}

	fn, ok := goja.AssertFunction(vm.Get("execute"))
	if !ok {
		// Валидация реестра это исключает; защита от прямых вызовов.
		return nil, ErrNoExecuteFunc
	}

	ctxVal := vm.Get("__flowline_context__")
	result, err := fn(goja.Undefined(), vm.ToValue(inputs), vm.ToValue(properties), ctxVal)
	if err != nil {
		return nil, err
	}

	result, err = e.settle(runCtx, timers, result)
	if err != nil {
		return nil, err
	}

	return exportResult(result)
}

// settle доводит promise-результат до settled-состояния, прокачивая
// host-таймеры на той же горутине, что и runtime.
func (e *Executor) settle(runCtx context.Context, timers *timerQueue, val goja.Value) (goja.Value, error) {
	for {
		promise, ok := exportPromise(val)
		if !ok {
			return val, nil
		}

		switch promise.State() {
		case goja.PromiseStateFulfilled:
			return promise.Result(), nil
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("%w: %s", ErrSandboxRuntime, promise.Result().String())
		}

		// Promise pending: единственный легальный источник прогресса —
		// таймеры, заведённые телом через setTimeout.
		timer, ok := timers.next()
		if !ok {
			// Прогресса не будет — ждём дедлайн и снимаем тело.
			<-runCtx.Done()
			return nil, errInterrupted
		}

		select {
		case <-time.After(time.Until(timer.at)):
			if _, err := timer.fn(goja.Undefined()); err != nil {
				return nil, err
			}
		case <-runCtx.Done():
			return nil, errInterrupted
		}
	}
}

// setupScope собирает вайтлист-окружение вызова.
func (e *Executor) setupScope(vm *goja.Runtime, timers *timerQueue, runCtx context.Context, ec *domain.ExecContext) error {
	console := vm.NewObject()
	logAt := func(level domain.LogLevel) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			ec.Log(level, formatArgs(call.Arguments), nil)
			return goja.Undefined()
		}
	}
	if err := console.Set("log", logAt(domain.LogLevelInfo)); err != nil {
		return err
	}
	if err := console.Set("warn", logAt(domain.LogLevelWarning)); err != nil {
		return err
	}
	if err := console.Set("error", logAt(domain.LogLevelError)); err != nil {
		return err
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	ctxObj := vm.NewObject()
	if err := ctxObj.Set("log", func(call goja.FunctionCall) goja.Value {
		message := call.Argument(0).String()
		var data map[string]any
		if len(call.Arguments) > 1 {
			if m, ok := call.Argument(1).Export().(map[string]any); ok {
				data = m
			}
		}
		ec.Log(domain.LogLevelInfo, message, data)
		return goja.Undefined()
	}); err != nil {
		return err
	}

	if err := ctxObj.Set("sleep", func(call goja.FunctionCall) goja.Value {
		delayMs := call.Argument(0).ToInteger()
		if delayMs < 0 {
			delayMs = 0
		}
		promise, resolve, _ := vm.NewPromise()
		timers.add(func(goja.Value, ...goja.Value) (goja.Value, error) {
			resolve(goja.Undefined())
			return goja.Undefined(), nil
		}, time.Now().Add(time.Duration(delayMs)*time.Millisecond))
		return vm.ToValue(promise)
	}); err != nil {
		return err
	}

	// Сетевой доступ появляется в scope только если вызывающая
	// сторона явно передала капабилити.
	if ec.Fetch != nil {
		if err := ctxObj.Set("fetch", e.makeFetch(vm, runCtx, ec)); err != nil {
			return err
		}
	}

	if err := vm.Set("__flowline_context__", ctxObj); err != nil {
		return err
	}

	if err := vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("setTimeout requires a function"))
		}
		delayMs := call.Argument(1).ToInteger()
		if delayMs < 0 {
			delayMs = 0
		}
		id := timers.add(fn, time.Now().Add(time.Duration(delayMs)*time.Millisecond))
		return vm.ToValue(id)
	}); err != nil {
		return err
	}

	return vm.Set("clearTimeout", func(call goja.FunctionCall) goja.Value {
		timers.remove(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	})
}

// makeFetch строит JS-обёртку над капабилити ec.Fetch.
//
//	context.fetch(url, {method, headers, body})
//	  → {status, headers, body}
func (e *Executor) makeFetch(vm *goja.Runtime, runCtx context.Context, ec *domain.ExecContext) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		req := domain.FetchRequest{URL: call.Argument(0).String()}

		if opts, ok := call.Argument(1).Export().(map[string]any); ok {
			if method, ok := opts["method"].(string); ok {
				req.Method = method
			}
			if headers, ok := opts["headers"].(map[string]any); ok {
				req.Headers = make(map[string]string, len(headers))
				for key, val := range headers {
					if s, ok := val.(string); ok {
						req.Headers[key] = s
					}
				}
			}
			req.Body = opts["body"]
		}

		resp, err := ec.Fetch(runCtx, req)
		if err != nil {
			panic(vm.NewGoError(err))
		}

		return vm.ToValue(map[string]any{
			"status":  resp.StatusCode,
			"headers": resp.Headers,
			"body":    resp.Body,
		})
	}
}

// mapError переводит ошибки goja в таксономию sandbox.
func (e *Executor) mapError(ctx, runCtx context.Context, err error) error {
	// Снятие по дедлайну: и interrupt, и разбуженный watchdog'ом
	// settle попадают сюда.
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) || errors.Is(err, errInterrupted) {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err() // отмена вызывающей стороной, не таймаут
		}
		return fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return fmt.Errorf("%w: %s", ErrSandboxRuntime, exception.Value().String())
	}
	if errors.Is(err, ErrSandboxRuntime) || errors.Is(err, ErrNoExecuteFunc) || errors.Is(err, ErrBadResult) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSandboxRuntime, err)
}

// exportResult переводит значение execute в карту выходов.
func exportResult(val goja.Value) (map[string]any, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return map[string]any{}, nil
	}

	exported := val.Export()
	if exported == nil {
		return map[string]any{}, nil
	}
	m, ok := exported.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrBadResult, exported)
	}
	return m, nil
}

// exportPromise распознаёт promise-значение.
func exportPromise(val goja.Value) (*goja.Promise, bool) {
	if val == nil {
		return nil, false
	}
	promise, ok := val.Export().(*goja.Promise)
	return promise, ok
}

// formatArgs собирает аргументы console.* в одну строку.
func formatArgs(args []goja.Value) string {
	out := ""
	for i, arg := range args {
		if i > 0 {
			out += " "
		}
		out += arg.String()
	}
	return out
}

// timerQueue — host-side очередь setTimeout-таймеров одного вызова.
//
// Колбэки выполняются на горутине runtime'а (в settle), поэтому
// синхронизация не нужна: setTimeout и прокачка не пересекаются.
type timerQueue struct {
	nextID  int
	entries []*timerEntry
}

type timerEntry struct {
	id int
	fn goja.Callable
	at time.Time
}

func (q *timerQueue) add(fn goja.Callable, at time.Time) int {
	q.nextID++
	q.entries = append(q.entries, &timerEntry{id: q.nextID, fn: fn, at: at})
	return q.nextID
}

func (q *timerQueue) remove(id int) {
	for i, entry := range q.entries {
		if entry.id == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// next извлекает таймер с самым ранним сроком.
func (q *timerQueue) next() (*timerEntry, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}

	best := 0
	for i, entry := range q.entries {
		if entry.at.Before(q.entries[best].at) {
			best = i
		}
	}

	timer := q.entries[best]
	q.entries = append(q.entries[:best], q.entries[best+1:]...)
	return timer, true
}
