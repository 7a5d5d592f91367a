package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Flowline/internal/builtin"
	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/sandbox"
	"github.com/shaiso/Flowline/internal/store"
)

// App — собранный набор сервисов CLI: хранилище, реестры, движок.
//
// Все команды работают с движком в одном процессе; общего сервера нет,
// общее состояние — только реестр пользовательских узлов в store.
type App struct {
	Logger   *slog.Logger
	Store    store.Store
	Builtins *builtin.Registry
	Nodes    *sandbox.Registry
	Executor *sandbox.Executor
	Runner   *engine.Runner

	pool *pgxpool.Pool
}

// newApp собирает App по переменным окружения.
//
// FLOWLINE_STORE:
//   - "postgres"    — реестр узлов в Postgres (FLOWLINE_DB_URL)
//   - "memory"      — in-memory, без персистентности
//   - произвольный путь — JSON-файл
//   - пусто         — ~/.flowline/nodes.json
//
// FLOWLINE_SANDBOX_TIMEOUT_SEC — бюджет одного sandbox-вызова.
func newApp(ctx context.Context, logger *slog.Logger) (*App, error) {
	app := &App{Logger: logger}

	if err := app.setupStore(ctx); err != nil {
		return nil, err
	}

	app.Nodes = sandbox.NewRegistry(app.Store, logger)
	if err := app.Nodes.Load(ctx); err != nil {
		return nil, fmt.Errorf("load node registry: %w", err)
	}

	app.Builtins = builtin.NewRegistry()
	app.Executor = sandbox.NewExecutor(sandbox.ExecutorConfig{
		Timeout: sandboxTimeout(),
		Logger:  logger,
	})

	app.Runner = engine.New(engine.Config{
		Builtins: app.Builtins,
		Sandbox:  app.Nodes,
		Executor: app.Executor,
		Fetch:    builtin.HTTPFetch(&http.Client{Timeout: 60 * time.Second}),
		Logger:   logger,
	})

	return app, nil
}

// setupStore выбирает backend реестра узлов.
func (a *App) setupStore(ctx context.Context) error {
	switch mode := os.Getenv("FLOWLINE_STORE"); mode {
	case "postgres":
		pool, err := store.NewPool(ctx)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		a.Store = store.NewPostgresStore(pool)

	case "memory":
		a.Store = store.NewMemoryStore()

	case "":
		path, err := defaultNodesPath()
		if err != nil {
			return err
		}
		a.Store = store.NewFileStore(path)

	default:
		a.Store = store.NewFileStore(mode)
	}

	return nil
}

// Close освобождает ресурсы App.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// defaultNodesPath — путь файлового реестра по умолчанию.
func defaultNodesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}

	dir := filepath.Join(home, ".flowline")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	return filepath.Join(dir, "nodes.json"), nil
}

// sandboxTimeout читает бюджет sandbox-вызова из окружения.
func sandboxTimeout() time.Duration {
	raw := os.Getenv("FLOWLINE_SANDBOX_TIMEOUT_SEC")
	if raw == "" {
		return 0 // executor подставит default
	}

	sec, err := strconv.Atoi(raw)
	if err != nil || sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}

// loadGraphSpec читает и парсит JSON-файл флоу.
func loadGraphSpec(path string) (*domain.GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow file: %w", err)
	}

	var spec domain.GraphSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse flow file %s: %w", path, err)
	}

	if spec.Name == "" {
		base := filepath.Base(path)
		spec.Name = base[:len(base)-len(filepath.Ext(base))]
	}

	return &spec, nil
}
