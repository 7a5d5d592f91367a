package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/store"
)

// Registry — каталог пользовательских определений узлов.
//
// Явно конструируемый сервис с инжектированным хранилищем, не
// синглтон: один Registry на процесс, передаётся движку при сборке.
// Регистрация и удаление сериализуются мьютексом — это единственное
// разделяемое между runs состояние.
type Registry struct {
	mu     sync.RWMutex
	store  store.Store
	logger *slog.Logger
	defs   map[string]*domain.CustomNodeDefinition
}

// NewRegistry создаёт Registry поверх хранилища.
func NewRegistry(st store.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  st,
		logger: logger,
		defs:   make(map[string]*domain.CustomNodeDefinition),
	}
}

// Load читает персистентный каталог в память.
// Вызывается один раз при старте, до первой регистрации.
func (r *Registry) Load(ctx context.Context) error {
	defs, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs = make(map[string]*domain.CustomNodeDefinition, len(defs))
	for i := range defs {
		def := defs[i]
		r.defs[def.Type] = &def
	}

	r.logger.Info("custom node catalogue loaded", "definitions", len(r.defs))
	return nil
}

// Register валидирует определение и добавляет его в каталог.
//
// Определение того же типа замещается. На успехе каталог персистится
// целиком; при любой ошибке (валидации или персистентности) каталог
// остаётся в прежнем состоянии — частичных вставок не бывает.
func (r *Registry) Register(ctx context.Context, def *domain.CustomNodeDefinition) error {
	if err := ValidateDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *def
	now := time.Now()
	if stored.Metadata.CreatedAt.IsZero() {
		stored.Metadata.CreatedAt = now
	}
	stored.Metadata.UpdatedAt = now

	prev, existed := r.defs[stored.Type]
	r.defs[stored.Type] = &stored

	if err := r.persistLocked(ctx); err != nil {
		// Откатываем каталог: регистрация либо полная, либо никакая.
		if existed {
			r.defs[stored.Type] = prev
		} else {
			delete(r.defs, stored.Type)
		}
		return fmt.Errorf("persist catalogue: %w", err)
	}

	r.logger.Info("custom node registered", "type", stored.Type, "name", stored.Name)
	return nil
}

// Unregister удаляет определение. Возвращает, было ли удаление.
func (r *Registry) Unregister(ctx context.Context, nodeType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.defs[nodeType]
	if !existed {
		return false, nil
	}

	delete(r.defs, nodeType)
	if err := r.persistLocked(ctx); err != nil {
		r.defs[nodeType] = prev
		return false, fmt.Errorf("persist catalogue: %w", err)
	}

	r.logger.Info("custom node unregistered", "type", nodeType)
	return true, nil
}

// Get возвращает определение по типу.
func (r *Registry) Get(nodeType string) (*domain.CustomNodeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[nodeType]
	return def, ok
}

// List возвращает каталог, отсортированный по типу.
func (r *Registry) List() []domain.CustomNodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.CustomNodeDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}

// Touch увеличивает счётчик использований определения.
// Счётчик персистится при следующей записи каталога.
func (r *Registry) Touch(nodeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def, ok := r.defs[nodeType]; ok {
		def.Metadata.UsageCount++
	}
}

// ClearAll опустошает каталог и персистентное состояние.
func (r *Registry) ClearAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	r.defs = make(map[string]*domain.CustomNodeDefinition)

	r.logger.Info("custom node catalogue cleared")
	return nil
}

// Size возвращает количество определений.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// persistLocked записывает каталог целиком. Вызывается под мьютексом.
func (r *Registry) persistLocked(ctx context.Context) error {
	defs := make([]domain.CustomNodeDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return r.store.Save(ctx, defs)
}
