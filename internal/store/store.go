// Package store отвечает за персистентность каталога пользовательских
// узлов.
//
// Каталог хранится плоской коллекцией CustomNodeDefinition; ключом
// снаружи служит Type. Реализации: MemoryStore (тесты и одноразовые
// runs), FileStore (JSON-документ на диске), PostgresStore (pgx).
package store

import (
	"context"
	"errors"

	"github.com/shaiso/Flowline/internal/domain"
)

// ErrUnavailable — хранилище недоступно.
var ErrUnavailable = errors.New("store unavailable")

// Store — хранилище каталога пользовательских узлов.
//
// Save всегда записывает каталог целиком: реестр сериализует
// регистрации, поэтому частичных записей не бывает.
type Store interface {
	// Load читает весь каталог.
	Load(ctx context.Context) ([]domain.CustomNodeDefinition, error)

	// Save записывает весь каталог, замещая предыдущий.
	Save(ctx context.Context, defs []domain.CustomNodeDefinition) error

	// Clear удаляет персистентное состояние каталога.
	Clear(ctx context.Context) error
}
