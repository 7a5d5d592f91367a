package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shaiso/Flowline/internal/domain"
)

// FileStore — хранилище каталога в JSON-файле.
//
// Запись атомарная: сначала во временный файл рядом, затем rename.
type FileStore struct {
	path string
}

// NewFileStore создаёт FileStore с указанным путём.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает каталог из файла. Отсутствующий файл — пустой каталог.
func (s *FileStore) Load(_ context.Context) ([]domain.CustomNodeDefinition, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	var defs []domain.CustomNodeDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("unmarshal catalogue: %w", err)
	}
	return defs, nil
}

// Save атомарно записывает каталог в файл.
func (s *FileStore) Save(_ context.Context, defs []domain.CustomNodeDefinition) error {
	if defs == nil {
		defs = []domain.CustomNodeDefinition{}
	}

	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalogue: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalogue dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalogue-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write catalogue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace catalogue: %w", err)
	}
	return nil
}

// Clear удаляет файл каталога.
func (s *FileStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
