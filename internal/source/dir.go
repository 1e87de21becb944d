// dir.go — получение ресурсов из локального каталога.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirFetcher — чтение ресурсов из каталога на диске.
type DirFetcher struct {
	root string
}

// NewDirFetcher создаёт загрузчик для каталога root.
func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{root: root}
}

// Root возвращает корневой каталог.
func (f *DirFetcher) Root() string {
	return f.root
}

// Fetch читает файл root/path.
func (f *DirFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Clean от корня отсекает переходы выше root
	clean := filepath.Clean("/" + path)
	data, err := os.ReadFile(filepath.Join(f.root, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	return data, nil
}
