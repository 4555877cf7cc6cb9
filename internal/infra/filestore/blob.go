package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

// Blob é um documento inteiro, lido e gravado de uma vez.
// Read devolve entity.ErrFileNotFound quando o documento não existe.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
}

// LocalBlob grava em disco via arquivo temporário + rename, então um leitor
// nunca vê o arquivo pela metade.
type LocalBlob struct {
	Path string
}

func NewLocalBlob(path string) *LocalBlob {
	return &LocalBlob{Path: path}
}

func (b *LocalBlob) Name() string { return b.Path }

func (b *LocalBlob) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, entity.ErrFileNotFound
		}
		return nil, fmt.Errorf("erro ao ler %s: %w", b.Path, err)
	}
	return data, nil
}

func (b *LocalBlob) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("erro ao criar diretório %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("erro ao criar temporário: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("erro ao gravar %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, b.Path); err != nil {
		return fmt.Errorf("erro ao substituir %s: %w", b.Path, err)
	}
	return nil
}

// MemoryBlob é usado nos testes e no backend "memory".
type MemoryBlob struct {
	mu   sync.Mutex
	name string
	data []byte
}

func NewMemoryBlob(name string) *MemoryBlob {
	return &MemoryBlob{name: name}
}

func (b *MemoryBlob) Name() string { return b.name }

func (b *MemoryBlob) Read(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, entity.ErrFileNotFound
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (b *MemoryBlob) Write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	return nil
}
