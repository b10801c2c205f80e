package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileStore persists the product collection as a single JSON document.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore wires a JSON document path into a Store.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "file_store").Logger(),
	}
}

// Load reads the backing document. A missing document is not an error: it
// yields an empty collection.
func (s *FileStore) Load(ctx context.Context) ([]Product, error) {
	if s.path == "" {
		return nil, ErrNotConfigured
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Product{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	for i := range products {
		products[i].applyDefaults()
	}

	s.logger.Debug().Int("products", len(products)).Msg("loaded tracked products")
	return products, nil
}

// Save overwrites the backing document with the given collection. The write
// goes through a temp file and rename so a crash never truncates the data.
func (s *FileStore) Save(ctx context.Context, products []Product) error {
	if s.path == "" {
		return ErrNotConfigured
	}
	if products == nil {
		products = []Product{}
	}

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	return nil
}

var _ Store = (*FileStore)(nil)
