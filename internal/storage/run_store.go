// Package storage persists run artifacts and fetches remote listing
// images. The pipeline treats persistence as fire-and-forget: a store
// error is logged, never surfaced.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RunStore accepts JSON-serializable bundles keyed by a relative path
// such as "runs/<request_id>/bundle.json".
type RunStore interface {
	PutJSON(ctx context.Context, key string, value interface{}) error
}

// LocalStore writes run artifacts beneath a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a directory-backed store rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// PutJSON marshals value with indentation and writes it to root/key,
// creating parent directories as needed.
func (s *LocalStore) PutJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", key, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
