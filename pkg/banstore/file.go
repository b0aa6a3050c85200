package banstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/moby/sys/atomicwriter"
)

const DefaultFile = "banned_users.json"

// FilePersistence stores the set as a JSON array of ids.
type FilePersistence struct {
	Path string
}

func NewFilePersistence(path string) *FilePersistence {
	if path == "" {
		path = DefaultFile
	}
	return &FilePersistence{Path: path}
}

// Load treats a missing file as an empty set.
func (f *FilePersistence) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.Path, err)
	}
	return ids, nil
}

func (f *FilePersistence) Save(_ context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ban list: %w", err)
	}
	if err := atomicwriter.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}
