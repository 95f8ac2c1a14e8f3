package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localArchive struct {
	dir string
}

func init() {
	Register("local", createLocalArchive)
}

func createLocalArchive(args interface{}) (Archive, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local archive dir is required")
	}
	return &localArchive{dir: config.Dir}, nil
}

func (s *localArchive) Save(ctx context.Context, key string, content []byte) error {
	_ = ctx
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid archive key")
	}
	return os.WriteFile(filepath.Join(s.dir, key), content, 0o644)
}

func (s *localArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	if strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return nil, fmt.Errorf("invalid archive key")
	}
	return os.Open(filepath.Join(s.dir, key))
}
