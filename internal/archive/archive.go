package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/forgelabs/scriptforge/internal/model"
)

// Archive keeps a durable markdown copy of every fetched article so a
// research run can be audited after the fact.
type Archive interface {
	Save(ctx context.Context, key string, content []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Factory func(args interface{}) (Archive, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Archive, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("archive.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported archive type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("archive config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode archive config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode archive config: %w", err)
	}
	return nil
}

// Key returns the archive object name for a source.
func Key(sourceID string) string {
	return sourceID + ".md"
}

// RenderArticle formats a fetched document as markdown, front matter first.
func RenderArticle(doc *model.SourceDocument) []byte {
	var b strings.Builder
	b.WriteString("# " + doc.Title + "\n\n")
	if doc.URL != "" {
		b.WriteString("**URL:** " + doc.URL + "\n\n")
	}
	b.WriteString(doc.RawText)
	if !strings.HasSuffix(doc.RawText, "\n") {
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
