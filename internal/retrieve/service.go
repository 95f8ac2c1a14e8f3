package retrieve

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
	"github.com/forgelabs/scriptforge/internal/storage"
)

const taskTypeQuery = "RETRIEVAL_QUERY"

type Options struct {
	DefaultTopK     int
	MaxContextChars int
}

// Service answers similarity queries over the chunk index. The embedder it
// receives is expected to carry the cache decorators, repeated queries for
// the same text never leave the process.
type Service struct {
	store    storage.Store
	embedder ai.IEmbedder
	opts     Options
}

func NewService(store storage.Store, embedder ai.IEmbedder, opts Options) *Service {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = 4000
	}
	return &Service{store: store, embedder: embedder, opts: opts}
}

// Retrieve embeds the query and returns the topK most similar passages,
// best first. A topK of zero or below is rejected, an empty index yields an
// empty result.
func (s *Service) Retrieve(ctx context.Context, queryText string, topK int, sourceIDs []string) ([]model.RetrievedPassage, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query text is required", appErr.ErrInvalid)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", appErr.ErrInvalid)
	}
	vec, err := s.embedder.Embed(ctx, queryText, taskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	var filter *storage.Filter
	if len(sourceIDs) > 0 {
		filter = &storage.Filter{SourceIDs: sourceIDs}
	}
	scored, err := s.store.Search(ctx, vec, topK, filter)
	if err != nil {
		return nil, err
	}
	passages := make([]model.RetrievedPassage, 0, len(scored))
	for _, item := range scored {
		passages = append(passages, model.RetrievedPassage{
			Text:     item.Entry.Text,
			SourceID: item.Entry.SourceID,
			ChunkID:  item.Entry.ChunkID,
			Score:    item.Score,
		})
	}
	logutil.GetLogger(ctx).Debug("retrieval done",
		zap.Int("top_k", topK),
		zap.Int("hits", len(passages)),
	)
	return passages, nil
}

// RetrieveContext runs Retrieve with the configured topK and folds the hits
// into a single prompt-ready context block.
func (s *Service) RetrieveContext(ctx context.Context, queryText string, sourceIDs []string) (string, error) {
	passages, err := s.Retrieve(ctx, queryText, s.opts.DefaultTopK, sourceIDs)
	if err != nil {
		return "", err
	}
	return BuildContext(passages, s.opts.MaxContextChars), nil
}

// BuildContext concatenates passages in rank order, separated by blank
// lines, stopping before the block would exceed maxChars. A first passage
// longer than the budget is truncated rather than dropped.
func BuildContext(passages []model.RetrievedPassage, maxChars int) string {
	if maxChars <= 0 || len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range passages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		sep := 0
		if b.Len() > 0 {
			sep = 2
		}
		if b.Len()+sep+len(text) > maxChars {
			if i == 0 {
				// back up so the cut never splits a multi-byte rune
				cut := maxChars
				for cut > 0 && !utf8.RuneStart(text[cut]) {
					cut--
				}
				return text[:cut]
			}
			break
		}
		if sep > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String()
}
