package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/archive"
	"github.com/forgelabs/scriptforge/internal/ingest"
	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

const maxSearchTerms = 8

// Fetcher resolves a topic to a source document.
type Fetcher interface {
	Fetch(ctx context.Context, topic string) (*model.SourceDocument, error)
}

// Service runs a full research pass for a topic: expand it into search
// terms, fetch each article, archive the markdown copy, and feed the text
// through the ingestion pipeline.
type Service struct {
	fetcher     Fetcher
	archive     archive.Archive
	coordinator *ingest.Coordinator
	gen         ai.IGenerator
}

func NewService(fetcher Fetcher, arc archive.Archive, coordinator *ingest.Coordinator, gen ai.IGenerator) *Service {
	return &Service{fetcher: fetcher, archive: arc, coordinator: coordinator, gen: gen}
}

// Research fetches and ingests every expanded search term. Key points
// steer the term expansion. A term that fails to fetch is reported and
// skipped, the rest of the run continues.
func (s *Service) Research(ctx context.Context, topic string, keyPoints []string) (*model.ResearchReport, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("topic", topic))

	terms := s.ExpandSearchTerms(ctx, topic, keyPoints)
	report := &model.ResearchReport{Topic: topic, SearchTerms: terms}
	seen := make(map[string]struct{})
	for _, term := range terms {
		doc, err := s.fetcher.Fetch(ctx, term)
		if err != nil {
			logger.Warn("fetch failed, skipping term", zap.String("term", term), zap.Error(err))
			report.Sources = append(report.Sources, model.IngestResult{
				SourceID: "",
				Status:   model.IngestStatusFailed,
				Error:    err.Error(),
			})
			continue
		}
		if _, dup := seen[doc.SourceID]; dup {
			continue
		}
		seen[doc.SourceID] = struct{}{}

		if s.archive != nil {
			if err := s.archive.Save(ctx, archive.Key(doc.SourceID), archive.RenderArticle(doc)); err != nil {
				logger.Warn("archive save failed", zap.String("source_id", doc.SourceID), zap.Error(err))
			}
		}
		res, err := s.coordinator.Ingest(ctx, doc)
		if err != nil {
			return nil, err
		}
		report.Sources = append(report.Sources, *res)
	}
	logger.Info("research run done",
		zap.Int("terms", len(terms)),
		zap.Int("sources", len(report.Sources)),
	)
	return report, nil
}

// ExpandSearchTerms asks the model for related search terms, keeping the
// topic itself first. Any model failure degrades to just the topic.
func (s *Service) ExpandSearchTerms(ctx context.Context, topic string, keyPoints []string) []string {
	if s.gen == nil {
		return []string{topic}
	}
	var b strings.Builder
	fmt.Fprintf(&b, `Generate 5-8 relevant search terms for the topic: %q

Return only a JSON array of strings. Include the original topic and related terms, synonyms, and subtopics.

Example for "Artificial Intelligence":
["artificial intelligence", "machine learning", "neural networks", "deep learning", "AI algorithms", "natural language processing"]`, topic)
	if len(keyPoints) > 0 {
		b.WriteString("\n\nThe script will cover these key points, include terms for them:\n")
		for _, p := range keyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	reply, err := s.gen.Generate(ctx, b.String())
	if err != nil {
		logutil.GetLogger(ctx).Warn("search term expansion failed", zap.Error(err))
		return []string{topic}
	}
	terms := parseSearchTerms(reply, topic)
	if len(terms) == 0 {
		return []string{topic}
	}
	return terms
}

func parseSearchTerms(reply, topic string) []string {
	reply = strings.TrimSpace(reply)
	// models occasionally wrap the array in a code fence
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var raw []string
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return nil
	}
	out := []string{topic}
	seen := map[string]struct{}{strings.ToLower(topic): {}}
	for _, term := range raw {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
		if len(out) >= maxSearchTerms {
			break
		}
	}
	return out
}
