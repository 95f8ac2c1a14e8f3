package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/chunker"
	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
	"github.com/forgelabs/scriptforge/internal/retrieve"
)

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Generator writes video scripts grounded on retrieved passages. Generated
// scripts are cached by request content, re-ordering an identical script
// within the TTL costs nothing.
type Generator struct {
	retriever *retrieve.Service
	gen       ai.IGenerator
	cache     *expirable.LRU[string, string]
	now       func() int64
}

func NewGenerator(retriever *retrieve.Service, gen ai.IGenerator, opts Options) *Generator {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Generator{
		retriever: retriever,
		gen:       gen,
		cache:     expirable.NewLRU[string, string](opts.CacheSize, nil, opts.CacheTTL),
		now:       func() int64 { return time.Now().Unix() },
	}
}

// Generate retrieves context for the topic and key points and drafts the
// script as markdown.
func (g *Generator) Generate(ctx context.Context, req *model.ScriptRequest) (*model.Script, error) {
	if req == nil || strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", appErr.ErrInvalid)
	}
	if g.gen == nil {
		return nil, fmt.Errorf("%w: no generation provider configured", ai.ErrUnavailable)
	}
	if req.RuntimeMinutes <= 0 {
		req.RuntimeMinutes = 5
	}
	if req.Tone == "" {
		req.Tone = "conversational"
	}

	cacheKey := requestKey(req)
	if cached, ok := g.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("script cache hit", zap.String("topic", req.Topic))
		return &model.Script{Topic: req.Topic, Markdown: cached, Cached: true, GeneratedAt: g.now()}, nil
	}

	query := req.Topic
	if len(req.KeyPoints) > 0 {
		query += " " + strings.Join(req.KeyPoints, " ")
	}
	researchContext, err := g.retriever.RetrieveContext(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve script context: %w", err)
	}

	prompt := buildScriptPrompt(req, researchContext)
	markdown, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	g.cache.Add(cacheKey, markdown)
	logutil.GetLogger(ctx).Info("script generated",
		zap.String("topic", req.Topic),
		zap.Int("context_chars", len(researchContext)),
		zap.Int("script_chars", len(markdown)),
	)
	return &model.Script{Topic: req.Topic, Markdown: markdown, GeneratedAt: g.now()}, nil
}

// Summarize condenses retrieved passages about a topic into one of the
// research panel flavors: key_facts, context, angles, or related_topics.
func (g *Generator) Summarize(ctx context.Context, topic, summaryType string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", fmt.Errorf("%w: topic is required", appErr.ErrInvalid)
	}
	if g.gen == nil {
		return "", fmt.Errorf("%w: no generation provider configured", ai.ErrUnavailable)
	}
	var query string
	switch summaryType {
	case "key_facts":
		query = "key facts about " + topic
	case "context":
		query = "background context history of " + topic
	case "angles":
		query = "different perspectives approaches to " + topic
	case "related_topics":
		query = topic
	default:
		query = topic
	}
	content := ""
	if summaryType != "related_topics" {
		content, _ = g.retriever.RetrieveContext(ctx, query, nil)
		if len(content) > 800 {
			content = content[:800]
		}
	}
	prompt := buildSummaryPrompt(topic, summaryType, content)
	out, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func buildScriptPrompt(req *model.ScriptRequest, researchContext string) string {
	var b strings.Builder
	brand := req.BrandName
	if brand == "" {
		brand = "the channel"
	}
	focus := req.Focus
	if focus == "" {
		focus = "clear, well-researched explainers"
	}
	fmt.Fprintf(&b, "You are a script writer for %s which focuses on %s.\n\n", brand, focus)
	b.WriteString("Your job is to draft a video script following these specifications:\n\n")
	fmt.Fprintf(&b, "**Topic:** %s\n", req.Topic)
	if len(req.KeyPoints) > 0 {
		b.WriteString("**Key Points to Cover:**\n")
		for _, p := range req.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	fmt.Fprintf(&b, "**Tone:** %s\n", req.Tone)
	fmt.Fprintf(&b, "**Target Runtime:** %d minutes\n\n", req.RuntimeMinutes)
	b.WriteString("**Writing Style Guidelines:**\n")
	b.WriteString("- Use contractions and casual language\n")
	b.WriteString("- Include transition phrases like \"here's the thing,\" \"so,\" \"what's interesting is\"\n")
	b.WriteString("- Ask rhetorical questions to engage viewers\n")
	b.WriteString("- Sound natural and conversational\n")
	fmt.Fprintf(&b, "- Match the specified tone: %s\n\n", req.Tone)
	if researchContext != "" {
		b.WriteString("**Research Context:**\n")
		b.WriteString("Ground your claims in the passages below and stay faithful to them.\n\n")
		b.WriteString(researchContext)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Write a complete script that covers all key points. Structure it for a %d-minute video with natural pacing and smooth transitions. Format the output as a markdown document with clear section headers.", req.RuntimeMinutes)
	return b.String()
}

func buildSummaryPrompt(topic, summaryType, content string) string {
	switch summaryType {
	case "key_facts":
		return fmt.Sprintf("Extract 3-5 key facts about %s from this content. Return as bullet points:\n\n%s", topic, content)
	case "context":
		return fmt.Sprintf("Write 2-3 sentences explaining the background context of %s based on this content:\n\n%s", topic, content)
	case "angles":
		return fmt.Sprintf("List 3-4 different approaches or perspectives related to %s from this content. Return as bullet points:\n\n%s", topic, content)
	case "related_topics":
		return fmt.Sprintf("List 5-6 related topics that are relevant to %s. Include subtopics, related fields, and adjacent areas of interest. Return as bullet points with just the topic names (no descriptions).", topic)
	default:
		return fmt.Sprintf("Summarize information about %s from this content in 2-3 sentences:\n\n%s", topic, content)
	}
}

func requestKey(req *model.ScriptRequest) string {
	parts := []string{
		req.BrandName, req.Focus, req.Topic, req.Tone,
		fmt.Sprintf("%d", req.RuntimeMinutes),
		strings.Join(req.KeyPoints, "\x00"),
	}
	return chunker.ContentHash(strings.Join(parts, "\x01"))
}
