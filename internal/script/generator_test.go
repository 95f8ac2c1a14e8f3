package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
	"github.com/forgelabs/scriptforge/internal/retrieve"
	"github.com/forgelabs/scriptforge/internal/storage"
)

type stubGen struct {
	calls   int
	prompts []string
	reply   string
}

func (s *stubGen) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.reply, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) ModelName() string { return "stub" }

func newGenerator(t *testing.T, gen *stubGen) *Generator {
	t.Helper()
	st := storage.NewMemory()
	err := st.ReplaceSource(context.Background(), storage.ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "wiki-go", ContentHash: "h", ChunkCount: 1},
		Entries: []model.IndexEntry{{
			ChunkID: "c1", SourceID: "wiki-go",
			Text: "Go was designed at Google in 2007.", ContentHash: "h1",
			Embedding: []float32{1, 0},
		}},
	})
	require.NoError(t, err)
	retriever := retrieve.NewService(st, stubEmbedder{}, retrieve.Options{})
	return NewGenerator(retriever, gen, Options{})
}

func TestGenerateGroundsPromptInRetrievedContext(t *testing.T) {
	gen := &stubGen{reply: "# Video Script\n\nHello."}
	g := newGenerator(t, gen)

	req := &model.ScriptRequest{
		BrandName:      "TechBrief",
		Focus:          "developer tooling",
		Topic:          "Go programming",
		KeyPoints:      []string{"history", "concurrency"},
		Tone:           "upbeat",
		RuntimeMinutes: 3,
	}
	out, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "# Video Script\n\nHello.", out.Markdown)
	require.False(t, out.Cached)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	require.Contains(t, prompt, "TechBrief")
	require.Contains(t, prompt, "**Topic:** Go programming")
	require.Contains(t, prompt, "- history")
	require.Contains(t, prompt, "- concurrency")
	require.Contains(t, prompt, "3-minute video")
	require.Contains(t, prompt, "Go was designed at Google in 2007.")
}

func TestGenerateCachesIdenticalRequests(t *testing.T) {
	gen := &stubGen{reply: "script body"}
	g := newGenerator(t, gen)

	req := &model.ScriptRequest{Topic: "Go programming", RuntimeMinutes: 5}
	first, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Markdown, second.Markdown)
	require.Equal(t, 1, gen.calls)

	// a different tone is a different script
	_, err = g.Generate(context.Background(), &model.ScriptRequest{Topic: "Go programming", RuntimeMinutes: 5, Tone: "serious"})
	require.NoError(t, err)
	require.Equal(t, 2, gen.calls)
}

func TestGenerateValidatesRequest(t *testing.T) {
	g := newGenerator(t, &stubGen{})
	_, err := g.Generate(context.Background(), nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = g.Generate(context.Background(), &model.ScriptRequest{Topic: "  "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestSummarizeBuildsTypedPrompts(t *testing.T) {
	gen := &stubGen{reply: "- fact one\n- fact two"}
	g := newGenerator(t, gen)

	out, err := g.Summarize(context.Background(), "Go programming", "key_facts")
	require.NoError(t, err)
	require.Equal(t, "- fact one\n- fact two", out)
	require.Contains(t, gen.prompts[0], "Extract 3-5 key facts about Go programming")
	require.Contains(t, gen.prompts[0], "Go was designed at Google in 2007.")

	_, err = g.Summarize(context.Background(), "Go programming", "related_topics")
	require.NoError(t, err)
	require.Contains(t, gen.prompts[1], "List 5-6 related topics")
	// related topics need no retrieved content
	require.False(t, strings.Contains(gen.prompts[1], "Google in 2007"))
}
