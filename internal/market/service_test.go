package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

type fakeSearcher struct {
	videos   []model.Video
	err      error
	lastTerm string
	lastMax  int
}

func (f *fakeSearcher) Search(ctx context.Context, term string, maxResults int) ([]model.Video, error) {
	f.lastTerm = term
	f.lastMax = maxResults
	return f.videos, f.err
}

// routedGen answers each analysis prompt with a canned reply picked by the
// prompt's wording.
type routedGen struct {
	prompts []string
}

func (g *routedGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	switch {
	case strings.Contains(prompt, "identify common patterns"):
		return "- \"How to [action]\" format\n- Questions starting with Why", nil
	case strings.Contains(prompt, "main topics/subjects"):
		return "1. engine diagnostics\n2. repair costs", nil
	default:
		return "Actionable Items: cover repair costs, nobody else does.", nil
	}
}

func sampleVideos(n int) []model.Video {
	videos := make([]model.Video, 0, n)
	for i := 0; i < n; i++ {
		videos = append(videos, model.Video{
			Title:       fmt.Sprintf("How to Fix Engine Problem %d", i+1),
			Description: fmt.Sprintf("Video %d walks through a common engine fault.", i+1),
			ViewCount:   int64(1000 * (i + 1)),
			DurationSec: 300,
		})
	}
	return videos
}

func TestTopicReportAssemblesAllSections(t *testing.T) {
	searcher := &fakeSearcher{videos: sampleVideos(7)}
	gen := &routedGen{}
	svc := NewService(searcher, gen)

	report, err := svc.TopicReport(context.Background(), "engine repair", 7)
	require.NoError(t, err)
	require.Equal(t, "engine repair", searcher.lastTerm)
	require.Equal(t, 7, searcher.lastMax)
	require.Len(t, report.Videos, 7)
	require.Len(t, gen.prompts, 3)

	require.Equal(t, []string{`"How to [action]" format`, "Questions starting with Why"}, report.TitlePatterns)
	require.Equal(t, []string{"engine diagnostics", "repair costs"}, report.TopicsCovered)
	require.Contains(t, report.GapAnalysis, "repair costs")

	md := report.Markdown
	require.Contains(t, md, "# Market Analysis Report: engine repair")
	require.Contains(t, md, "## Video Dataset Overview")
	require.Contains(t, md, "## Title Pattern Analysis")
	require.Contains(t, md, "## Topic Coverage Analysis")
	require.Contains(t, md, "## Content Gap & Opportunity Analysis")
	require.Contains(t, md, "## Recommended Actions")
	// only the top five videos are listed in full
	require.Contains(t, md, "How to Fix Engine Problem 5")
	require.NotContains(t, md, "How to Fix Engine Problem 6")
	require.Contains(t, md, "*...and 2 more videos*")
	require.Contains(t, md, "7 videos found suggests high competition")
}

func TestTopicReportModerateCompetitionWording(t *testing.T) {
	svc := NewService(&fakeSearcher{videos: sampleVideos(3)}, &routedGen{})
	report, err := svc.TopicReport(context.Background(), "niche topic", 3)
	require.NoError(t, err)
	require.Contains(t, report.Markdown, "3 videos found suggests moderate competition")
}

func TestTopicReportDegradesWithoutGenerator(t *testing.T) {
	svc := NewService(&fakeSearcher{videos: sampleVideos(4)}, nil)

	report, err := svc.TopicReport(context.Background(), "engine repair", 4)
	require.NoError(t, err)
	require.Len(t, report.Videos, 4)
	require.Empty(t, report.TitlePatterns)
	require.Empty(t, report.TopicsCovered)
	require.Empty(t, report.GapAnalysis)
	require.Contains(t, report.Markdown, "*Pattern analysis unavailable.*")
	require.Contains(t, report.Markdown, "*Topic analysis unavailable.*")
	require.Contains(t, report.Markdown, "*Detailed analysis unavailable.*")
}

func TestTopicReportValidatesInput(t *testing.T) {
	svc := NewService(&fakeSearcher{videos: sampleVideos(2)}, &routedGen{})
	_, err := svc.TopicReport(context.Background(), "   ", 5)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	svc = NewService(nil, &routedGen{})
	_, err = svc.TopicReport(context.Background(), "topic", 5)
	require.ErrorIs(t, err, ai.ErrUnavailable)
}

func TestTopicReportNoVideosIsNotFound(t *testing.T) {
	svc := NewService(&fakeSearcher{}, &routedGen{})
	_, err := svc.TopicReport(context.Background(), "obscure topic", 5)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestTopicReportSurfacesSearchFailure(t *testing.T) {
	svc := NewService(&fakeSearcher{err: errors.New("binary not found")}, &routedGen{})
	_, err := svc.TopicReport(context.Background(), "engine repair", 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "binary not found")
}

func TestExtractTitlePatternsCleansDecorations(t *testing.T) {
	gen := &routedGen{}
	svc := NewService(nil, gen)
	patterns, err := svc.ExtractTitlePatterns(context.Background(), sampleVideos(2))
	require.NoError(t, err)
	require.Equal(t, []string{`"How to [action]" format`, "Questions starting with Why"}, patterns)
	require.Contains(t, gen.prompts[0], "How to Fix Engine Problem 1")

	require.Equal(t, []string{"plain item", "numbered item", "starred item"},
		parseListReply("• plain item\n2. numbered item\n* starred item\n\n"))
}

func TestAnalyzeContentRequiresVideos(t *testing.T) {
	svc := NewService(nil, &routedGen{})
	_, err := svc.AnalyzeContent(context.Background(), nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	svc = NewService(nil, nil)
	_, err = svc.AnalyzeContent(context.Background(), sampleVideos(1))
	require.ErrorIs(t, err, ai.ErrUnavailable)
}
