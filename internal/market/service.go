package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

const defaultReportVideos = 8

// Service analyzes the competitive landscape around a topic: what videos
// already exist, which title formulas they use, what they cover, and where
// the gaps are. Each LLM analysis degrades to a note in the report instead
// of failing the whole run, a missing provider still yields the dataset.
type Service struct {
	searcher VideoSearcher
	gen      ai.IGenerator
	now      func() time.Time
}

func NewService(searcher VideoSearcher, gen ai.IGenerator) *Service {
	return &Service{searcher: searcher, gen: gen, now: time.Now}
}

// TopicReport runs the full analysis for a topic and renders it as markdown.
func (s *Service) TopicReport(ctx context.Context, topic string, maxVideos int) (*model.MarketReport, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", appErr.ErrInvalid)
	}
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: no video searcher configured", ai.ErrUnavailable)
	}
	if maxVideos <= 0 {
		maxVideos = defaultReportVideos
	}
	logger := logutil.GetLogger(ctx).With(zap.String("topic", topic))

	videos, err := s.searcher.Search(ctx, topic, maxVideos)
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: no videos found for %q", appErr.ErrNotFound, topic)
	}

	report := &model.MarketReport{
		Topic:       topic,
		Videos:      videos,
		GeneratedAt: s.now().Unix(),
	}
	if patterns, err := s.ExtractTitlePatterns(ctx, videos); err != nil {
		logger.Warn("title pattern analysis failed", zap.Error(err))
	} else {
		report.TitlePatterns = patterns
	}
	if topics, err := s.AnalyzeTopics(ctx, videos); err != nil {
		logger.Warn("topic coverage analysis failed", zap.Error(err))
	} else {
		report.TopicsCovered = topics
	}
	if analysis, err := s.AnalyzeContent(ctx, videos); err != nil {
		logger.Warn("gap analysis failed", zap.Error(err))
	} else {
		report.GapAnalysis = analysis
	}
	report.Markdown = renderReport(report, s.now())
	logger.Info("market report generated",
		zap.Int("videos", len(videos)),
		zap.Int("title_patterns", len(report.TitlePatterns)),
		zap.Int("topics_covered", len(report.TopicsCovered)),
	)
	return report, nil
}

// AnalyzeContent asks the model what the videos have in common and which
// angles remain unexplored.
func (s *Service) AnalyzeContent(ctx context.Context, videos []model.Video) (string, error) {
	if err := s.checkAnalyzable(videos); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(`Analyze these YouTube videos and answer: "What do these videos commonly cover vs what unique angles could be explored based on the available research?"

Video Data:
`)
	for i, v := range videos {
		fmt.Fprintf(&b, "%d. Title: %s\n   Description: %s\n   Views: %d, Duration: %ds\n\n",
			i+1, v.Title, v.Description, v.ViewCount, v.DurationSec)
	}
	b.WriteString(`Please provide:
1. Common themes/topics covered across these videos
2. Unique angles or perspectives that could be explored
3. Content gaps or opportunities for differentiation

Be specific and actionable in your analysis.

Lead with a short list of Actionable Items based on your analysis.`)

	out, err := s.gen.Generate(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("analyze video content: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ExtractTitlePatterns identifies the structural title formulas the videos
// share, one pattern per returned entry.
func (s *Service) ExtractTitlePatterns(ctx context.Context, videos []model.Video) ([]string, error) {
	if err := s.checkAnalyzable(videos); err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(`Analyze these YouTube video titles and identify common patterns. Focus on structural patterns, formatting, and phrasing conventions.

Video Titles:
`)
	for i, v := range videos {
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.Title)
	}
	b.WriteString(`
Please identify and list the most common title patterns you observe. Examples of patterns might be:
- "How to [action]" format
- "[Number] Ways to [achieve something]"
- Questions starting with "Why/What/How"
- Clickbait patterns with numbers or superlatives

Return ONLY a simple list of the patterns you identify, one pattern per line, without explanations or extra text.`)

	out, err := s.gen.Generate(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("extract title patterns: %w", err)
	}
	return parseListReply(out), nil
}

// AnalyzeTopics identifies the subjects covered across the videos.
func (s *Service) AnalyzeTopics(ctx context.Context, videos []model.Video) ([]string, error) {
	if err := s.checkAnalyzable(videos); err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(`Analyze these YouTube videos and identify the main topics/subjects being covered based on their titles and descriptions.

Video Data:
`)
	for i, v := range videos {
		fmt.Fprintf(&b, "%d. Title: %s\n   Description: %s\n\n", i+1, v.Title, v.Description)
	}
	b.WriteString(`Please identify the key topics, themes, and subject areas covered across these videos. Focus on:
- Main subject areas (e.g., technology, health, education, etc.)
- Specific subtopics within those areas
- Common themes or angles being discussed

Return ONLY a simple list of the topics you identify, one topic per line, without explanations or extra text.`)

	out, err := s.gen.Generate(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("analyze video topics: %w", err)
	}
	return parseListReply(out), nil
}

func (s *Service) checkAnalyzable(videos []model.Video) error {
	if s.gen == nil {
		return fmt.Errorf("%w: no generation provider configured", ai.ErrUnavailable)
	}
	if len(videos) == 0 {
		return fmt.Errorf("%w: no videos to analyze", appErr.ErrInvalid)
	}
	return nil
}

// parseListReply splits a one-item-per-line model reply, dropping bullet and
// numbering decorations.
func parseListReply(reply string) []string {
	var items []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.")
		line = strings.Trim(line, "•-* \t")
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

const topVideosShown = 5

func renderReport(report *model.MarketReport, generated time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Market Analysis Report: %s\n\n", report.Topic)
	fmt.Fprintf(&b, "**Generated:** %s\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Videos Analyzed:** %d\n\n---\n\n", len(report.Videos))

	b.WriteString("## Video Dataset Overview\n\n")
	fmt.Fprintf(&b, "**Total videos found:** %d\n\n", len(report.Videos))
	b.WriteString("### Top Videos Analyzed\n\n")
	for i, v := range report.Videos {
		if i >= topVideosShown {
			fmt.Fprintf(&b, "*...and %d more videos*\n", len(report.Videos)-topVideosShown)
			break
		}
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, v.Title)
		fmt.Fprintf(&b, "   - Views: %d | Duration: %ds\n", v.ViewCount, v.DurationSec)
		fmt.Fprintf(&b, "   - *%s*\n\n", v.Description)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Title Pattern Analysis\n\n")
	if len(report.TitlePatterns) > 0 {
		b.WriteString("**Common title patterns identified:**\n\n")
		for i, pattern := range report.TitlePatterns {
			fmt.Fprintf(&b, "%d. %s\n", i+1, pattern)
		}
		b.WriteString("\n**Insight:** These patterns represent proven engagement formulas in this topic area.\n\n")
	} else {
		b.WriteString("*Pattern analysis unavailable.*\n\n")
	}
	b.WriteString("---\n\n")

	b.WriteString("## Topic Coverage Analysis\n\n")
	if len(report.TopicsCovered) > 0 {
		b.WriteString("**Key topics and themes being covered:**\n\n")
		for _, topic := range report.TopicsCovered {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
		b.WriteString("\n**Insight:** This shows the current content landscape and saturation levels.\n\n")
	} else {
		b.WriteString("*Topic analysis unavailable.*\n\n")
	}
	b.WriteString("---\n\n")

	b.WriteString("## Content Gap & Opportunity Analysis\n\n")
	if report.GapAnalysis != "" {
		b.WriteString(report.GapAnalysis + "\n\n")
	} else {
		b.WriteString("*Detailed analysis unavailable.*\n\n")
	}
	b.WriteString("---\n\n")

	b.WriteString("## Recommended Actions\n\n")
	b.WriteString("### Content Strategy\n")
	competition := "moderate competition"
	if len(report.Videos) >= 6 {
		competition = "high competition"
	}
	fmt.Fprintf(&b, "1. **Market Size:** %d videos found suggests %s in this space\n", len(report.Videos), competition)
	b.WriteString("2. **Differentiation:** Focus on unique angles identified in the gap analysis above\n")
	b.WriteString("3. **Title Strategy:** Consider variations of the successful patterns identified\n")
	b.WriteString("4. **Content Quality:** Aim to provide more comprehensive coverage than existing content\n\n")
	b.WriteString("### Next Steps\n")
	b.WriteString("- Research specific subtopics with lower competition\n")
	b.WriteString("- Analyze audience engagement metrics for top performers\n")
	b.WriteString("- Plan content series around identified gaps\n")
	return b.String()
}
