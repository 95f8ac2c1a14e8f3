package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

const (
	defaultBinary        = "yt-dlp"
	defaultSearchResults = 10
	maxDescriptionChars  = 200
)

// VideoSearcher finds published videos for a search term.
type VideoSearcher interface {
	Search(ctx context.Context, term string, maxResults int) ([]model.Video, error)
}

type Options struct {
	Binary    string
	UserAgent string
}

// YTDLPSearcher shells out to yt-dlp in flat-playlist mode, one JSON object
// per result line. No YouTube API key is needed, which keeps the tool usable
// out of the box.
type YTDLPSearcher struct {
	binary    string
	userAgent string
	run       func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewYTDLPSearcher(opts Options) *YTDLPSearcher {
	if opts.Binary == "" {
		opts.Binary = defaultBinary
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	return &YTDLPSearcher{
		binary:    opts.Binary,
		userAgent: opts.UserAgent,
		run:       runCommand,
	}
}

func (s *YTDLPSearcher) Search(ctx context.Context, term string, maxResults int) ([]model.Video, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", appErr.ErrInvalid)
	}
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	args := []string{
		"--dump-json",
		"--no-download",
		"--flat-playlist",
		"--ignore-errors",
		"--no-warnings",
		"--user-agent", s.userAgent,
		fmt.Sprintf("ytsearch%d:%s", maxResults, term),
	}
	out, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search: %w", err)
	}
	videos := parseSearchOutput(ctx, out)
	logutil.GetLogger(ctx).Debug("video search done",
		zap.String("term", term),
		zap.Int("hits", len(videos)),
	)
	return videos, nil
}

type searchHit struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ViewCount   *int64   `json:"view_count"`
	Duration    *float64 `json:"duration"`
}

// parseSearchOutput decodes one JSON object per line, skipping lines yt-dlp
// emits for entries it failed to resolve.
func parseSearchOutput(ctx context.Context, out []byte) []model.Video {
	var videos []model.Video
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var hit searchHit
		if err := json.Unmarshal([]byte(line), &hit); err != nil {
			logutil.GetLogger(ctx).Debug("skipping unparsable search line", zap.Error(err))
			continue
		}
		description := hit.Description
		if description == "" {
			// flat extraction often carries no description
			description = hit.Title
		}
		if len(description) > maxDescriptionChars {
			description = description[:maxDescriptionChars] + "..."
		}
		video := model.Video{
			Title:       hit.Title,
			Description: description,
		}
		if hit.ViewCount != nil {
			video.ViewCount = *hit.ViewCount
		}
		if hit.Duration != nil {
			video.DurationSec = int64(*hit.Duration)
		}
		videos = append(videos, video)
	}
	return videos
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
