package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"storage": {"type": "memory"},
		"ai": {"embed_provider": "openai", "embed_model": "text-embedding-3-small"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 1000, cfg.Chunking.MaxLen)
	require.Equal(t, 100, cfg.Chunking.Overlap)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, 4000, cfg.Retrieval.MaxContextChars)
	require.Equal(t, "https://en.wikipedia.org/w/api.php", cfg.Fetcher.BaseURL)
	require.Equal(t, 3, cfg.AI.MaxRetries)
	require.Equal(t, "yt-dlp", cfg.Market.YTDLPPath)
	require.Equal(t, 8, cfg.Market.MaxVideos)
}

func TestLoadRejectsMissingPort(t *testing.T) {
	path := writeConfig(t, `{"storage": {"type": "memory"}, "ai": {"embed_provider": "openai", "embed_model": "m"}}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsOverlapNotBelowMaxLen(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"storage": {"type": "memory"},
		"ai": {"embed_provider": "openai", "embed_model": "m"},
		"chunking": {"max_len": 100, "overlap": 100}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"storage": {"type": "postgres"},
		"ai": {"embed_provider": "openai", "embed_model": "m"}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownStorageType(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"storage": {"type": "redis"},
		"ai": {"embed_provider": "openai", "embed_model": "m"}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}
