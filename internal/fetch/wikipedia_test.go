package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

type fakeWiki struct {
	titles   []string
	extracts map[string]string
	requests []string
}

func (w *fakeWiki) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		w.requests = append(w.requests, action)
		switch action {
		case "opensearch":
			_ = json.NewEncoder(rw).Encode([]interface{}{
				r.URL.Query().Get("search"), w.titles, []string{}, []string{},
			})
		case "query":
			title := r.URL.Query().Get("titles")
			extract, ok := w.extracts[title]
			page := map[string]interface{}{
				"title":   title,
				"extract": extract,
				"fullurl": "https://en.wikipedia.org/wiki/" + title,
			}
			if !ok {
				page["missing"] = true
			}
			_ = json.NewEncoder(rw).Encode(map[string]interface{}{
				"query": map[string]interface{}{
					"pages": map[string]interface{}{"1": page},
				},
			})
		default:
			rw.WriteHeader(http.StatusBadRequest)
		}
	}
}

func newFetcher(t *testing.T, w *fakeWiki) *WikipediaFetcher {
	t.Helper()
	srv := httptest.NewServer(w.handler())
	t.Cleanup(srv.Close)
	return NewWikipediaFetcher(Options{BaseURL: srv.URL, Client: srv.Client()})
}

func TestFetchReturnsArticle(t *testing.T) {
	wiki := &fakeWiki{
		titles:   []string{"Go (programming language)"},
		extracts: map[string]string{"Go (programming language)": "Go is a statically typed language."},
	}
	f := newFetcher(t, wiki)

	doc, err := f.Fetch(context.Background(), "golang")
	require.NoError(t, err)
	require.Equal(t, "Go (programming language)", doc.Title)
	require.Equal(t, "Go is a statically typed language.", doc.RawText)
	require.Equal(t, "wiki-go-programming-language", doc.SourceID)
	require.NotZero(t, doc.FetchedAt)
	require.Contains(t, doc.URL, "wikipedia.org/wiki/")
}

func TestFetchResolvesDisambiguation(t *testing.T) {
	wiki := &fakeWiki{
		titles: []string{"Mercury (disambiguation)", "Mercury (planet)", "Mercury (element)"},
		extracts: map[string]string{
			"Mercury (disambiguation)": "Mercury may refer to several things.",
			"Mercury (planet)":         "Mercury is the smallest planet.",
			"Mercury (element)":        "Mercury is a chemical element.",
		},
	}
	f := newFetcher(t, wiki)

	doc, err := f.Fetch(context.Background(), "mercury planet")
	require.NoError(t, err)
	require.Equal(t, "Mercury (planet)", doc.Title)
}

func TestSearchTitlesReturnsCandidates(t *testing.T) {
	wiki := &fakeWiki{titles: []string{"Go (programming language)", "Go (game)"}}
	f := newFetcher(t, wiki)

	titles, err := f.SearchTitles(context.Background(), "go")
	require.NoError(t, err)
	require.Equal(t, []string{"Go (programming language)", "Go (game)"}, titles)
	require.Equal(t, []string{"opensearch"}, wiki.requests)
}

func TestFetchNoResultsIsNotFound(t *testing.T) {
	f := newFetcher(t, &fakeWiki{})
	_, err := f.Fetch(context.Background(), "zxqwer nonexistent")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestFetchValidatesTopic(t *testing.T) {
	f := newFetcher(t, &fakeWiki{})
	_, err := f.Fetch(context.Background(), "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestFetchDelaysBetweenCalls(t *testing.T) {
	wiki := &fakeWiki{
		titles:   []string{"Topic"},
		extracts: map[string]string{"Topic": "Body."},
	}
	srv := httptest.NewServer(wiki.handler())
	t.Cleanup(srv.Close)
	f := NewWikipediaFetcher(Options{BaseURL: srv.URL, Client: srv.Client(), Delay: time.Second})
	var slept []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := f.Fetch(context.Background(), "topic")
	require.NoError(t, err)
	// one pause per api call: search plus extract
	require.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

func TestSourceID(t *testing.T) {
	require.Equal(t, "wiki-go-programming-language", SourceID("Go (programming language)"))
	require.Equal(t, "wiki-climate-change", SourceID("  Climate Change "))
	require.Equal(t, "wiki-c", SourceID("C++"))
}

func TestMarkdownToText(t *testing.T) {
	md := "# Title\n\nFirst paragraph with **bold** text.\n\n- item one\n- item two\n\nSecond paragraph."
	got := MarkdownToText(md)
	require.Contains(t, got, "Title")
	require.Contains(t, got, "First paragraph with bold text.")
	require.Contains(t, got, "Second paragraph.")
	require.NotContains(t, got, "#")
	require.NotContains(t, got, "**")
	// block separation survives for the chunker
	require.Contains(t, got, "First paragraph with bold text.\n\n")
}
