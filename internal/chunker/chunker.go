package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

// Split cuts text into bounded, overlapping chunks. Cuts land on paragraph
// boundaries when one fits, then sentence boundaries, and only hard-cut
// mid-sentence when a single unit exceeds maxLen. Consecutive chunks share
// the trailing overlap bytes of the prior chunk. The result is a pure
// function of the inputs: identical text always yields identical chunk
// boundaries and chunk ids.
func Split(sourceID, text string, maxLen, overlap int) ([]model.Chunk, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: max_len must be positive", appErr.ErrInvalid)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < max_len", appErr.ErrInvalid)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	paragraphs, sentences := boundaries(text)
	var chunks []model.Chunk
	start := 0
	for start < len(text) {
		end := len(text)
		if end-start > maxLen {
			end = cutPoint(paragraphs, sentences, start, start+maxLen)
		}
		segment := text[start:end]
		if strings.TrimSpace(segment) != "" {
			chunks = append(chunks, model.Chunk{
				ChunkID:     ChunkID(sourceID, start),
				SourceID:    sourceID,
				Text:        segment,
				OffsetStart: start,
				OffsetEnd:   end,
			})
		}
		if end >= len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// ChunkID derives a stable id from the source and the chunk's byte offset.
// Unchanged leading content keeps its ids across re-ingestions, so those
// vectors never need recomputing.
func ChunkID(sourceID string, offsetStart int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sourceID, offsetStart)))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash fingerprints raw text for staleness detection.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// cutPoint picks the best boundary in (start, limit]: the last paragraph
// break if any, else the last sentence end, else the hard limit.
func cutPoint(paragraphs, sentences []int, start, limit int) int {
	if cut := lastBoundary(paragraphs, start, limit); cut > 0 {
		return cut
	}
	if cut := lastBoundary(sentences, start, limit); cut > 0 {
		return cut
	}
	return limit
}

func lastBoundary(offsets []int, start, limit int) int {
	best := -1
	for _, off := range offsets {
		if off > limit {
			break
		}
		if off > start {
			best = off
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// boundaries scans the text once and collects paragraph breaks (after runs
// of blank lines) and sentence ends (terminator followed by whitespace),
// both as byte offsets pointing just past the boundary.
func boundaries(text string) (paragraphs, sentences []int) {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			if i+1 < len(text) && text[i+1] == '\n' {
				j := i + 1
				for j < len(text) && text[j] == '\n' {
					j++
				}
				paragraphs = append(paragraphs, j)
				i = j - 1
			}
		case '.', '!', '?':
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				sentences = append(sentences, i+1)
			}
		}
	}
	return paragraphs, sentences
}
