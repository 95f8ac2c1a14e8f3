package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/chunker"
	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
	"github.com/forgelabs/scriptforge/internal/storage"
)

const taskTypeDocument = "RETRIEVAL_DOCUMENT"

type Options struct {
	MaxLen  int
	Overlap int
}

// Coordinator turns source documents into indexed, embedded chunks. It
// short-circuits unchanged content via fingerprints, reuses vectors for
// chunks whose text did not change, and commits a source atomically so the
// index never exposes a half-ingested document.
type Coordinator struct {
	store    storage.Store
	embedder ai.IEmbedder
	opts     Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	now   func() int64
}

func NewCoordinator(store storage.Store, embedder ai.IEmbedder, opts Options) *Coordinator {
	if opts.MaxLen <= 0 {
		opts.MaxLen = 1000
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxLen {
		opts.Overlap = opts.MaxLen / 10
	}
	return &Coordinator{
		store:    store,
		embedder: embedder,
		opts:     opts,
		locks:    make(map[string]*sync.Mutex),
		now:      func() int64 { return time.Now().Unix() },
	}
}

// Ingest processes one source document end to end. Concurrent calls for the
// same source id are serialized; different sources proceed in parallel.
func (c *Coordinator) Ingest(ctx context.Context, doc *model.SourceDocument) (*model.IngestResult, error) {
	if doc == nil || doc.SourceID == "" {
		return nil, fmt.Errorf("%w: source_id is required", appErr.ErrInvalid)
	}
	lock := c.sourceLock(doc.SourceID)
	lock.Lock()
	defer lock.Unlock()

	logger := logutil.GetLogger(ctx).With(zap.String("source_id", doc.SourceID))

	contentHash := chunker.ContentHash(doc.RawText)
	existing, found, err := c.store.Fingerprint(ctx, doc.SourceID)
	if err != nil {
		return nil, err
	}
	if found && existing.ContentHash == contentHash {
		logger.Debug("content unchanged, skipping ingestion")
		return &model.IngestResult{
			SourceID:   doc.SourceID,
			Status:     model.IngestStatusUnchanged,
			ChunkCount: existing.ChunkCount,
		}, nil
	}

	chunks, err := chunker.Split(doc.SourceID, doc.RawText, c.opts.MaxLen, c.opts.Overlap)
	if err != nil {
		return nil, err
	}

	prior, err := c.priorEntries(ctx, doc.SourceID, found)
	if err != nil {
		return nil, err
	}

	entries := make([]model.IndexEntry, 0, len(chunks))
	embedded := 0
	var firstErr error
	for _, chunk := range chunks {
		chunkHash := chunker.ContentHash(chunk.Text)
		if prev, ok := prior[chunk.ChunkID]; ok && prev.ContentHash == chunkHash {
			entries = append(entries, withChunkPosition(prev, chunk))
			continue
		}
		vec, err := c.embedder.Embed(ctx, chunk.Text, taskTypeDocument)
		if err != nil {
			// keep embedding siblings so their vectors land in the
			// durable cache, a later retry picks them up for free
			logger.Warn("chunk embedding failed",
				zap.String("chunk_id", chunk.ChunkID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		embedded++
		entries = append(entries, model.IndexEntry{
			ChunkID:     chunk.ChunkID,
			SourceID:    chunk.SourceID,
			Text:        chunk.Text,
			OffsetStart: chunk.OffsetStart,
			OffsetEnd:   chunk.OffsetEnd,
			ContentHash: chunkHash,
			Embedding:   vec,
			Ctime:       c.now(),
		})
	}
	if firstErr != nil {
		// nothing is committed, the previous state of the source stays
		// visible to queries
		return &model.IngestResult{
			SourceID:   doc.SourceID,
			Status:     model.IngestStatusFailed,
			ChunkCount: len(chunks),
			Embedded:   embedded,
			Error:      firstErr.Error(),
		}, nil
	}

	err = c.store.ReplaceSource(ctx, storage.ReplaceSourceInput{
		Fingerprint: model.Fingerprint{
			SourceID:        doc.SourceID,
			ContentHash:     contentHash,
			ChunkCount:      len(entries),
			LastProcessedAt: c.now(),
		},
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("source ingested",
		zap.Int("chunks", len(entries)),
		zap.Int("embedded", embedded),
		zap.Int("reused", len(entries)-embedded),
	)
	return &model.IngestResult{
		SourceID:   doc.SourceID,
		Status:     model.IngestStatusReingested,
		ChunkCount: len(entries),
		Embedded:   embedded,
	}, nil
}

func (c *Coordinator) priorEntries(ctx context.Context, sourceID string, hasFingerprint bool) (map[string]model.IndexEntry, error) {
	if !hasFingerprint {
		return nil, nil
	}
	list, err := c.store.EntriesBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.IndexEntry, len(list))
	for _, e := range list {
		out[e.ChunkID] = e
	}
	return out, nil
}

func (c *Coordinator) sourceLock(sourceID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[sourceID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[sourceID] = lock
	}
	return lock
}

func withChunkPosition(prev model.IndexEntry, chunk model.Chunk) model.IndexEntry {
	prev.OffsetStart = chunk.OffsetStart
	prev.OffsetEnd = chunk.OffsetEnd
	return prev
}
