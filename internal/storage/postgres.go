package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/forgelabs/scriptforge/internal/model"
	"github.com/forgelabs/scriptforge/internal/pkg/dbutil"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	Register("postgres", func(args interface{}) (Store, error) {
		cfg := postgresConfig{}
		if err := decodeConfig(args, &cfg); err != nil {
			return nil, err
		}
		return NewPostgres(cfg)
	})
}

type postgresConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type postgresStore struct {
	db *sql.DB
}

// NewPostgres opens the database, applies migrations, and returns a store
// backed by pgvector similarity search.
func NewPostgres(cfg postgresConfig) (Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", appErr.ErrStorage, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: ping postgres: %v", appErr.ErrStorage, err)
	}
	if err := applyMigrations(db); err != nil {
		return nil, fmt.Errorf("%w: apply migrations: %v", appErr.ErrStorage, err)
	}
	return &postgresStore{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return err
		}
		queries := strings.Split(string(content), ";")
		for _, q := range queries {
			q = strings.TrimSpace(q)
			if q == "" {
				continue
			}
			if _, err := db.Exec(q); err != nil {
				if strings.Contains(err.Error(), "already exists") {
					continue
				}
				return fmt.Errorf("execute query in %s: %w", file, err)
			}
		}
	}
	return nil
}

func (s *postgresStore) Fingerprint(ctx context.Context, sourceID string) (*model.Fingerprint, bool, error) {
	const query = `
		SELECT source_id, content_hash, chunk_count, last_processed_at
		FROM fingerprints
		WHERE source_id = $1
	`
	row := s.db.QueryRowContext(ctx, query, sourceID)
	var fp model.Fingerprint
	if err := row.Scan(&fp.SourceID, &fp.ContentHash, &fp.ChunkCount, &fp.LastProcessedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: query fingerprint: %v", appErr.ErrStorage, err)
	}
	return &fp, true, nil
}

func (s *postgresStore) ListFingerprints(ctx context.Context) ([]model.Fingerprint, error) {
	const query = `
		SELECT source_id, content_hash, chunk_count, last_processed_at
		FROM fingerprints
		ORDER BY source_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list fingerprints: %v", appErr.ErrStorage, err)
	}
	defer rows.Close()
	var out []model.Fingerprint
	for rows.Next() {
		var fp model.Fingerprint
		if err := rows.Scan(&fp.SourceID, &fp.ContentHash, &fp.ChunkCount, &fp.LastProcessedAt); err != nil {
			return nil, fmt.Errorf("%w: scan fingerprint: %v", appErr.ErrStorage, err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

func (s *postgresStore) EntriesBySource(ctx context.Context, sourceID string) ([]model.IndexEntry, error) {
	where := map[string]interface{}{
		"source_id": sourceID,
		"_orderby":  "seq asc",
	}
	sqlStr, args, err := builder.BuildSelect("index_entries",
		where, []string{"chunk_id", "source_id", "chunk_text", "offset_start", "offset_end", "content_hash", "embedding", "ctime"})
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %v", appErr.ErrStorage, err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %v", appErr.ErrStorage, err)
	}
	defer rows.Close()
	var out []model.IndexEntry
	for rows.Next() {
		var item model.IndexEntry
		var vec pgvector.Vector
		if err := rows.Scan(&item.ChunkID, &item.SourceID, &item.Text, &item.OffsetStart, &item.OffsetEnd, &item.ContentHash, &vec, &item.Ctime); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", appErr.ErrStorage, err)
		}
		item.Embedding = vec.Slice()
		out = append(out, item)
	}
	return out, rows.Err()
}

// ReplaceSource runs as one transaction so readers see either the previous
// state of the source or the new one, never a mix.
func (s *postgresStore) ReplaceSource(ctx context.Context, input ReplaceSourceInput) error {
	sourceID := input.Fingerprint.SourceID
	if sourceID == "" {
		return fmt.Errorf("%w: fingerprint source_id is required", appErr.ErrInvalid)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", appErr.ErrStorage, err)
	}
	defer tx.Rollback()

	if err := s.deleteEntriesExcept(ctx, tx, sourceID, input.Entries); err != nil {
		return err
	}
	const upsert = `
		INSERT INTO index_entries (chunk_id, source_id, chunk_text, offset_start, offset_end, content_hash, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id) DO UPDATE SET
			chunk_text = EXCLUDED.chunk_text,
			offset_start = EXCLUDED.offset_start,
			offset_end = EXCLUDED.offset_end,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	for _, e := range input.Entries {
		if _, err := tx.ExecContext(ctx, upsert,
			e.ChunkID, e.SourceID, e.Text, e.OffsetStart, e.OffsetEnd, e.ContentHash,
			pgvector.NewVector(e.Embedding), e.Ctime,
		); err != nil {
			return fmt.Errorf("%w: upsert entry %s: %v", appErr.ErrStorage, e.ChunkID, err)
		}
	}
	const upsertFP = `
		INSERT INTO fingerprints (source_id, content_hash, chunk_count, last_processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id) DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			chunk_count = EXCLUDED.chunk_count,
			last_processed_at = EXCLUDED.last_processed_at
	`
	if _, err := tx.ExecContext(ctx, upsertFP,
		input.Fingerprint.SourceID, input.Fingerprint.ContentHash,
		input.Fingerprint.ChunkCount, input.Fingerprint.LastProcessedAt,
	); err != nil {
		return fmt.Errorf("%w: upsert fingerprint: %v", appErr.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit replace: %v", appErr.ErrStorage, err)
	}
	return nil
}

func (s *postgresStore) deleteEntriesExcept(ctx context.Context, tx *sql.Tx, sourceID string, keep []model.IndexEntry) error {
	if len(keep) == 0 {
		const query = `DELETE FROM index_entries WHERE source_id = $1`
		if _, err := tx.ExecContext(ctx, query, sourceID); err != nil {
			return fmt.Errorf("%w: delete entries: %v", appErr.ErrStorage, err)
		}
		return nil
	}
	ids := make([]string, 0, len(keep))
	for _, e := range keep {
		ids = append(ids, e.ChunkID)
	}
	query, args, err := sqlx.In(`DELETE FROM index_entries WHERE source_id = ? AND chunk_id NOT IN (?)`, sourceID, ids)
	if err != nil {
		return fmt.Errorf("%w: build delete: %v", appErr.ErrStorage, err)
	}
	query, args = dbutil.Finalize(query, args)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: delete stale entries: %v", appErr.ErrStorage, err)
	}
	return nil
}

func (s *postgresStore) DeleteSource(ctx context.Context, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", appErr.ErrStorage, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("%w: delete entries: %v", appErr.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("%w: delete fingerprint: %v", appErr.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit delete: %v", appErr.ErrStorage, err)
	}
	return nil
}

func (s *postgresStore) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]model.ScoredEntry, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", appErr.ErrInvalid)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", appErr.ErrInvalid)
	}
	query := `
		SELECT chunk_id, source_id, chunk_text, offset_start, offset_end, content_hash, embedding, ctime,
		       1 - (embedding <=> ?) AS score
		FROM index_entries
	`
	args := []interface{}{pgvector.NewVector(vector)}
	if filter != nil && len(filter.SourceIDs) > 0 {
		in, inArgs, err := sqlx.In(`WHERE source_id IN (?)`, filter.SourceIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: build filter: %v", appErr.ErrStorage, err)
		}
		query += in + "\n"
		args = append(args, inArgs...)
	}
	query += `ORDER BY embedding <=> ? ASC, seq ASC LIMIT ?`
	args = append(args, pgvector.NewVector(vector), topK)
	query, args = dbutil.Finalize(query, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", appErr.ErrStorage, err)
	}
	defer rows.Close()
	var out []model.ScoredEntry
	for rows.Next() {
		var item model.IndexEntry
		var vec pgvector.Vector
		var score float32
		if err := rows.Scan(&item.ChunkID, &item.SourceID, &item.Text, &item.OffsetStart, &item.OffsetEnd, &item.ContentHash, &vec, &item.Ctime, &score); err != nil {
			return nil, fmt.Errorf("%w: scan search row: %v", appErr.ErrStorage, err)
		}
		item.Embedding = vec.Slice()
		out = append(out, model.ScoredEntry{Entry: item, Score: score})
	}
	return out, rows.Err()
}

func (s *postgresStore) CachedEmbedding(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	const query = `
		SELECT embedding
		FROM embedding_cache
		WHERE model_name = $1 AND task_type = $2 AND content_hash = $3
	`
	row := s.db.QueryRowContext(ctx, query, modelName, taskType, contentHash)
	var embedding pgvector.Vector
	if err := row.Scan(&embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: query embedding cache: %v", appErr.ErrStorage, err)
	}
	return embedding.Slice(), true, nil
}

func (s *postgresStore) SaveCachedEmbedding(ctx context.Context, item *model.EmbeddingCache) error {
	if item == nil {
		return fmt.Errorf("%w: nil cache item", appErr.ErrInvalid)
	}
	const query = `
		INSERT INTO embedding_cache (model_name, task_type, content_hash, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_name, task_type, content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ModelName, item.TaskType, item.ContentHash,
		pgvector.NewVector(item.Embedding), item.Ctime,
	)
	if err != nil {
		return fmt.Errorf("%w: save embedding cache: %v", appErr.ErrStorage, err)
	}
	return nil
}

func (s *postgresStore) PurgeCachedEmbeddings(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM embedding_cache WHERE ctime < $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: purge embedding cache: %v", appErr.ErrStorage, err)
	}
	return res.RowsAffected()
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
