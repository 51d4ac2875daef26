package retrieval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"triagemd/internal/llm"
)

// Candidate is one ranked flowchart suggestion.
type Candidate struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Raw         string  `json:"-"`
	Similarity  float64 `json:"similarity"`
}

// Ranker answers "which flowcharts sound like this concern" by cosine
// similarity between the query embedding and the stored catalog embeddings.
// It is read-only after indexing and safe for concurrent use.
type Ranker struct {
	db       *sql.DB
	embedder llm.Embedder
	log      *zap.Logger
}

// NewRanker constructs a ranker over an existing database handle.
func NewRanker(db *sql.DB, embedder llm.Embedder, log *zap.Logger) *Ranker {
	return &Ranker{db: db, embedder: embedder, log: log}
}

// Rank embeds the query and returns the top-k catalog entries by cosine
// similarity, best first. An empty result is a valid outcome the caller
// turns into a not-found refusal.
func (r *Ranker) Rank(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = 5
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	// Cosine distance in pgvector is 1 - cosine_similarity.
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, description, raw_line, 1 - (embedding <=> $1) AS similarity
         FROM flowchart_descriptions
         ORDER BY embedding <=> $1
         LIMIT $2`,
		pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("rank flowcharts: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Name, &c.Description, &c.Raw, &c.Similarity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count reports how many catalog entries are indexed.
func (r *Ranker) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flowchart_descriptions`).Scan(&n)
	return n, err
}

// Reindex parses the catalog file, embeds every description and upserts the
// rows. Called at startup when the table is empty or a reindex is forced;
// embedding the full AMA catalog is slow, so it is never done implicitly on
// a populated table.
func (r *Ranker) Reindex(ctx context.Context, catalogPath string) error {
	entries, err := LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		vec, err := r.embedder.Embed(ctx, e.Raw)
		if err != nil {
			return fmt.Errorf("embed %q: %w", e.Name, err)
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO flowchart_descriptions (name, description, raw_line, embedding)
             VALUES ($1, $2, $3, $4)
             ON CONFLICT (name) DO UPDATE
             SET description = EXCLUDED.description,
                 raw_line    = EXCLUDED.raw_line,
                 embedding   = EXCLUDED.embedding`,
			e.Name, e.Description, e.Raw, pgvector.NewVector(vec))
		if err != nil {
			return fmt.Errorf("upsert %q: %w", e.Name, err)
		}
	}
	r.log.Info("flowchart catalog indexed", zap.Int("entries", len(entries)))
	return nil
}
