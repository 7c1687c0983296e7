package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/shahidattar7777/pharma-doc-agent/internal/config"
	"github.com/shahidattar7777/pharma-doc-agent/internal/models"
)

const defaultVectorSize = 768

type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID             string  `bun:"id,pk"`
	Seq            int64   `bun:"seq,notnull"`
	Content        string  `bun:"content,notnull"`
	SourceFilename string  `bun:"source_filename,notnull"`
	PageNumber     int     `bun:"page_number,notnull"`
	ChunkIndex     int     `bun:"chunk_index,notnull"`
	Embedding      string  `bun:"embedding"`
	Score          float64 `bun:"score,scanonly"`
}

type metadataRow struct {
	bun.BaseModel `bun:"table:index_metadata,alias:m"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// PostgresStore keeps chunk vectors in a pgvector-enabled Postgres table.
type PostgresStore struct {
	db         *bun.DB
	vectorSize int
	modelName  string
}

func NewPostgresStore(cfg *config.DatabaseConfig, modelName string) (*PostgresStore, error) {
	vectorSize := cfg.VectorSize
	if vectorSize <= 0 {
		vectorSize = defaultVectorSize
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &PostgresStore{db: db, vectorSize: vectorSize, modelName: modelName}
	if err := s.init(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %v", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
		id text PRIMARY KEY,
		seq bigint NOT NULL,
		content text NOT NULL,
		source_filename text NOT NULL,
		page_number int NOT NULL,
		chunk_index int NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.vectorSize)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create chunks table: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS index_metadata (
		key text PRIMARY KEY,
		value text NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create metadata table: %v", err)
	}
	// recorded once at index creation, like chromem collection metadata
	row := metadataRow{Key: modelMetadataKey, Value: s.modelName}
	if _, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (key) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to record embedding model: %v", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, chunks []models.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var seq int64
	if err := s.db.NewSelect().
		Model((*chunkRow)(nil)).
		ColumnExpr("COALESCE(MAX(seq), 0)").
		Scan(ctx, &seq); err != nil {
		return fmt.Errorf("failed to read insertion sequence: %v", err)
	}

	rows := make([]chunkRow, len(chunks))
	for i, ec := range chunks {
		rows[i] = chunkRow{
			ID:             ec.ID(),
			Seq:            seq + int64(i) + 1,
			Content:        ec.Text,
			SourceFilename: ec.DocumentName,
			PageNumber:     ec.PageNumber,
			ChunkIndex:     ec.ChunkIndex,
			Embedding:      vectorLiteral(ec.Embedding),
		}
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("page_number = EXCLUDED.page_number").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store chunks: %v", err)
	}
	return nil
}

// Query ranks by cosine similarity so both backends score the same way.
func (s *PostgresStore) Query(ctx context.Context, embedding []float32, k int) (models.RetrievalResult, error) {
	if k <= 0 {
		return nil, nil
	}
	lit := vectorLiteral(embedding)

	var rows []chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "seq", "content", "source_filename", "page_number", "chunk_index").
		ColumnExpr("1 - (embedding <=> ?::vector) AS score", lit).
		OrderExpr("embedding <=> ?::vector ASC, seq ASC", lit).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %v", err)
	}

	retrieved := make(models.RetrievalResult, 0, len(rows))
	for _, row := range rows {
		retrieved = append(retrieved, models.ScoredChunk{
			Chunk: models.Chunk{
				Text:         row.Content,
				DocumentName: row.SourceFilename,
				PageNumber:   row.PageNumber,
				ChunkIndex:   row.ChunkIndex,
			},
			Score: float32(row.Score),
		})
	}
	return retrieved, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*chunkRow)(nil)).Count(ctx)
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.db.NewTruncateTable().Model((*chunkRow)(nil)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to truncate chunks: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// vectorLiteral renders a pgvector input literal like [0.1,0.2,0.3].
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
