package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
)

const schema = `
	CREATE TABLE IF NOT EXISTS plate_reads (
		id           UUID PRIMARY KEY,
		image_path   TEXT NOT NULL,
		box_x        DOUBLE PRECISION NOT NULL,
		box_y        DOUBLE PRECISION NOT NULL,
		box_w        DOUBLE PRECISION NOT NULL,
		box_h        DOUBLE PRECISION NOT NULL,
		plate        TEXT NOT NULL DEFAULT '',
		characters   TEXT[] NOT NULL DEFAULT '{}',
		confidences  NUMERIC(5,2)[] NOT NULL DEFAULT '{}',
		methods      TEXT[] NOT NULL DEFAULT '{}',
		variants     JSONB NOT NULL DEFAULT '[]'::jsonb,
		duration_ms  BIGINT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS plate_reads_plate_idx ON plate_reads (plate);
	CREATE INDEX IF NOT EXISTS plate_reads_created_at_idx ON plate_reads (created_at);
`

// PostgresStore stores plate reads in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to databaseURL and checks the connection.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the plate_reads table and its indexes if missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRead inserts read. Saving the same ID twice is a no-op.
func (p *PostgresStore) SaveRead(ctx context.Context, read *PlateRead) error {
	if read == nil {
		return fmt.Errorf("read is required")
	}
	if read.ID == uuid.Nil {
		return apperrors.NewStorageFailedError("", fmt.Errorf("read ID is required"))
	}

	variantsJSON, err := json.Marshal(read.Variants)
	if err != nil {
		return apperrors.NewStorageFailedError(read.ID.String(), fmt.Errorf("failed to marshal variants: %w", err))
	}

	query := `
		INSERT INTO plate_reads (
			id, image_path, box_x, box_y, box_w, box_h,
			plate, characters, confidences, methods, variants,
			duration_ms, created_at
		) VALUES (
			$1::uuid, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, COALESCE($11::jsonb, '[]'::jsonb),
			$12, $13
		)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = p.db.ExecContext(
		ctx,
		query,
		read.ID.String(),           // $1
		read.ImagePath,             // $2
		read.Box.X,                 // $3
		read.Box.Y,                 // $4
		read.Box.W,                 // $5
		read.Box.H,                 // $6
		read.Plate,                 // $7
		pq.Array(read.Characters),  // $8
		pq.Array(read.Confidences), // $9
		pq.Array(read.Methods),     // $10
		variantsJSON,               // $11
		read.DurationMs,            // $12
		read.CreatedAt,             // $13
	)
	if err != nil {
		return apperrors.NewStorageFailedError(read.ID.String(), err)
	}

	return nil
}

// GetRead loads one read by ID.
func (p *PostgresStore) GetRead(ctx context.Context, id uuid.UUID) (*PlateRead, error) {
	query := `
		SELECT id, image_path, box_x, box_y, box_w, box_h,
		       plate, characters, confidences, methods, variants,
		       duration_ms, created_at
		FROM plate_reads
		WHERE id = $1::uuid
	`

	var (
		read         PlateRead
		idStr        string
		characters   pq.StringArray
		confidences  pq.Float64Array
		methods      pq.StringArray
		variantsJSON []byte
	)
	err := p.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &read.ImagePath,
		&read.Box.X, &read.Box.Y, &read.Box.W, &read.Box.H,
		&read.Plate, &characters, &confidences, &methods, &variantsJSON,
		&read.DurationMs, &read.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plate read not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plate read: %w", err)
	}

	if read.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid read ID %q: %w", idStr, err)
	}
	read.Characters = []string(characters)
	read.Confidences = []float64(confidences)
	read.Methods = []string(methods)
	if err := json.Unmarshal(variantsJSON, &read.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}

	return &read, nil
}

// Ping checks the database connection
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
