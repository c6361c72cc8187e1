package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"budget_explorer/pkg/models"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepo handles Postgres storage of budget snapshots.
//
// Schema assumption (managed by migrations elsewhere):
//
//	CREATE TABLE IF NOT EXISTS budget_snapshots (
//	  entity TEXT NOT NULL,
//	  fiscal_year INT NOT NULL,
//	  schema_version TEXT,
//	  snapshot_json JSONB NOT NULL,
//	  import_id TEXT,
//	  updated_at TIMESTAMPTZ,
//	  PRIMARY KEY (entity, fiscal_year)
//	);
type SnapshotRepo struct{}

// NewSnapshotRepo creates a new repository instance.
func NewSnapshotRepo() *SnapshotRepo {
	return &SnapshotRepo{}
}

// Save upserts one snapshot, keyed on (entity, fiscal_year). importID tags
// which import run wrote the row.
func (r *SnapshotRepo) Save(ctx context.Context, snap *models.BudgetSnapshot, importID string) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO budget_snapshots (entity, fiscal_year, schema_version, snapshot_json, import_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity, fiscal_year)
		DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			snapshot_json = EXCLUDED.snapshot_json,
			import_id = EXCLUDED.import_id,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = pool.Exec(ctx, query,
		snap.Metadata.Entity, snap.Metadata.FiscalYear, snap.Metadata.SchemaVersion,
		jsonData, importID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load retrieves one snapshot by entity and fiscal year.
func (r *SnapshotRepo) Load(ctx context.Context, entity string, fiscalYear int) (*models.BudgetSnapshot, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT snapshot_json FROM budget_snapshots WHERE entity = $1 AND fiscal_year = $2`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, entity, fiscalYear).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no snapshot for %s fiscal year %d", entity, fiscalYear)
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap models.BudgetSnapshot
	if err := json.Unmarshal(jsonData, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// ListYears returns the fiscal years stored for an entity, ascending.
func (r *SnapshotRepo) ListYears(ctx context.Context, entity string) ([]int, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT fiscal_year FROM budget_snapshots WHERE entity = $1 ORDER BY fiscal_year ASC`, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}
	defer rows.Close()

	years := make([]int, 0)
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, year)
	}
	return years, rows.Err()
}
