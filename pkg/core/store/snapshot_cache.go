package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budget_explorer/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotCache provides snapshot lookup for the API layer.
// Hybrid: DB (primary) + file system (fallback/local), so a developer can run
// the explorer against a data directory with no Postgres around.
type SnapshotCache struct {
	pool    *pgxpool.Pool
	repo    *SnapshotRepo
	fileDir string
}

// NewSnapshotCache creates a cache instance. If pool is nil it falls back to
// a file-based cache in dir; an empty dir defaults to
// .cache/budget/snapshots.
func NewSnapshotCache(pool *pgxpool.Pool, dir string) *SnapshotCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "budget", "snapshots")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] Check SnapshotCache dir: %v\n", err)
		}
	}
	return &SnapshotCache{pool: pool, repo: NewSnapshotRepo(), fileDir: dir}
}

// cacheEntry is the on-disk envelope for one cached snapshot.
type cacheEntry struct {
	ID         string                 `json:"id"`
	Entity     string                 `json:"entity"`
	FiscalYear int                    `json:"fiscal_year"`
	Snapshot   *models.BudgetSnapshot `json:"snapshot"`
	StoredAt   time.Time              `json:"stored_at"`
}

// Get retrieves a snapshot by entity and fiscal year: DB first, then file.
func (c *SnapshotCache) Get(ctx context.Context, entity string, fiscalYear int) (*models.BudgetSnapshot, error) {
	if c.pool != nil {
		snap, err := c.repo.Load(ctx, entity, fiscalYear)
		if err == nil {
			return snap, nil
		}
		fmt.Printf("[STORE] DB miss for %s/%d, trying file cache: %v\n", entity, fiscalYear, err)
	}

	if c.fileDir == "" {
		return nil, fmt.Errorf("no snapshot for %s fiscal year %d", entity, fiscalYear)
	}

	data, err := os.ReadFile(c.entryPath(entity, fiscalYear))
	if err != nil {
		return nil, fmt.Errorf("no snapshot for %s fiscal year %d", entity, fiscalYear)
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for %s/%d: %w", entity, fiscalYear, err)
	}
	return entry.Snapshot, nil
}

// Put stores a snapshot in the DB when available and always in the file
// cache, so local state survives DB outages.
func (c *SnapshotCache) Put(ctx context.Context, snap *models.BudgetSnapshot, importID string) error {
	if importID == "" {
		importID = uuid.New().String()
	}

	if c.pool != nil {
		if err := c.repo.Save(ctx, snap, importID); err != nil {
			fmt.Printf("[STORE] DB save failed for %s/%d, file cache only: %v\n",
				snap.Metadata.Entity, snap.Metadata.FiscalYear, err)
		}
	}

	if c.fileDir == "" {
		return nil
	}

	entry := cacheEntry{
		ID:         importID,
		Entity:     snap.Metadata.Entity,
		FiscalYear: snap.Metadata.FiscalYear,
		Snapshot:   snap,
		StoredAt:   time.Now(),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	path := c.entryPath(snap.Metadata.Entity, snap.Metadata.FiscalYear)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Years lists the fiscal years available for an entity, DB first, file
// fallback.
func (c *SnapshotCache) Years(ctx context.Context, entity string) ([]int, error) {
	if c.pool != nil {
		years, err := c.repo.ListYears(ctx, entity)
		if err == nil && len(years) > 0 {
			return years, nil
		}
	}

	if c.fileDir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(c.fileDir, entity+"_*.json"))
	if err != nil {
		return nil, err
	}
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		var year int
		base := filepath.Base(m)
		if _, err := fmt.Sscanf(base[len(entity)+1:], "%d.json", &year); err == nil {
			years = append(years, year)
		}
	}
	return years, nil
}

func (c *SnapshotCache) entryPath(entity string, fiscalYear int) string {
	return filepath.Join(c.fileDir, fmt.Sprintf("%s_%d.json", entity, fiscalYear))
}
