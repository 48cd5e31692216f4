package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/catalogscan/internal/model"
	"github.com/shopspring/decimal"
)

// FileName is the name of the database file inside the database directory.
const FileName = "catalogscan.db"

// CatalogDB provides SQLite-based storage for run history.
// All runs of all catalogs share one database file.
type CatalogDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CatalogDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CatalogDB in the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CatalogDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}
	// Several processes may record runs in the same history.
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CatalogDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CatalogDB) Close() error {
	return cdb.db.Close()
}

// Path returns the path of the database file.
func (cdb *CatalogDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CatalogDB) createTables() error {
	schema := `
	-- One row per pipeline execution
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		catalog TEXT NOT NULL,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		digest TEXT,
		currency TEXT,
		delimiter TEXT,
		single_taxonomy INTEGER DEFAULT 0,
		raw_items INTEGER DEFAULT 0,
		products INTEGER DEFAULT 0,
		stats_json TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_catalog ON runs(catalog);

	-- Items as scraped, before normalization
	CREATE TABLE IF NOT EXISTS raw_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		taxonomy TEXT NOT NULL,
		name TEXT NOT NULL,
		price_text TEXT,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_raw_items_run ON raw_items(run_id);

	-- Reconciled products; category sets are JSON arrays
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		price TEXT,
		type_categories TEXT NOT NULL,
		use_categories TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_run ON products(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// runStats is the part of a run stored as JSON.
type runStats struct {
	Categories []model.CategoryStats  `json:"categories,omitempty"`
	Normalize  []model.NormalizeStats `json:"normalize,omitempty"`
	Reconcile  model.ReconcileStats   `json:"reconcile"`
	Outputs    []string               `json:"outputs,omitempty"`
	Steps      []string               `json:"steps,omitempty"`
}

// RunRecord is the metadata of a stored run.
// This is used for listing history without loading products.
type RunRecord struct {
	ID         int64
	Catalog    string
	Source     model.RunSource
	StartedAt  time.Time
	FinishedAt time.Time
	Digest     string
	RawItems   int
	Products   int
	Error      string
}

// SaveRun stores a run with its raw items and canonical products in one
// transaction and sets run.ID.
func (cdb *CatalogDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	statsJSON, err := json.Marshal(runStats{
		Categories: run.Categories,
		Normalize:  run.Normalize,
		Reconcile:  run.Reconcile,
		Outputs:    run.Outputs,
		Steps:      run.Steps,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run stats: %w", err)
	}

	var (
		currency  string
		delimiter string
		single    bool
		products  []model.CanonicalProduct
	)
	if run.Canonical != nil {
		currency = run.Canonical.Currency
		delimiter = run.Canonical.Delimiter
		single = run.Canonical.SingleTaxonomy
		products = run.Canonical.Products
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (catalog, source, started_at, finished_at, digest, currency, delimiter,
		single_taxonomy, raw_items, products, stats_json, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.Catalog,
		string(run.Source),
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Digest,
		currency,
		delimiter,
		single,
		run.RawCount(),
		len(products),
		string(statsJSON),
		run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	if err := insertRawItems(ctx, tx, id, run); err != nil {
		return 0, err
	}
	if err := insertProducts(ctx, tx, id, products); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return id, nil
}

func insertRawItems(ctx context.Context, tx *sql.Tx, runID int64, run *model.Run) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO raw_items (run_id, position, taxonomy, name, price_text, category)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare raw item insert: %w", err)
	}
	defer stmt.Close()

	pos := 0
	for _, taxonomy := range model.Taxonomies {
		for _, it := range run.Raw[taxonomy] {
			if _, err := stmt.ExecContext(ctx, runID, pos, taxonomy.String(), it.Name, it.PriceText, it.Category); err != nil {
				return fmt.Errorf("failed to save raw item: %w", err)
			}
			pos++
		}
	}
	return nil
}

func insertProducts(ctx context.Context, tx *sql.Tx, runID int64, products []model.CanonicalProduct) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO products (run_id, position, name, price, type_categories, use_categories)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare product insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range products {
		var price sql.NullString
		if p.Price.Valid {
			price = sql.NullString{String: model.FormatPrice(p.Price), Valid: true}
		}
		typeJSON, err := json.Marshal(p.TypeCategories)
		if err != nil {
			return fmt.Errorf("failed to serialize categories: %w", err)
		}
		useJSON, err := json.Marshal(p.UseCategories)
		if err != nil {
			return fmt.Errorf("failed to serialize categories: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, i, p.Name, price, string(typeJSON), string(useJSON)); err != nil {
			return fmt.Errorf("failed to save product: %w", err)
		}
	}
	return nil
}

const runColumns = `id, catalog, source, started_at, finished_at, digest, raw_items, products, error`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(s scanner, extra ...any) (RunRecord, error) {
	var (
		rec      RunRecord
		source   string
		started  string
		finished sql.NullString
		digest   sql.NullString
		runErr   sql.NullString
	)
	dest := append([]any{
		&rec.ID, &rec.Catalog, &source, &started, &finished, &digest, &rec.RawItems, &rec.Products, &runErr,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return RunRecord{}, err
	}
	rec.Source = model.RunSource(source)
	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished.String)
	rec.Digest = digest.String
	rec.Error = runErr.String
	return rec, nil
}

// ListRuns returns the run history of a catalog, newest first.
func (cdb *CatalogDB) ListRuns(ctx context.Context, catalog string) ([]RunRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT `+runColumns+` FROM runs
	WHERE catalog = ?
	ORDER BY id DESC
	`, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRun loads a run with its raw items and canonical products.
// Returns ErrRunNotFound when no run has the given id.
func (cdb *CatalogDB) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	var (
		currency  sql.NullString
		delimiter sql.NullString
		single    bool
		statsJSON sql.NullString
	)
	row := cdb.db.QueryRowContext(ctx, `
	SELECT `+runColumns+`, currency, delimiter, single_taxonomy, stats_json
	FROM runs WHERE id = ?
	`, id)
	rec, err := scanRunRecord(row, &currency, &delimiter, &single, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run := model.NewRun(rec.Catalog, rec.Source)
	run.ID = rec.ID
	run.StartedAt = rec.StartedAt
	run.FinishedAt = rec.FinishedAt
	run.Digest = rec.Digest
	run.Error = rec.Error

	if statsJSON.Valid && statsJSON.String != "" {
		var stats runStats
		if err := json.Unmarshal([]byte(statsJSON.String), &stats); err != nil {
			return nil, fmt.Errorf("failed to parse run stats: %w", err)
		}
		run.Categories = stats.Categories
		run.Normalize = stats.Normalize
		run.Reconcile = stats.Reconcile
		run.Outputs = stats.Outputs
		run.Steps = stats.Steps
	}

	raw, err := cdb.GetRawItems(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, it := range raw {
		run.Raw[it.Taxonomy] = append(run.Raw[it.Taxonomy], it)
	}

	products, err := cdb.GetProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Canonical = &model.CanonicalTable{
		Catalog:        rec.Catalog,
		Currency:       currency.String,
		Delimiter:      delimiter.String,
		SingleTaxonomy: single,
		Products:       products,
	}

	return run, nil
}

// GetProducts returns the canonical products of a run in table order.
func (cdb *CatalogDB) GetProducts(ctx context.Context, runID int64) ([]model.CanonicalProduct, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT name, price, type_categories, use_categories
	FROM products WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	var products []model.CanonicalProduct
	for rows.Next() {
		var (
			p        model.CanonicalProduct
			price    sql.NullString
			typeJSON string
			useJSON  string
		)
		if err := rows.Scan(&p.Name, &price, &typeJSON, &useJSON); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if price.Valid {
			d, err := decimal.NewFromString(price.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse price of %q: %w", p.Name, err)
			}
			p.Price = decimal.NewNullDecimal(d)
		}
		if err := json.Unmarshal([]byte(typeJSON), &p.TypeCategories); err != nil {
			return nil, fmt.Errorf("failed to parse categories of %q: %w", p.Name, err)
		}
		if err := json.Unmarshal([]byte(useJSON), &p.UseCategories); err != nil {
			return nil, fmt.Errorf("failed to parse categories of %q: %w", p.Name, err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetRawItems returns the raw items of a run in scrape order.
func (cdb *CatalogDB) GetRawItems(ctx context.Context, runID int64) ([]model.RawItem, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT taxonomy, name, price_text, category
	FROM raw_items WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raw items: %w", err)
	}
	defer rows.Close()

	var items []model.RawItem
	for rows.Next() {
		var (
			it        model.RawItem
			taxonomy  string
			priceText sql.NullString
		)
		if err := rows.Scan(&taxonomy, &it.Name, &priceText, &it.Category); err != nil {
			return nil, fmt.Errorf("failed to scan raw item: %w", err)
		}
		tx, err := model.ParseTaxonomy(taxonomy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse raw item: %w", err)
		}
		it.Taxonomy = tx
		it.PriceText = priceText.String
		items = append(items, it)
	}

	return items, rows.Err()
}

// LatestRuns loads up to n of the most recent runs of a catalog, newest first.
// Runs that stopped with an error are skipped.
func (cdb *CatalogDB) LatestRuns(ctx context.Context, catalog string, n int) ([]*model.Run, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id FROM runs
	WHERE catalog = ? AND (error IS NULL OR error = '')
	ORDER BY id DESC
	LIMIT ?
	`, catalog, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest runs: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// The single connection must be released before loading each run.
	_ = rows.Close()

	runs := make([]*model.Run, 0, len(ids))
	for _, id := range ids {
		run, err := cdb.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// ListCatalogs returns the names of all catalogs with at least one stored run.
func (cdb *CatalogDB) ListCatalogs(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT DISTINCT catalog FROM runs
	ORDER BY catalog
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	defer rows.Close()

	var catalogs []string
	for rows.Next() {
		var catalog string
		if err := rows.Scan(&catalog); err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		catalogs = append(catalogs, catalog)
	}

	return catalogs, rows.Err()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
