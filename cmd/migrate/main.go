package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/minho-cho/card-billing-backend/internal/infrastructure/config"
)

const (
	migrationsTable = "schema_migrations"
	migrationsDir   = "migrations"
)

type migrationRecord struct {
	ID        string
	Filename  string
	AppliedAt time.Time
}

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, status, create")
		name   = flag.String("name", "", "Migration name (for create action)")
		steps  = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := &migrator{db: db}
	ctx := context.Background()

	switch *action {
	case "up":
		err = m.up(ctx, *steps)
	case "down":
		err = m.down(ctx, *steps)
	case "status":
		err = m.status(ctx)
	case "create":
		if *name == "" {
			slog.Error("migration name is required for create action")
			os.Exit(1)
		}
		err = m.create(*name)
	default:
		slog.Error("unknown action", "action", *action)
		os.Exit(1)
	}

	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

type migrator struct {
	db *sql.DB
}

func (m *migrator) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, migrationsTable)

	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *migrator) applied(ctx context.Context) (map[string]migrationRecord, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	query := fmt.Sprintf("SELECT id, filename, applied_at FROM %s ORDER BY applied_at", migrationsTable)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	records := make(map[string]migrationRecord)
	for rows.Next() {
		var rec migrationRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		records[rec.ID] = rec
	}

	return records, rows.Err()
}

func (m *migrator) pending(ctx context.Context) ([]string, error) {
	records, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migration files: %w", err)
	}
	sort.Strings(files)

	var out []string
	for _, file := range files {
		if _, ok := records[migrationID(filepath.Base(file))]; !ok {
			out = append(out, file)
		}
	}

	return out, nil
}

func (m *migrator) up(ctx context.Context, steps int) error {
	files, err := m.pending(ctx)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		slog.Info("no pending migrations")
		return nil
	}

	if steps > 0 && steps < len(files) {
		files = files[:steps]
	}

	for _, file := range files {
		if err := m.apply(ctx, file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		slog.Info("applied migration", "file", file)
	}

	slog.Info("migrations completed", "count", len(files))
	return nil
}

func (m *migrator) down(ctx context.Context, steps int) error {
	records, err := m.applied(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		slog.Info("no migrations to rollback")
		return nil
	}

	list := make([]migrationRecord, 0, len(records))
	for _, rec := range records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].AppliedAt.After(list[j].AppliedAt)
	})

	if steps > 0 && steps < len(list) {
		list = list[:steps]
	}

	for _, rec := range list {
		if err := m.rollback(ctx, rec); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", rec.Filename, err)
		}
		slog.Info("rolled back migration", "file", rec.Filename)
	}

	slog.Info("rollback completed", "count", len(list))
	return nil
}

func (m *migrator) status(ctx context.Context) error {
	records, err := m.applied(ctx)
	if err != nil {
		return err
	}

	files, err := m.pending(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Applied migrations: %d\n", len(records))
	for _, rec := range records {
		fmt.Printf("  %s - %s (applied at %s)\n",
			rec.ID, rec.Filename, rec.AppliedAt.Format(time.RFC3339))
	}

	fmt.Printf("\nPending migrations: %d\n", len(files))
	for _, file := range files {
		fmt.Printf("  %s - %s\n", migrationID(filepath.Base(file)), filepath.Base(file))
	}

	return nil
}

func (m *migrator) create(name string) error {
	timestamp := time.Now().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", timestamp, name)
	path := filepath.Join(migrationsDir, filename)

	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	content := fmt.Sprintf("-- Migration: %s\n-- Created at: %s\n\n", name, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create migration file: %w", err)
	}

	slog.Info("created migration", "file", path)
	return nil
}

func (m *migrator) apply(ctx context.Context, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, filename) VALUES ($1, $2)", migrationsTable)
	if _, err := tx.ExecContext(ctx, query, migrationID(filepath.Base(file)), filepath.Base(file)); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

func (m *migrator) rollback(ctx context.Context, rec migrationRecord) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", migrationsTable)
	if _, err := m.db.ExecContext(ctx, query, rec.ID); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	slog.Warn("migration rolled back - manual cleanup may be required", "migration", rec.Filename)
	return nil
}

func migrationID(filename string) string {
	return strings.TrimSuffix(filename, ".sql")
}
