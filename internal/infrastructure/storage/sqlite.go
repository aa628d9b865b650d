package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"FraudShield/internal/domain"
	"FraudShield/internal/ports"
)

const (
	keyProtection = "protectionEnabled"
	keyAPIKey     = "classifierApiKey"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		url TEXT NOT NULL,
		risk_tier TEXT NOT NULL,
		source_tier TEXT NOT NULL,
		confidence REAL NOT NULL,
		indicators TEXT NOT NULL,
		reported_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_reported_at ON reports(reported_at)`,
}

// SQLiteStore keeps settings and the report log in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

var (
	_ ports.SettingsStore = (*SQLiteStore)(nil)
	_ ports.ReportLog     = (*SQLiteStore)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases and pragmas consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, stmt := range append(pragmas, schema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	return &SQLiteStore{
		db:  db,
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ProtectionEnabled defaults to true when nothing was stored yet.
func (s *SQLiteStore) ProtectionEnabled(ctx context.Context) (bool, error) {
	value, ok, err := s.get(ctx, keyProtection)
	if err != nil || !ok {
		return true, err
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true, fmt.Errorf("parse %s: %w", keyProtection, err)
	}
	return enabled, nil
}

func (s *SQLiteStore) SetProtectionEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, keyProtection, strconv.FormatBool(enabled))
}

func (s *SQLiteStore) ClassifierAPIKey(ctx context.Context) (string, error) {
	value, _, err := s.get(ctx, keyAPIKey)
	return value, err
}

func (s *SQLiteStore) SetClassifierAPIKey(ctx context.Context, key string) error {
	return s.set(ctx, keyAPIKey, key)
}

// Report appends a fraud report; re-reporting the same id replaces it.
func (s *SQLiteStore) Report(ctx context.Context, report domain.FraudReport) error {
	indicators, err := json.Marshal(nonNil(report.Indicators))
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}

	query, args, err := s.sql.Insert("reports").
		Columns("id", "alert_id", "unit_id", "platform", "url", "risk_tier", "source_tier", "confidence", "indicators", "reported_at").
		Values(
			report.ID,
			report.AlertID,
			report.UnitID,
			report.Platform,
			report.URL,
			report.RiskTier.String(),
			string(report.SourceTier),
			report.Confidence,
			string(indicators),
			report.ReportedAt.UnixMilli(),
		).
		Suffix("ON CONFLICT(id) DO UPDATE SET indicators = excluded.indicators, reported_at = excluded.reported_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert report: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Reports returns the newest reports first. limit <= 0 returns all of them.
func (s *SQLiteStore) Reports(ctx context.Context, limit int) ([]domain.FraudReport, error) {
	builder := s.sql.Select("id", "alert_id", "unit_id", "platform", "url", "risk_tier", "source_tier", "confidence", "indicators", "reported_at").
		From("reports").
		OrderBy("reported_at DESC", "id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reports: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []domain.FraudReport
	for rows.Next() {
		var (
			r          domain.FraudReport
			tier       string
			source     string
			indicators string
			reportedAt int64
		)
		if err := rows.Scan(&r.ID, &r.AlertID, &r.UnitID, &r.Platform, &r.URL, &tier, &source, &r.Confidence, &indicators, &reportedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.RiskTier, _ = domain.ParseRiskTier(tier)
		r.SourceTier = domain.SourceTier(source)
		r.ReportedAt = time.UnixMilli(reportedAt).UTC()
		if err := json.Unmarshal([]byte(indicators), &r.Indicators); err != nil {
			return nil, fmt.Errorf("decode indicators for %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := s.sql.Select("value").From("settings").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build select setting: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	query, args, err := s.sql.Insert("settings").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UnixMilli()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert setting: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
