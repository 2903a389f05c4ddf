package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"behaviorgate/internal/config"
	"behaviorgate/internal/models"
)

type DB struct {
	conn *sql.DB
}

func NewDB(cfg *config.Config) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS user_behaviors (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			payload JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verification_logs (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			ip_address TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			browser_fingerprint TEXT NOT NULL,
			reported_latitude DOUBLE PRECISION,
			reported_longitude DOUBLE PRECISION,
			time_on_page DOUBLE PRECISION,
			idle_time DOUBLE PRECISION,
			mouse_metrics JSONB NOT NULL,
			keyboard_metrics JSONB NOT NULL,
			validation_results JSONB NOT NULL,
			model_features DOUBLE PRECISION[] NOT NULL,
			is_bot BOOLEAN NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			user_behavior_id UUID REFERENCES user_behaviors(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_logs_timestamp ON verification_logs(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_logs_ip_address ON verification_logs(ip_address)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_logs_fingerprint ON verification_logs(browser_fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_logs_is_bot ON verification_logs(is_bot)`,
		`CREATE INDEX IF NOT EXISTS idx_user_behaviors_created_at ON user_behaviors(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}

	return nil
}

// CreateUserBehavior stores the raw telemetry payload. ID and CreatedAt are
// assigned when unset.
func (db *DB) CreateUserBehavior(ctx context.Context, behavior *models.UserBehavior) error {
	if behavior.ID == "" {
		behavior.ID = uuid.NewString()
	}
	if behavior.CreatedAt.IsZero() {
		behavior.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(behavior.Data)
	if err != nil {
		return fmt.Errorf("failed to encode behavior payload: %w", err)
	}

	query := `INSERT INTO user_behaviors (id, created_at, payload) VALUES ($1, $2, $3)`

	if _, err := db.conn.ExecContext(ctx, query, behavior.ID, behavior.CreatedAt, jsonValue(payload)); err != nil {
		return fmt.Errorf("failed to insert user behavior: %w", err)
	}
	return nil
}

// CreateVerificationLog writes the audit record. Records are never updated.
func (db *DB) CreateVerificationLog(ctx context.Context, entry *models.VerificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	mouse, err := json.Marshal(entry.MouseMetrics)
	if err != nil {
		return fmt.Errorf("failed to encode mouse metrics: %w", err)
	}
	keyboard, err := json.Marshal(entry.KeyboardMetrics)
	if err != nil {
		return fmt.Errorf("failed to encode keyboard metrics: %w", err)
	}
	results, err := json.Marshal(entry.ValidationResults)
	if err != nil {
		return fmt.Errorf("failed to encode validation results: %w", err)
	}

	features := entry.ModelFeatures
	if features == nil {
		features = []float64{}
	}

	query := `INSERT INTO verification_logs (id, timestamp, ip_address, user_agent, browser_fingerprint,
			  reported_latitude, reported_longitude, time_on_page, idle_time,
			  mouse_metrics, keyboard_metrics, validation_results, model_features,
			  is_bot, notes, user_behavior_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = db.conn.ExecContext(ctx, query,
		entry.ID, entry.Timestamp, textValue(entry.IPAddress), textValue(entry.UserAgent),
		textValue(entry.BrowserFingerprint),
		entry.ReportedLatitude, entry.ReportedLongitude, entry.TimeOnPage, entry.IdleTime,
		jsonValue(mouse), jsonValue(keyboard), jsonValue(results), pq.Array(features),
		entry.IsBot, textValue(entry.Notes), entry.UserBehaviorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification log: %w", err)
	}
	return nil
}

const verificationLogColumns = `id, timestamp, ip_address, user_agent, browser_fingerprint,
	reported_latitude, reported_longitude, time_on_page, idle_time,
	mouse_metrics, keyboard_metrics, validation_results, model_features,
	is_bot, notes, user_behavior_id`

// ListVerificationLogs returns one page of audit records, newest first,
// together with the number of records matching the filter.
func (db *DB) ListVerificationLogs(ctx context.Context, filter LogFilter, page, limit int) ([]models.VerificationLog, int, error) {
	where, args := filter.clause()

	var total int
	countQuery := `SELECT COUNT(*) FROM verification_logs` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count verification logs: %w", err)
	}

	offset := (page - 1) * limit
	listQuery := fmt.Sprintf(`SELECT %s FROM verification_logs%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		verificationLogColumns, where, len(args)+1, len(args)+2)

	rows, err := db.conn.QueryContext(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query verification logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.VerificationLog, 0, limit)
	for rows.Next() {
		entry, err := scanVerificationLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read verification logs: %w", err)
	}

	return logs, total, nil
}

func scanVerificationLog(rows *sql.Rows) (models.VerificationLog, error) {
	var (
		entry                    models.VerificationLog
		latitude, longitude      sql.NullFloat64
		timeOnPage, idleTime     sql.NullFloat64
		mouse, keyboard, results []byte
		features                 []float64
		behaviorID               sql.NullString
	)

	err := rows.Scan(
		&entry.ID, &entry.Timestamp, &entry.IPAddress, &entry.UserAgent, &entry.BrowserFingerprint,
		&latitude, &longitude, &timeOnPage, &idleTime,
		&mouse, &keyboard, &results, pq.Array(&features),
		&entry.IsBot, &entry.Notes, &behaviorID,
	)
	if err != nil {
		return entry, fmt.Errorf("failed to scan verification log: %w", err)
	}

	if err := json.Unmarshal(mouse, &entry.MouseMetrics); err != nil {
		return entry, fmt.Errorf("failed to decode mouse metrics for %s: %w", entry.ID, err)
	}
	if err := json.Unmarshal(keyboard, &entry.KeyboardMetrics); err != nil {
		return entry, fmt.Errorf("failed to decode keyboard metrics for %s: %w", entry.ID, err)
	}
	if err := json.Unmarshal(results, &entry.ValidationResults); err != nil {
		return entry, fmt.Errorf("failed to decode validation results for %s: %w", entry.ID, err)
	}

	entry.ReportedLatitude = nullFloat(latitude)
	entry.ReportedLongitude = nullFloat(longitude)
	entry.TimeOnPage = nullFloat(timeOnPage)
	entry.IdleTime = nullFloat(idleTime)
	entry.ModelFeatures = features
	if behaviorID.Valid {
		entry.UserBehaviorID = &behaviorID.String
	}

	return entry, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func (f LogFilter) clause() (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if f.IPAddress != "" {
		args = append(args, f.IPAddress)
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", len(args)))
	}
	if f.BrowserFingerprint != "" {
		args = append(args, f.BrowserFingerprint)
		conditions = append(conditions, fmt.Sprintf("browser_fingerprint = $%d", len(args)))
	}
	if f.IsBot != nil {
		args = append(args, *f.IsBot)
		conditions = append(conditions, fmt.Sprintf("is_bot = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// textValue makes s storable in a TEXT column, which rejects NUL and
// invalid UTF-8.
func textValue(s string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "\uFFFD")
}

var escapedNUL = []byte(`\u0000`)

// jsonValue drops \u0000 escapes from encoded JSON, which JSONB rejects.
func jsonValue(b []byte) string {
	if !bytes.Contains(b, escapedNUL) {
		return string(b)
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if bytes.HasPrefix(b[i:], escapedNUL) {
			i += len(escapedNUL) - 1
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return string(out)
}
