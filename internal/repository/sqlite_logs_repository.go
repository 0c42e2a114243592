package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/limbo/routinewidget/pkg/entity"
	_ "modernc.org/sqlite"
)

// SQLiteLogsRepository keeps debug logs in a local SQLite file for
// single-node deployments without Postgres.
type SQLiteLogsRepository struct {
	conn *sql.DB
}

// NewSQLiteLogsRepo opens or creates the database at path and applies the schema.
func NewSQLiteLogsRepo(path string) (*SQLiteLogsRepository, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	repo := &SQLiteLogsRepository{conn: conn}
	if err := repo.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

func (sr *SQLiteLogsRepository) Close() error {
	return sr.conn.Close()
}

func (sr *SQLiteLogsRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS widget_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		log_id TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		meta TEXT NOT NULL DEFAULT '',
		log_timestamp INTEGER NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		viewport TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		received_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS widget_logs_received_at ON widget_logs (received_at);
	`
	_, err := sr.conn.Exec(schema)
	return err
}

func (sr *SQLiteLogsRepository) Save(ctx context.Context, rec *entity.RemoteLog) (int64, error) {
	if rec == nil {
		return 0, errors.New("log record is nil")
	}
	meta, err := encodeMeta(rec.Log.Meta)
	if err != nil {
		return 0, errors.New("encoding log meta error: " + err.Error())
	}
	res, err := sr.conn.ExecContext(ctx,
		`INSERT INTO widget_logs (log_id, level, message, meta, log_timestamp, user_agent, viewport, referrer, received_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Log.ID, string(rec.Log.Level), rec.Log.Message, meta, rec.Log.Timestamp, rec.UserAgent, rec.Viewport, rec.Referrer, rec.ReceivedAt.UnixMilli())
	if err != nil {
		return 0, errors.New("saving widget log db error: " + err.Error())
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.New("saving widget log db error: " + err.Error())
	}
	rec.ID = id
	return id, nil
}

func (sr *SQLiteLogsRepository) Recent(ctx context.Context, limit int) ([]entity.RemoteLog, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := sr.conn.QueryContext(ctx,
		`SELECT id, log_id, level, message, meta, log_timestamp, user_agent, viewport, referrer, received_at FROM widget_logs ORDER BY received_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.New("listing widget logs db error: " + err.Error())
	}
	defer rows.Close()
	result := make([]entity.RemoteLog, 0)
	for rows.Next() {
		var (
			rec   entity.RemoteLog
			level string
			meta  string
			at    int64
		)
		if err := rows.Scan(&rec.ID, &rec.Log.ID, &level, &rec.Log.Message, &meta, &rec.Log.Timestamp, &rec.UserAgent, &rec.Viewport, &rec.Referrer, &at); err != nil {
			return nil, errors.New("scanning widget log error: " + err.Error())
		}
		rec.Log.Level = entity.LogLevel(level)
		rec.ReceivedAt = time.UnixMilli(at)
		if rec.Log.Meta, err = decodeMeta(meta); err != nil {
			return nil, errors.New("decoding widget log meta error: " + err.Error())
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
