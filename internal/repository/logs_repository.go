package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/limbo/routinewidget/pkg/cleanup"
	"github.com/limbo/routinewidget/pkg/entity"
)

const defaultRecentLimit = 50

type LogsRepository struct {
	conn PgConnection
}

func NewLogsRepo(cfg DBConfig) *LogsRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for logsRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for logsRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &LogsRepository{
		conn: pool,
	}
}

func NewLogsRepoWithConn(conn PgConnection) *LogsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for logsRepo: " + err.Error())
	}
	return &LogsRepository{
		conn: conn,
	}
}

// encodeMeta returns "" for an absent meta object.
func encodeMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	return sonic.MarshalString(meta)
}

func decodeMeta(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := sonic.UnmarshalString(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (lr *LogsRepository) Save(ctx context.Context, rec *entity.RemoteLog) (int64, error) {
	if rec == nil {
		return 0, errors.New("log record is nil")
	}
	meta, err := encodeMeta(rec.Log.Meta)
	if err != nil {
		return 0, errors.New("encoding log meta error: " + err.Error())
	}
	var id int64
	row := lr.conn.QueryRow(ctx, `INSERT INTO widget_logs (log_id, level, message, meta, log_timestamp, user_agent, viewport, referrer, received_at) VALUES ($1, $2, $3, NULLIF($4, '')::jsonb, $5, $6, $7, $8, $9) RETURNING id;`,
		rec.Log.ID, string(rec.Log.Level), rec.Log.Message, meta, rec.Log.Timestamp, rec.UserAgent, rec.Viewport, rec.Referrer, rec.ReceivedAt)
	if err := row.Scan(&id); err != nil {
		return 0, errors.New("saving widget log db error: " + err.Error())
	}
	rec.ID = id
	return id, nil
}

func (lr *LogsRepository) Recent(ctx context.Context, limit int) ([]entity.RemoteLog, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := lr.conn.Query(ctx, `SELECT id, log_id, level, message, COALESCE(meta::text, ''), log_timestamp, user_agent, viewport, referrer, received_at FROM widget_logs ORDER BY received_at DESC, id DESC LIMIT $1;`, limit)
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
			at    time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Log.ID, &level, &rec.Log.Message, &meta, &rec.Log.Timestamp, &rec.UserAgent, &rec.Viewport, &rec.Referrer, &at); err != nil {
			return nil, errors.New("scanning widget log error: " + err.Error())
		}
		rec.Log.Level = entity.LogLevel(level)
		rec.ReceivedAt = at
		if rec.Log.Meta, err = decodeMeta(meta); err != nil {
			return nil, errors.New("decoding widget log meta error: " + err.Error())
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New("listing widget logs db error: " + err.Error())
	}
	return result, nil
}
