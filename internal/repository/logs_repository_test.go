package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/limbo/routinewidget/internal/repository"
	"github.com/limbo/routinewidget/pkg/entity"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/pressly/goose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	receivedAt = time.Date(2025, time.March, 10, 1, 2, 3, 0, time.UTC)
	testLog    = entity.RemoteLog{
		Log: entity.LogEntry{
			ID:        "9b0e6f4c-2c1f-4bd4-9d3a-6a7c1c2f8e11",
			Timestamp: 1741568523000,
			Level:     entity.LevelWarn,
			Message:   "fetch failed",
			Meta:      map[string]any{"status": 500.0},
		},
		UserAgent:  "Mozilla/5.0",
		Viewport:   "390x844",
		Referrer:   "unknown",
		ReceivedAt: receivedAt,
	}
	logColumns = []string{"id", "log_id", "level", "message", "meta", "log_timestamp", "user_agent", "viewport", "referrer", "received_at"}
)

func TestSaveLog(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	query := regexp.QuoteMeta(`INSERT INTO widget_logs (log_id, level, message, meta, log_timestamp, user_agent, viewport, referrer, received_at) VALUES ($1, $2, $3, NULLIF($4, '')::jsonb, $5, $6, $7, $8, $9) RETURNING id;`)
	ctx := context.Background()
	repo := repository.NewLogsRepoWithConn(conn)

	t.Run("saved", func(t *testing.T) {
		rec := testLog
		conn.ExpectQuery(query).
			WithArgs(rec.Log.ID, "warn", rec.Log.Message, `{"status":500}`, rec.Log.Timestamp, rec.UserAgent, rec.Viewport, rec.Referrer, rec.ReceivedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
		id, err := repo.Save(ctx, &rec)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, int64(7), rec.ID)
	})
	t.Run("saved without meta", func(t *testing.T) {
		rec := testLog
		rec.Log.Meta = nil
		conn.ExpectQuery(query).
			WithArgs(rec.Log.ID, "warn", rec.Log.Message, "", rec.Log.Timestamp, rec.UserAgent, rec.Viewport, rec.Referrer, rec.ReceivedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
		_, err := repo.Save(ctx, &rec)
		assert.NoError(t, err)
	})
	t.Run("db error", func(t *testing.T) {
		rec := testLog
		conn.ExpectQuery(query).WillReturnError(errors.New("db error"))
		_, err := repo.Save(ctx, &rec)
		assert.Error(t, err)
	})
	t.Run("nil record", func(t *testing.T) {
		_, err := repo.Save(ctx, nil)
		assert.Error(t, err)
	})
	assert.NoError(t, conn.ExpectationsWereMet())
}

func TestRecentLogs(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	query := regexp.QuoteMeta(`SELECT id, log_id, level, message, COALESCE(meta::text, ''), log_timestamp, user_agent, viewport, referrer, received_at FROM widget_logs ORDER BY received_at DESC, id DESC LIMIT $1;`)
	ctx := context.Background()
	repo := repository.NewLogsRepoWithConn(conn)

	t.Run("listed", func(t *testing.T) {
		conn.ExpectQuery(query).WithArgs(10).WillReturnRows(pgxmock.NewRows(logColumns).
			AddRow(int64(2), "b", "error", "second", "", int64(2), "ua", "1x1", "ref", receivedAt.Add(time.Second)).
			AddRow(int64(1), testLog.Log.ID, "warn", testLog.Log.Message, `{"status": 500}`, testLog.Log.Timestamp, testLog.UserAgent, testLog.Viewport, testLog.Referrer, receivedAt))
		logs, err := repo.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, entity.LevelError, logs[0].Log.Level)
		assert.Nil(t, logs[0].Log.Meta)
		expected := testLog
		expected.ID = 1
		assert.Equal(t, expected, logs[1])
	})
	t.Run("default limit", func(t *testing.T) {
		conn.ExpectQuery(query).WithArgs(50).WillReturnRows(pgxmock.NewRows(logColumns))
		logs, err := repo.Recent(ctx, 0)
		assert.NoError(t, err)
		assert.Empty(t, logs)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectQuery(query).WithArgs(10).WillReturnError(errors.New("db error"))
		_, err := repo.Recent(ctx, 10)
		assert.Error(t, err)
	})
}

func TestSQLiteLogsRepository(t *testing.T) {
	repo, err := repository.NewSQLiteLogsRepo(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	first := testLog
	id, err := repo.Save(ctx, &first)
	require.NoError(t, err)
	assert.Positive(t, id)

	second := testLog
	second.Log.ID = "second"
	second.Log.Meta = nil
	second.ReceivedAt = receivedAt.Add(time.Minute)
	_, err = repo.Save(ctx, &second)
	require.NoError(t, err)

	logs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Log.ID)
	assert.Nil(t, logs[0].Log.Meta)
	assert.Equal(t, first.Log, logs[1].Log)
	assert.True(t, receivedAt.Equal(logs[1].ReceivedAt))

	logs, err = repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

type testPGConfig struct {
	connStr string
}

func (cfg *testPGConfig) ConnString() string {
	return cfg.connStr
}

func TestLogsRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	cfg := setupLogsTestDB(t)
	repo := repository.NewLogsRepo(cfg)
	ctx := context.Background()

	rec := testLog
	id, err := repo.Save(ctx, &rec)
	require.NoError(t, err)
	assert.Positive(t, id)

	logs, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, rec.Log, logs[0].Log)
	assert.Equal(t, rec.UserAgent, logs[0].UserAgent)
	assert.True(t, rec.ReceivedAt.Equal(logs[0].ReceivedAt))
}

func setupLogsTestDB(t *testing.T) *testPGConfig {
	container, err := postgres.Run(context.Background(), "postgres:17",
		postgres.WithUsername("test_user"),
		postgres.WithDatabase("widget"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatal("error running test container: " + err.Error())
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})
	connStr, err := container.ConnectionString(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	connStr += "sslmode=disable"
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	err = goose.Up(conn, "../../migrations")
	if err != nil {
		t.Fatal(err)
	}
	return &testPGConfig{
		connStr: connStr,
	}
}
