package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/limbo/routinewidget/internal/kvstore"
	"github.com/limbo/routinewidget/internal/repository"
	"github.com/limbo/routinewidget/pkg/cleanup"
	"github.com/redis/go-redis/v9"
)

// openStore builds the widget key-value store selected by KV_BACKEND.
// Backend failures never abort: the store falls back to memory.
func openStore(app *App) *kvstore.Store {
	cfg := app.Config
	opts := []kvstore.Option{kvstore.WithNamespace(cfg.GetStringOr("KV_NAMESPACE", kvstore.DefaultNamespace))}

	switch strings.ToLower(cfg.GetStringOr("KV_BACKEND", "bolt")) {
	case "memory":
		return kvstore.NewMemory(opts...)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetStringOr("REDIS_ADDRESS", "localhost:6379"),
			Password: cfg.GetString("REDIS_PASSWORD"),
			DB:       cfg.GetInt("REDIS_DB", 0),
		})
		cleanup.Register(&cleanup.Job{Name: "closing redis client", F: client.Close})
		return kvstore.New(kvstore.NewRedisBackend(client), opts...)
	default:
		path := cfg.GetStringOr("KV_BOLT_PATH", "./widget.db")
		backend, err := kvstore.OpenBolt(path)
		if err != nil {
			slog.Warn("opening bolt store failed", slog.String("path", path), slog.String("error", err.Error()))
			return kvstore.NewMemory(opts...)
		}
		cleanup.Register(&cleanup.Job{Name: "closing bolt store", F: backend.Close})
		return kvstore.New(backend, opts...)
	}
}

// openLogsRepo returns the debug log sink selected by LOG_SINK, nil for none.
func openLogsRepo(app *App) (repository.LogsRepositoryI, error) {
	cfg := app.Config
	switch sink := strings.ToLower(cfg.GetStringOr("LOG_SINK", "none")); sink {
	case "none", "":
		return nil, nil
	case "postgres":
		dbCfg := repository.PGCfg{
			Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
			Username: cfg.GetString("POSTGRES_USER"),
			Password: cfg.GetString("POSTGRES_PASSWORD"),
			DB:       cfg.GetString("POSTGRES_DB"),
		}
		return repository.NewLogsRepo(&dbCfg), nil
	case "sqlite":
		repo, err := repository.NewSQLiteLogsRepo(cfg.GetStringOr("SQLITE_PATH", "./widget_logs.sqlite"))
		if err != nil {
			return nil, err
		}
		cleanup.Register(&cleanup.Job{Name: "closing sqlite logs", F: repo.Close})
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown LOG_SINK %q", sink)
	}
}
