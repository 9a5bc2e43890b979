package config

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/tablegate/db"
	_ "github.com/syssam/tablegate/dialect/mysql"
	_ "github.com/syssam/tablegate/dialect/postgres"
	"github.com/syssam/tablegate/dialect/sql"
	_ "github.com/syssam/tablegate/dialect/sqlite"
	"github.com/syssam/tablegate/metadata"
	"github.com/syssam/tablegate/paginate"
)

// Env is an opened configuration: the adapter over one connection, the
// metadata store and the connection's statistics.
type Env struct {
	Adapter   *db.Adapter
	Store     *metadata.Store
	Paginator *paginate.Paginator

	stats   *sql.StatsConn
	watcher *metadata.Watcher
	cancel  context.CancelFunc
	done    chan error
}

// Open connects as described by cfg. Statements are counted, slow ones are
// logged as warnings, and with Debug set every statement is logged.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	env := &Env{}
	opts := []db.OpenOption{
		db.WithDriverLogger(logger),
		db.WithSession(func(s sql.Session) sql.Session {
			env.stats = sql.NewStatsConn(s,
				sql.WithSlowThreshold(cfg.SlowQueryThreshold),
				sql.WithSlowQueryLog(logger),
			)
			return env.stats
		}),
	}
	if cfg.Debug {
		opts = append(opts, db.WithSession(func(s sql.Session) sql.Session {
			return sql.NewDebugConn(s, logger)
		}))
	}
	d, err := db.Open(ctx, cfg.Driver, cfg.ConnConfig(), opts...)
	if err != nil {
		return nil, err
	}
	env.Adapter = db.New(d,
		db.WithAutoQuoteIdentifiers(cfg.AutoQuoteIdentifiers),
		db.WithLogger(logger),
	)
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	env.Paginator = paginate.New(env.Adapter, paginate.WithPageSize(pageSize))

	var loader metadata.Loader = metadata.Introspect{Adapter: env.Adapter}
	if cfg.MetadataDir != "" {
		loader = metadata.Dir(cfg.MetadataDir)
	}
	env.Store = metadata.NewStore(loader, metadata.WithStoreLogger(logger))

	if cfg.WatchMetadata && cfg.MetadataDir != "" {
		w, err := metadata.NewWatcher(env.Store, cfg.MetadataDir)
		if err != nil {
			return nil, errors.Join(err, d.Close())
		}
		wctx, cancel := context.WithCancel(context.Background())
		env.watcher, env.cancel, env.done = w, cancel, make(chan error, 1)
		go func() { env.done <- w.Run(wctx) }()
	}
	logger.Debug("tablegate opened", "driver", cfg.Driver, "database", cfg.Database, "metadata_dir", cfg.MetadataDir)
	return env, nil
}

// Stats returns the statement statistics of the connection.
func (e *Env) Stats() sql.StatsSnapshot { return e.stats.QueryStats().Stats() }

// Close stops the metadata watcher and closes the connection.
func (e *Env) Close() error {
	var errs []error
	if e.watcher != nil {
		e.cancel()
		errs = append(errs, <-e.done)
	}
	errs = append(errs, e.Adapter.Close())
	return errors.Join(errs...)
}
