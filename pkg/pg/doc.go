// Package pg provides a PostgreSQL session store on top of pgx/v5, together
// with the helpers to connect to the database and create the schema.
//
// Sessions live in a single table:
//
//	sessions (id TEXT PRIMARY KEY, data JSONB NOT NULL, expires_at TIMESTAMPTZ)
//
// Migrate creates it with goose from migrations embedded in the package.
// Expired rows are invisible to reads and removed by DeleteExpired, which
// NewStoreFromConfig runs periodically.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
//	store := pg.NewStoreFromConfig(pool, cfg)
//	defer store.Close()
//
// # Readiness
//
// The store pings the pool every ReadinessInterval. While the database is
// unreachable it returns session.ErrStoreUnavailable and the session
// middleware serves requests without a session.
package pg
